package args

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML builds a Value from an arbitrary YAML node, preserving
// mapping key order (yaml.v3 gives us that via yaml.Node, unlike a plain
// map[string]interface{} target).
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	val, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func fromYAMLNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)
	case yaml.ScalarNode:
		return fromYAMLScalar(node)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return Null(), err
			}
			items = append(items, v)
		}
		return Seq(items...), nil
	case yaml.MappingNode:
		out := Value{kind: KindMap, m: make(map[string]Value)}
		for i := 0; i+1 < len(node.Content); i += 2 {
			k := node.Content[i]
			var key string
			if err := k.Decode(&key); err != nil {
				return Null(), fmt.Errorf("args: non-string map key: %w", err)
			}
			val, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return Null(), err
			}
			out.Set(key, val)
		}
		return out, nil
	default:
		return Null(), nil
	}
}

func fromYAMLScalar(node *yaml.Node) (Value, error) {
	if node.Tag == "!!null" {
		return Null(), nil
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Null(), err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return Null(), err
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Null(), err
		}
		return Float(f), nil
	default:
		return String(node.Value), nil
	}
}

// MarshalYAML renders v back into a plain Go value yaml.v3 knows how to
// encode (used by config default-file generation).
func (v Value) MarshalYAML() (interface{}, error) {
	return toPlain(v), nil
}

func toPlain(v Value) interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindSeq:
		out := make([]interface{}, len(v.seq))
		for i, e := range v.seq {
			out[i] = toPlain(e)
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.keys))
		for _, k := range v.keys {
			out[k] = toPlain(v.m[k])
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v as JSON, preserving map key order (the envelope
// wire format is pretty-printed JSON where insertion order matters;
// encoding/json on a plain map would sort keys instead).
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		fmt.Fprintf(buf, "%d", v.i)
	case KindFloat:
		b, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindSeq:
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSON(buf, v.m[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON parses v from JSON, preserving object key order via
// json.Decoder's token stream (encoding/json's map target would not).
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return jsonTokenToValue(tok, dec)
}

func jsonTokenToValue(tok json.Token, dec *json.Decoder) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := Value{kind: KindMap, m: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Null(), err
				}
				out.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null(), err
			}
			return out, nil
		case '[':
			var items []Value
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null(), err
			}
			return Seq(items...), nil
		default:
			return Null(), fmt.Errorf("args: unexpected JSON delimiter %q", t)
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Float(f), nil
	default:
		return Null(), fmt.Errorf("args: unsupported JSON token type %T", tok)
	}
}
