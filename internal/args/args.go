// Package args implements a free-form, recursive value: a
// tagged-variant tree of scalars, ordered mappings, and sequences used
// throughout the bridge as the "args" payload of every envelope and as
// the right-hand side of template expansion.
package args

import (
	"fmt"
	"strconv"
)

// Kind enumerates the shapes a Value can take.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindSeq
	KindMap
)

// Value is a free-form value: exactly one of the typed fields below is
// meaningful, selected by Kind. Zero Value is KindNull.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	seq  []Value
	m    map[string]Value
	// keys preserves insertion order for Map, since Go maps don't.
	keys []string
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps a signed integer scalar.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating point scalar.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Seq wraps an ordered sequence of values. The slice is copied.
func Seq(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindSeq, seq: cp}
}

// Map builds an ordered mapping from the given key/value pairs, in the
// order given.
func Map(pairs ...KV) Value {
	v := Value{kind: KindMap, m: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		v.Set(p.Key, p.Val)
	}
	return v
}

// KV is one key/value pair used to build a Map in declared order.
type KV struct {
	Key string
	Val Value
}

// Pair is a convenience constructor for KV.
func Pair(key string, val Value) KV { return KV{Key: key, Val: val} }

// Kind reports the Value's shape.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Set inserts or overwrites key in a map Value, preserving first-seen
// order for new keys. On a Null Value, Set first turns it into an empty
// map; on any other non-map Value it is a no-op (does nothing).
func (v *Value) Set(key string, val Value) {
	if v.kind != KindMap {
		if v.kind != KindNull {
			return
		}
		v.kind = KindMap
		v.m = make(map[string]Value)
	}
	if _, exists := v.m[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.m[key] = val
}

// Get looks up a top-level key in a map Value. Returns (Null, false) if v
// is not a map or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null(), false
	}
	val, ok := v.m[key]
	return val, ok
}

// Keys returns the ordered top-level keys of a map Value, or nil otherwise.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// SeqValues returns the elements of a sequence Value, or nil otherwise.
func (v Value) SeqValues() []Value {
	if v.kind != KindSeq {
		return nil
	}
	out := make([]Value, len(v.seq))
	copy(out, v.seq)
	return out
}

// Path walks a dot-separated path of map keys: any missing segment or
// non-map intermediate returns (Null, false).
func (v Value) Path(segments []string) (Value, bool) {
	cur := v
	for _, seg := range segments {
		next, ok := cur.Get(seg)
		if !ok {
			return Null(), false
		}
		cur = next
	}
	return cur, true
}

// AsString stringifies a scalar: strings verbatim, ints/bools via
// canonical decimal/true-false text, floats via their canonical text,
// anything else (null, seq, map) as empty string.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return ""
	}
}

// AsInt64 returns the value interpreted as an int64 and whether the Value
// was a scalar for which that conversion is meaningful (int or bool;
// string/float intentionally excluded here — use the package-level
// AsInt64 below for the lenient coercing reader).
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Clone deep-copies v. Envelopes and merge results never alias their
// input.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSeq:
		out := make([]Value, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Clone()
		}
		return Value{kind: KindSeq, seq: out}
	case KindMap:
		out := make(map[string]Value, len(v.m))
		keys := make([]string, len(v.keys))
		copy(keys, v.keys)
		for k, val := range v.m {
			out[k] = val.Clone()
		}
		return Value{kind: KindMap, m: out, keys: keys}
	default:
		return v
	}
}

// Merge performs a shallow merge: for every top-level key k of new,
// merge(original, new)[k] == new[k]; every other key of original is
// kept untouched. Nested mappings are never merged recursively. If one
// side is null and the other a mapping, the mapping wins; otherwise
// original wins (e.g. original is a scalar and new is null).
func Merge(original, newer Value) Value {
	if newer.IsNull() {
		return original.Clone()
	}
	if original.IsNull() {
		if newer.kind == KindMap {
			return newer.Clone()
		}
		return original.Clone()
	}
	if original.kind != KindMap || newer.kind != KindMap {
		return original.Clone()
	}
	out := original.Clone()
	for _, k := range newer.keys {
		out.Set(k, newer.m[k].Clone())
	}
	return out
}

// AsInt64 reads a scalar from args at the given top-level key and
// coerces it into an int64, falling back to def on any failure. The
// coercion chain is string -> int -> bool -> float (truncated, only if
// it has no fractional part).
func AsInt64(a Value, key string, def int64) int64 {
	v, ok := a.Get(key)
	if !ok {
		return def
	}
	switch v.kind {
	case KindString:
		if n, err := strconv.ParseInt(v.str, 10, 64); err == nil {
			return n
		}
		return def
	case KindInt:
		return v.i
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindFloat:
		if v.f == float64(int64(v.f)) {
			return int64(v.f)
		}
		return def
	default:
		return def
	}
}

// AsString reads a scalar from args at the given top-level key, coercing
// non-string scalars to their canonical text, falling back to def on any
// failure (missing key, or a seq/map value).
func AsString(a Value, key string, def string) string {
	v, ok := a.Get(key)
	if !ok {
		return def
	}
	switch v.kind {
	case KindString, KindInt, KindBool, KindFloat:
		return v.AsString()
	default:
		return def
	}
}

// AsBool reads a scalar from args at the given top-level key, falling
// back to def on any failure.
func AsBool(a Value, key string, def bool) bool {
	v, ok := a.Get(key)
	if !ok {
		return def
	}
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		switch v.str {
		case "true":
			return true
		case "false":
			return false
		default:
			return def
		}
	case KindInt:
		return v.i != 0
	default:
		return def
	}
}

// String implements fmt.Stringer for debugging/log output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindSeq:
		return fmt.Sprintf("seq(%d)", len(v.seq))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.keys))
	default:
		return v.AsString()
	}
}
