package args

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMergeShallow(t *testing.T) {
	original := Map(
		Pair("a", String("1")),
		Pair("b", Map(Pair("nested", String("orig")))),
	)
	newer := Map(
		Pair("b", Map(Pair("nested", String("new")))),
		Pair("c", String("3")),
	)

	merged := Merge(original, newer)

	if got, _ := merged.Get("a"); got.AsString() != "1" {
		t.Fatalf("a should be kept from original, got %v", got)
	}
	if got, _ := merged.Get("c"); got.AsString() != "3" {
		t.Fatalf("c should come from new, got %v", got)
	}
	b, _ := merged.Get("b")
	nested, _ := b.Get("nested")
	if nested.AsString() != "new" {
		t.Fatalf("b should be entirely replaced by new (shallow merge), got %v", nested)
	}
}

func TestMergeNullSides(t *testing.T) {
	m := Map(Pair("x", Int(1)))
	if got := Merge(Null(), m); got.Kind() != KindMap {
		t.Fatalf("null original + map new should yield the map")
	}
	if got := Merge(m, Null()); got.Kind() != KindMap {
		t.Fatalf("map original + null new should yield the original map")
	}
	s := String("scalar")
	if got := Merge(s, Null()); got.AsString() != "scalar" {
		t.Fatalf("original wins when new is null and original is scalar")
	}
}

func TestAsInt64Coercion(t *testing.T) {
	a := Map(
		Pair("from_string", String("42")),
		Pair("from_int", Int(7)),
		Pair("from_bool", Bool(true)),
		Pair("from_float_whole", Float(9.0)),
		Pair("from_float_frac", Float(9.5)),
		Pair("garbage", String("nope")),
	)
	cases := []struct {
		key string
		def int64
		exp int64
	}{
		{"from_string", -1, 42},
		{"from_int", -1, 7},
		{"from_bool", -1, 1},
		{"from_float_whole", -1, 9},
		{"from_float_frac", -1, -1},
		{"garbage", -1, -1},
		{"missing", -5, -5},
	}
	for _, c := range cases {
		if got := AsInt64(a, c.key, c.def); got != c.exp {
			t.Errorf("AsInt64(%q) = %d, want %d", c.key, got, c.exp)
		}
	}
}

func TestPathWalk(t *testing.T) {
	v := Map(Pair("a", Map(Pair("b", String("c")))))
	got, ok := v.Path([]string{"a", "b"})
	if !ok || got.AsString() != "c" {
		t.Fatalf("expected a.b == c, got %v ok=%v", got, ok)
	}
	if _, ok := v.Path([]string{"a", "missing"}); ok {
		t.Fatalf("expected missing path segment to fail")
	}
	if _, ok := v.Path([]string{"a", "b", "c"}); ok {
		t.Fatalf("expected walking through a scalar to fail")
	}
}

func TestJSONRoundTripPreservesOrder(t *testing.T) {
	v := Map(Pair("z", Int(1)), Pair("a", Int(2)), Pair("m", Int(3)))
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"z":1,"a":2,"m":3}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}

	var decoded Value
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Keys()[0] != "z" || decoded.Keys()[2] != "m" {
		t.Fatalf("decode did not preserve key order: %v", decoded.Keys())
	}
}

func TestYAMLDecode(t *testing.T) {
	var v Value
	doc := "server_name: s1\nmessage_thread_id: 5\nenabled: true\nratio: 1.5\n"
	if err := yaml.Unmarshal([]byte(doc), &v); err != nil {
		t.Fatal(err)
	}
	if AsString(v, "server_name", "") != "s1" {
		t.Fatalf("expected server_name s1")
	}
	if AsInt64(v, "message_thread_id", -1) != 5 {
		t.Fatalf("expected message_thread_id 5")
	}
	if !AsBool(v, "enabled", false) {
		t.Fatalf("expected enabled true")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Map(Pair("n", Map(Pair("x", Int(1)))))
	clone := orig.Clone()
	n, _ := clone.Get("n")
	n.Set("y", Int(2))
	origN, _ := orig.Get("n")
	if _, ok := origN.Get("y"); ok {
		t.Fatalf("mutating a clone must not affect the original")
	}
}
