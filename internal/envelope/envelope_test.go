package envelope

import (
	"strings"
	"testing"

	"github.com/teeworlds-nats/bridge/internal/args"
)

func TestBridgeRoundTrip(t *testing.T) {
	b := Bridge{
		Text: "[chat]: 3:-1:alice: hello world",
		Args: args.Map(args.Pair("server_name", args.String("s"))),
	}
	encoded, err := Encode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(encoded), "\n") {
		t.Fatalf("expected pretty-printed (multi-line) JSON")
	}
	decoded, err := DecodeBridge(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Text != b.Text {
		t.Fatalf("text mismatch: %q", decoded.Text)
	}
	if got, _ := decoded.Args.Get("server_name"); got.AsString() != "s" {
		t.Fatalf("args not preserved: %v", decoded.Args)
	}
}

func TestDecodeBridgeMalformed(t *testing.T) {
	_, err := DecodeBridge([]byte("{not json"))
	if err == nil {
		t.Fatal("expected DecodeError")
	}
	var de *DecodeError
	if !asDecodeError(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	if de, ok := err.(*DecodeError); ok {
		*target = de
		return true
	}
	return false
}

func TestHandlerValueOrder(t *testing.T) {
	h := Handler{Text: "full", Value: []string{"alice", "hello world"}}
	encoded, err := Encode(h)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeHandler(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Value) != 2 || decoded.Value[0] != "alice" || decoded.Value[1] != "hello world" {
		t.Fatalf("value order not preserved: %v", decoded.Value)
	}
}
