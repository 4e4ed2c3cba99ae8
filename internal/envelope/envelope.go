// Package envelope implements the three JSON message shapes carried on
// the bus: Bridge, Handler, and Error.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/teeworlds-nats/bridge/internal/args"
)

// Bridge is emitted by a console bridge on each received console line.
type Bridge struct {
	Text string     `json:"text"`
	Args args.Value `json:"args"`
}

// Handler is emitted by transformers and by bot readers/writers.
type Handler struct {
	Text  string     `json:"text"`
	Value []string   `json:"value"`
	Args  args.Value `json:"args"`
}

// Error reports a dropped command to the configured errors subject after
// reconnect exhaustion.
type Error struct {
	Text    string `json:"text"`
	Publish bool   `json:"publish"`
}

// Encode renders v as pretty-printed JSON.
func Encode(v interface{}) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("envelope: encode: %w", err)
	}
	return b, nil
}

// DecodeBridge parses a Bridge envelope. A DecodeError is returned on
// malformed UTF-8 JSON; callers log and skip rather than fail the
// whole subscriber loop.
func DecodeBridge(data []byte) (Bridge, error) {
	var b Bridge
	if err := json.Unmarshal(data, &b); err != nil {
		return Bridge{}, &DecodeError{Shape: "bridge", Err: err}
	}
	return b, nil
}

// DecodeHandler parses a Handler envelope.
func DecodeHandler(data []byte) (Handler, error) {
	var h Handler
	if err := json.Unmarshal(data, &h); err != nil {
		return Handler{}, &DecodeError{Shape: "handler", Err: err}
	}
	return h, nil
}

// DecodeError is the taxonomy entry for an inbound message that is not
// valid UTF-8 JSON for the envelope shape expected.
type DecodeError struct {
	Shape string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("envelope: decode %s: %v", e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
