// Package template implements {{...}} placeholder expansion: a
// single-pass lexer resolved against a structured args.Value and a
// positional list of capture-group strings.
package template

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/teeworlds-nats/bridge/internal/args"
)

// placeholderRe is compiled once per process.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Render expands every {{expr}} placeholder in s against (a, list).
// Nested placeholders are not recursively expanded in a single pass.
// If s contains no "{{", s is returned unchanged without allocating.
func Render(s string, a args.Value, list []string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	effective := withConvenienceFields(a)
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		key := strings.TrimSpace(sub[1])
		return resolve(key, effective, list)
	})
}

// withConvenienceFields synthesises server_name and message_thread_id
// into a copy of a so templates can reference them without knowing
// which path-specific keys they were sourced from.
func withConvenienceFields(a args.Value) args.Value {
	out := a.Clone()

	serverNameKey := args.AsString(a, "path_server_name", "")
	if serverNameKey == "" {
		serverNameKey = "server_name"
	}
	serverName := args.AsString(a, serverNameKey, "")
	out.Set("server_name", args.String(serverName))

	threadKey := args.AsString(a, "path_thread_id", "")
	if threadKey == "" {
		threadKey = "message_thread_id"
	}
	threadID := args.AsInt64(a, threadKey, -1)
	out.Set("message_thread_id", args.Int(threadID))

	return out
}

func resolve(key string, a args.Value, list []string) string {
	if i, err := strconv.Atoi(key); err == nil {
		if i >= 0 && i < len(list) {
			return list[i]
		}
		return ""
	}
	segments := strings.Split(key, ".")
	v, ok := a.Path(segments)
	if !ok {
		return ""
	}
	return v.AsString()
}
