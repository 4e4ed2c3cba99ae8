// Package transform implements the transformer role: a per-path regex
// pipeline converting Bridge envelopes into Handler envelopes, plus an
// auto-detect log parser and a nickname/chat content blocklist.
package transform

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/envelope"
)

// BlockRule is one (pattern, replacement) pair applied to a captured
// group before publish.
type BlockRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Path is one ingress -> regex-set -> egress tuple.
type Path struct {
	Index int // used as {{0}} when templating the default queue name.

	From  []string
	To    []string
	Queue string // default "handler_{{0}}"

	Rules []*regexp.Regexp
	Args  args.Value

	// Auto switches this Path to the two built-in log-line regexes,
	// emitting a LogEnvelope instead of running Rules.
	Auto bool

	// Block is applied, in order, to every captured group before it is
	// placed into the outbound Handler envelope's value slice.
	Block []BlockRule
}

// LogEnvelope is the structured shape emitted when Path.Auto is set.
type LogEnvelope struct {
	Timestamp    string `json:"timestamp"`
	LoggingLevel string `json:"logging_level"`
	LoggingName  string `json:"logging_name"`
	Text         string `json:"text"`
}

// Built-in regexes for Path.Auto: a DDNet-style timestamped line and a
// bracketed-name Teeworlds line.
var (
	autoDDNetRe     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) (I|E) ([a-z]+): (.*)$`)
	autoTeeworldsRe = regexp.MustCompile(`^\[(\w+)\]: (.*)$`)
)

// Publisher is the slice of broker.Router the Transformer depends on;
// Process accepts the interface so any publisher, such as a recording
// fake, can stand in for a *broker.Router.
type Publisher interface {
	Publish(ctx context.Context, subjectTemplate string, a args.Value, list []string, payload []byte) error
}

// Process applies path to a single ingress Bridge envelope: regex
// matching, blocklist substitution, and (if Path.Auto) the built-in
// log-line parser. Decode errors are the caller's responsibility — the
// subscriber loop decodes and logs a DecodeError before calling Process.
func Process(ctx context.Context, pub Publisher, path Path, msg envelope.Bridge, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	effective := args.Merge(path.Args, msg.Args)

	if path.Auto {
		processAuto(ctx, pub, path, msg, effective, logger)
		return
	}

	for _, re := range path.Rules {
		groups := re.FindStringSubmatch(msg.Text)
		if groups == nil {
			continue
		}
		value := applyBlock(groups[1:], path.Block)
		h := envelope.Handler{Text: groups[0], Value: value, Args: effective}
		publishHandler(ctx, pub, path, h, value, logger)
		// Stop at the first matching rule; well-formed path configs keep
		// their regex sets disjoint anyway, so this is equivalent to
		// matching every rule for any sane config.
		return
	}
}

func processAuto(ctx context.Context, pub Publisher, path Path, msg envelope.Bridge, effective args.Value, logger *slog.Logger) {
	if groups := autoDDNetRe.FindStringSubmatch(msg.Text); groups != nil {
		env := LogEnvelope{Timestamp: groups[1], LoggingLevel: groups[2], LoggingName: groups[3], Text: groups[4]}
		publishAutoEnvelope(ctx, pub, path, env, []string{env.Timestamp, env.LoggingLevel, env.LoggingName, env.Text}, effective, logger)
		return
	}
	if groups := autoTeeworldsRe.FindStringSubmatch(msg.Text); groups != nil {
		env := LogEnvelope{LoggingName: groups[1], Text: groups[2]}
		publishAutoEnvelope(ctx, pub, path, env, []string{env.LoggingName, env.Text}, effective, logger)
		return
	}
}

func publishAutoEnvelope(ctx context.Context, pub Publisher, path Path, env LogEnvelope, list []string, effective args.Value, logger *slog.Logger) {
	payload, err := envelope.Encode(env)
	if err != nil {
		logger.Warn("failed to encode log envelope", "error", err)
		return
	}
	for _, to := range path.To {
		if err := pub.Publish(ctx, to, effective, list, payload); err != nil {
			logger.Warn("publish failed", "subject", to, "error", err)
		}
	}
}

func publishHandler(ctx context.Context, pub Publisher, path Path, h envelope.Handler, list []string, logger *slog.Logger) {
	payload, err := envelope.Encode(h)
	if err != nil {
		logger.Warn("failed to encode handler envelope", "error", err)
		return
	}
	for _, to := range path.To {
		if err := pub.Publish(ctx, to, h.Args, list, payload); err != nil {
			logger.Warn("publish failed", "subject", to, "error", err)
		}
	}
}

func applyBlock(groups []string, rules []BlockRule) []string {
	if len(rules) == 0 {
		return groups
	}
	out := make([]string, len(groups))
	copy(out, groups)
	for i, g := range out {
		for _, r := range rules {
			g = r.Pattern.ReplaceAllString(g, r.Replacement)
		}
		out[i] = g
	}
	return out
}

// DefaultBlockRules returns the default chat/nickname blocklist,
// stripping "tw/" and "twitch.tv/" prefixes.
func DefaultBlockRules() []BlockRule {
	return []BlockRule{
		{Pattern: regexp.MustCompile(`tw/`), Replacement: ""},
		{Pattern: regexp.MustCompile(`twitch\.tv/`), Replacement: ""},
	}
}
