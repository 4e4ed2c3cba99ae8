package chatbot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/broker"
	"github.com/teeworlds-nats/bridge/internal/emoji"
	"github.com/teeworlds-nats/bridge/internal/envelope"
	"github.com/teeworlds-nats/bridge/internal/template"
)

// FormatStep is one step of a format chain.
type FormatStep struct {
	Format string
	Escape bool
}

// WriterPath is one configured bot-writer egress.
type WriterPath struct {
	Index int

	To   []string
	Args args.Value

	Text    []FormatStep
	Reply   []FormatStep
	Media   []FormatStep
	Sticker []FormatStep
}

const maxTextRunes = 500

// RunWriter reads every update off pool's bots and publishes the
// Handler envelopes ProcessWriter produces, until ctx is cancelled.
func RunWriter(ctx context.Context, router *broker.Router, path WriterPath, pool *Pool, table *emoji.Table, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	merged := make(chan Update, 64)
	for i := 0; i < pool.Len(); i++ {
		bot := pool.Next()
		go func(b Bot) {
			for u := range b.Updates(ctx) {
				select {
				case merged <- u:
				case <-ctx.Done():
					return
				}
			}
		}(bot)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-merged:
			ProcessWriter(ctx, router, path, u, table, logger)
		}
	}
}

// ProcessWriter renders one chat update into a Handler envelope and
// publishes it to every configured outbound subject.
func ProcessWriter(ctx context.Context, pub Publisher, path WriterPath, u Update, table *emoji.Table, logger *slog.Logger) {
	if !u.HasContent() {
		return
	}

	effective := synthesizeArgs(path.Args, u)

	produced := runFormatChain(path.Text, u, "")
	if len(path.Reply) > 0 && u.HasReply {
		replyAux := u.ReplySticker
		replyOut := runFormatChain(path.Reply, u, replyAux)
		produced = append(replyOut, produced...)
	}
	if u.HasMedia {
		mediaOut := runFormatChain(path.Media, u, u.MediaCaption)
		produced = append(produced, mediaOut...)
	}
	if u.HasSticker {
		stickerOut := runFormatChain(path.Sticker, u, u.StickerEmoji)
		produced = append(produced, stickerOut...)
	}

	if table != nil {
		for i, s := range produced {
			produced[i] = table.Substitute(s)
		}
	}

	if len(produced) == 0 {
		return
	}

	h := envelope.Handler{Text: "", Value: produced, Args: effective}
	payload, err := envelope.Encode(h)
	if err != nil {
		logger.Warn("failed to encode handler envelope", "error", err)
		return
	}
	indexList := []string{strconv.Itoa(path.Index)}
	for _, to := range path.To {
		if err := pub.Publish(ctx, to, effective, indexList, payload); err != nil {
			logger.Warn("publish failed", "subject", to, "error", err)
		}
	}
}

// Publisher is the slice of broker.Router the writer depends on.
type Publisher interface {
	Publish(ctx context.Context, subjectTemplate string, a args.Value, list []string, payload []byte) error
}

// synthesizeArgs merges the chat update (as an args.Value) with the
// role's args, injecting message_thread_id, server_name, chat_id, and
// econ_divide.
func synthesizeArgs(roleArgs args.Value, u Update) args.Value {
	updateValue := args.Map(
		args.Pair("text", args.String(u.Text)),
		args.Pair("sender_name", args.String(u.SenderName)),
	)
	effective := args.Merge(roleArgs, updateValue)
	effective.Set("message_thread_id", args.Int(u.ThreadID))
	effective.Set("server_name", args.String(u.ForumTopicName))
	effective.Set("chat_id", args.Int(u.ChatID))
	effective.Set("econ_divide", args.Bool(true))
	return effective
}

// runFormatChain applies steps in order: each step's output feeds the
// next as {{1}}, with {{0}} the original text and {{2}} the auxiliary
// string (sticker emoji / media caption).
func runFormatChain(steps []FormatStep, u Update, aux string) []string {
	if len(steps) == 0 {
		return nil
	}
	original := normalizeText(u.Text)
	prev := original
	var out []string
	for _, step := range steps {
		list := []string{original, prev, aux}
		rendered := template.Render(step.Format, args.Null(), list)
		if step.Escape {
			rendered = escapeText(rendered)
		}
		out = append(out, rendered)
		prev = rendered
	}
	return out
}

// normalizeText flattens newlines to spaces and truncates to 500
// Unicode scalar values.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxTextRunes {
		runes = runes[:maxTextRunes]
	}
	return string(runes)
}

// escapeText backslash-escapes '"', '\'', and '\\'.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"', '\'', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
