package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/broker"
	"github.com/teeworlds-nats/bridge/internal/envelope"
	"github.com/teeworlds-nats/bridge/internal/template"
)

// DefaultMessageText is the default message_text template.
const DefaultMessageText = "{{0}}: {{1}}"

// ReaderPath is one configured bot-reader subscription.
type ReaderPath struct {
	Index int

	From  []string
	Queue string

	Args args.Value

	MessageText   string
	MessageRegex  string
	NotStartsWith string
}

// RunReader subscribes to every subject in path.From and delivers each
// decoded Handler envelope to pool.
func RunReader(ctx context.Context, router *broker.Router, path ReaderPath, pool *Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	queueTmpl := path.Queue
	if queueTmpl == "" {
		queueTmpl = "handler_{{0}}"
	}
	indexList := []string{strconv.Itoa(path.Index)}

	subs := make([]broker.Subscription, 0, len(path.From))
	for _, from := range path.From {
		s, err := router.Subscribe(ctx, from, queueTmpl, path.Args, indexList)
		if err != nil {
			for _, opened := range subs {
				opened.Unsubscribe()
			}
			return err
		}
		subs = append(subs, s)
	}
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	merged := make(chan broker.Message, 64)
	for _, s := range subs {
		go func(s broker.Subscription) {
			for m := range s.Messages() {
				select {
				case merged <- m:
				case <-ctx.Done():
					return
				}
			}
		}(s)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-merged:
			h, err := envelope.DecodeHandler(m.Data)
			if err != nil {
				logger.Warn("dropping malformed handler envelope", "subject", m.Subject, "error", err)
				continue
			}
			ProcessReader(ctx, path, h, pool, logger)
		}
	}
}

// ProcessReader renders one Handler envelope into chat text and sends
// it through the next bot in pool's round-robin order, respecting the
// configured message filters and rate-limit backoff.
func ProcessReader(ctx context.Context, path ReaderPath, h envelope.Handler, pool *Pool, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	effective := args.Merge(path.Args, h.Args)

	messageText := path.MessageText
	if messageText == "" {
		messageText = DefaultMessageText
	}
	messageRegex := path.MessageRegex

	rendered := template.Render(messageText, effective, h.Value)

	text := rendered
	if messageRegex != "" {
		re, err := regexp.Compile(messageRegex)
		if err != nil {
			logger.Warn("invalid message_regex, dropping", "regex", messageRegex, "error", err)
			return
		}
		if groups := re.FindStringSubmatch(rendered); groups != nil && len(groups) > 1 {
			text = strings.Join(groups[1:], " ")
		}
	}

	if path.NotStartsWith != "" && strings.HasPrefix(text, path.NotStartsWith) {
		return
	}

	chatID := args.AsInt64(effective, "chat_id", -1)
	threadID := args.AsInt64(effective, "message_thread_id", -1)

	bot := pool.Next()
	if bot == nil {
		logger.Warn("bot reader has no bot handles configured")
		return
	}

	if err := bot.Send(ctx, chatID, threadID, text); err != nil {
		var rl *RateLimitedError
		if errors.As(err, &rl) {
			logger.Warn("bot rate limited, sleeping", "retry_after", rl.RetryAfter)
			sleep(ctx, rl.RetryAfter)
			return
		}
		logger.Warn("bot send failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
