package chatbot

import (
	"context"
	"testing"
	"time"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/envelope"
)

type recordingBot struct {
	sent []sentMessage
	err  error
}

type sentMessage struct {
	chatID, threadID int64
	text             string
}

func (b *recordingBot) Updates(ctx context.Context) <-chan Update {
	ch := make(chan Update)
	close(ch)
	return ch
}

func (b *recordingBot) Send(ctx context.Context, chatID, threadID int64, text string) error {
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, sentMessage{chatID, threadID, text})
	return nil
}

func TestProcessReader_RendersDefaultMessageText(t *testing.T) {
	bot := &recordingBot{}
	pool := NewPool([]Bot{bot})
	path := ReaderPath{Args: args.Map(args.Pair("chat_id", args.Int(42)))}
	h := envelope.Handler{Value: []string{"alice", "hello there"}, Args: args.Null()}

	ProcessReader(context.Background(), path, h, pool, nil)

	if len(bot.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(bot.sent))
	}
	if bot.sent[0].text != "alice: hello there" {
		t.Fatalf("unexpected rendered text %q", bot.sent[0].text)
	}
	if bot.sent[0].chatID != 42 {
		t.Fatalf("expected chat_id 42, got %d", bot.sent[0].chatID)
	}
}

func TestProcessReader_NotStartsWithDrops(t *testing.T) {
	bot := &recordingBot{}
	pool := NewPool([]Bot{bot})
	path := ReaderPath{NotStartsWith: "admin:"}
	h := envelope.Handler{Value: []string{"admin", "secret"}, Args: args.Null()}

	ProcessReader(context.Background(), path, h, pool, nil)

	if len(bot.sent) != 0 {
		t.Fatalf("expected message to be dropped, got %v", bot.sent)
	}
}

func TestProcessReader_RateLimitedSleepsThenReturns(t *testing.T) {
	bot := &recordingBot{err: &RateLimitedError{RetryAfter: 10 * time.Millisecond}}
	pool := NewPool([]Bot{bot})
	path := ReaderPath{}
	h := envelope.Handler{Value: []string{"a", "b"}, Args: args.Null()}

	start := time.Now()
	ProcessReader(context.Background(), path, h, pool, nil)
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("expected ProcessReader to sleep for the retry-after duration")
	}
}

func TestProcessReader_MessageRegexExtractsGroups(t *testing.T) {
	bot := &recordingBot{}
	pool := NewPool([]Bot{bot})
	path := ReaderPath{
		MessageText:  "{{0}}",
		MessageRegex: `^(\w+) says (.*)$`,
	}
	h := envelope.Handler{Value: []string{"bob says hi there"}, Args: args.Null()}

	ProcessReader(context.Background(), path, h, pool, nil)

	if len(bot.sent) != 1 || bot.sent[0].text != "bob hi there" {
		t.Fatalf("expected joined capture groups, got %v", bot.sent)
	}
}
