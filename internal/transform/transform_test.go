package transform

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/broker"
	"github.com/teeworlds-nats/bridge/internal/envelope"
)

func TestProcessChatExtraction(t *testing.T) {
	client := broker.NewMemoryClient(nil)
	router := broker.NewRouter(client)
	sub, err := client.Subscribe(context.Background(), "tw.tg.42", "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	path := Path{
		Rules: []*regexp.Regexp{regexp.MustCompile(`^\[chat\]: \d+:-?\d+:(.*): (.*)$`)},
		To:    []string{"tw.tg.42"},
		Args:  args.Null(),
	}
	msg := envelope.Bridge{
		Text: "[chat]: 3:-1:alice: hello world",
		Args: args.Map(args.Pair("server_name", args.String("s"))),
	}

	Process(context.Background(), router, path, msg, nil)

	select {
	case m := <-sub.Messages():
		h, err := envelope.DecodeHandler(m.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if h.Text != "[chat]: 3:-1:alice: hello world" {
			t.Fatalf("got text %q", h.Text)
		}
		if len(h.Value) != 2 || h.Value[0] != "alice" || h.Value[1] != "hello world" {
			t.Fatalf("got value %v", h.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published handler envelope")
	}
}

func TestProcessNoMatchPublishesNothing(t *testing.T) {
	client := broker.NewMemoryClient(nil)
	router := broker.NewRouter(client)
	sub, _ := client.Subscribe(context.Background(), "tw.tg.42", "")

	path := Path{
		Rules: []*regexp.Regexp{regexp.MustCompile(`^\[chat\]: .*$`)},
		To:    []string{"tw.tg.42"},
		Args:  args.Null(),
	}
	msg := envelope.Bridge{Text: "unrelated line", Args: args.Null()}

	Process(context.Background(), router, path, msg, nil)

	select {
	case m := <-sub.Messages():
		t.Fatalf("unexpected publish: %s", m.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProcessAutoDDNetFormat(t *testing.T) {
	client := broker.NewMemoryClient(nil)
	router := broker.NewRouter(client)
	sub, _ := client.Subscribe(context.Background(), "tw.logs.42", "")

	path := Path{Auto: true, To: []string{"tw.logs.42"}, Args: args.Null()}
	msg := envelope.Bridge{Text: "2024-01-02 03:04:05 I server: hello", Args: args.Null()}

	Process(context.Background(), router, path, msg, nil)

	select {
	case m := <-sub.Messages():
		var env LogEnvelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Timestamp != "2024-01-02 03:04:05" || env.LoggingLevel != "I" || env.LoggingName != "server" || env.Text != "hello" {
			t.Fatalf("got %+v", env)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestProcessAutoTeeworldsFormat(t *testing.T) {
	client := broker.NewMemoryClient(nil)
	router := broker.NewRouter(client)
	sub, _ := client.Subscribe(context.Background(), "tw.logs.42", "")

	path := Path{Auto: true, To: []string{"tw.logs.42"}, Args: args.Null()}
	msg := envelope.Bridge{Text: "[chat]: hello there", Args: args.Null()}

	Process(context.Background(), router, path, msg, nil)

	select {
	case m := <-sub.Messages():
		var env LogEnvelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.LoggingName != "chat" || env.Text != "hello there" {
			t.Fatalf("got %+v", env)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestApplyBlockStripsConfiguredPatterns(t *testing.T) {
	client := broker.NewMemoryClient(nil)
	router := broker.NewRouter(client)
	sub, _ := client.Subscribe(context.Background(), "tw.tg.42", "")

	path := Path{
		Rules: []*regexp.Regexp{regexp.MustCompile(`^\[chat\]: (.*): (.*)$`)},
		To:    []string{"tw.tg.42"},
		Args:  args.Null(),
		Block: DefaultBlockRules(),
	}
	msg := envelope.Bridge{Text: "[chat]: tw/alice: check twitch.tv/alice", Args: args.Null()}

	Process(context.Background(), router, path, msg, nil)

	select {
	case m := <-sub.Messages():
		h, err := envelope.DecodeHandler(m.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if h.Value[0] != "alice" {
			t.Fatalf("expected blocklist to strip tw/ prefix, got %q", h.Value[0])
		}
		if h.Value[1] != "check alice" {
			t.Fatalf("expected blocklist to strip twitch.tv/ prefix, got %q", h.Value[1])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
