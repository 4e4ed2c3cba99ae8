package broker

import (
	"context"
	"testing"
	"time"

	"github.com/teeworlds-nats/bridge/internal/args"
)

func TestRouterTemplatesSubjectBeforePublish(t *testing.T) {
	client := NewMemoryClient(nil)
	router := NewRouter(client)

	sub, err := client.Subscribe(context.Background(), "tw.tg.42", "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	a := args.Map(args.Pair("server_name", args.String("42")))
	if err := router.Publish(context.Background(), "tw.tg.{{server_name}}", a, nil, []byte("payload")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if msg.Subject != "tw.tg.42" {
			t.Fatalf("got subject %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestRouterPublishAllDeliversToEverySubject(t *testing.T) {
	client := NewMemoryClient(nil)
	router := NewRouter(client)

	subA, _ := client.Subscribe(context.Background(), "a", "")
	subB, _ := client.Subscribe(context.Background(), "b", "")

	err := router.PublishAll(context.Background(), []string{"a", "b"}, args.Null(), nil, []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, sub := range []Subscription{subA, subB} {
		select {
		case <-sub.Messages():
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
}

func TestRouterSubscribeTemplatesQueueName(t *testing.T) {
	client := NewMemoryClient(nil)
	router := NewRouter(client)

	a := args.Map(args.Pair("path_index", args.Int(3)))
	sub, err := router.Subscribe(context.Background(), "tw.handler.{{path_index}}", "handler_{{path_index}}", a, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := client.Publish(context.Background(), "tw.handler.3", []byte("hi")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-sub.Messages():
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
