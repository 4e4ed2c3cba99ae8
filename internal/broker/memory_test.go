package broker

import (
	"context"
	"testing"
	"time"
)

func TestMemoryClientPlainFanOut(t *testing.T) {
	c := NewMemoryClient(nil)
	subA, _ := c.Subscribe(context.Background(), "tw.econ.read.*", "")
	subB, _ := c.Subscribe(context.Background(), "tw.econ.read.42", "")

	if err := c.Publish(context.Background(), "tw.econ.read.42", []byte("hi")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, sub := range []Subscription{subA, subB} {
		select {
		case msg := <-sub.Messages():
			if string(msg.Data) != "hi" {
				t.Fatalf("got %q", msg.Data)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestMemoryClientNonMatchingSubjectNotDelivered(t *testing.T) {
	c := NewMemoryClient(nil)
	sub, _ := c.Subscribe(context.Background(), "tw.econ.read.7", "")
	c.Publish(context.Background(), "tw.econ.read.42", []byte("hi"))

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected delivery: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryClientQueueGroupLoadBalances(t *testing.T) {
	c := NewMemoryClient(nil)
	sub1, _ := c.Subscribe(context.Background(), "tw.handler.1", "handler_1")
	sub2, _ := c.Subscribe(context.Background(), "tw.handler.1", "handler_1")

	c.Publish(context.Background(), "tw.handler.1", []byte("only-once"))

	delivered := 0
	for _, sub := range []Subscription{sub1, sub2} {
		select {
		case <-sub.Messages():
			delivered++
		case <-time.After(50 * time.Millisecond):
		}
	}
	if delivered != 1 {
		t.Fatalf("expected exactly one queue-group member to receive the message, got %d", delivered)
	}
}

func TestMemoryClientGreaterThanWildcard(t *testing.T) {
	c := NewMemoryClient(nil)
	sub, _ := c.Subscribe(context.Background(), "tw.econ.>", "")
	c.Publish(context.Background(), "tw.econ.read.42", []byte("hi"))

	select {
	case msg := <-sub.Messages():
		if string(msg.Data) != "hi" {
			t.Fatalf("got %q", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for > wildcard delivery")
	}
}

func TestMemoryClientDropsOnFullBuffer(t *testing.T) {
	c := NewMemoryClient(nil)
	sub, _ := c.Subscribe(context.Background(), "x", "")
	for i := 0; i < defaultBufferSize+5; i++ {
		c.Publish(context.Background(), "x", []byte("x"))
	}
	if c.DroppedMessageCount() == 0 {
		t.Fatalf("expected some messages to be dropped")
	}
	_ = sub
}
