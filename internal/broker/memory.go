package broker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 64

// MemoryClient is an in-process Client implementing subject-wildcard
// matching (a single "*" matches exactly one dot-separated segment, per
// GLOSSARY "Subject") and queue-group load balancing (at-most-one
// delivery per group member, per GLOSSARY "Queue group"). It never
// touches the network; tests use it in place of a live NATS server, and
// the role wiring always connects a NATSClient instead.
type MemoryClient struct {
	mu     sync.Mutex
	subs   map[int]*memSub
	nextID int
	logger *slog.Logger

	droppedMessages atomic.Int64
	lastDropWarning atomic.Int64
}

// NewMemoryClient constructs an empty MemoryClient.
func NewMemoryClient(logger *slog.Logger) *MemoryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryClient{subs: make(map[int]*memSub), logger: logger}
}

type memSub struct {
	id      int
	subject string
	queue   string
	ch      chan Message
	client  *MemoryClient
}

func (s *memSub) Messages() <-chan Message { return s.ch }

func (s *memSub) Unsubscribe() error {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	if _, ok := s.client.subs[s.id]; ok {
		delete(s.client.subs, s.id)
		close(s.ch)
	}
	return nil
}

// Subscribe implements non-blocking-send, drop-and-count delivery
// semantics with NATS-style subject matching and queue-group load
// balancing when queue is non-empty.
func (c *MemoryClient) Subscribe(ctx context.Context, subject, queue string) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	sub := &memSub{
		id:      c.nextID,
		subject: subject,
		queue:   queue,
		ch:      make(chan Message, defaultBufferSize),
		client:  c,
	}
	c.subs[sub.id] = sub
	return sub, nil
}

// Publish delivers payload to every plain subscription whose subject
// pattern matches, and to exactly one member of each matching queue
// group. Which member receives it follows Go map iteration order, so it
// is not defined; no round-robin rotation is kept.
func (c *MemoryClient) Publish(ctx context.Context, subject string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byQueue := make(map[string][]*memSub)
	for _, sub := range c.subs {
		if !subjectMatches(sub.subject, subject) {
			continue
		}
		if sub.queue == "" {
			c.deliver(sub, subject, payload)
			continue
		}
		byQueue[sub.queue] = append(byQueue[sub.queue], sub)
	}
	for _, members := range byQueue {
		// members is built from map iteration, so members[0] is an
		// arbitrary group member; tests only rely on exactly one delivery.
		c.deliver(members[0], subject, payload)
	}
	return nil
}

func (c *MemoryClient) deliver(sub *memSub, subject string, payload []byte) {
	msg := Message{Subject: subject, Data: payload}
	select {
	case sub.ch <- msg:
	default:
		newCount := c.droppedMessages.Add(1)
		c.maybeLogDropWarning(newCount, subject)
	}
}

func (c *MemoryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	return nil
}

// DroppedMessageCount reports how many deliveries were dropped because
// a subscriber's buffer was full.
func (c *MemoryClient) DroppedMessageCount() int64 {
	return c.droppedMessages.Load()
}

func (c *MemoryClient) maybeLogDropWarning(newCount int64, subject string) {
	threshold := dropThreshold(newCount)
	if newCount != threshold {
		return
	}
	lastWarned := c.lastDropWarning.Load()
	if threshold <= lastWarned {
		return
	}
	if c.lastDropWarning.CompareAndSwap(lastWarned, threshold) {
		c.logger.Warn("broker memory client dropped messages, reached threshold",
			"count", newCount, "subject", subject)
	}
}

func dropThreshold(count int64) int64 {
	threshold := int64(1)
	for threshold*10 <= count {
		threshold *= 10
	}
	return threshold
}

// subjectMatches reports whether pattern (which may contain "*"
// single-segment wildcards, per GLOSSARY "Subject") matches subject.
// Both are split on ".". A trailing ">" segment (the NATS full-tail
// wildcard) matches the remainder of subject regardless of length.
func subjectMatches(pattern, subject string) bool {
	pSegs := strings.Split(pattern, ".")
	sSegs := strings.Split(subject, ".")
	for i, p := range pSegs {
		if p == ">" {
			return true
		}
		if i >= len(sSegs) {
			return false
		}
		if p != "*" && p != sSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(sSegs)
}
