// Package chatbot implements the bot-reader (bus -> chat) and bot-writer
// (chat -> bus) roles, against an opaque chat-bot SDK contract: an
// update stream of chat messages with text/sticker/media/reply
// metadata, and a send-message operation returning success, a
// rate-limit-with-retry-after, or another error.
package chatbot

import (
	"context"
	"time"
)

// Update is one inbound chat message, translated from the concrete bot
// SDK's native update shape (telegram.go) into the fields the bot-writer
// needs.
type Update struct {
	ChatID   int64
	ThreadID int64 // -1 if the update is not in a forum thread

	Text string

	HasSticker   bool
	StickerEmoji string

	HasMedia     bool
	MediaCaption string
	MediaKind    string // "photo", "video", "document", ...

	HasReply     bool
	ReplyText    string
	ReplySticker string

	// ForumTopicName is set when this update's reply target is the
	// "forum topic created" service message; it feeds the outbound
	// server_name field, empty string otherwise.
	ForumTopicName string

	SenderName string
}

// HasContent reports whether the update carries a deliverable payload:
// text, a sticker, media, or a topic-creation marker. Updates without
// any of these are dropped.
func (u Update) HasContent() bool {
	return u.Text != "" || u.HasSticker || u.HasMedia || u.ForumTopicName != ""
}

// RateLimitedError reports that the chat provider asked the caller to
// back off.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "chatbot: rate limited, retry after " + e.RetryAfter.String()
}

// Bot is the opaque chat-bot SDK contract: an update stream plus a send
// operation. telegram.go supplies the only concrete implementation;
// tests use a recording fake.
type Bot interface {
	// Updates starts receiving chat updates and returns a channel that is
	// closed when ctx is cancelled.
	Updates(ctx context.Context) <-chan Update
	// Send delivers text to chatID, threading it under threadID when
	// threadID >= 0. Returns *RateLimitedError on a 429-style backoff
	// request.
	Send(ctx context.Context, chatID, threadID int64, text string) error
}

// Pool round-robins Send calls across multiple bot handles: the role
// may hold multiple bot handles, and round-robining across them
// amortises each one's rate limit.
type Pool struct {
	bots []Bot
	next int
}

// NewPool constructs a Pool over bots, in declared order.
func NewPool(bots []Bot) *Pool {
	return &Pool{bots: bots}
}

// Next returns the next bot handle in round-robin order.
func (p *Pool) Next() Bot {
	if len(p.bots) == 0 {
		return nil
	}
	b := p.bots[p.next%len(p.bots)]
	p.next++
	return b
}

// Len reports how many bot handles the pool holds.
func (p *Pool) Len() int { return len(p.bots) }
