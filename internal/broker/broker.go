// Package broker implements the Broker Client and Subject Router: a thin
// veneer over a topic-based publish-subscribe bus (subjects, queue
// groups, JetStream-style two-phase acknowledged publish). Client has two
// implementations: nats.go against a real broker, and memory.go, an
// in-process fake used by the broker and transform unit tests that don't
// need a live NATS server.
package broker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// AuthKind selects which of the four nats.auth config shapes is active.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthUserPassword
	AuthNKey
	AuthToken
)

// Auth holds the credential material for one AuthKind. Only the fields
// relevant to Kind are read.
type Auth struct {
	Kind     AuthKind
	User     string
	Password string
	NKeySeed string
	Token    string
}

// Options configures a broker connection.
type Options struct {
	Servers        []string
	Auth           Auth
	PingInterval   time.Duration // default 15s
	TLSRequired    bool
	ConnectTimeout time.Duration // default 30s
	RequestTimeout time.Duration // default 30s

	// Tracer instruments Publish with a client span when set; a nil
	// Tracer is treated as a no-op.
	Tracer trace.Tracer
	// Meter, when set, backs a publish-duration histogram.
	Meter metric.Meter
}

// DefaultOptions returns the documented timeout/interval defaults with
// the given server list and auth.
func DefaultOptions(servers []string, auth Auth) Options {
	return Options{
		Servers:        servers,
		Auth:           auth,
		PingInterval:   15 * time.Second,
		ConnectTimeout: 30 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Message is one delivery from a Subscription.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription is a live subscription to a subject (optionally within a
// queue group). Messages is closed when Unsubscribe is called or the
// underlying connection is torn down.
type Subscription interface {
	Messages() <-chan Message
	Unsubscribe() error
}

// Client is the broker handle shared across every role unit: safe to use
// concurrently from any goroutine.
type Client interface {
	// Publish performs a durable, acknowledged publish. It does not
	// return until the broker has confirmed storage; the two phases
	// (schedule, then confirm) are collapsed into one blocking call whose
	// error distinguishes "failed to schedule" from "failed to confirm"
	// only via the wrapped *PublishError, both reported the same way to
	// callers.
	Publish(ctx context.Context, subject string, payload []byte) error
	// Subscribe opens a plain subscription when queue is empty, or a
	// queue-group subscription otherwise.
	Subscribe(ctx context.Context, subject, queue string) (Subscription, error)
	Close() error
}
