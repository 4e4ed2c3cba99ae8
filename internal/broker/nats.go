package broker

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"

	"github.com/teeworlds-nats/bridge/internal/otel"
)

// NATSClient is the production Client, backed by nats.go and its
// JetStream context for the durable, acknowledged publish.
type NATSClient struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	opts    Options
	tracer  trace.Tracer
	metrics *otel.Metrics
}

// Connect dials every server in opts.Servers, applying the auth, TLS,
// ping-interval and timeout options. A connection failure is always
// reported as *BrokerConnectError so the caller can treat it as
// fatal-at-startup.
func Connect(ctx context.Context, opts Options) (*NATSClient, error) {
	natsOpts := []nats.Option{
		nats.Timeout(opts.ConnectTimeout),
		nats.PingInterval(opts.PingInterval),
		nats.MaxReconnects(-1), // nats.go's own reconnect; the Supervisor's reconnect model governs econ, not the bus.
	}
	if opts.TLSRequired {
		natsOpts = append(natsOpts, nats.Secure())
	}
	switch opts.Auth.Kind {
	case AuthUserPassword:
		natsOpts = append(natsOpts, nats.UserInfo(opts.Auth.User, opts.Auth.Password))
	case AuthNKey:
		nkeyOpt, err := nats.NkeyOptionFromSeed(opts.Auth.NKeySeed)
		if err != nil {
			return nil, &BrokerConnectError{Servers: opts.Servers, Err: err}
		}
		natsOpts = append(natsOpts, nkeyOpt)
	case AuthToken:
		natsOpts = append(natsOpts, nats.Token(opts.Auth.Token))
	}

	conn, err := nats.Connect(serverString(opts.Servers), natsOpts...)
	if err != nil {
		return nil, &BrokerConnectError{Servers: opts.Servers, Err: err}
	}

	js, err := conn.JetStream(nats.MaxWait(opts.RequestTimeout))
	if err != nil {
		conn.Close()
		return nil, &BrokerConnectError{Servers: opts.Servers, Err: err}
	}

	client := &NATSClient{conn: conn, js: js, opts: opts, tracer: opts.Tracer}
	if opts.Meter != nil {
		if metrics, err := otel.NewMetrics(opts.Meter); err == nil {
			client.metrics = metrics
		}
	}
	return client, nil
}

func serverString(servers []string) string {
	out := ""
	for i, s := range servers {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// Publish performs a two-phase acknowledged publish: PublishAsync
// schedules the publish (phase one), and waiting on the returned
// future's Ok()/Err() channel confirms broker storage (phase two). Both
// failures surface as *PublishError.
func (c *NATSClient) Publish(ctx context.Context, subject string, payload []byte) error {
	ctx, span := otel.StartClientSpan(ctx, c.tracer, "broker.publish", otel.AttrSubject.String(subject))
	defer span.End()
	start := time.Now()
	defer c.recordPublishDuration(ctx, start)

	future, err := c.js.PublishAsync(subject, payload)
	if err != nil {
		span.RecordError(err)
		return &PublishError{Subject: subject, Err: err}
	}
	select {
	case <-future.Ok():
		return nil
	case err := <-future.Err():
		span.RecordError(err)
		return &PublishError{Subject: subject, Err: err}
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return &PublishError{Subject: subject, Err: ctx.Err()}
	}
}

func (c *NATSClient) recordPublishDuration(ctx context.Context, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.PublishDuration.Record(ctx, time.Since(start).Seconds())
}

// natsSub adapts a *nats.Subscription onto the Subscription interface,
// translating its callback-free ChanSubscribe channel.
type natsSub struct {
	sub *nats.Subscription
	ch  chan Message
	raw chan *nats.Msg
}

func (s *natsSub) Messages() <-chan Message { return s.ch }

func (s *natsSub) Unsubscribe() error {
	err := s.sub.Unsubscribe()
	close(s.raw)
	return err
}

// Subscribe opens a plain subscription when queue is empty, or a
// queue-group subscription otherwise.
func (c *NATSClient) Subscribe(ctx context.Context, subject, queue string) (Subscription, error) {
	raw := make(chan *nats.Msg, defaultBufferSize)
	var sub *nats.Subscription
	var err error
	if queue == "" {
		sub, err = c.conn.ChanSubscribe(subject, raw)
	} else {
		sub, err = c.conn.ChanQueueSubscribe(subject, queue, raw)
	}
	if err != nil {
		return nil, err
	}

	out := &natsSub{sub: sub, ch: make(chan Message, defaultBufferSize), raw: raw}
	go out.pump()
	return out, nil
}

func (s *natsSub) pump() {
	for m := range s.raw {
		s.ch <- Message{Subject: m.Subject, Data: m.Data}
	}
	close(s.ch)
}

func (c *NATSClient) Close() error {
	c.conn.Close()
	return nil
}
