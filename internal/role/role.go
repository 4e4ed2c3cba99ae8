// Package role wires the core components (internal/broker, internal/econ,
// internal/transform, internal/chatbot, internal/task) into the four
// runnable processes: console-bridge (econ), transformer (handler),
// bot-reader, and bot-writer. Each Run function builds its dependency
// graph from a config.Config and blocks while the role runs.
package role

import (
	"context"
	"fmt"

	"github.com/teeworlds-nats/bridge/internal/broker"
	"github.com/teeworlds-nats/bridge/internal/config"
	"github.com/teeworlds-nats/bridge/internal/otel"
)

// buildAuth picks the broker auth mode in the declared precedence order
// of config.go's doc comment: user/password, then nkey, then token.
func buildAuth(a config.NatsAuthConfig) broker.Auth {
	switch {
	case a.User != "" || a.Password != "":
		return broker.Auth{Kind: broker.AuthUserPassword, User: a.User, Password: a.Password}
	case a.NKey != "":
		return broker.Auth{Kind: broker.AuthNKey, NKeySeed: a.NKey}
	case a.Token != "":
		return broker.Auth{Kind: broker.AuthToken, Token: a.Token}
	default:
		return broker.Auth{Kind: broker.AuthNone}
	}
}

// buildBrokerOptions derives broker.Options from cfg.Nats, threading the
// shared tracer through so broker publish spans nest under the same trace
// as their caller.
func buildBrokerOptions(cfg config.Config, provider *otel.Provider) broker.Options {
	opts := broker.DefaultOptions(cfg.Nats.Server, buildAuth(cfg.Nats.Auth))
	opts.PingInterval = cfg.Nats.PingIntervalDuration()
	opts.TLSRequired = cfg.Nats.TLS
	if provider != nil {
		opts.Tracer = provider.Tracer
		opts.Meter = provider.Meter
	}
	return opts
}

// connectBroker dials the broker and wraps it in a Router. A dial failure
// is fatal at startup.
func connectBroker(ctx context.Context, cfg config.Config, provider *otel.Provider) (*broker.Router, broker.Client, error) {
	client, err := broker.Connect(ctx, buildBrokerOptions(cfg, provider))
	if err != nil {
		return nil, nil, fmt.Errorf("role: broker connect: %w", err)
	}
	return broker.NewRouter(client), client, nil
}
