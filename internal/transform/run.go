package transform

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/teeworlds-nats/bridge/internal/broker"
	"github.com/teeworlds-nats/bridge/internal/envelope"
)

// DefaultQueueTemplate is the default queue-group template: "{{0}}"
// resolves to the path's own index, so separate paths don't compete for
// the same work.
const DefaultQueueTemplate = "handler_{{0}}"

// Run subscribes to every subject in path.From under a queue group
// templated from path.Queue (or DefaultQueueTemplate), and processes
// every delivered Bridge envelope with Process until ctx is cancelled.
// Each path is meant to be run on its own goroutine.
func Run(ctx context.Context, router *broker.Router, path Path, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	queueTmpl := path.Queue
	if queueTmpl == "" {
		queueTmpl = DefaultQueueTemplate
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
			bridge, err := envelope.DecodeBridge(m.Data)
			if err != nil {
				logger.Warn("dropping malformed bridge envelope", "subject", m.Subject, "error", err)
				continue
			}
			Process(ctx, router, path, bridge, logger)
		}
	}
}
