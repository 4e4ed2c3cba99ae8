package broker

import (
	"context"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/template"
)

// Router is a thin veneer over a Client: it templates subject and
// queue-group strings before they cross into the broker.
type Router struct {
	client Client
}

// NewRouter wraps client.
func NewRouter(client Client) *Router {
	return &Router{client: client}
}

// Subscribe templates subjectTemplate and queueTemplate against (a,
// list). list is typically the path index as a single-element
// positional list, letting a queue template like "handler_{{0}}"
// resolve to a per-path queue-group name.
func (r *Router) Subscribe(ctx context.Context, subjectTemplate, queueTemplate string, a args.Value, list []string) (Subscription, error) {
	subject := template.Render(subjectTemplate, a, list)
	queue := template.Render(queueTemplate, a, list)
	return r.client.Subscribe(ctx, subject, queue)
}

// Publish templates subjectTemplate against (a, list) and publishes
// payload to the resulting subject.
func (r *Router) Publish(ctx context.Context, subjectTemplate string, a args.Value, list []string, payload []byte) error {
	subject := template.Render(subjectTemplate, a, list)
	return r.client.Publish(ctx, subject, payload)
}

// PublishAll templates and publishes to every subject in
// subjectTemplates, in the order they are declared in "to". It
// publishes to every subject even if an earlier one fails, collecting
// and returning the first error encountered.
func (r *Router) PublishAll(ctx context.Context, subjectTemplates []string, a args.Value, list []string, payload []byte) error {
	var firstErr error
	for _, tmpl := range subjectTemplates {
		if err := r.Publish(ctx, tmpl, a, list, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
