package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds the bridge's metric instruments: a counter for supervisor
// reconnect attempts and dropped-after-exhaustion commands, plus a
// broker publish-latency histogram.
type Metrics struct {
	ReconnectAttempts metric.Int64Counter
	DroppedCommands   metric.Int64Counter
	PublishDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ReconnectAttempts, err = meter.Int64Counter("bridge.econ.reconnect_attempts",
		metric.WithDescription("Console supervisor reconnect attempts"),
	)
	if err != nil {
		return nil, err
	}

	m.DroppedCommands, err = meter.Int64Counter("bridge.econ.dropped_commands",
		metric.WithDescription("Pending console commands dropped after reconnect exhaustion"),
	)
	if err != nil {
		return nil, err
	}

	m.PublishDuration, err = meter.Float64Histogram("bridge.broker.publish.duration",
		metric.WithDescription("Broker publish-with-ack duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
