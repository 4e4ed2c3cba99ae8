package econ

import (
	"context"
	"log/slog"
	"time"

	"github.com/teeworlds-nats/bridge/internal/envelope"
	"github.com/teeworlds-nats/bridge/internal/otel"
)

// ReconnectConfig bounds the Supervisor's reconnect behaviour.
type ReconnectConfig struct {
	MaxAttempts int           // default 20
	Sleep       time.Duration // default 10s
}

// DefaultReconnectConfig returns the built-in reconnect defaults.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{MaxAttempts: 20, Sleep: 10 * time.Second}
}

// lineWriter is the slice of *Session the Supervisor actually depends on;
// accepting the interface (rather than *Session directly) lets tests
// drive the reconnect/FIFO algorithm without a real socket.
type lineWriter interface {
	SendLine(cmd string) error
}

// Connector opens and authenticates a fresh writer Session against the
// console, given the already-templated address. Supplied by the role
// wiring (internal/role) so the Supervisor does not need to know about
// config templating.
type Connector func(ctx context.Context) (*Session, error)

// ErrorPublisher reports a dropped command to the configured errors
// subject after reconnect exhaustion.
type ErrorPublisher func(ctx context.Context, e envelope.Error) error

// Supervisor holds the writer Session and drives it with reconnect and a
// FIFO pending-command queue.
type Supervisor struct {
	writer    lineWriter
	connect   Connector
	publish   ErrorPublisher
	reconnect ReconnectConfig
	logger    *slog.Logger
	metrics   *otel.Metrics

	pending []string
	attempt int

	// taskOwned is the set of command strings registered by the task
	// engine; while attempt > 0, commands in this set are dropped
	// instead of queued, so a scheduled task doesn't pile up retries
	// behind a reconnect.
	taskOwned map[string]struct{}

	// onReconnected is invoked after every successful writer reconnect,
	// so the caller can restart the reader goroutine on a fresh Session.
	onReconnected func(ctx context.Context)

	commands chan string
}

// NewSupervisor constructs a Supervisor around an already-connected
// writer Session.
func NewSupervisor(writer lineWriter, connect Connector, publish ErrorPublisher, reconnect ReconnectConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		writer:    writer,
		connect:   connect,
		publish:   publish,
		reconnect: reconnect,
		logger:    logger.With("component", "supervisor"),
		taskOwned: make(map[string]struct{}),
		commands:  make(chan string, 64),
	}
}

// RegisterTaskCommands records the full set of commands the task engine
// may emit, so reconnect-time suppression can tell a scheduled command
// apart from a user-submitted one.
func (s *Supervisor) RegisterTaskCommands(cmds ...string) {
	for _, c := range cmds {
		s.taskOwned[c] = struct{}{}
	}
}

// OnReconnected sets the callback fired after every successful writer
// reconnect.
func (s *Supervisor) OnReconnected(fn func(ctx context.Context)) {
	s.onReconnected = fn
}

// SetMetrics wires otel counters into the reconnect/drop paths. A nil
// Supervisor.metrics (the default) disables instrumentation entirely.
func (s *Supervisor) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Commands returns the channel callers should send outbound console
// commands on. The bounded capacity means a sender blocks — a suspension
// point — once the channel is full.
func (s *Supervisor) Commands() chan<- string {
	return s.commands
}

// Run consumes the command channel until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			s.handle(ctx, cmd)
		}
	}
}

func (s *Supervisor) handle(ctx context.Context, cmd string) {
	if s.attempt > 0 {
		if _, owned := s.taskOwned[cmd]; owned {
			s.logger.Debug("dropping task-owned command while reconnecting", "command", cmd)
			return
		}
	}
	s.pending = append(s.pending, cmd)
	s.drain(ctx)
}

// drain attempts to send the head of the pending queue until it empties
// or reconnect is exhausted.
func (s *Supervisor) drain(ctx context.Context) {
	for len(s.pending) > 0 {
		if ctx.Err() != nil {
			return
		}
		head := s.pending[0]
		if err := s.writer.SendLine(head); err != nil {
			if !s.onSendFailure(ctx, err) {
				return // queue flushed (counter reset) or ctx cancelled.
			}
			continue // after a reconnect attempt: retry the same head-of-queue command.
		}
		s.pending = s.pending[1:]
		s.attempt = 0
	}
}

// onSendFailure handles one failed SendLine: it logs, waits out the
// reconnect sleep, and retries the connect. It returns true when the
// caller should retry draining (after a reconnect attempt, whether it
// succeeded or not), false when the queue was flushed or ctx was
// cancelled and the caller should return to awaiting new commands.
func (s *Supervisor) onSendFailure(ctx context.Context, sendErr error) bool {
	s.attempt++
	s.logger.Warn("console write failed", "attempt", s.attempt, "error", sendErr)
	if s.metrics != nil {
		s.metrics.ReconnectAttempts.Add(ctx, 1)
	}

	if s.attempt > s.reconnect.MaxAttempts {
		s.flushWithError(ctx)
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.reconnect.Sleep):
	}

	newWriter, err := s.connect(ctx)
	if err != nil {
		s.logger.Warn("console reconnect failed", "attempt", s.attempt, "error", err)
		return true // loop back into drain(), which will re-check attempt and may flush.
	}

	s.writer = newWriter
	s.logger.Info("console reconnected", "attempts", s.attempt)
	if s.onReconnected != nil {
		s.onReconnected(ctx)
	}
	return true
}

// flushWithError drops every pending command, emitting one Error
// envelope publish per dropped command to the errors subject. A publish
// failure here is logged and the loop continues rather than aborting.
func (s *Supervisor) flushWithError(ctx context.Context) {
	dropped := s.pending
	s.pending = nil
	s.attempt = 0
	if s.metrics != nil && len(dropped) > 0 {
		s.metrics.DroppedCommands.Add(ctx, int64(len(dropped)))
	}
	for _, cmd := range dropped {
		if s.publish == nil {
			continue
		}
		if err := s.publish(ctx, envelope.Error{Text: cmd, Publish: true}); err != nil {
			s.logger.Error("failed to publish dropped-command error", "command", cmd, "error", err)
		}
	}
}
