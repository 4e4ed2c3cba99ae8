package role

import (
	"context"
	"log/slog"
	"time"

	"github.com/teeworlds-nats/bridge/internal/broker"
	"github.com/teeworlds-nats/bridge/internal/config"
	"github.com/teeworlds-nats/bridge/internal/econ"
	"github.com/teeworlds-nats/bridge/internal/envelope"
	"github.com/teeworlds-nats/bridge/internal/otel"
	"github.com/teeworlds-nats/bridge/internal/task"
)

// RunEcon drives the console-bridge role: it connects the broker and two
// console sessions (reader, writer), wires the Supervisor's
// reconnect/pending-queue algorithm, starts the task engine, and blocks
// until ctx is cancelled.
func RunEcon(ctx context.Context, cfg config.Config, logger *slog.Logger, provider *otel.Provider) error {
	if logger == nil {
		logger = slog.Default()
	}
	router, client, err := connectBroker(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer client.Close()

	connect := func(ctx context.Context) (*econ.Session, error) {
		s := econ.NewSession(nil)
		if provider != nil {
			s.Tracer = provider.Tracer
		}
		if err := s.Connect(ctx, cfg.Econ.Host); err != nil {
			return nil, err
		}
		ok, err := s.TryAuth(ctx, cfg.Econ.Password, cfg.Econ.AuthMessage)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &econ.AuthRejected{}
		}
		return s, nil
	}

	writer, err := connect(ctx)
	if err != nil {
		return err
	}
	defer writer.Close()

	reconnect := econ.ReconnectConfig{
		MaxAttempts: cfg.Econ.Reconnect.MaxAttemptsOrDefault(),
		Sleep:       cfg.Econ.Reconnect.SleepDuration(),
	}
	errorsPublisher := func(ctx context.Context, e envelope.Error) error {
		if cfg.Nats.Errors == "" {
			return nil
		}
		payload, err := envelope.Encode(e)
		if err != nil {
			return err
		}
		return router.Publish(ctx, cfg.Nats.Errors, cfg.Args, nil, payload)
	}
	supervisor := econ.NewSupervisor(writer, connect, errorsPublisher, reconnect, logger)
	if provider != nil {
		if metrics, err := otel.NewMetrics(provider.Meter); err != nil {
			logger.Warn("otel metrics unavailable", "error", err)
		} else {
			supervisor.SetMetrics(metrics)
		}
	}

	readerCtx, readerCancel := context.WithCancel(ctx)
	runReader := func(session *econ.Session) {
		go readConsoleLines(readerCtx, router, cfg, session, logger)
	}

	reader, err := connect(ctx)
	if err != nil {
		readerCancel()
		return err
	}
	defer reader.Close()
	runReader(reader)

	supervisor.OnReconnected(func(ctx context.Context) {
		readerCancel()
		readerCtx, readerCancel = context.WithCancel(ctx)
		newReader, err := connect(ctx)
		if err != nil {
			logger.Warn("reader reconnect failed", "error", err)
			return
		}
		runReader(newReader)
	})

	specs := buildTaskSpecs(cfg.Econ.Tasks)
	supervisor.RegisterTaskCommands(task.AllCommands(specs)...)
	for _, spec := range specs {
		runner := task.NewRunner(spec, supervisor.Commands(), logger)
		go func() {
			if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("task runner exited", "error", err)
			}
		}()
	}

	for _, cmd := range cfg.Econ.FirstCommands {
		supervisor.Commands() <- cmd
	}

	go runInboundSubscriptions(ctx, router, cfg, supervisor, logger)

	supervisor.Run(ctx)
	readerCancel()
	return nil
}

// readConsoleLines pulls lines from the reader session and publishes a
// Bridge envelope to every outbound subject. A blocking RecvLine always
// either returns a line or an error (a closed socket surfaces as a
// TransportError, ending the loop rather than spinning).
func readConsoleLines(ctx context.Context, router *broker.Router, cfg config.Config, session *econ.Session, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := session.RecvLine(true)
		if err != nil {
			logger.Warn("console read failed", "error", err)
			return
		}
		env := envelope.Bridge{Text: *line, Args: cfg.Args}
		payload, err := envelope.Encode(env)
		if err != nil {
			logger.Warn("failed to encode bridge envelope", "error", err)
			continue
		}
		if err := router.PublishAll(ctx, cfg.Nats.To, cfg.Args, nil, payload); err != nil {
			logger.Warn("publish failed", "error", err)
		}
	}
}

// runInboundSubscriptions runs one subscriber loop per configured inbound
// subject, converting
// Handler envelopes into plain lines fed into the writer's command
// channel.
func runInboundSubscriptions(ctx context.Context, router *broker.Router, cfg config.Config, supervisor *econ.Supervisor, logger *slog.Logger) {
	var subs []broker.Subscription
	for _, from := range cfg.Nats.From {
		sub, err := router.Subscribe(ctx, from, cfg.Nats.Queue, cfg.Args, nil)
		if err != nil {
			logger.Error("failed to subscribe to inbound subject", "subject", from, "error", err)
			continue
		}
		subs = append(subs, sub)
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
			return
		case m := <-merged:
			h, err := envelope.DecodeHandler(m.Data)
			if err != nil {
				logger.Warn("dropping malformed handler envelope", "subject", m.Subject, "error", err)
				continue
			}
			cmd := h.Text
			if cmd == "" && len(h.Value) > 0 {
				cmd = h.Value[0]
			}
			if cmd == "" {
				continue
			}
			select {
			case supervisor.Commands() <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func buildTaskSpecs(tasks []config.TaskConfig) []task.Spec {
	specs := make([]task.Spec, 0, len(tasks))
	for _, t := range tasks {
		spec := task.Spec{
			Kind:     t.Kind,
			Commands: t.Commands,
			Delay:    time.Duration(t.DelaySeconds) * time.Second,
			CronExpr: t.Cron,
			Mode:     task.ParseMode(t.Mode),
		}
		specs = append(specs, spec)
	}
	return specs
}
