package role

import (
	"context"
	"log/slog"

	"github.com/teeworlds-nats/bridge/internal/chatbot"
	"github.com/teeworlds-nats/bridge/internal/config"
	"github.com/teeworlds-nats/bridge/internal/emoji"
	"github.com/teeworlds-nats/bridge/internal/otel"
)

// RunBotWriter drives the bot-writer role: it connects the broker, loads
// the emoji substitution table, and relays every chat update from every
// configured bot handle onto cfg.Nats.To.
func RunBotWriter(ctx context.Context, cfg config.Config, logger *slog.Logger, provider *otel.Provider) error {
	if logger == nil {
		logger = slog.Default()
	}
	router, client, err := connectBroker(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer client.Close()

	table, err := emoji.Default()
	if err != nil {
		return err
	}

	pool := chatbot.NewPool(buildBots(cfg.Bot.Tokens, logger))

	path := chatbot.WriterPath{
		To:      cfg.Nats.To,
		Args:    cfg.Args,
		Text:    convertFormatSteps(cfg.Format.Text),
		Reply:   convertFormatSteps(cfg.Format.Reply),
		Media:   convertFormatSteps(cfg.Format.Media),
		Sticker: convertFormatSteps(cfg.Format.Sticker),
	}

	return chatbot.RunWriter(ctx, router, path, pool, table, logger)
}

func convertFormatSteps(steps []config.FormatStepConfig) []chatbot.FormatStep {
	out := make([]chatbot.FormatStep, 0, len(steps))
	for _, s := range steps {
		out = append(out, chatbot.FormatStep{Format: s.Format, Escape: s.Escape})
	}
	return out
}
