package role

import (
	"context"
	"log/slog"

	"github.com/teeworlds-nats/bridge/internal/chatbot"
	"github.com/teeworlds-nats/bridge/internal/config"
	"github.com/teeworlds-nats/bridge/internal/otel"
)

// RunBotReader drives the bot-reader role: it connects the broker and
// relays Handler envelopes from cfg.Nats.From to every configured bot
// handle.
func RunBotReader(ctx context.Context, cfg config.Config, logger *slog.Logger, provider *otel.Provider) error {
	if logger == nil {
		logger = slog.Default()
	}
	router, client, err := connectBroker(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer client.Close()

	pool := chatbot.NewPool(buildBots(cfg.Bot.Tokens, logger))

	path := chatbot.ReaderPath{
		From:          cfg.Nats.From,
		Queue:         cfg.Nats.Queue,
		Args:          cfg.Args,
		MessageText:   cfg.Format.MessageText,
		MessageRegex:  cfg.Format.MessageRegex,
		NotStartsWith: cfg.Format.NotStartsWith,
	}

	return chatbot.RunReader(ctx, router, path, pool, logger)
}

// buildBots constructs one chatbot.Bot per configured token.
func buildBots(tokens []string, logger *slog.Logger) []chatbot.Bot {
	bots := make([]chatbot.Bot, 0, len(tokens))
	for _, token := range tokens {
		bots = append(bots, chatbot.NewTelegramBot(token, logger))
	}
	return bots
}
