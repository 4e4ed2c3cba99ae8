package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot is the only concrete Bot implementation this repo ships.
type TelegramBot struct {
	token  string
	logger *slog.Logger
	api    *tgbotapi.BotAPI
}

// NewTelegramBot constructs a TelegramBot for one bot token. The
// underlying tgbotapi.BotAPI is created lazily on first Updates/Send
// call so construction never fails on a bad token until actually used.
func NewTelegramBot(token string, logger *slog.Logger) *TelegramBot {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramBot{token: token, logger: logger.With("component", "chatbot.telegram")}
}

func (t *TelegramBot) ensureAPI() (*tgbotapi.BotAPI, error) {
	if t.api != nil {
		return t.api, nil
	}
	api, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return nil, fmt.Errorf("chatbot: telegram init: %w", err)
	}
	t.api = api
	return api, nil
}

// Updates implements Bot. It polls Telegram's long-poll updates API,
// reconnecting with exponential backoff on disconnect and detecting a
// stalled connection.
func (t *TelegramBot) Updates(ctx context.Context) <-chan Update {
	out := make(chan Update, 64)
	go t.pollLoop(ctx, out)
	return out
}

func (t *TelegramBot) pollLoop(ctx context.Context, out chan<- Update) {
	defer close(out)

	api, err := t.ensureAPI()
	if err != nil {
		t.logger.Error("telegram bot failed to start", "error", err)
		return
	}
	t.logger.Info("telegram bot started", "user", api.Self.UserName)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for ctx.Err() == nil {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)

		err := t.drain(ctx, updates, out)
		api.StopReceivingUpdates()

		if err == nil {
			return // ctx cancelled
		}
		t.logger.Warn("telegram poll disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (t *TelegramBot) drain(ctx context.Context, updates tgbotapi.UpdatesChannel, out chan<- Update) error {
	const stallTimeout = 150 * time.Second
	timer := time.NewTimer(stallTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(stallTimeout)

			if raw.Message == nil {
				continue
			}
			upd := translateMessage(raw.Message)
			select {
			case out <- upd:
			case <-ctx.Done():
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("no updates received for %v (possible disconnect)", stallTimeout)
		}
	}
}

func translateMessage(msg *tgbotapi.Message) Update {
	u := Update{
		ChatID:   msg.Chat.ID,
		ThreadID: -1,
		Text:     msg.Text,
	}
	if msg.IsTopicMessage {
		u.ThreadID = int64(msg.MessageThreadID)
	}
	if msg.From != nil {
		u.SenderName = msg.From.UserName
		if u.SenderName == "" {
			u.SenderName = msg.From.FirstName
		}
	}
	if msg.Sticker != nil {
		u.HasSticker = true
		u.StickerEmoji = msg.Sticker.Emoji
	}
	switch {
	case len(msg.Photo) > 0:
		u.HasMedia = true
		u.MediaKind = "photo"
		u.MediaCaption = msg.Caption
	case msg.Video != nil:
		u.HasMedia = true
		u.MediaKind = "video"
		u.MediaCaption = msg.Caption
	case msg.Document != nil:
		u.HasMedia = true
		u.MediaKind = "document"
		u.MediaCaption = msg.Caption
	}
	if msg.ReplyToMessage != nil {
		reply := msg.ReplyToMessage
		if reply.ForumTopicCreated != nil {
			u.ForumTopicName = reply.ForumTopicCreated.Name
		} else {
			u.HasReply = true
			u.ReplyText = reply.Text
			if reply.Sticker != nil {
				u.ReplySticker = reply.Sticker.Emoji
			}
		}
	}
	return u
}

// Send implements Bot. A 429-style backoff request surfaces as
// *RateLimitedError; any other failure is returned wrapped with a
// "chatbot: telegram send" prefix for the caller to log.
func (t *TelegramBot) Send(ctx context.Context, chatID, threadID int64, text string) error {
	api, err := t.ensureAPI()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if threadID >= 0 {
		msg.MessageThreadID = int(threadID)
	}
	_, err = api.Send(msg)
	if err == nil {
		return nil
	}
	if tgErr, ok := err.(*tgbotapi.Error); ok && tgErr.ResponseParameters.RetryAfter > 0 {
		return &RateLimitedError{RetryAfter: time.Duration(tgErr.ResponseParameters.RetryAfter) * time.Second}
	}
	return fmt.Errorf("chatbot: telegram send: %w", err)
}
