package chatbot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestTranslateMessage_PlainText(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 100},
		From: &tgbotapi.User{UserName: "alice"},
		Text: "hello",
	}
	u := translateMessage(msg)
	if u.ChatID != 100 || u.Text != "hello" || u.SenderName != "alice" || u.ThreadID != -1 {
		t.Fatalf("unexpected translation: %+v", u)
	}
}

func TestTranslateMessage_ForumTopicMessage(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat:            &tgbotapi.Chat{ID: 100},
		IsTopicMessage:  true,
		MessageThreadID: 5,
		Text:            "in a thread",
	}
	u := translateMessage(msg)
	if u.ThreadID != 5 {
		t.Fatalf("expected thread id 5, got %d", u.ThreadID)
	}
}

func TestTranslateMessage_Sticker(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: 100},
		Sticker: &tgbotapi.Sticker{Emoji: "\U0001F600"},
	}
	u := translateMessage(msg)
	if !u.HasSticker || u.StickerEmoji != "\U0001F600" {
		t.Fatalf("expected sticker detection, got %+v", u)
	}
}

func TestTranslateMessage_ReplyToForumTopicCreated(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 100},
		Text: "first message in topic",
		ReplyToMessage: &tgbotapi.Message{
			ForumTopicCreated: &tgbotapi.ForumTopicCreated{Name: "general"},
		},
	}
	u := translateMessage(msg)
	if u.ForumTopicName != "general" {
		t.Fatalf("expected forum topic name, got %+v", u)
	}
	if u.HasReply {
		t.Fatalf("forum-topic-created reply should not count as a regular reply")
	}
}

func TestTranslateMessage_ReplyToRegularMessage(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 100},
		Text: "yes",
		ReplyToMessage: &tgbotapi.Message{
			Text: "question?",
		},
	}
	u := translateMessage(msg)
	if !u.HasReply || u.ReplyText != "question?" {
		t.Fatalf("expected reply detection, got %+v", u)
	}
}

func TestTranslateMessage_Media(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: 100},
		Photo:   []tgbotapi.PhotoSize{{FileID: "abc"}},
		Caption: "a photo",
	}
	u := translateMessage(msg)
	if !u.HasMedia || u.MediaKind != "photo" || u.MediaCaption != "a photo" {
		t.Fatalf("expected photo media detection, got %+v", u)
	}
}
