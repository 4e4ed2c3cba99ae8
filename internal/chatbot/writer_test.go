package chatbot

import (
	"context"
	"strings"
	"testing"

	"github.com/teeworlds-nats/bridge/internal/args"
	"github.com/teeworlds-nats/bridge/internal/emoji"
)

type recordingPublisher struct {
	published []publishedMessage
}

type publishedMessage struct {
	subject string
	payload []byte
}

func (p *recordingPublisher) Publish(ctx context.Context, subjectTemplate string, a args.Value, list []string, payload []byte) error {
	p.published = append(p.published, publishedMessage{subject: subjectTemplate, payload: payload})
	return nil
}

func TestProcessWriter_DropsEmptyUpdate(t *testing.T) {
	pub := &recordingPublisher{}
	path := WriterPath{To: []string{"tw.tg.1"}}

	ProcessWriter(context.Background(), pub, path, Update{}, nil, nil)

	if len(pub.published) != 0 {
		t.Fatalf("expected empty update to be dropped, got %v", pub.published)
	}
}

func TestProcessWriter_RunsFormatChainAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	path := WriterPath{
		To: []string{"tw.econ.write.1"},
		Text: []FormatStep{
			{Format: "say {{1}}"},
		},
	}
	update := Update{ChatID: 7, ThreadID: -1, Text: "hello world", SenderName: "alice"}

	ProcessWriter(context.Background(), pub, path, update, nil, nil)

	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
	if pub.published[0].subject != "tw.econ.write.1" {
		t.Fatalf("unexpected subject %q", pub.published[0].subject)
	}
}

func TestProcessWriter_SubstitutesEmoji(t *testing.T) {
	table, err := emoji.Parse([]byte("\U0001F600\tgrinning\n"))
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	pub := &recordingPublisher{}
	path := WriterPath{
		To:   []string{"tw.econ.write.1"},
		Text: []FormatStep{{Format: "{{1}}"}},
	}
	update := Update{ChatID: 1, ThreadID: -1, Text: "hi \U0001F600"}

	ProcessWriter(context.Background(), pub, path, update, table, nil)

	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
	if !strings.Contains(string(pub.published[0].payload), "grinning") {
		t.Fatalf("expected emoji substitution in payload, got %s", pub.published[0].payload)
	}
}

func TestProcessWriter_ReplyFormatPrepended(t *testing.T) {
	pub := &recordingPublisher{}
	path := WriterPath{
		To:    []string{"tw.econ.write.1"},
		Text:  []FormatStep{{Format: "{{1}}"}},
		Reply: []FormatStep{{Format: "re: {{2}}"}},
	}
	update := Update{
		ChatID: 1, ThreadID: -1, Text: "ok",
		HasReply: true, ReplyText: "original question", ReplySticker: "",
	}

	ProcessWriter(context.Background(), pub, path, update, nil, nil)

	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
	payload := string(pub.published[0].payload)
	reply, text := strings.Index(payload, `"re: "`), strings.Index(payload, `"ok"`)
	if reply < 0 || text < 0 || reply > text {
		t.Fatalf("expected reply output prepended to text output, got %s", payload)
	}
}
