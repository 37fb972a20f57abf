package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hyperjump/postscout/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	fail map[int]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	n := len(f.sent)
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	if f.fail[n] {
		return tgbotapi.Message{}, errors.New("Too Many Requests")
	}
	return tgbotapi.Message{MessageID: n + 1}, nil
}

func post(id, title string) models.Post {
	p := models.NewPost(models.RawPost{ID: id, URL: id, Title: title, Content: "a <b>bold</b> claim", Source: "travel", CreatedAt: time.Now()}, "esim")
	p.Context = models.ContextComplaint
	p.Score = 0.71
	p.BestKeyword = "esim"
	return p
}

func TestTelegram_Notify(t *testing.T) {
	s := &fakeSender{fail: map[int]bool{1: true}}
	tg := NewTelegramWithSender(s, 42, nil)
	res := &models.RunResult{Posts: []models.Post{post("a", "one"), post("b", "two"), post("c", "three")}}

	sent, failed := tg.Notify(context.Background(), res)
	if sent != 2 || failed != 1 {
		t.Errorf("sent=%d failed=%d", sent, failed)
	}
	if len(s.sent) != 3 {
		t.Fatalf("attempts = %d", len(s.sent))
	}
	if s.sent[0].ChatID != 42 || s.sent[0].ParseMode != tgbotapi.ModeHTML {
		t.Errorf("message = %+v", s.sent[0])
	}
}

func TestTelegram_NotifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeSender{}
	sent, failed := NewTelegramWithSender(s, 1, nil).Notify(ctx, &models.RunResult{Posts: []models.Post{post("a", "x"), post("b", "y")}})
	if sent != 0 || failed != 2 || len(s.sent) != 0 {
		t.Errorf("sent=%d failed=%d attempts=%d", sent, failed, len(s.sent))
	}
}

func TestFormatPost(t *testing.T) {
	p := post("https://www.reddit.com/r/travel/comments/x/", "Roaming & eSIM <help>")
	p.Response = "Use a local SIM"
	out := FormatPost(p)
	for _, want := range []string{
		"<b>Roaming &amp; eSIM &lt;help&gt;</b>",
		"r/travel · complaint · 0.71 (esim)",
		"a &lt;b&gt;bold&lt;/b&gt; claim",
		"<i>Use a local SIM</i>",
		`<a href="https://www.reddit.com/r/travel/comments/x/">Open post</a>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestNewTelegram_requiresCredentials(t *testing.T) {
	if _, err := NewTelegram("", 1, nil); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewTelegram("token", 0, nil); err == nil {
		t.Error("expected error without chat id")
	}
}
