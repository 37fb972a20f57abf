package reply

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/models"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGenerator struct {
	replies map[string]string
	err     map[string]error
}

func (f *fakeGenerator) GenerateReply(ctx context.Context, text string) (string, error) {
	if err := f.err[text]; err != nil {
		return "", err
	}
	return f.replies[text], nil
}

func post(id, title string) models.Post {
	return models.NewPost(models.RawPost{ID: id, Title: title, CreatedAt: time.Now()}, "esim")
}

func TestDrafter_Draft(t *testing.T) {
	posts := []models.Post{post("a", "first"), post("b", "second"), post("c", "third")}
	gen := &fakeGenerator{
		replies: map[string]string{
			"first ":  strings.Repeat("word ", 10),
			"second ": "   ",
		},
		err: map[string]error{"third ": errors.New("connection refused")},
	}
	core, logs := observer.New(zap.WarnLevel)
	d := NewDrafter(gen, WithWidth(12), WithLogger(zap.New(core)))

	got := d.Draft(context.Background(), posts)
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	for _, line := range strings.Split(got[0].Response, "\n") {
		if len(line) > 12 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if got[0].Response == "" {
		t.Error("first post should have a reply")
	}
	if got[1].Response != "" || got[2].Response != "" {
		t.Errorf("failed drafts must leave Response empty: %q %q", got[1].Response, got[2].Response)
	}
	if logs.Len() != 2 {
		t.Errorf("expected 2 warnings, got %d", logs.Len())
	}
	if posts[0].Response != "" {
		t.Error("input posts must not be modified")
	}
}

func TestDrafter_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDrafter(&fakeGenerator{replies: map[string]string{"a ": "hi"}})
	got := d.Draft(ctx, []models.Post{post("a", "a")})
	if got[0].Response != "" {
		t.Error("canceled drafting should not generate")
	}
}

func TestOllama_GenerateReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      "redditor",
			"created_at": "2025-01-01T00:00:00Z",
			"message":    map[string]any{"role": "assistant", "content": "Try a local SIM."},
			"response":   "Try a local SIM.",
			"done":       true,
		})
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, "redditor")
	if err != nil {
		t.Fatal(err)
	}
	got, err := o.GenerateReply(context.Background(), "my esim is not working")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Try a local SIM." {
		t.Errorf("reply = %q", got)
	}
}

func TestOpenAI_GenerateReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Airalo worked for me."},
			}},
		})
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", "gpt-4o-mini", srv.URL, option.WithMaxRetries(0))
	got, err := o.GenerateReply(context.Background(), "which esim for Japan?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Airalo worked for me." {
		t.Errorf("reply = %q", got)
	}
}

func TestNew(t *testing.T) {
	d, err := New(config.ReplyConfig{Provider: "openai", Model: "gpt-4o-mini", Width: 80}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.width != 80 {
		t.Errorf("width = %d", d.width)
	}
	if _, ok := d.gen.(*OpenAI); !ok {
		t.Errorf("gen = %T", d.gen)
	}
	if _, err := New(config.ReplyConfig{Provider: "claude"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
