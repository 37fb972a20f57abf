// Package reply drafts suggested responses for relevant posts with a language model.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/pkg/utils"
	"go.uber.org/zap"
)

// DefaultWidth is the column width replies are wrapped to.
const DefaultWidth = 150

// Generator produces a reply for a post's full text.
type Generator interface {
	GenerateReply(ctx context.Context, text string) (string, error)
}

// Drafter attaches wrapped replies to posts. Generation failures never abort a run.
type Drafter struct {
	gen     Generator
	width   int
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Drafter.
type Option func(*Drafter)

// WithLogger sets the logger used for generation warnings.
func WithLogger(l *zap.Logger) Option {
	return func(d *Drafter) {
		d.logger = l
	}
}

// WithWidth sets the wrap width. Non-positive values keep DefaultWidth.
func WithWidth(w int) Option {
	return func(d *Drafter) {
		if w > 0 {
			d.width = w
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(t time.Duration) Option {
	return func(d *Drafter) {
		d.timeout = t
	}
}

// NewDrafter returns a drafter over gen.
func NewDrafter(gen Generator, opts ...Option) *Drafter {
	d := &Drafter{gen: gen, width: DefaultWidth}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Draft returns a copy of posts with Response set where generation succeeded.
func (d *Drafter) Draft(ctx context.Context, posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)
	for i := range out {
		if ctx.Err() != nil {
			d.logger.Warn("reply drafting interrupted", zap.Error(ctx.Err()))
			break
		}
		text, err := d.generate(ctx, out[i].FullText())
		if err != nil {
			d.logger.Warn("reply generation failed",
				zap.String("post_id", out[i].ID),
				zap.Error(err),
			)
			continue
		}
		out[i].Response = utils.Wrap(text, d.width)
	}
	return out
}

func (d *Drafter) generate(ctx context.Context, text string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	reply, err := d.gen.GenerateReply(ctx, text)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("empty reply")
	}
	return reply, nil
}

// New builds a drafter for the generator selected by cfg.
func New(cfg config.ReplyConfig, logger *zap.Logger) (*Drafter, error) {
	var gen Generator
	switch cfg.Provider {
	case "ollama", "":
		o, err := NewOllama(cfg.URL, cfg.Model)
		if err != nil {
			return nil, err
		}
		gen = o
	case "openai":
		gen = NewOpenAI(cfg.APIKey, cfg.Model, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown reply provider: %s (supported: ollama, openai)", cfg.Provider)
	}
	return NewDrafter(gen,
		WithWidth(cfg.Width),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
	), nil
}
