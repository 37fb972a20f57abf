// Package classifier assigns a context label to relevant posts with a zero-shot backend.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyResult is returned by backends that answered without any label.
var ErrEmptyResult = errors.New("classifier returned no labels")

// LabelScore is one candidate label with its probability.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ZeroShot ranks candidate labels for a text.
type ZeroShot interface {
	Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error)
}

// Context wraps a ZeroShot backend and never fails: any problem yields models.ContextUnknown.
type Context struct {
	backend ZeroShot
	labels  []string
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Context classifier.
type Option func(*Context)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// WithLabels overrides the candidate label set (default models.Categories()).
func WithLabels(labels []string) Option {
	return func(c *Context) {
		if len(labels) > 0 {
			c.labels = append([]string(nil), labels...)
		}
	}
}

// WithTimeout bounds each backend call. Zero means no per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Context) {
		c.timeout = d
	}
}

// NewContext returns a classifier over backend. A nil backend labels every post unknown.
func NewContext(backend ZeroShot, opts ...Option) *Context {
	c := &Context{
		backend: backend,
		labels:  models.Categories(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Labels returns the candidate labels.
func (c *Context) Labels() []string {
	return c.labels
}

// Classify returns the top-ranked label for text, or models.ContextUnknown when the backend
// fails, returns nothing, or picks a label outside the candidate set.
func (c *Context) Classify(ctx context.Context, text string) string {
	if c.backend == nil {
		return models.ContextUnknown
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	scores, err := c.backend.Classify(ctx, text, c.labels)
	if err == nil && len(scores) == 0 {
		err = ErrEmptyResult
	}
	if err != nil {
		c.logger.Warn("classification failed, using fallback label",
			zap.String("label", models.ContextUnknown),
			zap.Error(err),
		)
		return models.ContextUnknown
	}
	top := Top(scores)
	if !models.IsCategory(top.Label, c.labels) {
		c.logger.Warn("classifier returned unexpected label, using fallback label",
			zap.String("got", top.Label),
			zap.String("label", models.ContextUnknown),
		)
		return models.ContextUnknown
	}
	return top.Label
}

// Top returns the highest-scoring entry; ties go to the earlier entry.
func Top(scores []LabelScore) LabelScore {
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}

// New builds the context classifier selected by cfg.
func New(cfg config.ClassifierConfig, logger *zap.Logger) (*Context, error) {
	var backend ZeroShot
	switch cfg.Provider {
	case "huggingface":
		backend = NewHuggingFace(cfg.URL, cfg.Model, cfg.APIKey)
	case "openai":
		backend = NewOpenAI(cfg.APIKey, cfg.Model, cfg.URL)
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s (supported: huggingface, openai, none)", cfg.Provider)
	}
	return NewContext(backend,
		WithLabels(cfg.Labels),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
	), nil
}

// parseScores accepts either {"labels": [...], "scores": [...]} or [{"label", "score"}],
// optionally wrapped in a Markdown code fence, and returns entries sorted by descending score.
func parseScores(data []byte) ([]LabelScore, error) {
	body := strings.TrimSpace(stripFence(string(data)))
	if body == "" {
		return nil, ErrEmptyResult
	}
	var out []LabelScore
	switch body[0] {
	case '[':
		if err := unmarshal(body, &out); err != nil {
			return nil, err
		}
	case '{':
		var obj struct {
			Labels []string  `json:"labels"`
			Scores []float64 `json:"scores"`
			Error  string    `json:"error"`
		}
		if err := unmarshal(body, &obj); err != nil {
			return nil, err
		}
		if obj.Error != "" {
			return nil, fmt.Errorf("classifier error: %s", obj.Error)
		}
		if len(obj.Labels) != len(obj.Scores) {
			return nil, fmt.Errorf("classifier returned %d labels and %d scores", len(obj.Labels), len(obj.Scores))
		}
		for i, l := range obj.Labels {
			out = append(out, LabelScore{Label: l, Score: obj.Scores[i]})
		}
	default:
		return nil, fmt.Errorf("unexpected classifier response: %q", truncate(body, 80))
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func unmarshal(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode classifier response: %w", err)
	}
	return nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
