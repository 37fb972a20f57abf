// Package pipeline runs one search, filter, embed, score, classify cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hyperjump/postscout/internal/classifier"
	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/dedup"
	"github.com/hyperjump/postscout/internal/embedding"
	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/internal/relevance"
	"github.com/hyperjump/postscout/internal/source"
	"github.com/hyperjump/postscout/internal/vector"
	"github.com/hyperjump/postscout/pkg/utils"
	"go.uber.org/zap"
)

// ErrKeywordMismatch is returned by Run when a precomputed keyword index was built
// for a different keyword list.
var ErrKeywordMismatch = errors.New("keyword index does not match keywords")

// Params are the per-run search settings.
type Params struct {
	Keywords     []string
	LookbackDays int
	Limit        int
	// Sort is the upstream ordering hint; defaults to "new".
	Sort string
	// TimeFilter is the upstream window hint; derived from LookbackDays when empty.
	TimeFilter string
}

// Timeouts bound the blocking calls of a run. Zero values mean no timeout.
type Timeouts struct {
	Search time.Duration
	Embed  time.Duration
}

// Pipeline wires a source, an embedder, a scorer and a classifier into one run.
type Pipeline struct {
	source      source.PostSource
	embedder    embedding.Embedder
	scorer      *relevance.Scorer
	classifier  *classifier.Context
	keywords    *vector.KeywordIndex
	drafter     Drafter
	parallelism int
	timeouts    Timeouts
	now         func() time.Time
	logger      *zap.Logger
}

// Drafter attaches replies to relevant posts; reply.Drafter implements it.
type Drafter interface {
	Draft(ctx context.Context, posts []models.Post) []models.Post
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A run_id field is added per run.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithKeywordIndex supplies a keyword index computed once at process start.
func WithKeywordIndex(idx *vector.KeywordIndex) Option {
	return func(p *Pipeline) {
		p.keywords = idx
	}
}

// WithDrafter enables reply drafting for relevant posts.
func WithDrafter(d Drafter) Option {
	return func(p *Pipeline) {
		p.drafter = d
	}
}

// WithParallelism sets the number of concurrent keyword searches.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		p.parallelism = n
	}
}

// WithTimeouts sets per-call timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(p *Pipeline) {
		p.timeouts = t
	}
}

// WithClock sets the clock used for the recency cutoff.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline.
func New(src source.PostSource, embedder embedding.Embedder, scorer *relevance.Scorer, c *classifier.Context, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:      src,
		embedder:    embedder,
		scorer:      scorer,
		classifier:  c,
		parallelism: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.classifier == nil {
		p.classifier = classifier.NewContext(nil)
	}
	if p.scorer == nil {
		p.scorer, _ = relevance.NewScorer(relevance.DefaultThreshold)
	}
	return p
}

// Run executes one cycle. Search and embedding failures abort the run; classification
// and reply failures degrade per post.
func (p *Pipeline) Run(ctx context.Context, params Params) (*models.RunResult, error) {
	keywords, err := normalizeKeywords(params.Keywords)
	if err != nil {
		return nil, err
	}
	if params.LookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", params.LookbackDays)
	}
	if params.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", params.Limit)
	}
	if p.keywords != nil && !slices.Equal(p.keywords.Phrases(), keywords) {
		return nil, fmt.Errorf("keyword index holds %q, run asked for %q: %w", p.keywords.Phrases(), keywords, ErrKeywordMismatch)
	}

	runID := utils.NewRunID()
	logger := utils.WithRun(p.logger, runID)
	startedAt := p.now().UTC()
	cutoff := startedAt.Add(-time.Duration(params.LookbackDays) * 24 * time.Hour)
	sc := config.SearchConfig{LookbackDays: params.LookbackDays, TimeFilter: params.TimeFilter}
	query := source.Query{
		Sort:       params.Sort,
		TimeFilter: sc.TimeFilterOrDefault(),
		Limit:      params.Limit,
	}
	if query.Sort == "" {
		query.Sort = "new"
	}
	logger.Info("run started",
		zap.Int("keywords", len(keywords)),
		zap.Time("cutoff", cutoff),
		zap.String("time_filter", query.TimeFilter),
		zap.Float64("threshold", p.scorer.Threshold()),
	)

	filter := dedup.New(cutoff)
	posts, err := Collect(ctx, p.source, filter, keywords, query, CollectOptions{
		Parallelism: p.parallelism,
		Timeout:     p.timeouts.Search,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	ds := filter.Stats()
	result := &models.RunResult{
		RunID:     runID,
		StartedAt: startedAt,
		Cutoff:    cutoff,
		Keywords:  keywords,
		Threshold: p.scorer.Threshold(),
		Stats: models.RunStats{
			Fetched:    ds.Accepted + ds.Duplicates + ds.Stale + ds.Malformed,
			Duplicates: ds.Duplicates,
			Stale:      ds.Stale,
			Malformed:  ds.Malformed,
			Unique:     len(posts),
		},
		Posts: []models.Post{},
	}
	logger.Info("deduplicated",
		zap.Int("fetched", result.Stats.Fetched),
		zap.Int("unique", len(posts)),
		zap.Int("duplicates", ds.Duplicates),
		zap.Int("stale", ds.Stale),
		zap.Int("malformed", ds.Malformed),
	)

	if len(posts) > 0 {
		relevant, err := p.score(ctx, keywords, posts)
		if err != nil {
			return nil, err
		}
		relevant = Classify(ctx, p.classifier, relevant)
		if p.drafter != nil && len(relevant) > 0 {
			relevant = p.drafter.Draft(ctx, relevant)
		}
		result.Posts = relevant
	}

	for _, post := range result.Posts {
		if post.Context == models.ContextUnknown {
			result.Stats.Unclassified++
		}
		if post.Response != "" {
			result.Stats.Drafted++
		}
	}
	result.Stats.Relevant = len(result.Posts)
	result.QueryTime = p.now().Sub(startedAt).Milliseconds()
	logger.Info("run complete",
		zap.Int("relevant", result.Stats.Relevant),
		zap.Int("unclassified", result.Stats.Unclassified),
		zap.Int64("query_time_ms", result.QueryTime),
	)
	return result, nil
}

// score embeds posts in one batch and keeps those above the threshold for any keyword.
func (p *Pipeline) score(ctx context.Context, keywords []string, posts []models.Post) ([]models.Post, error) {
	if p.timeouts.Embed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Embed)
		defer cancel()
	}
	idx := p.keywords
	if idx == nil {
		var err error
		idx, err = PrepareKeywords(ctx, p.embedder, keywords)
		if err != nil {
			return nil, err
		}
	} else if idx.Dimensions() != p.embedder.Dimensions() {
		return nil, fmt.Errorf("keyword index has %d dimensions, embedder %d: %w", idx.Dimensions(), p.embedder.Dimensions(), embedding.ErrDimensionMismatch)
	}
	vecs, err := EmbedPosts(ctx, p.embedder, posts)
	if err != nil {
		return nil, err
	}
	m, err := vector.Compute(vecs, idx)
	if err != nil {
		return nil, fmt.Errorf("score posts: %w", err)
	}
	return p.scorer.Select(posts, m)
}

// normalizeKeywords trims keywords and rejects empty lists and blank entries.
func normalizeKeywords(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, config.ErrNoKeywords
	}
	out := make([]string, len(in))
	for i, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("keyword %d is empty", i)
		}
		out[i] = k
	}
	return out, nil
}
