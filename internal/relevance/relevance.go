// Package relevance decides which posts are semantically close enough to any keyword.
package relevance

import (
	"fmt"
	"math"

	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/internal/vector"
	"go.uber.org/zap"
)

// DefaultThreshold is the similarity a post must exceed for at least one keyword.
const DefaultThreshold = 0.6

// Scorer applies the relevance rule: a post is relevant iff any keyword similarity
// is strictly greater than the threshold.
type Scorer struct {
	threshold float64
	logger    *zap.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger used for degenerate-row warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		s.logger = l
	}
}

// NewScorer returns a scorer for threshold, which must lie in [-1, 1].
func NewScorer(threshold float64, opts ...Option) (*Scorer, error) {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [-1, 1], got %g", threshold)
	}
	s := &Scorer{threshold: threshold}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Threshold returns the configured threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Relevant reports whether any score in row exceeds the threshold.
func (s *Scorer) Relevant(row []float64) bool {
	for _, v := range row {
		if v > s.threshold {
			return true
		}
	}
	return false
}

// Select returns the relevant posts in their original order with Score and BestKeyword set.
// posts and m must have the same number of rows. The input slice is not modified.
func (s *Scorer) Select(posts []models.Post, m *vector.Matrix) ([]models.Post, error) {
	if m.Rows() != len(posts) {
		return nil, fmt.Errorf("similarity matrix has %d rows for %d posts", m.Rows(), len(posts))
	}
	for _, i := range m.Degenerate() {
		s.logger.Warn("zero-magnitude embedding, post scored 0",
			zap.String("post_id", posts[i].ID),
		)
	}
	out := make([]models.Post, 0, len(posts))
	for i, p := range posts {
		row := m.Row(i)
		if !s.Relevant(row) {
			s.logger.Debug("post below threshold", zap.String("post_id", p.ID))
			continue
		}
		p.Score, p.BestKeyword = m.RowMax(i)
		out = append(out, p)
	}
	return out, nil
}
