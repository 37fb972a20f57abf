// Package source provides post sources: the Reddit search API and a local archive.
package source

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/models"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the upstream rejects the credentials.
var ErrUnauthorized = errors.New("source: unauthorized")

// Query is one keyword search.
type Query struct {
	Text string
	// Sort is the upstream ordering hint, e.g. "new" or "relevance".
	Sort string
	// TimeFilter is the upstream time window hint: hour, day, week, month, year or all.
	TimeFilter string
	// Limit caps the number of records yielded.
	Limit int
}

// PostSource searches an upstream for posts matching a query.
// Search returns a lazy, finite sequence that cannot be restarted; each call re-queries.
// On failure the sequence yields a single (zero, err) pair and ends.
type PostSource interface {
	Name() string
	Search(ctx context.Context, q Query) iter.Seq2[models.RawPost, error]
}

// New builds the post source selected by cfg.
func New(cfg config.SourceConfig, logger *zap.Logger) (PostSource, error) {
	switch cfg.Provider {
	case "reddit", "":
		return NewReddit(cfg.Reddit, cfg.Timeout, WithRedditLogger(logger)), nil
	case "archive":
		return OpenArchive(cfg.Archive.Path, WithArchiveLogger(logger))
	default:
		return nil, fmt.Errorf("unknown source provider: %s (supported: reddit, archive)", cfg.Provider)
	}
}

// fail returns a sequence yielding err once.
func fail(err error) iter.Seq2[models.RawPost, error] {
	return func(yield func(models.RawPost, error) bool) {
		yield(models.RawPost{}, err)
	}
}
