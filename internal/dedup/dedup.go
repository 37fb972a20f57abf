// Package dedup drops posts already seen in the current run and posts older than a cutoff.
package dedup

import (
	"time"

	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/internal/postid"
)

// Verdict is the outcome of offering one raw record to the Filter.
type Verdict int

const (
	Accepted Verdict = iota
	Duplicate
	Stale
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Stale:
		return "stale"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Stats counts verdicts handed out by a Filter.
type Stats struct {
	Accepted   int
	Duplicates int
	Stale      int
	Malformed  int
}

// Filter keeps the set of identifiers seen during one run.
// It is not safe for concurrent use.
type Filter struct {
	cutoff time.Time
	seen   map[string]struct{}
	stats  Stats
}

// New returns a Filter that rejects records created before cutoff.
func New(cutoff time.Time) *Filter {
	return &Filter{
		cutoff: cutoff,
		seen:   make(map[string]struct{}),
	}
}

// Accept checks raw and, when it is new and recent enough, records its identifier
// and returns it as a Post attributed to keyword. Records with a malformed identifier
// or no creation time fail closed. Stale and malformed records do not enter the seen set.
func (f *Filter) Accept(raw models.RawPost, keyword string) (models.Post, Verdict) {
	if !postid.Valid(raw.ID) || raw.CreatedAt.IsZero() {
		f.stats.Malformed++
		return models.Post{}, Malformed
	}
	if _, ok := f.seen[raw.ID]; ok {
		f.stats.Duplicates++
		return models.Post{}, Duplicate
	}
	if raw.CreatedAt.Before(f.cutoff) {
		f.stats.Stale++
		return models.Post{}, Stale
	}
	f.seen[raw.ID] = struct{}{}
	f.stats.Accepted++
	return models.NewPost(raw, keyword), Accepted
}

// Stats returns the verdict counters so far.
func (f *Filter) Stats() Stats {
	return f.stats
}
