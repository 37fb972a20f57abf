// Package cli provides console output for postscout runs.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/pkg/utils"
)

// OutputFormat is the format for run result output.
type OutputFormat string

const (
	// OutputText is the human-readable block per post (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per post.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	blue  = "\033[94m"
	reset = "\033[0m"

	// DateLayout is how post creation times are printed.
	DateLayout = "2006-01-02 15:04:05 UTC"
)

// Options controls text rendering.
type Options struct {
	Color bool
	// ContentPreview is the number of characters of content shown; 0 means 200.
	ContentPreview int
}

// ParseFormat validates a format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteRunResult writes result to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteRunResult(w io.Writer, result *models.RunResult, format OutputFormat, opts Options) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case OutputCompact:
		return writeCompact(w, result)
	default:
		return writeText(w, result, opts)
	}
}

func writeText(w io.Writer, result *models.RunResult, opts Options) error {
	preview := opts.ContentPreview
	if preview <= 0 {
		preview = 200
	}
	ew := &errWriter{w: w}
	n := len(result.Posts)
	ew.printf("\nFound %d relevant posts in total:\n\n", n)
	for i, p := range result.Posts {
		ew.printf("Post %d of %d\n", i+1, n)
		ew.printf("Title: %s\n", p.Title)
		ew.printf("Subreddit: %s\n", p.Source)
		if opts.Color {
			ew.printf("URL: %s%s%s\n", blue, p.URL, reset)
		} else {
			ew.printf("URL: %s\n", p.URL)
		}
		ew.printf("Date: %s\n", p.CreatedAt.UTC().Format(DateLayout))
		ew.printf("Content: %s\n", utils.Truncate(p.Content, preview))
		ew.printf("Engagement Metrics: %d upvotes, %d comments\n", p.Upvotes, p.Comments)
		ew.printf("Context Assessment: %s\n", p.Context)
		ew.printf("Similarity: %.4f (%s)\n", p.Score, p.BestKeyword)
		if p.Response != "" {
			ew.printf("Possible Response: %s\n", p.Response)
		}
		ew.printf("\n")
	}
	return ew.err
}

func writeCompact(w io.Writer, result *models.RunResult) error {
	ew := &errWriter{w: w}
	for _, p := range result.Posts {
		ew.printf("%s\t%.3f\t%s\tr/%s\t%s\t%s\n",
			p.CreatedAt.UTC().Format("2006-01-02"),
			p.Score,
			p.Context,
			p.Source,
			utils.Truncate(strings.Join(strings.Fields(p.Title), " "), 80),
			p.URL,
		)
	}
	return ew.err
}

// WriteSummary writes a one-line run summary.
func WriteSummary(w io.Writer, result *models.RunResult) error {
	s := result.Stats
	_, err := fmt.Fprintf(w, "run %s: fetched %d, unique %d (duplicates %d, stale %d, malformed %d), relevant %d, unclassified %d, drafted %d, %dms\n",
		result.RunID, s.Fetched, s.Unique, s.Duplicates, s.Stale, s.Malformed, s.Relevant, s.Unclassified, s.Drafted, result.QueryTime)
	return err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
