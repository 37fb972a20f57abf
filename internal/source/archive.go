package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/postscout/internal/models"
	"go.uber.org/zap"
)

// Archive serves searches from a JSON-lines dump of posts held in an in-memory Bleve index.
// Each line is one models.RawPost.
type Archive struct {
	index  bleve.Index
	posts  map[string]models.RawPost
	now    func() time.Time
	logger *zap.Logger
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithArchiveLogger sets the logger.
func WithArchiveLogger(l *zap.Logger) ArchiveOption {
	return func(a *Archive) {
		a.logger = l
	}
}

// WithArchiveClock sets the clock used to resolve time filters.
func WithArchiveClock(now func() time.Time) ArchiveOption {
	return func(a *Archive) {
		a.now = now
	}
}

// archiveDoc is the indexed form of a post.
type archiveDoc struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenArchive loads the JSON-lines file at path.
func OpenArchive(path string, opts ...ArchiveOption) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	a, err := NewArchive(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("load archive %s: %w", path, err)
	}
	return a, nil
}

// NewArchive indexes the JSON-lines posts read from r.
func NewArchive(r io.Reader, opts ...ArchiveOption) (*Archive, error) {
	a := &Archive{
		posts: make(map[string]models.RawPost),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	index, err := bleve.NewMemOnly(archiveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	a.index = index

	batch := index.NewBatch()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var p models.RawPost
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.ID == "" {
			// kept out of the index; a search can never return it
			a.logger.Debug("archive record without id", zap.Int("line", line))
			continue
		}
		a.posts[p.ID] = p
		if err := batch.Index(p.ID, archiveDoc{
			Title:     p.Title,
			Content:   p.Content,
			Source:    p.Source,
			CreatedAt: p.CreatedAt.UTC(),
		}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("line %d: index: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("index archive: %w", err)
	}
	a.logger.Info("archive loaded", zap.Int("posts", len(a.posts)))
	return a, nil
}

func archiveMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so brand names match exactly
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	sourceFieldMapping := bleve.NewKeywordFieldMapping()
	sourceFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("source", sourceFieldMapping)
	createdFieldMapping := bleve.NewDateTimeFieldMapping()
	createdFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("created_at", createdFieldMapping)
	im.AddDocumentMapping("post", docMapping)
	im.DefaultType = "post"
	im.DefaultMapping = docMapping
	return im
}

// Name returns "archive".
func (a *Archive) Name() string {
	return "archive"
}

// Search runs an AND match over title and content within the time filter window.
// sort "new" orders by creation time descending; anything else orders by relevance.
func (a *Archive) Search(ctx context.Context, q Query) iter.Seq2[models.RawPost, error] {
	if q.Limit <= 0 {
		return func(func(models.RawPost, error) bool) {}
	}
	start, err := windowStart(q.TimeFilter, a.now())
	if err != nil {
		return fail(err)
	}
	return func(yield func(models.RawPost, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(models.RawPost{}, err)
			return
		}
		match := bleve.NewMatchQuery(q.Text)
		match.SetOperator(blevequery.MatchQueryOperatorAnd)
		var query blevequery.Query = match
		if !start.IsZero() {
			window := bleve.NewDateRangeQuery(start, time.Time{})
			window.SetField("created_at")
			query = bleve.NewConjunctionQuery(match, window)
		}
		req := bleve.NewSearchRequest(query)
		req.Size = q.Limit
		if q.Sort == "new" {
			req.SortBy([]string{"-created_at"})
		}
		res, err := a.index.SearchInContext(ctx, req)
		if err != nil {
			yield(models.RawPost{}, fmt.Errorf("Bleve search failed: %w", err))
			return
		}
		for _, hit := range res.Hits {
			p, ok := a.posts[hit.ID]
			if !ok {
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Close closes the index.
func (a *Archive) Close() error {
	return a.index.Close()
}

// windowStart maps a time filter to the oldest creation time it admits; zero means unbounded.
func windowStart(filter string, now time.Time) (time.Time, error) {
	switch filter {
	case "", "all":
		return time.Time{}, nil
	case "hour":
		return now.Add(-time.Hour), nil
	case "day":
		return now.AddDate(0, 0, -1), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, -1, 0), nil
	case "year":
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown time filter %q", filter)
	}
}
