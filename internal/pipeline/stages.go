package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/postscout/internal/classifier"
	"github.com/hyperjump/postscout/internal/dedup"
	"github.com/hyperjump/postscout/internal/embedding"
	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/internal/source"
	"github.com/hyperjump/postscout/internal/vector"
	"go.uber.org/zap"
)

// CollectOptions controls how keyword searches are issued.
type CollectOptions struct {
	// Parallelism is the number of concurrent searches; values below 2 search sequentially.
	Parallelism int
	// Timeout bounds each keyword search. Zero means no per-search timeout.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Collect runs one search per keyword and passes every record through filter.
// The result holds each surviving post once, in the order first encountered when the
// keywords are taken in order. Any search error aborts the collection.
func Collect(ctx context.Context, src source.PostSource, filter *dedup.Filter, keywords []string, base source.Query, opts CollectOptions) ([]models.Post, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Parallelism > 1 && len(keywords) > 1 {
		return collectParallel(ctx, src, filter, keywords, base, opts, logger)
	}

	var posts []models.Post
	for _, kw := range keywords {
		logger.Info("searching", zap.String("keyword", kw), zap.String("source", src.Name()))
		before := len(posts)
		fetched := 0
		err := search(ctx, src, kw, base, opts.Timeout, func(raw models.RawPost) {
			fetched++
			if p, ok := accept(filter, raw, kw, logger); ok {
				posts = append(posts, p)
			}
		})
		if err != nil {
			return nil, err
		}
		logger.Info("search complete",
			zap.String("keyword", kw),
			zap.Int("fetched", fetched),
			zap.Int("accepted", len(posts)-before),
		)
	}
	return posts, nil
}

// collectParallel materializes each keyword's results into its own slot, then merges
// the slots in keyword order through the single-threaded filter.
func collectParallel(ctx context.Context, src source.PostSource, filter *dedup.Filter, keywords []string, base source.Query, opts CollectOptions, logger *zap.Logger) ([]models.Post, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		slots   = make([][]models.RawPost, len(keywords))
		errChan = make(chan error, len(keywords))
		sem     = make(chan struct{}, opts.Parallelism)
		wg      sync.WaitGroup
	)
	for i, kw := range keywords {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
			defer func() { <-sem }()
			logger.Info("searching", zap.String("keyword", kw), zap.String("source", src.Name()))
			err := search(ctx, src, kw, base, opts.Timeout, func(raw models.RawPost) {
				slots[i] = append(slots[i], raw)
			})
			if err != nil {
				errChan <- err
				cancel()
				return
			}
			logger.Info("search complete", zap.String("keyword", kw), zap.Int("fetched", len(slots[i])))
		}()
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	var posts []models.Post
	for i, kw := range keywords {
		for _, raw := range slots[i] {
			if p, ok := accept(filter, raw, kw, logger); ok {
				posts = append(posts, p)
			}
		}
	}
	return posts, nil
}

// search drains one keyword search into fn.
func search(ctx context.Context, src source.PostSource, kw string, base source.Query, timeout time.Duration, fn func(models.RawPost)) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	q := base
	q.Text = kw
	for raw, err := range src.Search(ctx, q) {
		if err != nil {
			return fmt.Errorf("search %q: %w", kw, err)
		}
		fn(raw)
	}
	return nil
}

func accept(filter *dedup.Filter, raw models.RawPost, kw string, logger *zap.Logger) (models.Post, bool) {
	p, verdict := filter.Accept(raw, kw)
	if verdict != dedup.Accepted {
		logger.Debug("record dropped",
			zap.String("post_id", raw.ID),
			zap.String("keyword", kw),
			zap.Stringer("verdict", verdict),
		)
		return models.Post{}, false
	}
	return p, true
}

// PrepareKeywords embeds keywords in one batch and returns the index reused for every post.
func PrepareKeywords(ctx context.Context, embedder embedding.Embedder, keywords []string) (*vector.KeywordIndex, error) {
	vecs, err := embedder.EmbedBatch(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("embed keywords: %w", err)
	}
	if len(vecs) != len(keywords) {
		return nil, fmt.Errorf("embed keywords: got %d vectors for %d keywords", len(vecs), len(keywords))
	}
	idx, err := vector.NewKeywordIndex(embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := idx.Add(keywords, vecs); err != nil {
		return nil, fmt.Errorf("keyword index: %w", err)
	}
	return idx, nil
}

// EmbedPosts embeds every post's full text in a single batch call.
func EmbedPosts(ctx context.Context, embedder embedding.Embedder, posts []models.Post) ([][]float32, error) {
	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.FullText()
	}
	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed posts: %w", err)
	}
	if len(vecs) != len(posts) {
		return nil, fmt.Errorf("embed posts: got %d vectors for %d posts", len(vecs), len(posts))
	}
	return vecs, nil
}

// Classify returns a copy of posts with Context set on every entry.
func Classify(ctx context.Context, c *classifier.Context, posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		p.Context = c.Classify(ctx, p.FullText())
		out[i] = p
	}
	return out
}
