package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/postscout/internal/classifier"
	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/embedding"
	"github.com/hyperjump/postscout/internal/notify"
	"github.com/hyperjump/postscout/internal/relevance"
	"github.com/hyperjump/postscout/internal/reply"
	"github.com/hyperjump/postscout/internal/source"
	"go.uber.org/zap"
)

// Components holds everything one run needs.
type Components struct {
	source     source.PostSource
	embedder   embedding.Embedder
	scorer     *relevance.Scorer
	classifier *classifier.Context
	drafter    *reply.Drafter
	notifier   *notify.Telegram
}

// Close releases the embedder and, when it holds resources, the source.
func (c *Components) Close() {
	if c.embedder != nil {
		c.embedder.Close()
	}
	if closer, ok := c.source.(io.Closer); ok {
		closer.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	src, err := source.New(cfg.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize source: %w", err)
	}
	c := &Components{source: src}

	c.embedder, err = newEmbedder(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.scorer, err = newScorer(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.classifier, err = newClassifier(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	if cfg.Reply.Enabled {
		c.drafter, err = reply.New(cfg.Reply, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize reply drafter: %w", err)
		}
	}

	if cfg.Notify.Telegram.Enabled {
		c.notifier, err = notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn("telegram disabled", zap.Error(err))
			c.notifier = nil
		}
	}

	logger.Info("components initialized",
		zap.String("source", src.Name()),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("classifier", cfg.Classifier.Provider),
		zap.Bool("reply", c.drafter != nil),
		zap.Bool("notify", c.notifier != nil),
	)
	return c, nil
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	e, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return e, nil
}

func newScorer(cfg *config.Config, logger *zap.Logger) (*relevance.Scorer, error) {
	s, err := relevance.NewScorer(cfg.Relevance.Threshold, relevance.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scorer: %w", err)
	}
	return s, nil
}

func newClassifier(cfg *config.Config, logger *zap.Logger) (*classifier.Context, error) {
	c, err := classifier.New(cfg.Classifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	return c, nil
}

// withTimeout derives a context bounded by d; zero means no bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
