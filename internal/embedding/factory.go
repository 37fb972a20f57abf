package embedding

import (
	"fmt"
	"io"

	"github.com/hyperjump/postscout/internal/config"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg, wrapped in a CachedEmbedder when
// cfg.CacheSize is positive. Unknown providers and construction failures are errors.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var inner Embedder
	switch cfg.Provider {
	case "mock":
		inner = NewMockEmbedder(cfg.Dimensions)
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("http embedder requires a url")
		}
		inner = NewHTTPEmbedder(cfg.URL, cfg.Dimensions, cfg.Timeout)
	case "onnx", "":
		var tok Tokenizer
		if cfg.TokenizerPath == "" {
			logger.Warn("no tokenizer_path configured, using the hash tokenizer; pretrained model embeddings will not be meaningful",
				zap.String("model_path", cfg.ModelPath))
		} else {
			hf, err := NewHFTokenizer(cfg.TokenizerPath)
			if err != nil {
				return nil, err
			}
			tok = hf
		}
		onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, tok,
			WithOutputName(cfg.OutputName),
			WithBatchSize(cfg.BatchSize),
		)
		if err != nil {
			if c, ok := tok.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, err
		}
		inner = onnx
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, http, mock)", cfg.Provider)
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", inner.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize),
	)
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(inner, cfg.CacheSize), nil
	}
	return inner, nil
}
