// Package embedding provides text embedding via ONNX or a remote inference server, plus caching.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a provider yields vectors of an unexpected size.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder produces vector embeddings for text. EmbedBatch preserves input order and
// returns exactly one vector per input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// checkBatch verifies a provider response has one vector of the expected dimension per input.
func checkBatch(vectors [][]float32, inputs, dimensions int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("got %d embeddings for %d inputs", len(vectors), inputs)
	}
	for i, v := range vectors {
		if len(v) != dimensions {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d: %w", i, len(v), dimensions, ErrDimensionMismatch)
		}
	}
	return nil
}
