package vector

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDimensionMismatch is returned when a vector does not have the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// KeywordIndex holds keyword phrases and their embeddings. It is built once per process
// and reused for every post; insertion order is the keyword order.
type KeywordIndex struct {
	dimensions int
	phrases    []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewKeywordIndex creates an empty keyword index with the given dimension.
func NewKeywordIndex(dimensions int) (*KeywordIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &KeywordIndex{
		dimensions: dimensions,
		phrases:    make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends phrases with their vectors. Vectors are copied.
func (k *KeywordIndex) Add(phrases []string, vectors [][]float32) error {
	if len(phrases) != len(vectors) {
		return fmt.Errorf("phrases and vectors length mismatch: %d != %d", len(phrases), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != k.dimensions {
			return fmt.Errorf("keyword %q: got %d, expected %d: %w", phrases[i], len(v), k.dimensions, ErrDimensionMismatch)
		}
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for i, phrase := range phrases {
		vec := make([]float32, k.dimensions)
		copy(vec, vectors[i])
		k.phrases = append(k.phrases, phrase)
		k.vectors = append(k.vectors, vec)
	}
	return nil
}

// Dimensions returns the vector dimension of the index.
func (k *KeywordIndex) Dimensions() int {
	return k.dimensions
}

// Phrases returns a copy of the keyword phrases in insertion order.
func (k *KeywordIndex) Phrases() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, len(k.phrases))
	copy(out, k.phrases)
	return out
}

// Scores returns the cosine similarity of query against every keyword, in keyword order.
// ok is false when the query (or any keyword) has zero magnitude.
func (k *KeywordIndex) Scores(query []float32) (scores []float64, ok bool, err error) {
	if len(query) != k.dimensions {
		return nil, false, fmt.Errorf("query: got %d, expected %d: %w", len(query), k.dimensions, ErrDimensionMismatch)
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	scores = make([]float64, len(k.vectors))
	ok = true
	for i, vec := range k.vectors {
		s, defined := cosine(query, vec)
		if !defined {
			ok = false
		}
		scores[i] = s
	}
	return scores, ok, nil
}
