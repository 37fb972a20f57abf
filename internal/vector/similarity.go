// Package vector provides similarity helpers, the keyword embedding index and the
// post-by-keyword similarity matrix.
package vector

import (
	"math"

	"github.com/hyperjump/postscout/pkg/utils"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Cosine returns dot(a,b) / (|a|*|b|) in [-1, 1]. Vectors of different or zero length,
// and vectors with zero magnitude, score 0.
func Cosine(a, b []float32) float64 {
	s, ok := cosine(a, b)
	if !ok {
		return 0
	}
	return s
}

// cosine reports false when the similarity is undefined.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	na, nb := utils.Magnitude(a), utils.Magnitude(b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	s := InnerProduct(a, b) / (na * nb)
	// clamp float drift
	return math.Max(-1, math.Min(1, s)), true
}
