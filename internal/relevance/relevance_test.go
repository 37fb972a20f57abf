package relevance

import (
	"math"
	"testing"
	"time"

	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/internal/vector"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewScorer_range(t *testing.T) {
	for _, th := range []float64{-1, 0, 0.6, 1} {
		if _, err := NewScorer(th); err != nil {
			t.Errorf("threshold %v: unexpected error %v", th, err)
		}
	}
	for _, th := range []float64{-1.01, 1.5, math.NaN(), math.Inf(1)} {
		if _, err := NewScorer(th); err == nil {
			t.Errorf("threshold %v: expected error", th)
		}
	}
}

func TestScorer_Relevant(t *testing.T) {
	s, _ := NewScorer(0.6)
	tests := []struct {
		name string
		row  []float64
		want bool
	}{
		{"one above", []float64{0.1, 0.61, 0.2}, true},
		{"exactly threshold", []float64{0.6, 0.6}, false},
		{"all below", []float64{0.59, 0.3, -0.2}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Relevant(tt.row); got != tt.want {
				t.Errorf("Relevant(%v) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func matrix(t *testing.T, posts [][]float32) *vector.Matrix {
	t.Helper()
	idx, err := vector.NewKeywordIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add([]string{"esim", "roaming"}, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	m, err := vector.Compute(posts, idx)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func post(id string) models.Post {
	return models.NewPost(models.RawPost{ID: id, Title: id, CreatedAt: time.Now()}, "esim")
}

func TestScorer_Select(t *testing.T) {
	s, _ := NewScorer(0.6)
	posts := []models.Post{post("a"), post("b"), post("c"), post("d")}
	m := matrix(t, [][]float32{
		{1, 0},     // esim 1.0
		{0.5, 0.5}, // 0.707 both
		{1, 1.5},   // roaming 0.83
		{-1, 0.2},  // below
	})
	got, err := s.Select(posts, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d posts, want 3", len(got))
	}
	for i, id := range []string{"a", "b", "c"} {
		if got[i].ID != id {
			t.Errorf("got[%d]=%s, want %s (order must be preserved)", i, got[i].ID, id)
		}
	}
	if got[0].BestKeyword != "esim" || got[2].BestKeyword != "roaming" {
		t.Errorf("best keywords: %q %q", got[0].BestKeyword, got[2].BestKeyword)
	}
	if got[0].Score < 0.999 {
		t.Errorf("score = %v", got[0].Score)
	}
	if posts[0].Score != 0 {
		t.Error("input posts must not be modified")
	}
}

func TestScorer_SelectAllBelow(t *testing.T) {
	s, _ := NewScorer(0.6)
	posts := []models.Post{post("a"), post("b")}
	m := matrix(t, [][]float32{{-1, 0.5}, {0.5, -1}})
	got, err := s.Select(posts, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no relevant posts, got %d", len(got))
	}
}

func TestScorer_SelectDegenerateWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, _ := NewScorer(0.6, WithLogger(zap.New(core)))
	got, err := s.Select([]models.Post{post("zero")}, matrix(t, [][]float32{{0, 0}}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Error("zero-magnitude post must not be relevant")
	}
	if logs.FilterMessage("zero-magnitude embedding, post scored 0").Len() != 1 {
		t.Errorf("expected one degenerate warning, got %v", logs.All())
	}
}

func TestScorer_SelectRowMismatch(t *testing.T) {
	s, _ := NewScorer(0.6)
	if _, err := s.Select([]models.Post{post("a")}, matrix(t, nil)); err == nil {
		t.Fatal("expected error for row count mismatch")
	}
}
