package models

import (
	"testing"
	"time"
)

func TestNewPost(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	raw := RawPost{
		ID:        "https://www.reddit.com/r/travel/comments/abc123/x/",
		Title:     "eSIM in Japan?",
		Content:   "Which provider works best?",
		Source:    "travel",
		Upvotes:   -3,
		Comments:  4,
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, loc),
	}
	p := NewPost(raw, "esim")

	if got, want := p.FullText(), "eSIM in Japan? Which provider works best?"; got != want {
		t.Errorf("FullText() = %q, want %q", got, want)
	}
	if p.URL != raw.ID {
		t.Errorf("URL should default to ID, got %q", p.URL)
	}
	if p.Upvotes != 0 {
		t.Errorf("negative upvotes should clamp to 0, got %d", p.Upvotes)
	}
	if p.Comments != 4 {
		t.Errorf("Comments = %d", p.Comments)
	}
	if p.CreatedAt.Location() != time.UTC || !p.CreatedAt.Equal(raw.CreatedAt) {
		t.Errorf("CreatedAt should be the same instant in UTC, got %v", p.CreatedAt)
	}
	if p.Keyword != "esim" {
		t.Errorf("Keyword = %q", p.Keyword)
	}
	if p.Context != "" {
		t.Error("Context must be empty until classification")
	}
}

func TestNewPost_emptyContent(t *testing.T) {
	p := NewPost(RawPost{ID: "x", Title: "Title only"}, "k")
	if p.FullText() != "Title only " {
		t.Errorf("FullText() = %q", p.FullText())
	}
}

func TestFullText_survivesCopy(t *testing.T) {
	p := NewPost(RawPost{ID: "x", Title: "a", Content: "b"}, "k")
	q := p
	q.Title = "changed"
	if q.FullText() != "a b" {
		t.Errorf("full text should not follow field edits, got %q", q.FullText())
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	want := []string{"question", "complaint", "recommendation request", "praise", "other"}
	if len(cats) != len(want) {
		t.Fatalf("got %v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, cats[i], want[i])
		}
	}
	if IsCategory(ContextUnknown, cats) {
		t.Error("unknown is a sentinel, not a category")
	}
	if !IsCategory("praise", cats) {
		t.Error("praise should be a category")
	}
}
