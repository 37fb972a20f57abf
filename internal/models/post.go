// Package models defines core data structures for posts, context labels, and run results.
package models

import "time"

// RawPost is one record exactly as yielded by a post source.
// CreatedAt is the zero time when the upstream omitted it.
type RawPost struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Upvotes   int       `json:"upvotes"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a record that survived deduplication and the time filter.
// The full text is derived once in NewPost and cannot change afterwards.
type Post struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Upvotes   int       `json:"upvotes"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	// Keyword is the search phrase whose results first contained the post.
	Keyword string `json:"keyword"`

	// Set by relevance scoring.
	Score       float64 `json:"score,omitempty"`
	BestKeyword string  `json:"best_keyword,omitempty"`

	// Context is assigned only after the post passed relevance scoring.
	Context  string `json:"context,omitempty"`
	Response string `json:"response,omitempty"`

	fullText string
}

// FullTextSeparator joins title and content in the full text.
const FullTextSeparator = " "

// NewPost builds a Post from a raw record found by the given keyword.
// Timestamps are normalized to UTC and negative engagement counters are clamped to zero.
func NewPost(raw RawPost, keyword string) Post {
	url := raw.URL
	if url == "" {
		url = raw.ID
	}
	return Post{
		ID:        raw.ID,
		URL:       url,
		Title:     raw.Title,
		Content:   raw.Content,
		Source:    raw.Source,
		Upvotes:   max(raw.Upvotes, 0),
		Comments:  max(raw.Comments, 0),
		CreatedAt: raw.CreatedAt.UTC(),
		Keyword:   keyword,
		fullText:  raw.Title + FullTextSeparator + raw.Content,
	}
}

// FullText returns title and content joined by FullTextSeparator.
func (p Post) FullText() string {
	return p.fullText
}
