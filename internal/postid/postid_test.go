package postid

import (
	"errors"
	"strings"
	"testing"
)

func TestFromPermalink(t *testing.T) {
	id1, err := FromPermalink("/r/travel/comments/abc123/esim_in_japan/")
	if err != nil {
		t.Fatal(err)
	}
	id2, _ := FromPermalink("/r/travel/comments/abc123/esim_in_japan/")
	if id1 != id2 {
		t.Errorf("same permalink should give same ID: %q vs %q", id1, id2)
	}
	if want := "https://www.reddit.com/r/travel/comments/abc123/esim_in_japan/"; id1 != want {
		t.Errorf("got %q, want %q", id1, want)
	}
	if !strings.HasPrefix(id1, BaseURL) {
		t.Errorf("ID should have prefix %q: got %q", BaseURL, id1)
	}
}

func TestFromPermalink_differentPosts(t *testing.T) {
	id1, _ := FromPermalink("/r/travel/comments/abc123/x/")
	id2, _ := FromPermalink("/r/travel/comments/def456/x/")
	if id1 == id2 {
		t.Errorf("different permalinks should give different IDs: %q", id1)
	}
}

func TestFromPermalink_normalized(t *testing.T) {
	want, _ := FromPermalink("/r/travel/comments/abc123/x/")
	for _, p := range []string{
		"/r/travel/comments/abc123/x",
		"/r/travel/./comments/abc123/x/",
		"/r/travel/comments/abc123/x/?utm_source=share",
		"https://www.reddit.com/r/travel/comments/abc123/x/",
		"https://old.reddit.com/r/travel/comments/abc123/x/#c",
	} {
		got, err := FromPermalink(p)
		if err != nil {
			t.Errorf("FromPermalink(%q): %v", p, err)
			continue
		}
		if got != want {
			t.Errorf("FromPermalink(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestFromPermalink_invalid(t *testing.T) {
	for _, p := range []string{"", "   ", "/", "relative/path", "/r/a b/", "https://example.com/r/x/"} {
		if _, err := FromPermalink(p); !errors.Is(err, ErrInvalidPermalink) {
			t.Errorf("FromPermalink(%q) error = %v, want ErrInvalidPermalink", p, err)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc123", true},
		{"https://www.reddit.com/r/x/comments/1/", true},
		{"", false},
		{"a b", false},
		{"tab\there", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.id); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
