package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeReddit struct {
	posts      int
	tokenCalls atomic.Int32
	queries    []string
	limits     []string
	searchCode int

	// noPermalink blanks the permalink of the first post.
	noPermalink bool
}

func (f *fakeReddit) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":86400}`))
	})
	mux.HandleFunc("/r/all/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if f.searchCode != 0 {
			http.Error(w, "nope", f.searchCode)
			return
		}
		q := r.URL.Query()
		f.queries = append(f.queries, q.Get("q")+"|"+q.Get("sort")+"|"+q.Get("t")+"|"+q.Get("after"))
		f.limits = append(f.limits, q.Get("limit"))
		start := 0
		if a := q.Get("after"); a != "" {
			fmt.Sscanf(a, "t3_%d", &start)
			start++
		}
		var limit int
		fmt.Sscanf(q.Get("limit"), "%d", &limit)
		var children []map[string]any
		next := ""
		for i := start; i < f.posts && len(children) < limit; i++ {
			permalink := fmt.Sprintf("/r/travel/comments/p%d/title/", i)
			if f.noPermalink && i == 0 {
				permalink = ""
			}
			children = append(children, map[string]any{
				"kind": "t3",
				"data": map[string]any{
					"title":        fmt.Sprintf("post %d", i),
					"selftext":     "body",
					"permalink":    permalink,
					"subreddit":    "travel",
					"score":        i,
					"num_comments": 2,
					"created_utc":  1700000000.5,
				},
			})
			next = fmt.Sprintf("t3_%d", i)
		}
		if start+len(children) >= f.posts {
			next = ""
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"after": next, "children": children}})
	})
	return mux
}

func newTestReddit(t *testing.T, f *fakeReddit, creds ...string) *Reddit {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cfg := config.RedditConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    "postscout-test",
		Subreddit:    "all",
		AuthURL:      srv.URL,
		APIURL:       srv.URL,
	}
	if len(creds) == 2 {
		cfg.ClientID, cfg.ClientSecret = creds[0], creds[1]
	}
	return NewReddit(cfg, 5*time.Second)
}

func collect(t *testing.T, src PostSource, q Query) ([]models.RawPost, error) {
	t.Helper()
	var out []models.RawPost
	for p, err := range src.Search(context.Background(), q) {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

func TestReddit_SearchPaging(t *testing.T) {
	f := &fakeReddit{posts: 150}
	r := newTestReddit(t, f)

	posts, err := collect(t, r, Query{Text: "esim", Sort: "new", TimeFilter: "week", Limit: 120})
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 120 {
		t.Fatalf("got %d posts, want 120", len(posts))
	}
	if len(f.limits) != 2 || f.limits[0] != "100" || f.limits[1] != "20" {
		t.Errorf("page limits = %v, want [100 20]", f.limits)
	}
	if f.queries[0] != "esim|new|week|" || f.queries[1] != "esim|new|week|t3_99" {
		t.Errorf("queries = %v", f.queries)
	}

	p := posts[0]
	if p.ID != "https://www.reddit.com/r/travel/comments/p0/title/" || p.URL != p.ID {
		t.Errorf("id = %q url = %q", p.ID, p.URL)
	}
	if p.Source != "travel" || p.Content != "body" || p.Comments != 2 {
		t.Errorf("unexpected post %+v", p)
	}
	want := time.Unix(1700000000, 500000000).UTC()
	if !p.CreatedAt.Equal(want) || p.CreatedAt.Location() != time.UTC {
		t.Errorf("created = %v, want %v", p.CreatedAt, want)
	}
}

func TestReddit_listingEndsEarly(t *testing.T) {
	f := &fakeReddit{posts: 3}
	posts, err := collect(t, newTestReddit(t, f), Query{Text: "airalo", Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 3 || len(f.queries) != 1 {
		t.Errorf("posts=%d pages=%d", len(posts), len(f.queries))
	}
}

func TestReddit_tokenFetchedOnce(t *testing.T) {
	f := &fakeReddit{posts: 1}
	r := newTestReddit(t, f)
	for _, kw := range []string{"esim", "holafly"} {
		if _, err := collect(t, r, Query{Text: kw, Limit: 10}); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.tokenCalls.Load(); n != 1 {
		t.Errorf("token requests = %d, want 1", n)
	}
}

func TestReddit_unauthorized(t *testing.T) {
	f := &fakeReddit{posts: 1}
	r := newTestReddit(t, f, "id", "wrong")
	posts, err := collect(t, r, Query{Text: "esim", Limit: 10})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if len(posts) != 0 {
		t.Errorf("posts = %d", len(posts))
	}
}

func TestReddit_searchStatusError(t *testing.T) {
	f := &fakeReddit{posts: 1, searchCode: http.StatusInternalServerError}
	_, err := collect(t, newTestReddit(t, f), Query{Text: "esim", Limit: 10})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("err = %v", err)
	}
}

func TestReddit_earlyBreak(t *testing.T) {
	f := &fakeReddit{posts: 250}
	r := newTestReddit(t, f)
	n := 0
	for _, err := range r.Search(context.Background(), Query{Text: "esim", Limit: 250}) {
		if err != nil {
			t.Fatal(err)
		}
		n++
		if n == 5 {
			break
		}
	}
	if len(f.queries) != 1 {
		t.Errorf("consumer stopped after first page, but %d pages were fetched", len(f.queries))
	}
}

func TestReddit_badPermalinkLogged(t *testing.T) {
	f := &fakeReddit{posts: 2, noPermalink: true}
	r := newTestReddit(t, f)
	core, logs := observer.New(zapcore.DebugLevel)
	r.logger = zap.New(core)

	posts, err := collect(t, r, Query{Text: "esim", Sort: "new", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 || posts[0].ID != "" || posts[1].ID == "" {
		t.Fatalf("posts = %+v, want the first with an empty id", posts)
	}
	entries := logs.FilterMessage("unusable permalink, record will be dropped").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if kw := entries[0].ContextMap()["keyword"]; kw != "esim" {
		t.Errorf("keyword field = %v", kw)
	}
}

func TestRedditPost_toRawPost(t *testing.T) {
	p, err := redditPost{Title: "t", Permalink: "", CreatedUTC: 0}.toRawPost()
	if err == nil {
		t.Error("missing permalink should report an error")
	}
	if p.ID != "" {
		t.Errorf("missing permalink should give empty id, got %q", p.ID)
	}
	if !p.CreatedAt.IsZero() {
		t.Errorf("missing created_utc should give zero time, got %v", p.CreatedAt)
	}
}

func TestNew(t *testing.T) {
	src, err := New(config.SourceConfig{Provider: "reddit"}, nil)
	if err != nil || src.Name() != "reddit" {
		t.Fatalf("src=%v err=%v", src, err)
	}
	if _, err := New(config.SourceConfig{Provider: "twitter"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(config.SourceConfig{Provider: "archive", Archive: config.ArchiveConfig{Path: "/nonexistent/posts.jsonl"}}, nil); err == nil {
		t.Error("expected error for missing archive")
	}
}
