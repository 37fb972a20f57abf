package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/internal/postid"
	"go.uber.org/zap"
)

// maxPageSize is the largest listing page the Reddit API returns.
const maxPageSize = 100

// Reddit searches Reddit with application-only OAuth.
type Reddit struct {
	cfg    config.RedditConfig
	client *http.Client
	logger *zap.Logger

	mu    sync.Mutex
	token string
}

// RedditOption configures a Reddit source.
type RedditOption func(*Reddit)

// WithRedditLogger sets the logger.
func WithRedditLogger(l *zap.Logger) RedditOption {
	return func(r *Reddit) {
		r.logger = l
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) RedditOption {
	return func(r *Reddit) {
		r.client = c
	}
}

// NewReddit returns a Reddit source. timeout bounds each HTTP request.
func NewReddit(cfg config.RedditConfig, timeout time.Duration, opts ...RedditOption) *Reddit {
	r := &Reddit{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.cfg.Subreddit == "" {
		r.cfg.Subreddit = "all"
	}
	return r
}

// Name returns "reddit".
func (r *Reddit) Name() string {
	return "reddit"
}

// Search pages through /r/{subreddit}/search until q.Limit records were yielded or the listing ends.
func (r *Reddit) Search(ctx context.Context, q Query) iter.Seq2[models.RawPost, error] {
	return func(yield func(models.RawPost, error) bool) {
		token, err := r.accessToken(ctx)
		if err != nil {
			yield(models.RawPost{}, err)
			return
		}
		remaining := q.Limit
		after := ""
		for remaining > 0 {
			page, next, err := r.searchPage(ctx, token, q, min(remaining, maxPageSize), after)
			if err != nil {
				yield(models.RawPost{}, err)
				return
			}
			r.logger.Debug("reddit page",
				zap.String("keyword", q.Text),
				zap.Int("records", len(page)),
				zap.String("after", next),
			)
			for _, child := range page {
				if remaining == 0 {
					return
				}
				remaining--
				raw, err := child.toRawPost()
				if err != nil {
					r.logger.Debug("unusable permalink, record will be dropped",
						zap.String("keyword", q.Text),
						zap.String("permalink", child.Permalink),
						zap.Error(err),
					)
				}
				if !yield(raw, nil) {
					return
				}
			}
			if next == "" || len(page) == 0 {
				return
			}
			after = next
		}
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// accessToken fetches the application token once per source.
func (r *Reddit) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" {
		return r.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	endpoint := strings.TrimRight(r.cfg.AuthURL, "/") + "/api/v1/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tr.AccessToken == "" {
		// reddit answers 200 with {"error": "invalid_grant"} for bad credentials
		return "", fmt.Errorf("token request: %s: %w", tr.Error, ErrUnauthorized)
	}
	r.token = tr.AccessToken
	return r.token, nil
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// toRawPost maps a listing entry. A permalink that yields no id is reported and
// leaves ID empty, so the record is dropped downstream as malformed.
func (p redditPost) toRawPost() (models.RawPost, error) {
	id, err := postid.FromPermalink(p.Permalink)
	var created time.Time
	if p.CreatedUTC > 0 {
		sec, frac := math.Modf(p.CreatedUTC)
		created = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return models.RawPost{
		ID:        id,
		URL:       id,
		Title:     p.Title,
		Content:   p.Selftext,
		Source:    p.Subreddit,
		Upvotes:   p.Score,
		Comments:  p.NumComments,
		CreatedAt: created,
	}, err
}

func (r *Reddit) searchPage(ctx context.Context, token string, q Query, limit int, after string) ([]redditPost, string, error) {
	params := url.Values{
		"q":        {q.Text},
		"limit":    {strconv.Itoa(limit)},
		"raw_json": {"1"},
		"type":     {"link"},
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.TimeFilter != "" {
		params.Set("t", q.TimeFilter)
	}
	if after != "" {
		params.Set("after", after)
	}
	if r.cfg.Subreddit != "all" {
		params.Set("restrict_sr", "true")
	}
	endpoint := fmt.Sprintf("%s/r/%s/search?%s", strings.TrimRight(r.cfg.APIURL, "/"), url.PathEscape(r.cfg.Subreddit), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("search %q: %w", q.Text, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, "", fmt.Errorf("search %q: %w", q.Text, err)
	}
	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, "", fmt.Errorf("decode search %q: %w", q.Text, err)
	}
	posts := make([]redditPost, 0, len(l.Data.Children))
	for _, c := range l.Data.Children {
		if c.Kind != "" && c.Kind != "t3" {
			continue
		}
		posts = append(posts, c.Data)
	}
	return posts, l.Data.After, nil
}

// checkStatus turns a non-200 response into an error carrying status and body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}
