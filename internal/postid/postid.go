// Package postid provides canonical post identifiers derived from Reddit permalinks.
package postid

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// BaseURL is prefixed to permalinks to form canonical identifiers.
const BaseURL = "https://www.reddit.com"

// ErrInvalidPermalink is returned for permalinks that cannot identify a post.
var ErrInvalidPermalink = errors.New("invalid permalink")

// FromPermalink returns the canonical identifier for a permalink such as
// "/r/travel/comments/abc123/title/". Absolute reddit URLs are accepted too.
// The same post always yields the same identifier: query strings and fragments are
// dropped, the path is cleaned and a trailing slash is kept.
func FromPermalink(permalink string) (string, error) {
	permalink = strings.TrimSpace(permalink)
	if permalink == "" || strings.ContainsAny(permalink, " \t\n") {
		return "", ErrInvalidPermalink
	}
	u, err := url.Parse(permalink)
	if err != nil {
		return "", ErrInvalidPermalink
	}
	if u.IsAbs() && !strings.HasSuffix(u.Hostname(), "reddit.com") {
		return "", ErrInvalidPermalink
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		return "", ErrInvalidPermalink
	}
	p = path.Clean(p)
	if p == "/" {
		return "", ErrInvalidPermalink
	}
	return BaseURL + p + "/", nil
}

// Valid reports whether id can serve as a deduplication key:
// non-empty and free of whitespace.
func Valid(id string) bool {
	return id != "" && !strings.ContainsAny(id, " \t\r\n")
}
