// Package pagetitle fetches a page and extracts a display title for a
// quick-saved bookmark.
package pagetitle

import (
	"context"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:", "javascript:"}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Page is what a fetch learned about a URL.
type Page struct {
	Title    string
	SiteName string
	Excerpt  string
	Icon     string
}

// Fetch downloads rawURL and extracts its title. Non-HTTP URLs are
// rejected without a request.
func Fetch(ctx context.Context, rawURL string) (Page, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return Page{}, fmt.Errorf("skipping non-HTTP URL: %s", rawURL)
		}
	}
	u, err := nurl.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return Page{}, fmt.Errorf("extract readable content from %s: %w", rawURL, err)
	}

	return Page{
		Title:    strings.TrimSpace(article.Title),
		SiteName: article.SiteName,
		Excerpt:  article.Excerpt,
		Icon:     article.Favicon,
	}, nil
}

// Title returns the best title for rawURL: the page title when the fetch
// works, otherwise the host name, otherwise the URL itself.
func Title(ctx context.Context, rawURL string) string {
	if p, err := Fetch(ctx, rawURL); err == nil && p.Title != "" {
		return p.Title
	}
	if u, err := nurl.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
