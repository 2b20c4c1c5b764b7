package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

// DeadLink is a bookmark whose target looks gone.
type DeadLink struct {
	Bookmark types.Bookmark
	Reason   string
}

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:", "javascript:"}

func shouldSkip(url string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// CheckLinks probes every bookmark with at most concurrency requests in
// flight. A 404 or 410 answer, an unreachable host, or an unparsable URL
// counts as dead. Results keep the input order.
func CheckLinks(ctx context.Context, bms []types.Bookmark, concurrency int) []DeadLink {
	if concurrency <= 0 {
		concurrency = 10
	}
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	reasons := make([]string, len(bms))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, b := range bms {
		if shouldSkip(b.URL) {
			continue
		}
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reasons[idx] = probe(ctx, client, url)
		}(i, b.URL)
	}
	wg.Wait()

	var out []DeadLink
	for i, r := range reasons {
		if r != "" {
			out = append(out, DeadLink{Bookmark: bms[i], Reason: r})
		}
	}
	return out
}

// probe returns why url looks dead, or "" if it looks alive. Servers that
// refuse HEAD get a GET.
func probe(ctx context.Context, client *http.Client, url string) string {
	status, err := request(ctx, client, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = request(ctx, client, http.MethodGet, url)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		return "unreachable"
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return fmt.Sprintf("%d", status)
	}
	return ""
}

func request(ctx context.Context, client *http.Client, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
