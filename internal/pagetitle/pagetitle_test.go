package pagetitle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const article = `<!DOCTYPE html>
<html><head><title>Test Article</title></head>
<body>
<article>
<h1>Test Article</h1>
<p>This is the main content of the article. It has enough text to be considered readable content by the readability algorithm. The quick brown fox jumps over the lazy dog. This paragraph needs to be long enough for readability to pick it up as meaningful content.</p>
<p>Second paragraph with more meaningful content that helps the readability parser understand this is a real article and not just navigation or boilerplate. We need several sentences here to make this work properly.</p>
</article>
</body></html>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(article))
	}))
	defer srv.Close()

	p, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title == "" {
		t.Error("expected non-empty title")
	}
}

func TestFetch_SkipsNonHTTP(t *testing.T) {
	urls := []string{
		"about:newtab",
		"moz-extension://abc/page",
		"file:///home/user/doc.html",
		"chrome://settings",
		"javascript:alert(1)",
		"data:text/html,hello",
	}
	for _, u := range urls {
		if _, err := Fetch(context.Background(), u); err == nil {
			t.Errorf("expected error for %q, got nil", u)
		}
	}
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(article))
	}))
	defer srv.Close()

	Fetch(context.Background(), srv.URL)
	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Errorf("expected browser-like User-Agent, got %q", gotUA)
	}
}

func TestTitleFallsBackToHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	got := Title(context.Background(), srv.URL)
	if !strings.HasPrefix(got, "127.0.0.1:") {
		t.Errorf("expected host fallback, got %q", got)
	}
	if got := Title(context.Background(), "about:blank"); got != "about:blank" {
		t.Errorf("expected raw URL fallback, got %q", got)
	}
}
