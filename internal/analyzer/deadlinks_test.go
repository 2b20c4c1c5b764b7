package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/lotas/lesezeichen/internal/types"
)

func TestCheckLinks(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer okServer.Close()

	notFoundServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer notFoundServer.Close()

	goneServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(410)
	}))
	defer goneServer.Close()

	bms := []types.Bookmark{
		{ID: "ok", URL: okServer.URL + "/page"},
		{ID: "404", URL: notFoundServer.URL + "/missing"},
		{ID: "410", URL: goneServer.URL + "/gone"},
		{ID: "about", URL: "about:newtab"},
		{ID: "ext", URL: "moz-extension://abc/page"},
		{ID: "down", URL: "http://127.0.0.1:1/nothing"},
	}

	dead := CheckLinks(context.Background(), bms, 2)

	got := make(map[string]string)
	for _, d := range dead {
		got[d.Bookmark.ID] = d.Reason
	}
	assert.Equal(t, got, map[string]string{"404": "404", "410": "410", "down": "unreachable"})
	// Input order is kept.
	assert.Equal(t, dead[0].Bookmark.ID, "404")
}

func TestCheckLinksFallsBackToGet(t *testing.T) {
	var methods []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dead := CheckLinks(context.Background(), []types.Bookmark{{ID: "b", URL: srv.URL}}, 1)
	assert.Equal(t, len(dead), 1)
	assert.Equal(t, methods, []string{"HEAD", "GET"})
}
