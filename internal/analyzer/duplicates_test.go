package analyzer

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/lotas/lesezeichen/internal/types"
)

func TestDuplicates(t *testing.T) {
	bms := []types.Bookmark{
		{ID: "0", URL: "https://example.com/page#section1", CategoryID: "a"},
		{ID: "1", URL: "https://example.com/page#section2", CategoryID: "b"},
		{ID: "2", URL: "https://example.com/other"},
		{ID: "3", URL: "https://example.com/page?b=2&a=1"},
		{ID: "4", URL: "https://example.com/page?a=1&b=2"},
	}

	dups := Duplicates(bms)
	if len(dups) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(dups))
	}
	ids := func(c []types.Bookmark) []string {
		var out []string
		for _, b := range c {
			out = append(out, b.ID)
		}
		return out
	}
	assert.Equal(t, ids(dups[0]), []string{"0", "1"})
	assert.Equal(t, ids(dups[1]), []string{"3", "4"})
}

func TestComputeStats(t *testing.T) {
	v := types.View{Snapshot: types.Snapshot{
		Groups:     []types.Group{{ID: "g"}},
		Categories: []types.Category{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Bookmarks: []types.Bookmark{
			{ID: "1", CategoryID: "a", URL: "https://x/a"},
			{ID: "2", CategoryID: "a", URL: "https://x/a/"},
		},
	}}
	dups := Duplicates(v.Bookmarks)
	stats := ComputeStats(v, dups, []DeadLink{{Bookmark: v.Bookmarks[0], Reason: "404"}})
	assert.Equal(t, stats, Stats{Groups: 1, Categories: 3, Bookmarks: 2, EmptyCategories: 2, Duplicates: 2, Dead: 1})
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/page#section", "https://example.com/page"},
		{"https://example.com/page/", "https://example.com/page"},
		{"https://example.com/page?b=2&a=1", "https://example.com/page?a=1&b=2"},
		{"https://example.com", "https://example.com"},
	}

	for _, tt := range tests {
		got := NormalizeURL(tt.input)
		if got != tt.expected {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
