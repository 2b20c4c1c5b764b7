package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lotas/lesezeichen/internal/types"
)

// DiffEntry represents a single bookmark in a diff result.
type DiffEntry struct {
	URL      string
	Title    string
	Category string // category name, or empty if the category is gone
}

// DiffResult holds the bookmarks that differ between two snapshots.
type DiffResult struct {
	Added   []DiffEntry // in current but not in previous
	Removed []DiffEntry // in previous but not in current
}

func entries(snap types.Snapshot) map[string]DiffEntry {
	names := make(map[string]string, len(snap.Categories))
	for _, c := range snap.Categories {
		names[c.ID] = c.Name
	}
	out := make(map[string]DiffEntry, len(snap.Bookmarks))
	for _, b := range snap.Bookmarks {
		out[b.URL] = DiffEntry{URL: b.URL, Title: b.Title, Category: names[b.CategoryID]}
	}
	return out
}

// Diff compares two snapshots by bookmark URL. Results are sorted by URL.
func Diff(previous, current types.Snapshot) *DiffResult {
	prev := entries(previous)
	cur := entries(current)

	result := &DiffResult{}
	for url, e := range cur {
		if _, ok := prev[url]; !ok {
			result.Added = append(result.Added, e)
		}
	}
	for url, e := range prev {
		if _, ok := cur[url]; !ok {
			result.Removed = append(result.Removed, e)
		}
	}
	sort.Slice(result.Added, func(i, j int) bool { return result.Added[i].URL < result.Added[j].URL })
	sort.Slice(result.Removed, func(i, j int) bool { return result.Removed[i].URL < result.Removed[j].URL })
	return result
}

// FormatDiff returns a human-readable string representation of a DiffResult.
func FormatDiff(d *DiffResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Added: %d  Removed: %d\n", len(d.Added), len(d.Removed))

	write := func(header, sign string, list []DiffEntry) {
		if len(list) == 0 {
			return
		}
		sb.WriteString("\n" + header + "\n")
		for _, e := range list {
			if e.Category != "" {
				fmt.Fprintf(&sb, "  %s %s [%s]\n", sign, e.URL, e.Category)
			} else {
				fmt.Fprintf(&sb, "  %s %s\n", sign, e.URL)
			}
		}
	}
	write("+ Added:", "+", d.Added)
	write("- Removed:", "-", d.Removed)

	if len(d.Added) == 0 && len(d.Removed) == 0 {
		sb.WriteString("\nNo changes.\n")
	}

	return sb.String()
}
