package analyzer

import "github.com/lotas/lesezeichen/internal/types"

// Stats summarizes a view for the check command.
type Stats struct {
	Groups          int
	Categories      int
	Bookmarks       int
	EmptyCategories int
	Duplicates      int // bookmarks that share a URL with another
	Dead            int
}

func ComputeStats(v types.View, dups [][]types.Bookmark, dead []DeadLink) Stats {
	stats := Stats{
		Groups:     len(v.Groups),
		Categories: len(v.Categories),
		Bookmarks:  len(v.Bookmarks),
		Dead:       len(dead),
	}
	used := make(map[string]bool, len(v.Categories))
	for _, b := range v.Bookmarks {
		used[b.CategoryID] = true
	}
	for _, c := range v.Categories {
		if !used[c.ID] {
			stats.EmptyCategories++
		}
	}
	for _, d := range dups {
		stats.Duplicates += len(d)
	}
	return stats
}
