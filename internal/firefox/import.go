package firefox

import (
	"strings"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/types"
)

// Target is the part of the store an import writes through.
type Target interface {
	View() types.View
	CreateCategory(name string) (types.Category, error)
	CreateBookmark(categoryID, title, url, icon string) (types.Bookmark, error)
}

// ImportResult counts what an import did.
type ImportResult struct {
	Categories int // categories created
	Bookmarks  int // bookmarks created
	Skipped    int // tabs already bookmarked in their category
}

// Import adds each tab set as a category of bookmarks. A set whose name
// matches an existing category (case-insensitively) fills that category,
// and URLs already present there are skipped.
func Import(t Target, sets []TabSet) (ImportResult, error) {
	var res ImportResult

	v := t.View()
	byName := make(map[string]string, len(v.Categories))
	for _, c := range v.Categories {
		key := strings.ToLower(c.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = c.ID
		}
	}
	have := make(map[string]map[string]bool)
	for _, b := range v.Bookmarks {
		if have[b.CategoryID] == nil {
			have[b.CategoryID] = make(map[string]bool)
		}
		have[b.CategoryID][b.URL] = true
	}

	for _, set := range sets {
		if len(set.Tabs) == 0 {
			continue
		}
		key := strings.ToLower(set.Name)
		catID, ok := byName[key]
		if !ok {
			c, err := t.CreateCategory(set.Name)
			if err != nil {
				return res, err
			}
			catID = c.ID
			byName[key] = catID
			res.Categories++
		}
		if have[catID] == nil {
			have[catID] = make(map[string]bool)
		}

		for _, tab := range set.Tabs {
			if have[catID][tab.URL] {
				res.Skipped++
				continue
			}
			if _, err := t.CreateBookmark(catID, tab.Title, tab.URL, tab.Icon); err != nil {
				return res, err
			}
			have[catID][tab.URL] = true
			res.Bookmarks++
		}
	}

	applog.Info("firefox.import", "categories", res.Categories, "bookmarks", res.Bookmarks, "skipped", res.Skipped)
	return res, nil
}
