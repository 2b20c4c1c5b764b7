package export

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

type jsonExport struct {
	ExportedAt  time.Time         `json:"exported_at"`
	Items       []jsonItem        `json:"items"`
	Preferences types.Preferences `json:"preferences"`
}

// jsonItem is a top-level entry: a standalone category or a group.
type jsonItem struct {
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	Categories []jsonCategory `json:"categories"`
}

type jsonCategory struct {
	Name      string         `json:"name"`
	Bookmarks []jsonBookmark `json:"bookmarks"`
}

type jsonBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Icon   string `json:"icon,omitempty"`
}

// JSON formats the view as a JSON document in layout order.
func JSON(v types.View) (string, error) {
	bms := byCategory(v)
	out := jsonExport{
		ExportedAt:  time.Now(),
		Items:       make([]jsonItem, 0, len(v.Layout)),
		Preferences: v.Preferences,
	}

	category := func(c types.Category) jsonCategory {
		jc := jsonCategory{Name: c.Name, Bookmarks: make([]jsonBookmark, 0, len(bms[c.ID]))}
		for _, b := range bms[c.ID] {
			jc.Bookmarks = append(jc.Bookmarks, jsonBookmark{
				Title:  b.Title,
				URL:    b.URL,
				Domain: extractDomain(b.URL),
				Icon:   b.Icon,
			})
		}
		return jc
	}

	for _, it := range v.Layout {
		item := jsonItem{Kind: it.Kind.String()}
		if it.Kind == types.LayoutGroup {
			item.Name = it.Group.Name
			for _, c := range it.Members {
				item.Categories = append(item.Categories, category(c))
			}
		} else {
			item.Name = it.Category.Name
			item.Categories = []jsonCategory{category(it.Category)}
		}
		out.Items = append(out.Items, item)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
