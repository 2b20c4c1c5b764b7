package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

// byCategory groups the view's bookmarks per category, keeping their
// (order, id) sequence.
func byCategory(v types.View) map[string][]types.Bookmark {
	out := make(map[string][]types.Bookmark)
	for _, b := range v.Bookmarks {
		out[b.CategoryID] = append(out[b.CategoryID], b)
	}
	return out
}

// Markdown formats the view as a markdown document in layout order.
func Markdown(v types.View, label string) string {
	var b strings.Builder
	bms := byCategory(v)

	if label == "" {
		label = "Bookmarks"
	}
	fmt.Fprintf(&b, "# %s\n", label)
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	writeCategory := func(heading string, c types.Category) {
		list := bms[c.ID]
		noun := "bookmarks"
		if len(list) == 1 {
			noun = "bookmark"
		}
		fmt.Fprintf(&b, "\n%s %s (%d %s)\n\n", heading, c.Name, len(list), noun)
		for _, bm := range list {
			title := bm.Title
			if title == "" {
				title = bm.URL
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, bm.URL)
		}
	}

	for _, it := range v.Layout {
		if it.Kind == types.LayoutGroup {
			fmt.Fprintf(&b, "\n## %s\n", it.Group.Name)
			for _, c := range it.Members {
				writeCategory("###", c)
			}
			continue
		}
		writeCategory("##", it.Category)
	}

	return b.String()
}
