package firefox

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/lotas/lesezeichen/internal/store"
	"github.com/lotas/lesezeichen/internal/types"
)

func TestImport(t *testing.T) {
	st := store.New(store.Options{Mode: types.ModeLocal})
	defer st.Close()

	work, err := st.CreateCategory("work")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateBookmark(work.ID, "Example", "https://example.com", ""); err != nil {
		t.Fatal(err)
	}

	sets := []TabSet{
		{Name: "Work", Tabs: []Tab{
			{URL: "https://example.com", Title: "Example"},
			{URL: "https://go.dev", Title: "Go"},
		}},
		{Name: "Empty"},
		{Name: UngroupedName, Tabs: []Tab{{URL: "https://x.org", Title: "X"}}},
	}
	res, err := Import(st, sets)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	assert.Equal(t, res, ImportResult{Categories: 1, Bookmarks: 2, Skipped: 1})

	v := st.View()
	assert.Equal(t, len(v.Categories), 2)
	assert.Equal(t, len(st.BookmarksIn(work.ID)), 2)

	// Importing again adds nothing.
	res, err = Import(st, sets)
	assert.Equal(t, err, nil)
	assert.Equal(t, res, ImportResult{Skipped: 3})
}
