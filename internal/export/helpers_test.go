package export

import "github.com/lotas/lesezeichen/internal/types"

// sampleView has group Research {Docs, Tools} and standalone Misc.
func sampleView() types.View {
	research := types.Group{ID: "g1", Name: "Research", Order: 1}
	docs := types.Category{ID: "c1", Name: "Docs", Order: 1, GroupID: "g1"}
	tools := types.Category{ID: "c2", Name: "Tools", Order: 2, GroupID: "g1"}
	misc := types.Category{ID: "c3", Name: "Misc", Order: 2}
	return types.View{
		Snapshot: types.Snapshot{
			Groups:     []types.Group{research},
			Categories: []types.Category{docs, misc, tools},
			Bookmarks: []types.Bookmark{
				{ID: "b1", Title: "Go docs", URL: "https://go.dev/doc", CategoryID: "c1", Order: 1},
				{ID: "b3", Title: "Example", URL: "https://example.com", CategoryID: "c3", Order: 1},
				{ID: "b2", Title: "Bubble Tea", URL: "https://github.com/charmbracelet/bubbletea", CategoryID: "c1", Order: 2},
			},
			Preferences: types.Preferences{Theme: "dark"},
		},
		Layout: []types.LayoutItem{
			{Kind: types.LayoutGroup, Group: research, Members: []types.Category{docs, tools}},
			{Kind: types.LayoutCategory, Category: misc},
		},
		Ready: true,
	}
}
