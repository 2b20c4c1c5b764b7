package store

import (
	"context"

	"github.com/lotas/lesezeichen/internal/types"
)

// Remote is the backend mutation contract used in sync mode. Entity ids are
// chosen by the client so the subscription echo matches the optimistic copy.
type Remote interface {
	CreateCategory(ctx context.Context, c types.Category) error
	UpdateCategory(ctx context.Context, id, name string) error
	DeleteCategory(ctx context.Context, id string) error
	ReorderCategory(ctx context.Context, id string, order float64) error

	CreateGroup(ctx context.Context, g types.Group) error
	UpdateGroup(ctx context.Context, id, name string) error
	DeleteGroup(ctx context.Context, id string) error
	ReorderGroup(ctx context.Context, id string, order float64) error
	MergeGroups(ctx context.Context, sourceID, targetID string) error
	CreateGroupFromCategories(ctx context.Context, g types.Group, categoryIDs []string) error

	CreateBookmark(ctx context.Context, b types.Bookmark) error
	UpdateBookmark(ctx context.Context, id, title, url, icon string) error
	DeleteBookmark(ctx context.Context, id string) error
	// ReorderBookmark moves a bookmark; a non-empty categoryID signals a
	// cross-category move.
	ReorderBookmark(ctx context.Context, id string, order float64, categoryID string) error

	// SetCategoryGroup moves a category into groupID, or to the top level
	// when groupID is empty. A nil order lets the backend append.
	SetCategoryGroup(ctx context.Context, categoryID, groupID string, order *float64) error

	UpdatePreferences(ctx context.Context, p types.Preferences) error
}

// Persister stores the full snapshot in local mode.
type Persister interface {
	SaveLocal(snap types.Snapshot) error
}
