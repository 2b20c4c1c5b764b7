package server

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/storage"
)

// apply runs one request against storage for user and returns the new
// revision. changed is false for read-only requests.
func apply(db *sql.DB, user string, req protocol.Request) (rev int64, changed bool, err error) {
	switch req.Action {
	case protocol.ActionCreateCategory:
		rev, err = storage.CreateCategory(db, user, *req.Category)
	case protocol.ActionUpdateCategory:
		rev, err = storage.UpdateCategory(db, user, req.EntityID, req.Name)
	case protocol.ActionDeleteCategory:
		rev, err = storage.DeleteCategory(db, user, req.EntityID)
	case protocol.ActionReorderCategory:
		rev, err = storage.ReorderCategory(db, user, req.EntityID, *req.Order)
	case protocol.ActionSetCategoryGroup:
		rev, err = storage.SetCategoryGroup(db, user, req.EntityID, req.GroupID, req.Order)
	case protocol.ActionCreateGroup:
		rev, err = storage.CreateGroup(db, user, *req.Group)
	case protocol.ActionUpdateGroup:
		rev, err = storage.UpdateGroup(db, user, req.EntityID, req.Name)
	case protocol.ActionDeleteGroup:
		rev, err = storage.DeleteGroup(db, user, req.EntityID)
	case protocol.ActionReorderGroup:
		rev, err = storage.ReorderGroup(db, user, req.EntityID, *req.Order)
	case protocol.ActionMergeGroups:
		rev, err = storage.MergeGroups(db, user, req.SourceID, req.TargetID)
	case protocol.ActionCreateGroupFromCategories:
		rev, err = storage.CreateGroupFromCategories(db, user, *req.Group, req.CategoryIDs)
	case protocol.ActionCreateBookmark:
		rev, err = storage.CreateBookmark(db, user, *req.Bookmark)
	case protocol.ActionUpdateBookmark:
		rev, err = storage.UpdateBookmark(db, user, req.EntityID, req.Title, req.URL, req.Icon)
	case protocol.ActionDeleteBookmark:
		rev, err = storage.DeleteBookmark(db, user, req.EntityID)
	case protocol.ActionReorderBookmark:
		rev, err = storage.ReorderBookmark(db, user, req.EntityID, *req.Order, req.CategoryID)
	case protocol.ActionUpdatePreferences:
		rev, err = storage.UpdatePreferences(db, user, *req.Preferences)
	case protocol.ActionWatermark:
		rev, err = storage.Revision(db, user)
		return rev, false, err
	default:
		return 0, false, fmt.Errorf("unknown action %q: %w", req.Action, storage.ErrInvalid)
	}
	return rev, err == nil, err
}

// errorCode maps a storage error to the ack code the client understands.
func errorCode(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return protocol.CodeNotFound
	case errors.Is(err, storage.ErrUnauthorized):
		return protocol.CodeUnauthorized
	case errors.Is(err, storage.ErrInvalid):
		return protocol.CodeInvalid
	}
	return protocol.CodeInternal
}

// feeds builds the four subscription payloads for user.
func feeds(db *sql.DB, user string, rev int64) ([]protocol.Message, error) {
	snap, err := storage.LoadSnapshot(db, user)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Message, 0, 4)
	for _, f := range []struct {
		typ   string
		items any
	}{
		{protocol.TypeCategories, snap.Categories},
		{protocol.TypeBookmarks, snap.Bookmarks},
		{protocol.TypeGroups, snap.Groups},
		{protocol.TypePrefs, snap.Preferences},
	} {
		m, err := protocol.Feed(f.typ, f.items, rev)
		if err != nil {
			return nil, fmt.Errorf("encode %s feed: %w", f.typ, err)
		}
		out = append(out, m)
	}
	return out, nil
}
