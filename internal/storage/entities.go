package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lotas/lesezeichen/internal/types"
)

// Every mutation runs in one transaction that also bumps the user's
// revision. The returned int64 is the revision after the change.

func mutate(db *sql.DB, user string, fn func(tx *sql.Tx) error) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(
		`INSERT INTO revisions (user_id, rev) VALUES (?, 1)
		 ON CONFLICT(user_id) DO UPDATE SET rev = rev + 1`, user,
	); err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	var rev int64
	if err := tx.QueryRow("SELECT rev FROM revisions WHERE user_id = ?", user).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return rev, nil
}

// checkOwner returns ErrNotFound for a missing row and ErrUnauthorized for
// a row owned by someone else. table is always a literal from this file.
func checkOwner(tx *sql.Tx, table, id, user string) error {
	var owner string
	err := tx.QueryRow("SELECT user_id FROM "+table+" WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("look up %s %s: %w", table, id, err)
	}
	if owner != user {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrUnauthorized)
	}
	return nil
}

// checkFree allows inserting id when it is unused or already owned by user.
func checkFree(tx *sql.Tx, table, id, user string) error {
	err := checkOwner(tx, table, id, user)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// dropEmptyGroup deletes groupID if no category references it any more.
func dropEmptyGroup(tx *sql.Tx, groupID string) error {
	if groupID == "" {
		return nil
	}
	_, err := tx.Exec(
		"DELETE FROM groups WHERE id = ? AND NOT EXISTS (SELECT 1 FROM categories WHERE group_id = ?)",
		groupID, groupID,
	)
	if err != nil {
		return fmt.Errorf("drop empty group %s: %w", groupID, err)
	}
	return nil
}

func categoryGroup(tx *sql.Tx, id string) (string, error) {
	var g sql.NullString
	if err := tx.QueryRow("SELECT group_id FROM categories WHERE id = ?", id).Scan(&g); err != nil {
		return "", fmt.Errorf("load category %s: %w", id, err)
	}
	return g.String, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- Reads ---

// ListGroups returns the user's groups sorted by (order, id).
func ListGroups(db *sql.DB, user string) ([]types.Group, error) {
	rows, err := db.Query("SELECT id, name, ord FROM groups WHERE user_id = ? ORDER BY ord, id", user)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	result := []types.Group{}
	for rows.Next() {
		var g types.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Order); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// ListCategories returns the user's categories sorted by (order, id).
func ListCategories(db *sql.DB, user string) ([]types.Category, error) {
	rows, err := db.Query("SELECT id, name, ord, group_id FROM categories WHERE user_id = ? ORDER BY ord, id", user)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	result := []types.Category{}
	for rows.Next() {
		var c types.Category
		var group sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Order, &group); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.GroupID = group.String
		result = append(result, c)
	}
	return result, rows.Err()
}

// ListBookmarks returns all of the user's bookmarks sorted by (order, id).
func ListBookmarks(db *sql.DB, user string) ([]types.Bookmark, error) {
	rows, err := db.Query(
		"SELECT id, category_id, title, url, icon, ord FROM bookmarks WHERE user_id = ? ORDER BY ord, id", user,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	result := []types.Bookmark{}
	for rows.Next() {
		var b types.Bookmark
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Title, &b.URL, &b.Icon, &b.Order); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// GetPreferences returns the user's preferences, or the zero value.
func GetPreferences(db *sql.DB, user string) (types.Preferences, error) {
	var data string
	err := db.QueryRow("SELECT data FROM preferences WHERE user_id = ?", user).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Preferences{}, nil
	}
	if err != nil {
		return types.Preferences{}, fmt.Errorf("query preferences: %w", err)
	}
	var p types.Preferences
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return types.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return p, nil
}

// Revision returns the user's watermark. It is 0 before the first change.
func Revision(db *sql.DB, user string) (int64, error) {
	var rev int64
	err := db.QueryRow("SELECT rev FROM revisions WHERE user_id = ?", user).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query revision: %w", err)
	}
	return rev, nil
}

// LoadSnapshot returns everything the user owns.
func LoadSnapshot(db *sql.DB, user string) (types.Snapshot, error) {
	var snap types.Snapshot
	var err error
	if snap.Groups, err = ListGroups(db, user); err != nil {
		return snap, err
	}
	if snap.Categories, err = ListCategories(db, user); err != nil {
		return snap, err
	}
	if snap.Bookmarks, err = ListBookmarks(db, user); err != nil {
		return snap, err
	}
	if snap.Preferences, err = GetPreferences(db, user); err != nil {
		return snap, err
	}
	return snap, nil
}

// --- Categories ---

// CreateCategory inserts c. Re-creating an id the user already owns
// overwrites it.
func CreateCategory(db *sql.DB, user string, c types.Category) (int64, error) {
	if c.ID == "" {
		return 0, fmt.Errorf("create category: missing id: %w", ErrInvalid)
	}
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkFree(tx, "categories", c.ID, user); err != nil {
			return err
		}
		if c.GroupID != "" {
			if err := checkOwner(tx, "groups", c.GroupID, user); err != nil {
				return err
			}
		}
		_, err := tx.Exec(
			`INSERT INTO categories (id, user_id, name, ord, group_id) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, ord = excluded.ord, group_id = excluded.group_id`,
			c.ID, user, c.Name, c.Order, nullable(c.GroupID),
		)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
		return nil
	})
}

// UpdateCategory renames a category.
func UpdateCategory(db *sql.DB, user, id, name string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "categories", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE categories SET name = ? WHERE id = ?", name, id); err != nil {
			return fmt.Errorf("update category %s: %w", id, err)
		}
		return nil
	})
}

// DeleteCategory removes a category with its bookmarks, and its group if
// the group is left empty.
func DeleteCategory(db *sql.DB, user, id string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "categories", id, user); err != nil {
			return err
		}
		group, err := categoryGroup(tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM bookmarks WHERE category_id = ?", id); err != nil {
			return fmt.Errorf("delete bookmarks of %s: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM categories WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete category %s: %w", id, err)
		}
		return dropEmptyGroup(tx, group)
	})
}

// ReorderCategory sets a category's order key.
func ReorderCategory(db *sql.DB, user, id string, ord float64) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "categories", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE categories SET ord = ? WHERE id = ?", ord, id); err != nil {
			return fmt.Errorf("reorder category %s: %w", id, err)
		}
		return nil
	})
}

// SetCategoryGroup moves a category into groupID, or to the top level when
// groupID is empty. A nil ord appends after the new siblings. The old
// group is removed if it is left empty.
func SetCategoryGroup(db *sql.DB, user, id, groupID string, ord *float64) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "categories", id, user); err != nil {
			return err
		}
		if groupID != "" {
			if err := checkOwner(tx, "groups", groupID, user); err != nil {
				return err
			}
		}
		old, err := categoryGroup(tx, id)
		if err != nil {
			return err
		}

		var o float64
		if ord != nil {
			o = *ord
		} else {
			last, err := lastSiblingOrder(tx, user, id, groupID)
			if err != nil {
				return err
			}
			o = last + 1
		}
		if _, err := tx.Exec(
			"UPDATE categories SET group_id = ?, ord = ? WHERE id = ?", nullable(groupID), o, id,
		); err != nil {
			return fmt.Errorf("move category %s: %w", id, err)
		}
		if old != groupID {
			return dropEmptyGroup(tx, old)
		}
		return nil
	})
}

// lastSiblingOrder returns the highest order among the siblings id would
// have in groupID, excluding id itself. Top-level siblings are standalone
// categories and groups with members. It is 0 when there are none.
func lastSiblingOrder(tx *sql.Tx, user, id, groupID string) (float64, error) {
	var last sql.NullFloat64
	var err error
	if groupID != "" {
		err = tx.QueryRow(
			"SELECT MAX(ord) FROM categories WHERE group_id = ? AND id != ?", groupID, id,
		).Scan(&last)
	} else {
		err = tx.QueryRow(`
SELECT MAX(ord) FROM (
    SELECT ord FROM categories WHERE user_id = ? AND group_id IS NULL AND id != ?
    UNION ALL
    SELECT g.ord FROM groups g WHERE g.user_id = ?
        AND EXISTS (SELECT 1 FROM categories c WHERE c.group_id = g.id AND c.id != ?)
)`, user, id, user, id).Scan(&last)
	}
	if err != nil {
		return 0, fmt.Errorf("last sibling order: %w", err)
	}
	return last.Float64, nil
}

// --- Groups ---

// CreateGroup inserts g. Re-creating an id the user already owns
// overwrites it.
func CreateGroup(db *sql.DB, user string, g types.Group) (int64, error) {
	if g.ID == "" {
		return 0, fmt.Errorf("create group: missing id: %w", ErrInvalid)
	}
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkFree(tx, "groups", g.ID, user); err != nil {
			return err
		}
		return insertGroup(tx, user, g)
	})
}

func insertGroup(tx *sql.Tx, user string, g types.Group) error {
	_, err := tx.Exec(
		`INSERT INTO groups (id, user_id, name, ord) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, ord = excluded.ord`,
		g.ID, user, g.Name, g.Order,
	)
	if err != nil {
		return fmt.Errorf("insert group %q: %w", g.Name, err)
	}
	return nil
}

// UpdateGroup renames a group.
func UpdateGroup(db *sql.DB, user, id, name string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "groups", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE groups SET name = ? WHERE id = ?", name, id); err != nil {
			return fmt.Errorf("update group %s: %w", id, err)
		}
		return nil
	})
}

// DeleteGroup removes a group. Its members become standalone with their
// order keys unchanged.
func DeleteGroup(db *sql.DB, user, id string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "groups", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE categories SET group_id = NULL WHERE group_id = ?", id); err != nil {
			return fmt.Errorf("ungroup members of %s: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM groups WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete group %s: %w", id, err)
		}
		return nil
	})
}

// ReorderGroup sets a group's order key.
func ReorderGroup(db *sql.DB, user, id string, ord float64) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "groups", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE groups SET ord = ? WHERE id = ?", ord, id); err != nil {
			return fmt.Errorf("reorder group %s: %w", id, err)
		}
		return nil
	})
}

// MergeGroups moves every member of source to the end of target, keeping
// their relative order, and deletes source.
func MergeGroups(db *sql.DB, user, sourceID, targetID string) (int64, error) {
	if sourceID == targetID {
		return 0, fmt.Errorf("merge group %s into itself: %w", sourceID, ErrInvalid)
	}
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "groups", sourceID, user); err != nil {
			return err
		}
		if err := checkOwner(tx, "groups", targetID, user); err != nil {
			return err
		}
		var last sql.NullFloat64
		if err := tx.QueryRow("SELECT MAX(ord) FROM categories WHERE group_id = ?", targetID).Scan(&last); err != nil {
			return fmt.Errorf("last member of %s: %w", targetID, err)
		}

		rows, err := tx.Query("SELECT id FROM categories WHERE group_id = ? ORDER BY ord, id", sourceID)
		if err != nil {
			return fmt.Errorf("query members of %s: %w", sourceID, err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan member: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate members: %w", err)
		}

		for i, id := range ids {
			if _, err := tx.Exec(
				"UPDATE categories SET group_id = ?, ord = ? WHERE id = ?",
				targetID, last.Float64+float64(i+1), id,
			); err != nil {
				return fmt.Errorf("move member %s: %w", id, err)
			}
		}
		if _, err := tx.Exec("DELETE FROM groups WHERE id = ?", sourceID); err != nil {
			return fmt.Errorf("delete group %s: %w", sourceID, err)
		}
		return nil
	})
}

// CreateGroupFromCategories creates g holding categoryIDs with orders
// 1..n in the given sequence. Groups emptied by the move are removed.
func CreateGroupFromCategories(db *sql.DB, user string, g types.Group, categoryIDs []string) (int64, error) {
	if g.ID == "" || len(categoryIDs) == 0 {
		return 0, fmt.Errorf("create group from categories: %w", ErrInvalid)
	}
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkFree(tx, "groups", g.ID, user); err != nil {
			return err
		}
		old := make(map[string]bool)
		for _, id := range categoryIDs {
			if err := checkOwner(tx, "categories", id, user); err != nil {
				return err
			}
			prev, err := categoryGroup(tx, id)
			if err != nil {
				return err
			}
			old[prev] = true
		}
		if err := insertGroup(tx, user, g); err != nil {
			return err
		}
		for i, id := range categoryIDs {
			if _, err := tx.Exec(
				"UPDATE categories SET group_id = ?, ord = ? WHERE id = ?", g.ID, float64(i+1), id,
			); err != nil {
				return fmt.Errorf("group category %s: %w", id, err)
			}
		}
		for prev := range old {
			if prev == g.ID {
				continue
			}
			if err := dropEmptyGroup(tx, prev); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Bookmarks ---

// CreateBookmark inserts b into a category the user owns.
func CreateBookmark(db *sql.DB, user string, b types.Bookmark) (int64, error) {
	if b.ID == "" || strings.TrimSpace(b.URL) == "" {
		return 0, fmt.Errorf("create bookmark: %w", ErrInvalid)
	}
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkFree(tx, "bookmarks", b.ID, user); err != nil {
			return err
		}
		if err := checkOwner(tx, "categories", b.CategoryID, user); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO bookmarks (id, user_id, category_id, title, url, icon, ord) VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET category_id = excluded.category_id, title = excluded.title,
			     url = excluded.url, icon = excluded.icon, ord = excluded.ord`,
			b.ID, user, b.CategoryID, b.Title, b.URL, b.Icon, b.Order,
		)
		if err != nil {
			return fmt.Errorf("insert bookmark %q: %w", b.URL, err)
		}
		return nil
	})
}

// UpdateBookmark changes a bookmark's title, URL and icon.
func UpdateBookmark(db *sql.DB, user, id, title, url, icon string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "bookmarks", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"UPDATE bookmarks SET title = ?, url = ?, icon = ? WHERE id = ?", title, url, icon, id,
		); err != nil {
			return fmt.Errorf("update bookmark %s: %w", id, err)
		}
		return nil
	})
}

// DeleteBookmark removes a bookmark.
func DeleteBookmark(db *sql.DB, user, id string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "bookmarks", id, user); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM bookmarks WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete bookmark %s: %w", id, err)
		}
		return nil
	})
}

// ReorderBookmark sets a bookmark's order key. A non-empty categoryID also
// moves it to that category.
func ReorderBookmark(db *sql.DB, user, id string, ord float64, categoryID string) (int64, error) {
	return mutate(db, user, func(tx *sql.Tx) error {
		if err := checkOwner(tx, "bookmarks", id, user); err != nil {
			return err
		}
		if categoryID == "" {
			_, err := tx.Exec("UPDATE bookmarks SET ord = ? WHERE id = ?", ord, id)
			if err != nil {
				return fmt.Errorf("reorder bookmark %s: %w", id, err)
			}
			return nil
		}
		if err := checkOwner(tx, "categories", categoryID, user); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"UPDATE bookmarks SET ord = ?, category_id = ? WHERE id = ?", ord, categoryID, id,
		); err != nil {
			return fmt.Errorf("move bookmark %s: %w", id, err)
		}
		return nil
	})
}

// --- Preferences ---

// UpdatePreferences replaces the user's preferences.
func UpdatePreferences(db *sql.DB, user string, p types.Preferences) (int64, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode preferences: %w", err)
	}
	return mutate(db, user, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO preferences (user_id, data) VALUES (?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data`,
			user, string(data),
		)
		if err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		return nil
	})
}
