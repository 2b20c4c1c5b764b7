package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/types"
)

// Raw feed entries are decoded leniently and then checked field by field.
// An entry that fails the check is skipped, never delivered half-formed.

type wireCategory struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Order   *float64 `json:"order"`
	GroupID *string  `json:"groupId"`
}

type wireGroup struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Order *float64 `json:"order"`
}

type wireBookmark struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Icon       string   `json:"icon"`
	CategoryID string   `json:"categoryId"`
	Order      *float64 `json:"order"`
}

func checkOrder(o *float64) error {
	if o == nil {
		return errors.New("missing order")
	}
	if math.IsNaN(*o) || math.IsInf(*o, 0) {
		return fmt.Errorf("order %v not finite", *o)
	}
	return nil
}

func (w wireCategory) toCategory() (types.Category, error) {
	if w.ID == "" {
		return types.Category{}, errors.New("missing id")
	}
	if err := checkOrder(w.Order); err != nil {
		return types.Category{}, err
	}
	c := types.Category{ID: w.ID, Name: w.Name, Order: *w.Order}
	if w.GroupID != nil {
		c.GroupID = *w.GroupID
	}
	return c, nil
}

func (w wireGroup) toGroup() (types.Group, error) {
	if w.ID == "" {
		return types.Group{}, errors.New("missing id")
	}
	if err := checkOrder(w.Order); err != nil {
		return types.Group{}, err
	}
	return types.Group{ID: w.ID, Name: w.Name, Order: *w.Order}, nil
}

func (w wireBookmark) toBookmark() (types.Bookmark, error) {
	switch {
	case w.ID == "":
		return types.Bookmark{}, errors.New("missing id")
	case w.CategoryID == "":
		return types.Bookmark{}, errors.New("missing categoryId")
	case strings.TrimSpace(w.URL) == "":
		return types.Bookmark{}, errors.New("missing url")
	}
	if err := checkOrder(w.Order); err != nil {
		return types.Bookmark{}, err
	}
	return types.Bookmark{
		ID:         w.ID,
		Title:      w.Title,
		URL:        w.URL,
		Icon:       w.Icon,
		CategoryID: w.CategoryID,
		Order:      *w.Order,
	}, nil
}

// parseList decodes a JSON array entry by entry, dropping entries that do
// not decode or convert. It fails only when raw is not an array.
func parseList[W any, T any](kind string, raw json.RawMessage, conv func(W) (T, error)) ([]T, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", kind, err)
	}
	out := make([]T, 0, len(entries))
	for i, e := range entries {
		var w W
		if err := json.Unmarshal(e, &w); err != nil {
			applog.Error("protocol.skip", err, "kind", kind, "index", i)
			continue
		}
		v, err := conv(w)
		if err != nil {
			applog.Error("protocol.skip", err, "kind", kind, "index", i)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseCategories converts a categories feed payload.
func ParseCategories(raw json.RawMessage) ([]types.Category, error) {
	return parseList("categories", raw, wireCategory.toCategory)
}

// ParseGroups converts a groups feed payload.
func ParseGroups(raw json.RawMessage) ([]types.Group, error) {
	return parseList("groups", raw, wireGroup.toGroup)
}

// ParseBookmarks converts a bookmarks feed payload.
func ParseBookmarks(raw json.RawMessage) ([]types.Bookmark, error) {
	return parseList("bookmarks", raw, wireBookmark.toBookmark)
}

// ParsePreferences converts a preferences payload. Unknown fields are
// ignored.
func ParsePreferences(raw json.RawMessage) (types.Preferences, error) {
	var p types.Preferences
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Preferences{}, fmt.Errorf("parse prefs: %w", err)
	}
	return p, nil
}
