package server

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/storage"
)

// parseRequest decodes a client frame and checks that the action carries
// the fields it needs. Failures wrap storage.ErrInvalid so they map to the
// invalid error code.
func parseRequest(data []byte) (protocol.Request, error) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode request: %v: %w", err, storage.ErrInvalid)
	}
	if err := validate(req); err != nil {
		return req, fmt.Errorf("%s: %w: %w", req.Action, err, storage.ErrInvalid)
	}
	return req, nil
}

func validate(req protocol.Request) error {
	if req.ID == "" {
		return fmt.Errorf("missing request id")
	}
	need := func(name, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("missing %s", name)
		}
		return nil
	}
	order := func() error {
		if req.Order == nil {
			return fmt.Errorf("missing order")
		}
		if math.IsNaN(*req.Order) || math.IsInf(*req.Order, 0) {
			return fmt.Errorf("order not finite")
		}
		return nil
	}

	switch req.Action {
	case protocol.ActionCreateCategory:
		if req.Category == nil {
			return fmt.Errorf("missing category")
		}
		return need("category id", req.Category.ID)
	case protocol.ActionUpdateCategory, protocol.ActionUpdateGroup:
		return need("entity id", req.EntityID)
	case protocol.ActionDeleteCategory, protocol.ActionDeleteGroup, protocol.ActionDeleteBookmark:
		return need("entity id", req.EntityID)
	case protocol.ActionReorderCategory, protocol.ActionReorderGroup, protocol.ActionReorderBookmark:
		if err := need("entity id", req.EntityID); err != nil {
			return err
		}
		return order()
	case protocol.ActionSetCategoryGroup:
		if err := need("entity id", req.EntityID); err != nil {
			return err
		}
		if req.Order != nil {
			return order()
		}
		return nil
	case protocol.ActionCreateGroup:
		if req.Group == nil {
			return fmt.Errorf("missing group")
		}
		return need("group id", req.Group.ID)
	case protocol.ActionMergeGroups:
		if err := need("source id", req.SourceID); err != nil {
			return err
		}
		return need("target id", req.TargetID)
	case protocol.ActionCreateGroupFromCategories:
		if req.Group == nil || len(req.CategoryIDs) == 0 {
			return fmt.Errorf("missing group or categories")
		}
		return need("group id", req.Group.ID)
	case protocol.ActionCreateBookmark:
		if req.Bookmark == nil {
			return fmt.Errorf("missing bookmark")
		}
		if err := need("bookmark id", req.Bookmark.ID); err != nil {
			return err
		}
		return need("url", req.Bookmark.URL)
	case protocol.ActionUpdateBookmark:
		if err := need("entity id", req.EntityID); err != nil {
			return err
		}
		return need("url", req.URL)
	case protocol.ActionUpdatePreferences:
		if req.Preferences == nil {
			return fmt.Errorf("missing preferences")
		}
		return nil
	case protocol.ActionWatermark:
		return nil
	}
	return fmt.Errorf("unknown action %q", req.Action)
}
