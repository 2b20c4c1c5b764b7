// Package protocol defines the websocket messages exchanged between the
// client engine and the backend.
package protocol

import (
	"encoding/json"

	"github.com/lotas/lesezeichen/internal/types"
)

// Actions a client may request.
const (
	ActionCreateCategory            = "createCategory"
	ActionUpdateCategory            = "updateCategory"
	ActionDeleteCategory            = "deleteCategory"
	ActionReorderCategory           = "reorderCategory"
	ActionSetCategoryGroup          = "setCategoryGroup"
	ActionCreateGroup               = "createGroup"
	ActionUpdateGroup               = "updateGroup"
	ActionDeleteGroup               = "deleteGroup"
	ActionReorderGroup              = "reorderGroup"
	ActionMergeGroups               = "mergeGroups"
	ActionCreateGroupFromCategories = "createGroupFromCategories"
	ActionCreateBookmark            = "createBookmark"
	ActionUpdateBookmark            = "updateBookmark"
	ActionDeleteBookmark            = "deleteBookmark"
	ActionReorderBookmark           = "reorderBookmark"
	ActionUpdatePreferences         = "updatePreferences"
	ActionWatermark                 = "watermark"
)

// Message types sent by the backend.
const (
	TypeCategories = "categories"
	TypeBookmarks  = "bookmarks"
	TypeGroups     = "groups"
	TypePrefs      = "prefs"
	TypeAck        = "ack"
)

// Error codes carried by a failed ack.
const (
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeInvalid      = "invalid"
	CodeInternal     = "internal"
)

// Request is a command from the client. Only the fields the action needs
// are set.
type Request struct {
	ID     string `json:"id"`
	Action string `json:"action"`

	EntityID    string   `json:"entityId,omitempty"`
	Name        string   `json:"name,omitempty"`
	Title       string   `json:"title,omitempty"`
	URL         string   `json:"url,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Order       *float64 `json:"order,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	GroupID     string   `json:"groupId,omitempty"`
	SourceID    string   `json:"sourceId,omitempty"`
	TargetID    string   `json:"targetId,omitempty"`
	CategoryIDs []string `json:"categoryIds,omitempty"`

	Category    *types.Category    `json:"category,omitempty"`
	Group       *types.Group       `json:"group,omitempty"`
	Bookmark    *types.Bookmark    `json:"bookmark,omitempty"`
	Preferences *types.Preferences `json:"preferences,omitempty"`
}

// Message is a feed delivery or a command acknowledgement.
type Message struct {
	Type  string          `json:"type"`
	Items json.RawMessage `json:"items,omitempty"`

	// Ack fields.
	ID    string `json:"id,omitempty"`
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	// Revision is the user's watermark after the change that produced
	// this message.
	Revision int64 `json:"revision,omitempty"`
}

// Feed builds a delivery of a full entity list.
func Feed(typ string, items any, revision int64) (Message, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Items: data, Revision: revision}, nil
}

// Ack builds a command acknowledgement. code is ignored when err is nil.
func Ack(id string, err error, code string, revision int64) Message {
	ok := err == nil
	m := Message{Type: TypeAck, ID: id, OK: &ok, Revision: revision}
	if err != nil {
		m.Error = err.Error()
		m.Code = code
	}
	return m
}
