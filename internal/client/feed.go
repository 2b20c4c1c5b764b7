package client

import (
	"fmt"

	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/types"
)

// Sink receives validated feed payloads. *store.Store implements it.
type Sink interface {
	ApplyCategories([]types.Category)
	ApplyBookmarks([]types.Bookmark)
	ApplyGroups([]types.Group)
	ApplyPreferences(types.Preferences)
}

// Deliver validates a feed message and hands it to s. Invalid entries are
// dropped by the protocol parsers; a payload that is not a list at all is
// an error and nothing is applied.
func Deliver(s Sink, m protocol.Message) error {
	switch m.Type {
	case protocol.TypeCategories:
		cs, err := protocol.ParseCategories(m.Items)
		if err != nil {
			return err
		}
		s.ApplyCategories(cs)
	case protocol.TypeBookmarks:
		bs, err := protocol.ParseBookmarks(m.Items)
		if err != nil {
			return err
		}
		s.ApplyBookmarks(bs)
	case protocol.TypeGroups:
		gs, err := protocol.ParseGroups(m.Items)
		if err != nil {
			return err
		}
		s.ApplyGroups(gs)
	case protocol.TypePrefs:
		p, err := protocol.ParsePreferences(m.Items)
		if err != nil {
			return err
		}
		s.ApplyPreferences(p)
	default:
		return fmt.Errorf("unknown feed type %q", m.Type)
	}
	return nil
}
