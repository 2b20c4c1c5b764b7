// Package undo implements a bounded two-stack command history.
//
// A Stack is owned by the UI loop and is not safe for concurrent use.
// Closures run synchronously: a replay is complete when Undo or Redo
// returns, so the replay guard cannot be released early.
package undo

import (
	"context"
	"fmt"

	"github.com/lotas/lesezeichen/internal/applog"
)

// DefaultCapacity is the history depth used by New(0).
const DefaultCapacity = 50

// Action is one reversible operation.
type Action struct {
	Name string
	Undo func(ctx context.Context) error
	Redo func(ctx context.Context) error
}

// entry is a single action or a group of actions registered between
// BeginGroup and EndGroup.
type entry struct {
	actions []Action
}

// Stack holds the undo and redo histories.
type Stack struct {
	capacity int
	undo     []entry
	redo     []entry

	groupDepth int
	group      []Action

	replaying bool
	onChange  func()
}

// New creates a Stack. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity}
}

// OnChange registers a callback fired whenever either stack changes.
func (s *Stack) OnChange(fn func()) {
	s.onChange = fn
}

// Push records an action. It is a no-op while a replay is executing.
// Pushing clears the redo history.
func (s *Stack) Push(a Action) {
	if s.replaying {
		return
	}
	if s.groupDepth > 0 {
		s.group = append(s.group, a)
		return
	}
	s.pushEntry(entry{actions: []Action{a}})
}

func (s *Stack) pushEntry(e entry) {
	s.undo = append(s.undo, e)
	if len(s.undo) > s.capacity {
		// Drop the oldest; its closures are never invoked.
		s.undo = append(s.undo[:0:0], s.undo[len(s.undo)-s.capacity:]...)
	}
	s.redo = nil
	s.changed()
}

// BeginGroup starts collecting pushes into a single entry. Groups nest;
// only the outermost EndGroup commits.
func (s *Stack) BeginGroup() {
	if s.replaying {
		return
	}
	s.groupDepth++
}

// EndGroup closes the current group. An empty group is discarded.
func (s *Stack) EndGroup() {
	if s.replaying || s.groupDepth == 0 {
		return
	}
	s.groupDepth--
	if s.groupDepth > 0 {
		return
	}
	actions := s.group
	s.group = nil
	if len(actions) == 0 {
		return
	}
	s.pushEntry(entry{actions: actions})
}

// IsUndoing reports whether an undo or redo closure is executing.
func (s *Stack) IsUndoing() bool {
	return s.replaying
}

// CanUndo reports whether Undo has anything to do.
func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }

// CanRedo reports whether Redo has anything to do.
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Len returns the depths of the undo and redo stacks.
func (s *Stack) Len() (undo, redo int) {
	return len(s.undo), len(s.redo)
}

// Clear empties both histories and discards any open group.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
	s.group = nil
	s.groupDepth = 0
	s.changed()
}

// Undo reverts the most recent entry. Group members are reverted in reverse
// registration order. If a closure fails, the remaining members are skipped
// and the entry is dropped from both histories.
func (s *Stack) Undo(ctx context.Context) error {
	if len(s.undo) == 0 || s.replaying {
		return nil
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]

	err := s.replay(func() error {
		for i := len(e.actions) - 1; i >= 0; i-- {
			a := e.actions[i]
			if a.Undo == nil {
				continue
			}
			if err := a.Undo(ctx); err != nil {
				return fmt.Errorf("undo %s: %w", a.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		applog.Error("undo.failed", err, "actions", len(e.actions))
		s.changed()
		return err
	}
	s.redo = append(s.redo, e)
	s.changed()
	return nil
}

// Redo re-applies the most recently undone entry in registration order.
func (s *Stack) Redo(ctx context.Context) error {
	if len(s.redo) == 0 || s.replaying {
		return nil
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]

	err := s.replay(func() error {
		for _, a := range e.actions {
			if a.Redo == nil {
				continue
			}
			if err := a.Redo(ctx); err != nil {
				return fmt.Errorf("redo %s: %w", a.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		applog.Error("redo.failed", err, "actions", len(e.actions))
		s.changed()
		return err
	}
	s.undo = append(s.undo, e)
	s.changed()
	return nil
}

func (s *Stack) replay(fn func() error) (err error) {
	s.replaying = true
	defer func() {
		s.replaying = false
		if r := recover(); r != nil {
			err = fmt.Errorf("replay panicked: %v", r)
		}
	}()
	return fn()
}

func (s *Stack) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
