/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"errors"
	"fmt"

	"scenariowriter/internal/outline"
	"scenariowriter/internal/scenario"
)

// revert runs the inverse of e.
func (h *History) revert(e Entry) error {
	o := h.o
	switch e.Op {
	case OpRemove:
		return h.reattach(e.Src, e.Src.Entry)
	case OpAddSibling:
		return o.RemoveNode(e.Src.Level, e.New)
	case OpAddChild:
		if c := e.Src.Entry.Children(); c != nil {
			return o.RemoveNode(c, e.New)
		}
		return o.RemoveHidden(e.Src.Entry, e.New)
	case OpAddRoot:
		return o.RemoveNode(e.Src.Level, e.Src.Entry)
	case OpMoveToParentChild, OpMoveToParentSibling, OpMoveToDestSibling, OpMoveToParent:
		if err := h.canReattach(e.Src); err != nil {
			return err
		}
		if err := o.RemoveNode(e.Dest.Level, e.New); err != nil {
			return err
		}
		return h.reattachOrRollback(e)
	case OpMoveToDestChild:
		if err := h.canReattach(e.Src); err != nil {
			return err
		}
		var err error
		if c := e.Dest.Entry.Children(); c != nil {
			err = o.RemoveNode(c, e.New)
		} else {
			err = o.RemoveHidden(e.Dest.Entry, e.New)
		}
		if err != nil {
			return err
		}
		return h.reattachOrRollback(e)
	case OpNop:
		return nil
	}
	return fmt.Errorf("unknown op %v", e.Op)
}

// replay runs e forward again.
func (h *History) replay(e Entry) error {
	o := h.o
	switch e.Op {
	case OpRemove:
		return o.RemoveNode(e.Src.Level, e.Src.Entry)
	case OpAddSibling:
		return o.AddSibling(e.Src.Entry, e.New, e.Src.Level)
	case OpAddChild:
		return o.AddChild(e.Src.Entry, e.New)
	case OpAddRoot:
		return o.AddRoot(e.Src.Level, e.Src.Entry)
	case OpMoveToParentChild, OpMoveToDestChild, OpMoveToParentSibling, OpMoveToDestSibling, OpMoveToParent:
		if e.New.Level() != e.Src.Level || !e.Src.Level.Live() {
			return fmt.Errorf("%w: %v is not at its recorded source", outline.ErrStale, e.New)
		}
		return h.place(e)
	case OpNop:
		return nil
	}
	return fmt.Errorf("unknown op %v", e.Op)
}

// place inserts e.New at the destination a move recorded. The outline
// helpers detach the node from wherever it is first.
func (h *History) place(e Entry) error {
	o := h.o
	switch e.Op {
	case OpMoveToParentChild:
		return o.AddChild(e.Dest.ParentEntry, e.New)
	case OpMoveToDestChild:
		return o.AddChild(e.Dest.Entry, e.New)
	case OpMoveToParentSibling:
		return o.AddSibling(e.Dest.ParentEntry, e.New, e.Dest.Level)
	case OpMoveToDestSibling:
		return o.AddSibling(e.Dest.Entry, e.New, e.Dest.Level)
	case OpMoveToParent:
		return o.InsertBefore(e.Dest.Entry, e.New, e.Dest.Level)
	}
	return fmt.Errorf("%v is not a move", e.Op)
}

// canReattach checks that src still resolves before anything is detached.
func (h *History) canReattach(src outline.Handle) error {
	switch {
	case src.Role == scenario.RoleSibling:
		if !src.Level.Live() || src.ParentEntry == nil || src.ParentEntry.Level() != src.Level {
			return fmt.Errorf("%w: predecessor of %v is gone", outline.ErrStale, src.Entry)
		}
	case src.Depth > 0:
		if src.ParentEntry == nil || !src.ParentEntry.Listed() {
			return fmt.Errorf("%w: parent row of %v is gone", outline.ErrStale, src.Entry)
		}
	default:
		if src.Level != h.o.Root() {
			return fmt.Errorf("%w: root level was replaced", outline.ErrStale)
		}
	}
	return nil
}

// reattach puts e back at the position src recorded: after its predecessor,
// as first child of its parent row, or in front of the current root.
func (h *History) reattach(src outline.Handle, e *outline.Entry) error {
	if err := h.canReattach(src); err != nil {
		return err
	}
	o := h.o
	switch {
	case src.Role == scenario.RoleSibling:
		return o.AddSibling(src.ParentEntry, e, src.Level)
	case src.Depth > 0:
		return o.AddChild(src.ParentEntry, e)
	case src.Level.Len() == 0:
		return o.AddRoot(src.Level, e)
	default:
		return o.InsertBefore(src.Level.At(0), e, src.Level)
	}
}

func (h *History) reattachOrRollback(e Entry) error {
	err := h.reattach(e.Src, e.New)
	if err == nil {
		return nil
	}
	if rerr := h.place(e); rerr != nil {
		return errors.Join(err, fmt.Errorf("rollback: %w", rerr))
	}
	return err
}
