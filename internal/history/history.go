/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history records structural edits of the scenario tree as commands
// built from captured outline handles and replays them for undo and redo.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	applog "scenariowriter/internal/log"
	"scenariowriter/internal/outline"
)

// ErrMissingContext is returned when an entry's captured level or row no
// longer resolves. The entry is skipped; the cursor still moves past it.
var ErrMissingContext = errors.New("history entry lost its context")

// Op tags the kind of edit an entry records.
type Op int

const (
	OpRemove Op = iota
	OpAddSibling
	OpAddChild
	OpAddRoot
	OpMoveToParentChild
	OpMoveToDestChild
	OpMoveToParentSibling
	OpMoveToDestSibling
	OpMoveToParent
	OpNop
)

var opNames = [...]string{
	"Remove", "AddSibling", "AddChild", "AddRoot",
	"MoveToParentChild", "MoveToDestChild", "MoveToParentSibling", "MoveToDestSibling",
	"MoveToParent", "Nop",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

// IsMove reports whether o relocates an existing node.
func (o Op) IsMove() bool { return o >= OpMoveToParentChild && o <= OpMoveToParent }

// Entry is one recorded edit. Src and Dest are captured before the edit ran.
// New is the entry that was inserted; for moves it is the moved entry itself.
type Entry struct {
	Op   Op
	Src  outline.Handle
	Dest outline.Handle
	New  *outline.Entry
	TS   time.Time
}

// Config caps the number of retained entries (0 means unlimited).
type Config struct {
	MaxEntries int
}

// History is a linear undo stack with a cursor. Entries before the cursor
// are done, entries from the cursor on can be redone. Not safe for
// concurrent use; it is driven from the UI loop together with the outline.
type History struct {
	cfg   Config
	o     *outline.Outline
	items []Entry
	index int
}

func New(o *outline.Outline, cfg Config) *History {
	return &History{cfg: cfg, o: o}
}

// Push drops any redo entries past the cursor, appends e and advances.
func (h *History) Push(e Entry) {
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	h.items = append(h.items[:h.index], e)
	h.index = len(h.items)
	if h.cfg.MaxEntries > 0 && len(h.items) > h.cfg.MaxEntries {
		drop := len(h.items) - h.cfg.MaxEntries
		h.items = append([]Entry(nil), h.items[drop:]...)
		h.index -= drop
	}
	applog.WithComponent("history").Debug("push", slog.String("op", e.Op.String()), slog.Int("index", h.index))
}

func (h *History) Len() int      { return len(h.items) }
func (h *History) Index() int    { return h.index }
func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.items) }

// Clear forgets every entry.
func (h *History) Clear() {
	h.items = nil
	h.index = 0
}

// Peek returns the entry the next Undo would revert.
func (h *History) Peek() (Entry, bool) {
	if h.index == 0 {
		return Entry{}, false
	}
	return h.items[h.index-1], true
}

// Undo reverts the entry before the cursor. It returns false when there is
// nothing to undo or when the entry could not be replayed.
func (h *History) Undo() (bool, error) {
	if h.index <= 0 {
		return false, nil
	}
	h.index--
	e := h.items[h.index]
	err := h.revert(e)
	h.o.RedrawAll()
	return h.finish("undo", e, err)
}

// Redo repeats the entry at the cursor.
func (h *History) Redo() (bool, error) {
	if h.index >= len(h.items) {
		return false, nil
	}
	e := h.items[h.index]
	err := h.replay(e)
	h.index++
	h.o.RedrawAll()
	return h.finish("redo", e, err)
}

func (h *History) finish(dir string, e Entry, err error) (bool, error) {
	l := applog.WithOperation(applog.WithComponent("history"), dir).With(
		slog.String("op", e.Op.String()),
		slog.Int("index", h.index),
	)
	if err == nil {
		l.Debug("done")
		return true, nil
	}
	if errors.Is(err, outline.ErrStale) {
		err = fmt.Errorf("%w: %v", ErrMissingContext, err)
	}
	l.Warn("entry skipped", applog.Err(err))
	return false, fmt.Errorf("%s %v: %w", dir, e.Op, err)
}
