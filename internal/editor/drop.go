/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"
	"strings"

	"scenariowriter/internal/history"
	"scenariowriter/internal/outline"
	"scenariowriter/internal/scenario"
)

// Zone is the half of the drop target row the pointer was released over.
type Zone int

const (
	ZoneUpper Zone = iota
	ZoneLower
)

// Target is the part of the row that received the drop.
type Target int

const (
	TargetLabel Target = iota
	TargetExpander
)

// ParseZone accepts "upper"/"lower" plus the short forms used by the CLI:
// "before", "child" (lower half of the label) and "after" (lower half of
// the expander).
func ParseZone(s string) (Target, Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upper", "before":
		return TargetLabel, ZoneUpper, nil
	case "lower", "child":
		return TargetLabel, ZoneLower, nil
	case "after":
		return TargetExpander, ZoneLower, nil
	}
	return 0, 0, fmt.Errorf("unknown drop zone %q", s)
}

// Drop moves src relative to dest:
//
//   - upper half: in front of dest
//   - lower half of the label: first child of dest
//   - lower half of the expander: right after dest
//
// Dropping a node onto itself or into its own subtree is refused.
func (ed *Editor) Drop(src, dest *outline.Entry, target Target, zone Zone) (history.Op, error) {
	if src == nil || dest == nil {
		return history.OpNop, ErrNoSelection
	}
	if src.Node().Contains(dest.Node()) {
		return history.OpNop, fmt.Errorf("%w: %v into its own subtree", ErrRefused, src.Node())
	}
	sh, err := outline.HandleFor(src)
	if err != nil {
		return history.OpNop, err
	}
	dh, err := outline.HandleFor(dest)
	if err != nil {
		return history.OpNop, err
	}

	var op history.Op
	switch {
	case zone == ZoneUpper && dh.Role == scenario.RoleSibling:
		op = history.OpMoveToParentSibling
		err = ed.out.AddSibling(dh.ParentEntry, src, dh.Level)
	case zone == ZoneUpper && dh.Depth > 0:
		op = history.OpMoveToParentChild
		err = ed.out.AddChild(dh.ParentEntry, src)
	case zone == ZoneUpper:
		op = history.OpMoveToParent
		err = ed.out.InsertBefore(dest, src, dh.Level)
	case target == TargetLabel:
		op = history.OpMoveToDestChild
		err = ed.out.AddChild(dest, src)
	default:
		op = history.OpMoveToDestSibling
		err = ed.out.AddSibling(dest, src, dh.Level)
	}
	if err != nil {
		return history.OpNop, refused(err)
	}
	ed.hist.Push(history.Entry{Op: op, Src: sh, Dest: dh, New: src})
	ed.log.Debug("node moved",
		slog.String("op", op.String()),
		slog.Int("src", src.Node().ID),
		slog.Int("dest", dest.Node().ID),
	)
	return op, nil
}
