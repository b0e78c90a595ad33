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

	"scenariowriter/internal/history"
	"scenariowriter/internal/outline"
	"scenariowriter/internal/scenario"
)

// CanAdd reports whether an add of kind k makes sense for the selection.
// An empty selection behaves like a Group.
func (ed *Editor) CanAdd(sel *outline.Entry, k scenario.Kind) bool {
	if ed.tree.Empty() {
		return true
	}
	if sel == nil {
		return scenario.CanBeSiblingOrChildAuto(scenario.KindGroup, k)
	}
	return scenario.CanBeSiblingOrChildAuto(sel.Node().Kind(), k)
}

type placement struct {
	target *outline.Entry
	child  bool
}

// plan picks where a new node of kind k goes relative to sel. Lower kinds
// reselect the enclosing scene or page and add after it.
func (ed *Editor) plan(sel *outline.Entry, k scenario.Kind) (placement, error) {
	selKind := sel.Node().Kind()
	sibling := func(e *outline.Entry) (placement, error) { return placement{target: e}, nil }
	child := func(e *outline.Entry) (placement, error) { return placement{target: e, child: true}, nil }
	up := func(find func(*scenario.Node) *scenario.Node) (placement, error) {
		n := find(sel.Node())
		if n == nil {
			return placement{}, fmt.Errorf("%w: %v has no enclosing node for %v", ErrRefused, sel.Node(), k)
		}
		e, err := ed.out.Locate(n)
		if err != nil {
			return placement{}, err
		}
		return sibling(e)
	}
	refuse := func() (placement, error) {
		return placement{}, fmt.Errorf("%w: cannot add %v at %v", ErrRefused, k, selKind)
	}

	switch k {
	case scenario.KindGroup:
		switch selKind {
		case scenario.KindGroup, scenario.KindScene:
			return sibling(sel)
		}
		return up(scenario.BelongScene)
	case scenario.KindScene:
		switch selKind {
		case scenario.KindGroup:
			return child(sel)
		case scenario.KindScene:
			return sibling(sel)
		}
		return up(scenario.BelongScene)
	case scenario.KindPage, scenario.KindPmat:
		switch selKind {
		case scenario.KindGroup:
			return refuse()
		case scenario.KindScene:
			return child(sel)
		case scenario.KindPage, scenario.KindPmat:
			return sibling(sel)
		}
		return up(scenario.BelongPage)
	case scenario.KindMat, scenario.KindOvimg:
		switch selKind {
		case scenario.KindPage:
			return child(sel)
		case scenario.KindMat, scenario.KindOvimg:
			return sibling(sel)
		}
		return refuse()
	}
	return refuse()
}

// AddNode creates a node of kind k next to or under the selection and
// records the edit. On an empty document the node becomes the root.
func (ed *Editor) AddNode(sel *outline.Entry, k scenario.Kind) (*outline.Entry, error) {
	it, err := scenario.NewItem(k)
	if err != nil {
		return nil, err
	}
	if ed.tree.Empty() {
		e := ed.out.EntryFor(ed.tree.NewNode(it))
		src := outline.Handle{Role: scenario.RoleChild, Entry: e, Level: ed.out.Root()}
		if err := ed.out.AddRoot(ed.out.Root(), e); err != nil {
			return nil, refused(err)
		}
		src.ParentRow, src.ParentEntry, src.ParentLevel = e, e, ed.out.Root()
		ed.hist.Push(history.Entry{Op: history.OpAddRoot, Src: src, New: e})
		return e, nil
	}
	if sel == nil {
		return nil, ErrNoSelection
	}
	if !sel.Listed() {
		return nil, fmt.Errorf("%w: selection is not visible", outline.ErrStale)
	}
	p, err := ed.plan(sel, k)
	if err != nil {
		return nil, err
	}
	h, err := outline.HandleFor(p.target)
	if err != nil {
		return nil, err
	}
	e := ed.out.EntryFor(ed.tree.NewNode(it))
	op := history.OpAddSibling
	if p.child {
		op = history.OpAddChild
		err = ed.out.AddChild(p.target, e)
	} else {
		err = ed.out.AddSibling(p.target, e, h.Level)
	}
	if err != nil {
		return nil, refused(err)
	}
	ed.hist.Push(history.Entry{Op: op, Src: h, New: e})
	ed.log.Debug("node added", slog.String("kind", k.String()), slog.String("op", op.String()), slog.Int("id", e.Node().ID))
	return e, nil
}
