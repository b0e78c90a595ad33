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
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"scenariowriter/internal/outline"
	"scenariowriter/internal/scenario"
)

func newNode(t *testing.T, tr *scenario.Tree, k scenario.Kind) *scenario.Node {
	t.Helper()
	it, err := scenario.NewItem(k)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	return tr.NewNode(it)
}

// build: Scene#1{Page#2{Mat#3, Mat#4}, Page#5{Mat#6}}, Scene#7
func build(t *testing.T) (*scenario.Tree, *outline.Outline, *History) {
	t.Helper()
	tr := scenario.NewTree()
	s1 := newNode(t, tr, scenario.KindScene)
	p1 := newNode(t, tr, scenario.KindPage)
	m1 := newNode(t, tr, scenario.KindMat)
	m2 := newNode(t, tr, scenario.KindMat)
	p2 := newNode(t, tr, scenario.KindPage)
	m3 := newNode(t, tr, scenario.KindMat)
	s2 := newNode(t, tr, scenario.KindScene)
	tr.SetRoot(s1)
	ok := tr.MoveToSibling(s1, s2) &&
		tr.MoveToChild(s1, p1) &&
		tr.MoveToSibling(p1, p2) &&
		tr.MoveToChild(p1, m1) &&
		tr.MoveToSibling(m1, m2) &&
		tr.MoveToChild(p2, m3)
	if !ok {
		t.Fatalf("setup refused")
	}
	o := outline.New(tr, outline.Options{AutoExpand: true})
	return tr, o, New(o, Config{})
}

func entry(t *testing.T, o *outline.Outline, id int) *outline.Entry {
	t.Helper()
	n := scenario.FindByID(o.Tree().Root(), id)
	if n == nil {
		t.Fatalf("node %d missing", id)
	}
	e, err := o.Locate(n)
	if err != nil {
		t.Fatalf("Locate(%d): %v", id, err)
	}
	return e
}

func handle(t *testing.T, e *outline.Entry) outline.Handle {
	t.Helper()
	h, err := outline.HandleFor(e)
	if err != nil {
		t.Fatalf("HandleFor(%v): %v", e, err)
	}
	return h
}

func state(t *testing.T, o *outline.Outline) string {
	t.Helper()
	if err := o.Verify(); err != nil {
		t.Fatalf("outline out of sync: %v\n%s", err, o.Dump())
	}
	return scenario.Dump(o.Tree().Root()) + "--\n" + o.Dump()
}

func assertState(t *testing.T, step, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Fatalf("%s: state differs:\n%s", step, diff)
}

func undo(t *testing.T, h *History) {
	t.Helper()
	if ok, err := h.Undo(); err != nil || !ok {
		t.Fatalf("undo at %d: ok=%v err=%v", h.Index(), ok, err)
	}
}

func redo(t *testing.T, h *History) {
	t.Helper()
	if ok, err := h.Redo(); err != nil || !ok {
		t.Fatalf("redo at %d: ok=%v err=%v", h.Index(), ok, err)
	}
}

func TestEmptyHistory(t *testing.T) {
	_, _, h := build(t)
	if ok, err := h.Undo(); ok || err != nil {
		t.Fatalf("Undo on empty history: ok=%v err=%v", ok, err)
	}
	if ok, err := h.Redo(); ok || err != nil {
		t.Fatalf("Redo on empty history: ok=%v err=%v", ok, err)
	}
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("nothing to undo or redo")
	}
}

func TestUndoRedoAdds(t *testing.T) {
	tr, o, h := build(t)
	before := state(t, o)

	mat := o.EntryFor(newNode(t, tr, scenario.KindMat))
	src := handle(t, entry(t, o, 3))
	if err := o.AddSibling(src.Entry, mat, src.Level); err != nil {
		t.Fatalf("AddSibling: %v", err)
	}
	h.Push(Entry{Op: OpAddSibling, Src: src, New: mat})

	page := o.EntryFor(newNode(t, tr, scenario.KindPage))
	src = handle(t, entry(t, o, 1))
	if err := o.AddChild(src.Entry, page); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	h.Push(Entry{Op: OpAddChild, Src: src, New: page})
	after := state(t, o)

	undo(t, h)
	undo(t, h)
	assertState(t, "after undo", before, state(t, o))
	if h.CanUndo() || !h.CanRedo() {
		t.Fatalf("cursor at %d of %d", h.Index(), h.Len())
	}
	redo(t, h)
	redo(t, h)
	assertState(t, "after redo", after, state(t, o))
}

func TestUndoRedoRemove(t *testing.T) {
	_, o, h := build(t)
	before := state(t, o)
	for _, id := range []int{3, 5} {
		src := handle(t, entry(t, o, id))
		if err := o.RemoveNode(src.Level, src.Entry); err != nil {
			t.Fatalf("RemoveNode(%d): %v", id, err)
		}
		h.Push(Entry{Op: OpRemove, Src: src})
	}
	after := state(t, o)
	for h.CanUndo() {
		undo(t, h)
	}
	assertState(t, "undo removes", before, state(t, o))
	for h.CanRedo() {
		redo(t, h)
	}
	assertState(t, "redo removes", after, state(t, o))
}

func TestUndoRedoAddRoot(t *testing.T) {
	tr := scenario.NewTree()
	o := outline.New(tr, outline.Options{AutoExpand: true})
	h := New(o, Config{})
	e := o.EntryFor(newNode(t, tr, scenario.KindGroup))
	if err := o.AddRoot(o.Root(), e); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	h.Push(Entry{Op: OpAddRoot, Src: outline.Handle{Entry: e, Level: o.Root()}, New: e})
	undo(t, h)
	if !tr.Empty() || o.Root().Len() != 0 {
		t.Fatalf("tree not emptied:\n%s", o.Dump())
	}
	redo(t, h)
	if tr.Root() != e.Node() || o.Root().Len() != 1 {
		t.Fatalf("root not restored:\n%s", o.Dump())
	}
}

func TestMovesAreInvolutions(t *testing.T) {
	cases := []struct {
		name     string
		op       Op
		src      int
		dest     int
		move     func(o *outline.Outline, src *outline.Entry, dh outline.Handle) error
		wantTree string
	}{
		{
			name: "after dest", op: OpMoveToDestSibling, src: 3, dest: 4,
			move: func(o *outline.Outline, src *outline.Entry, dh outline.Handle) error {
				return o.AddSibling(dh.Entry, src, dh.Level)
			},
			wantTree: "Scene#1 Scene:\n  Page#2 Page:\n    Mat#4 Mat:text\n    Mat#3 Mat:text\n  Page#5 Page:\n    Mat#6 Mat:text\nScene#7 Scene:\n",
		},
		{
			name: "into dest", op: OpMoveToDestChild, src: 4, dest: 5,
			move: func(o *outline.Outline, src *outline.Entry, dh outline.Handle) error {
				return o.AddChild(dh.Entry, src)
			},
			wantTree: "Scene#1 Scene:\n  Page#2 Page:\n    Mat#3 Mat:text\n  Page#5 Page:\n    Mat#4 Mat:text\n    Mat#6 Mat:text\nScene#7 Scene:\n",
		},
		{
			name: "before first child", op: OpMoveToParentChild, src: 4, dest: 3,
			move: func(o *outline.Outline, src *outline.Entry, dh outline.Handle) error {
				return o.AddChild(dh.ParentEntry, src)
			},
			wantTree: "Scene#1 Scene:\n  Page#2 Page:\n    Mat#4 Mat:text\n    Mat#3 Mat:text\n  Page#5 Page:\n    Mat#6 Mat:text\nScene#7 Scene:\n",
		},
		{
			name: "before sibling", op: OpMoveToParentSibling, src: 6, dest: 4,
			move: func(o *outline.Outline, src *outline.Entry, dh outline.Handle) error {
				return o.AddSibling(dh.ParentEntry, src, dh.Level)
			},
			wantTree: "Scene#1 Scene:\n  Page#2 Page:\n    Mat#3 Mat:text\n    Mat#6 Mat:text\n    Mat#4 Mat:text\n  Page#5 Page:\nScene#7 Scene:\n",
		},
		{
			name: "before root", op: OpMoveToParent, src: 7, dest: 1,
			move: func(o *outline.Outline, src *outline.Entry, dh outline.Handle) error {
				return o.InsertBefore(dh.Entry, src, dh.Level)
			},
			wantTree: "Scene#7 Scene:\nScene#1 Scene:\n  Page#2 Page:\n    Mat#3 Mat:text\n    Mat#4 Mat:text\n  Page#5 Page:\n    Mat#6 Mat:text\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, o, h := build(t)
			before := state(t, o)
			src := entry(t, o, tc.src)
			sh := handle(t, src)
			dh := handle(t, entry(t, o, tc.dest))
			if err := tc.move(o, src, dh); err != nil {
				t.Fatalf("move: %v", err)
			}
			h.Push(Entry{Op: tc.op, Src: sh, Dest: dh, New: src})
			if got := scenario.Dump(tr.Root()); got != tc.wantTree {
				assertState(t, "move", tc.wantTree, got)
			}
			after := state(t, o)
			for i := 0; i < 2; i++ {
				undo(t, h)
				assertState(t, "undo", before, state(t, o))
				redo(t, h)
				assertState(t, "redo", after, state(t, o))
			}
		})
	}
}

func TestStaleContextIsSkipped(t *testing.T) {
	tr, o, h := build(t)
	src := entry(t, o, 4)
	sh := handle(t, src)
	dh := handle(t, entry(t, o, 5))
	if err := o.AddChild(dh.Entry, src); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	h.Push(Entry{Op: OpMoveToDestChild, Src: sh, Dest: dh, New: src})
	moved := scenario.Dump(tr.Root())

	// collapsing the source row frees the level the handle points into
	o.Collapse(entry(t, o, 2))
	ok, err := h.Undo()
	if ok || !errors.Is(err, ErrMissingContext) {
		t.Fatalf("Undo: ok=%v err=%v, want ErrMissingContext", ok, err)
	}
	if h.Index() != 0 {
		t.Fatalf("cursor should move past the skipped entry, got %d", h.Index())
	}
	if got := scenario.Dump(tr.Root()); got != moved {
		assertState(t, "skipped undo", moved, got)
	}
	if err := o.Verify(); err != nil {
		t.Fatalf("outline out of sync: %v", err)
	}
	ok, err = h.Redo()
	if ok || !errors.Is(err, ErrMissingContext) {
		t.Fatalf("Redo: ok=%v err=%v, want ErrMissingContext", ok, err)
	}
	if h.Index() != 1 {
		t.Fatalf("cursor = %d, want 1", h.Index())
	}
}

func TestPushTruncatesRedo(t *testing.T) {
	_, _, h := build(t)
	h.Push(Entry{Op: OpNop})
	h.Push(Entry{Op: OpNop})
	undo(t, h)
	h.Push(Entry{Op: OpNop})
	if h.Len() != 2 || h.CanRedo() {
		t.Fatalf("len=%d canRedo=%v", h.Len(), h.CanRedo())
	}
	if e, ok := h.Peek(); !ok || e.TS.IsZero() {
		t.Fatalf("pushed entry should be stamped")
	}
}

func TestMaxEntries(t *testing.T) {
	_, o, _ := build(t)
	h := New(o, Config{MaxEntries: 2})
	for i := 0; i < 5; i++ {
		h.Push(Entry{Op: OpNop})
	}
	if h.Len() != 2 || h.Index() != 2 {
		t.Fatalf("len=%d index=%d, want 2/2", h.Len(), h.Index())
	}
	h.Clear()
	if h.Len() != 0 || h.CanUndo() {
		t.Fatalf("Clear left entries")
	}
}

func TestOpNames(t *testing.T) {
	if OpMoveToDestSibling.String() != "MoveToDestSibling" || Op(99).String() != "Op(99)" {
		t.Fatalf("unexpected names")
	}
	if OpAddChild.IsMove() || !OpMoveToParent.IsMove() {
		t.Fatalf("IsMove wrong")
	}
}
