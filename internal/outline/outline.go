/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package outline mirrors the scenario tree as nested ordered lists, one
// list per expanded level, the way a tree list widget shows it. Every listed
// entry carries a seq equal to its index in its list.
package outline

import (
	"errors"
	"fmt"
	"strings"

	"scenariowriter/internal/scenario"
)

var (
	// ErrStale means a level or entry no longer sits where the caller expects
	// (for example the level was collapsed and freed).
	ErrStale = errors.New("stale outline position")
	// ErrRefused means the tree grammar forbids the requested placement.
	ErrRefused = errors.New("placement refused")
)

// Entry is the visible row of one node.
type Entry struct {
	node     *scenario.Node
	seq      int
	level    *Level
	children *Level
	expanded bool
}

func (e *Entry) Node() *scenario.Node { return e.node }
func (e *Entry) Seq() int             { return e.seq }
func (e *Entry) Level() *Level        { return e.level }
func (e *Entry) Children() *Level     { return e.children }
func (e *Entry) Expanded() bool       { return e.expanded }
func (e *Entry) Listed() bool         { return e.level != nil && e.level.live }

// Depth is 0 for entries in the root level and -1 for unlisted entries.
func (e *Entry) Depth() int {
	if e.level == nil {
		return -1
	}
	return e.level.Depth()
}

func (e *Entry) String() string {
	return fmt.Sprintf("%v@%d", e.node, e.seq)
}

// Level is the ordered list of one sibling chain.
type Level struct {
	owner *Entry
	items []*Entry
	live  bool
}

func (l *Level) Len() int          { return len(l.items) }
func (l *Level) At(i int) *Entry   { return l.items[i] }
func (l *Level) Owner() *Entry     { return l.owner }
func (l *Level) Live() bool        { return l != nil && l.live }
func (l *Level) Entries() []*Entry { return append([]*Entry(nil), l.items...) }

func (l *Level) Depth() int {
	d := 0
	for o := l.owner; o != nil && o.level != nil; o = o.level.owner {
		d++
	}
	return d
}

// Change describes a splice of a level, like a list model's items-changed signal.
type Change struct {
	Level   *Level
	Pos     int
	Removed int
	Added   int
}

type Options struct {
	// AutoExpand makes every entry with children start expanded.
	AutoExpand bool
}

// Outline keeps one Entry per node for its whole life, so positions captured
// by history entries stay meaningful across moves.
type Outline struct {
	tree      *scenario.Tree
	opts      Options
	root      *Level
	entries   map[*scenario.Node]*Entry
	listeners []func(Change)
}

func New(tree *scenario.Tree, opts Options) *Outline {
	o := &Outline{tree: tree, opts: opts}
	o.Reset()
	return o
}

func (o *Outline) Tree() *scenario.Tree { return o.tree }
func (o *Outline) Root() *Level         { return o.root }

// Reset drops every level and rebuilds the outline from the tree.
func (o *Outline) Reset() {
	if o.root != nil {
		o.kill(o.root)
	}
	o.entries = map[*scenario.Node]*Entry{}
	o.root = &Level{live: true}
	o.fill(o.root, o.tree.Root())
	o.RedrawAll()
}

// EntryFor returns the entry of n, creating an unlisted one on first use.
func (o *Outline) EntryFor(n *scenario.Node) *Entry {
	if e, ok := o.entries[n]; ok {
		return e
	}
	e := &Entry{node: n, expanded: o.opts.AutoExpand}
	o.entries[n] = e
	return e
}

// Locate returns the listed entry of n.
func (o *Outline) Locate(n *scenario.Node) (*Entry, error) {
	e, ok := o.entries[n]
	if !ok || !e.Listed() {
		return nil, fmt.Errorf("%w: %v is not visible", ErrStale, n)
	}
	return e, nil
}

// OnChange registers fn for every level splice.
func (o *Outline) OnChange(fn func(Change)) {
	o.listeners = append(o.listeners, fn)
}

func (o *Outline) notify(l *Level, pos, removed, added int) {
	c := Change{Level: l, Pos: pos, Removed: removed, Added: added}
	for _, fn := range o.listeners {
		fn(c)
	}
}

// RedrawAll signals that every row of the root level must be redrawn.
func (o *Outline) RedrawAll() {
	n := o.root.Len()
	o.notify(o.root, 0, n, n)
}

func (o *Outline) fill(l *Level, first *scenario.Node) {
	l.items = l.items[:0]
	for n, i := first, 0; n != nil; n, i = n.Sibling(), i+1 {
		e := o.EntryFor(n)
		e.seq = i
		e.level = l
		l.items = append(l.items, e)
		if e.expanded && e.children == nil {
			o.build(e)
		}
	}
}

func (o *Outline) build(e *Entry) {
	l := &Level{owner: e, live: true}
	e.children = l
	o.fill(l, e.node.Child())
}

// kill frees l and every level below it.
func (o *Outline) kill(l *Level) {
	l.live = false
	for _, e := range l.items {
		if e.level == l {
			e.level = nil
		}
		if e.children != nil {
			o.kill(e.children)
			e.children = nil
		}
	}
	l.items = nil
}

// Expand lists the children of e.
func (o *Outline) Expand(e *Entry) {
	e.expanded = true
	if e.children != nil || !e.Listed() {
		return
	}
	o.build(e)
	o.notify(e.children, 0, 0, e.children.Len())
}

// Collapse frees the child level of e. Positions captured inside it go stale.
func (o *Outline) Collapse(e *Entry) {
	e.expanded = false
	if e.children == nil {
		return
	}
	n := e.children.Len()
	c := e.children
	o.kill(c)
	e.children = nil
	o.notify(c, 0, n, 0)
}

// Verify checks every live level against the tree: same order, and
// seq equal to the index.
func (o *Outline) Verify() error {
	return o.verifyLevel(o.root, o.tree.Root())
}

func (o *Outline) verifyLevel(l *Level, first *scenario.Node) error {
	i := 0
	for n := first; n != nil; n = n.Sibling() {
		if i >= len(l.items) {
			return fmt.Errorf("level %v: %v missing at %d", l.owner, n, i)
		}
		e := l.items[i]
		switch {
		case e.node != n:
			return fmt.Errorf("level %v: index %d holds %v, tree has %v", l.owner, i, e.node, n)
		case e.seq != i:
			return fmt.Errorf("level %v: %v has seq %d at index %d", l.owner, n, e.seq, i)
		case e.level != l:
			return fmt.Errorf("level %v: %v points at another level", l.owner, n)
		}
		if e.children != nil {
			if err := o.verifyLevel(e.children, n.Child()); err != nil {
				return err
			}
		}
		i++
	}
	if i != len(l.items) {
		return fmt.Errorf("level %v: %d entries for %d nodes", l.owner, len(l.items), i)
	}
	return nil
}

// Dump renders the listed entries with their seq, indented by depth.
func (o *Outline) Dump() string {
	var sb strings.Builder
	var walk func(l *Level, depth int)
	walk = func(l *Level, depth int) {
		for _, e := range l.items {
			fmt.Fprintf(&sb, "%s%v seq=%d\n", strings.Repeat("  ", depth), e.node, e.seq)
			if e.children != nil {
				walk(e.children, depth+1)
			}
		}
	}
	walk(o.root, 0)
	return sb.String()
}
