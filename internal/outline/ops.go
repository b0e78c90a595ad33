/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package outline

import (
	"fmt"
	"slices"
)

// The helpers below pair one tree primitive with the matching list splice.
// Each one checks first and mutates only when both sides can follow.

// AdjustSeq shifts seq by delta for every entry of l whose seq is >= from.
func AdjustSeq(l *Level, from, delta int) {
	for _, e := range l.items {
		if e.seq >= from {
			e.seq += delta
		}
	}
}

func (o *Outline) checkIn(l *Level, e *Entry) error {
	if !l.Live() {
		return fmt.Errorf("%w: level of %v was freed", ErrStale, e)
	}
	if e.level != l {
		return fmt.Errorf("%w: %v is not listed in this level", ErrStale, e)
	}
	return nil
}

func (o *Outline) insert(l *Level, pos int, e *Entry) {
	e.seq = pos
	AdjustSeq(l, pos, 1)
	l.items = slices.Insert(l.items, pos, e)
	e.level = l
	if e.expanded && e.children == nil {
		o.build(e)
	}
	o.notify(l, pos, 0, 1)
}

// unlist takes e out of its level without touching the tree.
func (o *Outline) unlist(e *Entry) {
	l := e.level
	if l == nil {
		return
	}
	i := e.seq
	if i < 0 || i >= len(l.items) || l.items[i] != e {
		i = slices.Index(l.items, e)
	}
	if i >= 0 {
		l.items = slices.Delete(l.items, i, i+1)
		AdjustSeq(l, i+1, -1)
		o.notify(l, i, 1, 0)
	}
	e.level = nil
}

// AddSibling places e directly after dest in l.
func (o *Outline) AddSibling(dest, e *Entry, l *Level) error {
	if err := o.checkIn(l, dest); err != nil {
		return err
	}
	if !o.tree.CanMoveToSibling(dest.node, e.node) {
		return fmt.Errorf("%w: %v after %v", ErrRefused, e.node, dest.node)
	}
	o.unlist(e)
	o.tree.MoveToSibling(dest.node, e.node)
	o.insert(l, dest.seq+1, e)
	return nil
}

// AddChild makes e the first child of dest. When dest is collapsed only its
// row is refreshed; e stays unlisted until dest is expanded.
func (o *Outline) AddChild(dest, e *Entry) error {
	if err := o.checkIn(dest.level, dest); err != nil {
		return err
	}
	if !o.tree.CanMoveToChild(dest.node, e.node) {
		return fmt.Errorf("%w: %v under %v", ErrRefused, e.node, dest.node)
	}
	o.unlist(e)
	o.tree.MoveToChild(dest.node, e.node)
	if dest.children != nil {
		o.insert(dest.children, 0, e)
		return nil
	}
	e.seq = 0
	o.notify(dest.level, dest.seq, 1, 1)
	return nil
}

// InsertBefore puts e into dest's slot in l and shifts dest one down.
func (o *Outline) InsertBefore(dest, e *Entry, l *Level) error {
	if err := o.checkIn(l, dest); err != nil {
		return err
	}
	if !o.tree.CanMoveToParentPosition(dest.node, e.node) {
		return fmt.Errorf("%w: %v before %v", ErrRefused, e.node, dest.node)
	}
	o.unlist(e)
	o.tree.MoveToParentPosition(dest.node, e.node)
	o.insert(l, dest.seq, e)
	return nil
}

// AddRoot makes e the root of an empty tree.
func (o *Outline) AddRoot(l *Level, e *Entry) error {
	if l != o.root || !l.Live() {
		return fmt.Errorf("%w: not the root level", ErrStale)
	}
	if !o.tree.Empty() {
		return fmt.Errorf("%w: tree already has a root", ErrRefused)
	}
	o.unlist(e)
	if !o.tree.SetRoot(e.node) {
		return fmt.Errorf("%w: %v is still attached", ErrRefused, e.node)
	}
	o.insert(l, 0, e)
	return nil
}

// RemoveNode detaches e from the tree and from l. e keeps its subtree.
func (o *Outline) RemoveNode(l *Level, e *Entry) error {
	if err := o.checkIn(l, e); err != nil {
		return err
	}
	o.unlist(e)
	o.tree.Remove(e.node)
	return nil
}

// RemoveHidden detaches an unlisted child of owner, e.g. one added while
// owner was collapsed.
func (o *Outline) RemoveHidden(owner, e *Entry) error {
	if e.level != nil {
		return fmt.Errorf("%w: %v is listed", ErrStale, e)
	}
	if e.node.Up() != owner.node {
		return fmt.Errorf("%w: %v is not under %v", ErrStale, e.node, owner.node)
	}
	o.tree.Remove(e.node)
	if owner.Listed() {
		o.notify(owner.level, owner.seq, 1, 1)
	}
	return nil
}
