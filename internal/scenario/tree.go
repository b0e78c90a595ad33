/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenario

// Tree is one scenario document: the root sibling chain plus the ID counter
// used to mint new nodes. A Tree is not safe for concurrent use.
type Tree struct {
	root *Node
	ids  IDSource
}

func NewTree() *Tree { return &Tree{} }

// NewTreeFrom adopts root (typically the result of Decode) and makes sure
// newly minted IDs are above every ID already present.
func NewTreeFrom(root *Node) *Tree {
	t := &Tree{root: root}
	if root != nil {
		root.parent = nil
		root.Role = RoleChild
	}
	Walk(root, func(n *Node) bool {
		t.ids.Observe(n.ID)
		return true
	})
	return t
}

func (t *Tree) Root() *Node     { return t.root }
func (t *Tree) IDs() *IDSource  { return &t.ids }
func (t *Tree) Empty() bool     { return t.root == nil }

// NewNode mints a detached node carrying it.
func (t *Tree) NewNode(it Item) *Node {
	return &Node{Item: it, Role: RoleChild, ID: t.ids.Next()}
}

// SetRoot attaches a detached node as the root of an empty tree.
func (t *Tree) SetRoot(n *Node) bool {
	if n == nil || t.root != nil || n.parent != nil {
		return false
	}
	n.Role = RoleChild
	n.sibling = nil
	t.root = n
	return true
}

// Remove splices n out of its position. Its next sibling takes over n's
// slot and role. n keeps its own child subtree; its parent and sibling links
// are cleared and its role reset to RoleChild, so a detached node never
// points back into the tree.
func (t *Tree) Remove(n *Node) {
	if n == nil {
		return
	}
	p, next := n.parent, n.sibling
	if p != nil {
		if n.Role == RoleChild {
			p.child = next
		} else {
			p.sibling = next
		}
		if next != nil {
			next.Role = n.Role
			next.parent = p
		}
	} else if next != nil {
		next.Role = RoleChild
		next.parent = nil
	}
	if t.root == n {
		t.root = next
	}
	n.parent = nil
	n.sibling = nil
	n.Role = RoleChild
}

// CanMoveToChild reports whether MoveToChild(a, b) would succeed.
func (t *Tree) CanMoveToChild(a, b *Node) bool {
	if a == nil || b == nil || a == b || b.contains(a) {
		return false
	}
	if !CanBeChild(a.Kind(), b.Kind()) {
		return false
	}
	next := a.child
	if next == b {
		next = b.sibling
	}
	return next == nil || CanBeSibling(b.Kind(), next.Kind())
}

// MoveToChild makes b the first child of a. The previous first child of a
// and its chain follow b as siblings.
func (t *Tree) MoveToChild(a, b *Node) bool {
	if !t.CanMoveToChild(a, b) {
		return false
	}
	t.Remove(b)
	old := a.child
	b.parent = a
	b.Role = RoleChild
	if old != nil {
		old.Role = RoleSibling
		old.parent = b
	}
	b.sibling = old
	a.child = b
	return true
}

// CanMoveToSibling reports whether MoveToSibling(a, b) would succeed.
func (t *Tree) CanMoveToSibling(a, b *Node) bool {
	if a == nil || b == nil || a == b || b.contains(a) {
		return false
	}
	if !CanBeSibling(a.Kind(), b.Kind()) {
		return false
	}
	next := a.sibling
	if next == b {
		next = b.sibling
	}
	return next == nil || CanBeSibling(b.Kind(), next.Kind())
}

// MoveToSibling inserts b directly after a.
func (t *Tree) MoveToSibling(a, b *Node) bool {
	if !t.CanMoveToSibling(a, b) {
		return false
	}
	t.Remove(b)
	old := a.sibling
	b.parent = a
	b.Role = RoleSibling
	if old != nil {
		old.parent = b
	}
	b.sibling = old
	a.sibling = b
	return true
}

// slotOf returns the link that will hold a once b is detached.
func slotOf(a, b *Node) (*Node, Role) {
	if a.parent == b && a.Role == RoleSibling {
		return b.parent, b.Role
	}
	return a.parent, a.Role
}

// CanMoveToParentPosition reports whether MoveToParentPosition(a, b) would succeed.
func (t *Tree) CanMoveToParentPosition(a, b *Node) bool {
	if a == nil || b == nil || a == b || b.contains(a) {
		return false
	}
	if !CanBeSibling(b.Kind(), a.Kind()) {
		return false
	}
	p, role := slotOf(a, b)
	if p == nil {
		return a == t.root || (a.parent == b && b == t.root)
	}
	if role == RoleChild {
		return CanBeChild(p.Kind(), b.Kind())
	}
	return CanBeSibling(p.Kind(), b.Kind())
}

// MoveToParentPosition puts b into the slot a occupies and makes a the
// sibling following b: "insert b before a".
func (t *Tree) MoveToParentPosition(a, b *Node) bool {
	if !t.CanMoveToParentPosition(a, b) {
		return false
	}
	t.Remove(b)
	p, role := a.parent, a.Role
	b.parent = p
	b.Role = role
	switch {
	case p == nil:
		t.root = b
	case role == RoleChild:
		p.child = b
	default:
		p.sibling = b
	}
	b.sibling = a
	a.parent = b
	a.Role = RoleSibling
	return true
}
