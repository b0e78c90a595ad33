/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenario

import (
	"encoding/json"
	"fmt"
)

// Role records how a node is reached from its parent link.
type Role int

const (
	// RoleChild: the parent's child link points here. Roots use it too.
	RoleChild Role = iota
	// RoleSibling: the predecessor's sibling link points here.
	RoleSibling
)

func (r Role) String() string {
	switch r {
	case RoleChild:
		return "Child"
	case RoleSibling:
		return "Neighbor"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r != RoleChild && r != RoleSibling {
		return nil, fmt.Errorf("marshal role: %d", int(r))
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "Child":
		*r = RoleChild
	case "Neighbor", "Sibling":
		*r = RoleSibling
	default:
		return fmt.Errorf("unknown branch role %q", s)
	}
	return nil
}

// Node is one element of the first-child/next-sibling tree.
// child and sibling own what they point at; parent is the back link
// (the real parent for RoleChild, the predecessor for RoleSibling).
type Node struct {
	Item Item
	Role Role
	ID   int

	parent  *Node
	child   *Node
	sibling *Node
}

func (n *Node) Kind() Kind     { return n.Item.Kind() }
func (n *Node) Parent() *Node  { return n.parent }
func (n *Node) Child() *Node   { return n.child }
func (n *Node) Sibling() *Node { return n.sibling }

// Up returns the logical parent: the node whose child chain contains n.
func (n *Node) Up() *Node {
	x := n
	for x != nil && x.Role == RoleSibling {
		x = x.parent
	}
	if x == nil {
		return nil
	}
	return x.parent
}

// Children returns the logical children of n in order.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.child; c != nil; c = c.sibling {
		out = append(out, c)
	}
	return out
}

// contains reports whether x lies in n's child subtree (n itself excluded).
func (n *Node) contains(x *Node) bool {
	for prev, cur := x, x.parent; cur != nil; prev, cur = cur, cur.parent {
		if cur == n {
			return prev.Role == RoleChild
		}
	}
	return false
}

// Contains reports whether x is n or lies in n's child subtree.
func (n *Node) Contains(x *Node) bool {
	if n == nil || x == nil {
		return false
	}
	return n == x || n.contains(x)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v#%d", n.Kind(), n.ID)
}

// IDSource mints node identities for one document.
type IDSource struct {
	last int
}

func (s *IDSource) Next() int {
	s.last++
	return s.last
}

// Observe makes sure later IDs do not collide with id.
func (s *IDSource) Observe(id int) {
	if id > s.last {
		s.last = id
	}
}

func (s *IDSource) Last() int { return s.last }
