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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedSequence is returned when a record sequence does not follow
	// the shape flags written by Encode.
	ErrMalformedSequence = errors.New("malformed record sequence")
	// ErrGrammar marks a link the kind grammar forbids.
	ErrGrammar = errors.New("grammar violation")
)

// Shape records which links a node had when it was encoded.
type Shape int

const (
	ShapeLeaf Shape = iota
	ShapeChildOnly
	ShapeSiblingOnly
	ShapeBoth
)

func shapeOf(n *Node) Shape {
	switch {
	case n.child != nil && n.sibling != nil:
		return ShapeBoth
	case n.child != nil:
		return ShapeChildOnly
	case n.sibling != nil:
		return ShapeSiblingOnly
	}
	return ShapeLeaf
}

// Wire names are kept compatible with existing project files.
var shapeNames = map[Shape]string{
	ShapeLeaf:        "None",
	ShapeChildOnly:   "Child",
	ShapeSiblingOnly: "Neighbor",
	ShapeBoth:        "Both",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

func (s Shape) MarshalJSON() ([]byte, error) {
	n, ok := shapeNames[s]
	if !ok {
		return nil, fmt.Errorf("marshal shape: %d", int(s))
	}
	return json.Marshal(n)
}

func (s *Shape) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	for k, n := range shapeNames {
		if strings.EqualFold(n, str) {
			*s = k
			return nil
		}
	}
	switch str {
	case "Leaf":
		*s = ShapeLeaf
	case "ChildOnly":
		*s = ShapeChildOnly
	case "SiblingOnly":
		*s = ShapeSiblingOnly
	default:
		return fmt.Errorf("unknown shape %q", str)
	}
	return nil
}

// Record is one node in the flattened preorder form.
type Record struct {
	Item  Item
	Role  Role
	ID    int
	Shape Shape
}

type recordJSON struct {
	Value json.RawMessage `json:"value"`
	Role  Role            `json:"bt"`
	ID    int             `json:"id"`
	Shape Shape           `json:"has_n_and_c"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	v, err := MarshalItem(r.Item)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{Value: v, Role: r.Role, ID: r.ID, Shape: r.Shape})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Value) == 0 {
		return fmt.Errorf("record %d: missing value", raw.ID)
	}
	it, err := UnmarshalItem(raw.Value)
	if err != nil {
		return fmt.Errorf("record %d: %w", raw.ID, err)
	}
	*r = Record{Item: it, Role: raw.Role, ID: raw.ID, Shape: raw.Shape}
	return nil
}

// Encode flattens the tree at root into preorder records, children before
// siblings. Items are copied, so later edits do not leak into the records.
func Encode(root *Node) []Record {
	var out []Record
	Walk(root, func(n *Node) bool {
		out = append(out, Record{Item: n.Item.Clone(), Role: n.Role, ID: n.ID, Shape: shapeOf(n)})
		return true
	})
	return out
}

// Decode rebuilds the tree Encode flattened. An empty sequence yields a nil
// root. Sequences that break the shape contract fail with ErrMalformedSequence.
func Decode(recs []Record) (*Node, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	var (
		root, head *Node
		stack      []*Node
		expect     Role
		done       bool
	)
	for i, r := range recs {
		if done {
			return nil, fmt.Errorf("%w: %d record(s) after the last leaf", ErrMalformedSequence, len(recs)-i)
		}
		if r.Item == nil || !r.Item.Kind().Valid() {
			return nil, fmt.Errorf("%w: record %d has no item", ErrMalformedSequence, i)
		}
		n := &Node{Item: r.Item.Clone(), Role: r.Role, ID: r.ID}
		if head == nil {
			n.Role = RoleChild
			root = n
		} else {
			if r.Role != expect {
				return nil, fmt.Errorf("%w: record %d (id %d) is %v, expected %v", ErrMalformedSequence, i, r.ID, r.Role, expect)
			}
			if err := link(head, n); err != nil {
				return nil, err
			}
		}
		head = n
		switch r.Shape {
		case ShapeLeaf:
			if len(stack) == 0 {
				done = true
				continue
			}
			head = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			expect = RoleSibling
		case ShapeBoth:
			stack = append(stack, n)
			expect = RoleChild
		case ShapeChildOnly:
			expect = RoleChild
		case ShapeSiblingOnly:
			expect = RoleSibling
		default:
			return nil, fmt.Errorf("%w: record %d has shape %v", ErrMalformedSequence, i, r.Shape)
		}
	}
	if !done {
		return nil, fmt.Errorf("%w: input ends with %d open branch(es)", ErrMalformedSequence, len(stack)+1)
	}
	return root, nil
}

func link(head, n *Node) error {
	n.parent = head
	if n.Role == RoleSibling {
		if !CanBeSibling(head.Kind(), n.Kind()) {
			return fmt.Errorf("%w: %v cannot be followed by %v", ErrGrammar, head, n)
		}
		head.sibling = n
		return nil
	}
	if !CanBeChild(head.Kind(), n.Kind()) {
		return fmt.Errorf("%w: %v cannot hold %v", ErrGrammar, head, n)
	}
	head.child = n
	return nil
}

// DecodeTree decodes recs into a Tree whose ID counter is past every decoded ID.
func DecodeTree(recs []Record) (*Tree, error) {
	root, err := Decode(recs)
	if err != nil {
		return nil, err
	}
	return NewTreeFrom(root), nil
}
