/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenario

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Walk visits root, its child subtree and its sibling chain in preorder,
// children before siblings. Returning false from fn stops the walk.
func Walk(root *Node, fn func(*Node) bool) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		if n.sibling != nil {
			stack = append(stack, n.sibling)
		}
		if n.child != nil {
			stack = append(stack, n.child)
		}
	}
}

// Len counts the nodes reachable from root.
func Len(root *Node) int {
	c := 0
	Walk(root, func(*Node) bool { c++; return true })
	return c
}

func FindByID(root *Node, id int) *Node {
	var hit *Node
	Walk(root, func(n *Node) bool {
		if n.ID == id {
			hit = n
			return false
		}
		return true
	})
	return hit
}

// RootOf follows parent links to the top of the tree.
func RootOf(n *Node) *Node {
	for n != nil && n.parent != nil {
		n = n.parent
	}
	return n
}

func belong(n *Node, match func(Kind) bool) *Node {
	for x := n; x != nil; x = x.Up() {
		if match(x.Kind()) {
			return x
		}
	}
	return nil
}

// BelongGroup returns the nearest Group enclosing n (n included).
func BelongGroup(n *Node) *Node {
	return belong(n, func(k Kind) bool { return k == KindGroup })
}

// BelongScene returns the nearest Scene enclosing n (n included).
func BelongScene(n *Node) *Node {
	return belong(n, func(k Kind) bool { return k == KindScene })
}

// BelongPage returns the nearest Page or Pmat enclosing n (n included).
func BelongPage(n *Node) *Node {
	return belong(n, Kind.IsPageFamily)
}

func sameLabelFamily(a, b Kind) bool {
	if a.IsMatFamily() {
		return b.IsMatFamily()
	}
	return a == KindScene && b == KindScene
}

// SearchDefLabel finds the node defining the label n references.
// Only the same family matches: Mat/Pmat refer to Mat/Pmat, Scene to Scene.
func SearchDefLabel(n *Node) *Node {
	if n == nil {
		return nil
	}
	ref := n.Label()
	if !ref.IsRef() {
		return nil
	}
	var hit *Node
	Walk(RootOf(n), func(x *Node) bool {
		if x == n || !sameLabelFamily(n.Kind(), x.Kind()) {
			return true
		}
		if l := x.Label(); l.IsDef() && l.Name == ref.Name {
			hit = x
			return false
		}
		return true
	})
	return hit
}

// LabelDefs returns every label definition in the tree keyed by name.
// Later definitions of the same name are ignored.
func LabelDefs(root *Node) map[string]*Node {
	out := map[string]*Node{}
	Walk(root, func(n *Node) bool {
		if l := n.Label(); l.IsDef() {
			if _, dup := out[l.Name]; !dup {
				out[l.Name] = n
			}
		}
		return true
	})
	return out
}

// Validate returns the first grammar violation found under root, if any.
func Validate(root *Node) error {
	var err error
	Walk(root, func(n *Node) bool {
		if c := n.child; c != nil && !CanBeChild(n.Kind(), c.Kind()) {
			err = fmt.Errorf("%w: %v cannot hold %v", ErrGrammar, n, c)
			return false
		}
		if s := n.sibling; s != nil && !CanBeSibling(n.Kind(), s.Kind()) {
			err = fmt.Errorf("%w: %v cannot be followed by %v", ErrGrammar, n, s)
			return false
		}
		return true
	})
	return err
}

// RebaseSceneImages rewrites scene background paths that were relative to
// fromDir so they resolve the same way from toDir. Paths outside toDir
// become absolute.
func RebaseSceneImages(root *Node, fromDir, toDir string) int {
	changed := 0
	Walk(root, func(n *Node) bool {
		sc, ok := n.Item.(*Scene)
		if !ok || sc.BgImg == "" {
			return true
		}
		abs := sc.BgImg
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(fromDir, abs)
		}
		abs = filepath.Clean(abs)
		next := abs
		if rel, err := filepath.Rel(toDir, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			next = rel
		}
		if next != sc.BgImg {
			sc.BgImg = next
			changed++
		}
		return true
	})
	return changed
}
