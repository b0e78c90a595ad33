/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scenario

import "strings"

// Per-kind accessors used by attribute editors. Getters return nil/false
// when the node holds another kind.

func (n *Node) Scene() (*Scene, bool) {
	s, ok := n.Item.(*Scene)
	return s, ok
}

func (n *Node) Page() (*Page, bool) {
	p, ok := n.Item.(*Page)
	return p, ok
}

// Mat returns the mat fields of a Mat or Pmat node.
func (n *Node) Mat() (*Mat, bool) {
	switch it := n.Item.(type) {
	case *Mat:
		return it, true
	case *Pmat:
		return &it.Mat, true
	}
	return nil, false
}

func (n *Node) Ovimg() (*Ovimg, bool) {
	o, ok := n.Item.(*Ovimg)
	return o, ok
}

// Label returns the label slot. Kinds without one report a zero Label.
func (n *Node) Label() Label {
	if s, ok := n.Scene(); ok {
		return labelOf(s.LabelName, s.LabelType)
	}
	if m, ok := n.Mat(); ok {
		return labelOf(m.LabelName, m.LabelType)
	}
	return Label{}
}

func labelOf(name string, t LabelType) Label {
	if name == "" {
		return Label{}
	}
	return Label{Type: t, Name: name}
}

// SetLabel stores l. It reports false for kinds without a label slot.
func (n *Node) SetLabel(l Label) bool {
	if l.Name == "" {
		l = Label{}
	}
	if s, ok := n.Scene(); ok {
		s.LabelName, s.LabelType = l.Name, l.Type
		return true
	}
	if m, ok := n.Mat(); ok {
		m.LabelName, m.LabelType = l.Name, l.Type
		return true
	}
	return false
}

func (n *Node) MatRect() (Rect, bool) {
	m, ok := n.Mat()
	if !ok {
		return Rect{}, false
	}
	return Rect{Pos: m.Pos, Dim: m.Dim}, true
}

func (n *Node) SetMatRect(r Rect) bool {
	m, ok := n.Mat()
	if !ok {
		return false
	}
	m.Pos, m.Dim = r.Pos, r.Dim
	return true
}

// ResolvedMatRect returns the rect the renderer uses: a Ref takes its
// position and size from the definition it points at.
func (n *Node) ResolvedMatRect() (Rect, bool) {
	if n.Label().Type == LabelRef {
		if def := SearchDefLabel(n); def != nil {
			return def.MatRect()
		}
	}
	return n.MatRect()
}

// Summary is a short one-line description shown in outlines.
func (n *Node) Summary() string {
	switch it := n.Item.(type) {
	case *Group:
		return "Group"
	case *Scene:
		return "Scene:" + it.BgImg
	case *Page:
		return "Page:" + it.Name
	case *Mat:
		return "Mat:" + oneLine(it.Text)
	case *Pmat:
		return "Pmat:" + oneLine(it.Text)
	case *Ovimg:
		return "Ovimg:" + it.Path
	}
	return n.Kind().String()
}

func oneLine(s string) string { return strings.ReplaceAll(s, "\n", "") }
