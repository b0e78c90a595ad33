/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scenario holds the scenario tree: node kinds and their nesting grammar,
// the first-child/next-sibling node structure with its mutation primitives,
// and the flat record codec used for persistence.
package scenario

import (
	"fmt"
	"strings"
)

// Kind identifies the variant carried by a node.
type Kind int

const (
	KindGroup Kind = iota
	KindScene
	KindPage
	KindMat
	KindOvimg
	KindPmat

	kindCount
)

var kindNames = [kindCount]string{"Group", "Scene", "Page", "Mat", "Ovimg", "Pmat"}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindGroup, KindScene, KindPage, KindMat, KindOvimg, KindPmat}
}

func (k Kind) Valid() bool { return k >= 0 && k < kindCount }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// IsMatFamily reports whether k is Mat or Pmat.
func (k Kind) IsMatFamily() bool { return k == KindMat || k == KindPmat }

// IsPageFamily reports whether k is Page or Pmat.
func (k Kind) IsPageFamily() bool { return k == KindPage || k == KindPmat }

type kindTable [kindCount][kindCount]bool

func (t *kindTable) allow(a Kind, bs ...Kind) {
	for _, b := range bs {
		t[a][b] = true
	}
}

func (t *kindTable) get(a, b Kind) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return t[a][b]
}

var childTable, siblingTable, autoTable kindTable

func init() {
	childTable.allow(KindGroup, KindGroup, KindScene)
	childTable.allow(KindScene, KindPage, KindPmat, KindMat)
	childTable.allow(KindPage, KindMat, KindOvimg)

	siblingTable.allow(KindGroup, KindGroup, KindScene)
	siblingTable.allow(KindScene, KindGroup, KindScene)
	siblingTable.allow(KindPage, KindPage, KindPmat)
	siblingTable.allow(KindMat, KindPmat, KindMat, KindOvimg)
	siblingTable.allow(KindOvimg, KindMat, KindOvimg)
	siblingTable.allow(KindPmat, KindPage, KindPmat, KindMat)

	autoTable.allow(KindGroup, KindGroup, KindScene)
	autoTable.allow(KindScene, KindGroup, KindScene, KindPage, KindMat, KindPmat)
	autoTable.allow(KindPage, Kinds()...)
	autoTable.allow(KindMat, Kinds()...)
	autoTable.allow(KindOvimg, Kinds()...)
	autoTable.allow(KindPmat, KindGroup, KindScene, KindPage, KindPmat)
}

// CanBeChild reports whether a node of kind c may be a child of a node of kind p.
func CanBeChild(p, c Kind) bool { return childTable.get(p, c) }

// CanBeSibling reports whether a node of kind b may directly follow a node of kind a.
func CanBeSibling(a, b Kind) bool { return siblingTable.get(a, b) }

// CanBeSiblingOrChildAuto reports whether b can be placed next to a at all,
// with the add rules picking the relation. Used to gray out add actions.
func CanBeSiblingOrChildAuto(a, b Kind) bool { return autoTable.get(a, b) }
