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

	"scenariowriter/internal/scenario"
)

// Handle captures where an entry sat at one moment: enough to put a node
// back there or to repeat an insertion next to it.
type Handle struct {
	Role  scenario.Role
	Entry *Entry
	Level *Level
	Depth int
	Size  int

	// ParentRow is the owner row one level up; at depth 0 it is Entry itself.
	ParentRow *Entry
	// ParentEntry is the entry Entry hangs off in the tree: ParentRow for a
	// first child, the previous entry of Level for a sibling.
	ParentEntry *Entry
	// ParentLevel is the level listing ParentRow.
	ParentLevel *Level
}

// HandleFor captures the current position of a listed entry.
func HandleFor(e *Entry) (Handle, error) {
	if e == nil || !e.Listed() {
		return Handle{}, fmt.Errorf("%w: entry is not listed", ErrStale)
	}
	l := e.level
	h := Handle{
		Role:  e.node.Role,
		Entry: e,
		Level: l,
		Depth: l.Depth(),
		Size:  l.Len(),
	}
	if h.Depth == 0 {
		h.ParentRow = e
	} else {
		h.ParentRow = l.owner
	}
	h.ParentLevel = h.ParentRow.level
	if h.Role == scenario.RoleSibling {
		if e.seq < 1 || e.seq > l.Len() {
			return Handle{}, fmt.Errorf("%w: sibling %v has no predecessor", ErrStale, e)
		}
		h.ParentEntry = l.items[e.seq-1]
	} else {
		h.ParentEntry = h.ParentRow
	}
	return h, nil
}
