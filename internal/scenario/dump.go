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
	"strings"
)

// Dump renders the tree as an indented outline, one node per line:
//
//	Scene#1 Scene:bg.png
//	  Page#2 Page:p1
func Dump(root *Node) string {
	var sb strings.Builder
	dumpChain(&sb, root, 0)
	return sb.String()
}

func dumpChain(sb *strings.Builder, first *Node, depth int) {
	for n := first; n != nil; n = n.sibling {
		fmt.Fprintf(sb, "%s%v %s", strings.Repeat("  ", depth), n, n.Summary())
		if l := n.Label(); l.Type != LabelNone {
			fmt.Fprintf(sb, " [%v %s]", l.Type, l.Name)
		}
		sb.WriteByte('\n')
		dumpChain(sb, n.child, depth+1)
	}
}
