/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"strings"
	"testing"
)

func indexedFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := RebuildIndex(context.Background(), root, fixtureRoot(t)); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	return root
}

func ids(res []SearchResult) []int {
	out := make([]int, 0, len(res))
	for _, r := range res {
		out = append(out, r.NodeID)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchFullText(t *testing.T) {
	root := indexedFixture(t)
	ctx := context.Background()
	res, err := Search(ctx, root, SearchQuery{Text: "hello"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 || res[0].NodeID != 3 || res[0].Kind != "Mat" || res[0].Depth != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res[0].Snippet, "[hello]") {
		t.Fatalf("snippet not highlighted: %q", res[0].Snippet)
	}
	if res[0].Label != "box" {
		t.Fatalf("label = %q", res[0].Label)
	}

	res, err = Search(ctx, root, SearchQuery{Text: "bg"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := ids(res); !equalInts(got, []int{1, 5}) {
		t.Fatalf("bg matches = %v, want [1 5]", got)
	}
}

func TestSearchFiltersAndPaging(t *testing.T) {
	root := indexedFixture(t)
	ctx := context.Background()
	res, err := Search(ctx, root, SearchQuery{Kinds: []string{"Scene", "Page"}})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := ids(res); !equalInts(got, []int{1, 2, 5}) {
		t.Fatalf("kind filter = %v", got)
	}
	res, err = Search(ctx, root, SearchQuery{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := ids(res); !equalInts(got, []int{2, 3}) {
		t.Fatalf("paging = %v, want [2 3]", got)
	}
	res, err = Search(ctx, root, SearchQuery{Text: "moon OR world", Kinds: []string{"Mat"}})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := ids(res); !equalInts(got, []int{3, 4}) {
		t.Fatalf("boolean query = %v", got)
	}
}

func TestSearchRequiresRoot(t *testing.T) {
	if _, err := Search(context.Background(), " ", SearchQuery{Text: "x"}); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestFindLabelDefs(t *testing.T) {
	root := indexedFixture(t)
	uses, err := FindLabelDefs(context.Background(), root, "box")
	if err != nil {
		t.Fatalf("FindLabelDefs: %v", err)
	}
	if len(uses) != 2 {
		t.Fatalf("expected 2 label uses, got %+v", uses)
	}
	if uses[0].NodeID != 3 || uses[0].Type != "Def" || uses[1].NodeID != 4 || uses[1].Type != "Ref" {
		t.Fatalf("unexpected order: %+v", uses)
	}
	none, err := FindLabelDefs(context.Background(), root, "missing")
	if err != nil || len(none) != 0 {
		t.Fatalf("missing label: %v %v", none, err)
	}
}
