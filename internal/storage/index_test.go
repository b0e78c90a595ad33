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
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openRaw(t *testing.T, root string) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)", filepath.ToSlash(IndexPath(root)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIndexInitCreatesWALAndMetaVersion(t *testing.T) {
	root := t.TempDir()
	if err := RebuildIndex(context.Background(), root, fixtureRoot(t)); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing at %s: %v", IndexPath(root), err)
	}
	db := openRaw(t, root)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','nodes','fts_nodes','snapshots')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 5 {
		t.Fatalf("expected 5 tables, got %d", cnt)
	}
	if v, err := SchemaVersion(ctx, db); err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d err %v, want %d", v, err, schemaVersion)
	}
}

func TestRebuildIndexRows(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := RebuildIndex(ctx, root, fixtureRoot(t)); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	db := openRaw(t, root)
	rows, err := db.QueryContext(ctx, `SELECT node_id, kind, role, depth, COALESCE(parent_id, 0) FROM nodes ORDER BY seq`)
	if err != nil {
		t.Fatalf("query nodes: %v", err)
	}
	defer rows.Close()
	type row struct {
		id     int
		kind   string
		role   string
		depth  int
		parent int
	}
	want := []row{
		{1, "Scene", "Child", 0, 0},
		{2, "Page", "Child", 1, 1},
		{3, "Mat", "Child", 2, 2},
		{4, "Mat", "Neighbor", 2, 2},
		{5, "Scene", "Neighbor", 0, 0},
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.kind, &r.role, &r.depth, &r.parent); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// a second rebuild replaces rather than appends
	if err := RebuildIndex(ctx, root, fixtureRoot(t).Child()); err != nil {
		t.Fatalf("second RebuildIndex error: %v", err)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 3 {
		t.Fatalf("expected 3 rows after rebuild from page subtree, got %d", cnt)
	}
}

func TestRebuildIndexEmptyTree(t *testing.T) {
	root := t.TempDir()
	if err := RebuildIndex(context.Background(), root, nil); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	res, err := Search(context.Background(), root, SearchQuery{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("expected no rows, got %v", res)
	}
}
