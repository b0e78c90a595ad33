/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"scenariowriter/internal/scenario"
)

// SearchQuery describes a node search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Kinds restricts results to node kinds by name (e.g. "Mat", "Page").
// Limit/Offset implement pagination; Limit defaults to 100.
type SearchQuery struct {
	Text   string
	Kinds  []string
	Limit  int
	Offset int
}

// SearchResult represents a single matching node.
// Snippet holds a [ ]-highlighted excerpt when Text was used.
type SearchResult struct {
	NodeID  int
	Kind    string
	Depth   int
	Label   string
	Snippet string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it lists nodes in document order with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT n.node_id, n.kind, n.depth, COALESCE(n.label,''), snippet(fts_nodes, 0, '[', ']', '...', 10)\n")
		sb.WriteString("FROM fts_nodes JOIN nodes n ON fts_nodes.rowid = n.node_id\n")
		sb.WriteString("WHERE fts_nodes MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT n.node_id, n.kind, n.depth, COALESCE(n.label,''), ''\n")
		sb.WriteString("FROM nodes n\nWHERE 1=1\n")
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND n.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	sb.WriteString("ORDER BY n.seq\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.NodeID, &r.Kind, &r.Depth, &r.Label, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// language=SQL
// dialect=SQLite
const selectLabelNodesSQL = `SELECT node_id, kind, depth, label, label_type FROM nodes
	WHERE label = ? ORDER BY seq`

// LabelUse is a node carrying a label definition or reference.
type LabelUse struct {
	NodeID int
	Kind   string
	Depth  int
	Name   string
	Type   string
}

// FindLabelDefs returns the nodes defining or referencing the label name,
// definitions first.
func FindLabelDefs(ctx context.Context, projectRoot, name string) ([]LabelUse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("label name is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, selectLabelNodesSQL, name)
	if err != nil {
		return nil, fmt.Errorf("label query: %w", err)
	}
	defer rows.Close()
	var defs, refs []LabelUse
	for rows.Next() {
		var u LabelUse
		if err := rows.Scan(&u.NodeID, &u.Kind, &u.Depth, &u.Name, &u.Type); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if u.Type == scenario.LabelDef.String() {
			defs = append(defs, u)
		} else {
			refs = append(refs, u)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return append(defs, refs...), nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
