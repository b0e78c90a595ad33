/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor ties the scenario tree, its outline and the edit history
// together behind the operations a UI or the CLI issues.
package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"scenariowriter/internal/history"
	applog "scenariowriter/internal/log"
	"scenariowriter/internal/outline"
	"scenariowriter/internal/scenario"
	"scenariowriter/internal/storage"
)

var (
	ErrNoSelection = errors.New("no selection")
	// ErrRefused is returned when the tree grammar does not allow an edit.
	ErrRefused = errors.New("edit refused")
)

type Config struct {
	HistoryLimit int
	AutoExpand   bool
}

func DefaultConfig() Config {
	return Config{HistoryLimit: 500, AutoExpand: true}
}

// Editor owns one document. Every structural edit goes through it so that
// the outline and the history stay in step with the tree.
type Editor struct {
	cfg       Config
	tree      *scenario.Tree
	out       *outline.Outline
	hist      *history.History
	listeners []func(outline.Change)
	ph        *storage.ProjectHandle
	log       *slog.Logger
}

func New(cfg Config) *Editor {
	ed := &Editor{cfg: cfg, log: applog.WithComponent("editor")}
	ed.reset(scenario.NewTree())
	return ed
}

func (ed *Editor) reset(t *scenario.Tree) {
	ed.tree = t
	ed.out = outline.New(t, outline.Options{AutoExpand: ed.cfg.AutoExpand})
	for _, fn := range ed.listeners {
		ed.out.OnChange(fn)
	}
	ed.hist = history.New(ed.out, history.Config{MaxEntries: ed.cfg.HistoryLimit})
}

// Load replaces the document with the decoded records and clears history.
func (ed *Editor) Load(recs []scenario.Record) error {
	t, err := scenario.DecodeTree(recs)
	if err != nil {
		ed.log.Error("decode failed", applog.Err(err))
		return fmt.Errorf("load: %w", err)
	}
	ed.reset(t)
	ed.log.Info("document loaded", slog.Int("nodes", scenario.Len(t.Root())))
	return nil
}

// Records encodes the current tree.
func (ed *Editor) Records() []scenario.Record { return scenario.Encode(ed.tree.Root()) }

func (ed *Editor) Tree() *scenario.Tree      { return ed.tree }
func (ed *Editor) Outline() *outline.Outline { return ed.out }
func (ed *Editor) History() *history.History { return ed.hist }

// OnChange registers fn on the outline, also across Load.
func (ed *Editor) OnChange(fn func(outline.Change)) {
	ed.listeners = append(ed.listeners, fn)
	ed.out.OnChange(fn)
}

// Entry returns the visible entry of the node with the given ID.
func (ed *Editor) Entry(id int) (*outline.Entry, error) {
	n := scenario.FindByID(ed.tree.Root(), id)
	if n == nil {
		return nil, fmt.Errorf("node %d not found", id)
	}
	return ed.out.Locate(n)
}

func (ed *Editor) Undo() (bool, error) { return ed.hist.Undo() }
func (ed *Editor) Redo() (bool, error) { return ed.hist.Redo() }

func refused(err error) error {
	if errors.Is(err, outline.ErrRefused) {
		return fmt.Errorf("%w: %v", ErrRefused, err)
	}
	return err
}

// Remove detaches the selected node and its subtree.
func (ed *Editor) Remove(sel *outline.Entry) error {
	if sel == nil {
		return ErrNoSelection
	}
	h, err := outline.HandleFor(sel)
	if err != nil {
		return err
	}
	if err := ed.out.RemoveNode(h.Level, sel); err != nil {
		return err
	}
	ed.hist.Push(history.Entry{Op: history.OpRemove, Src: h})
	ed.log.Debug("removed", slog.Int("id", sel.Node().ID))
	return nil
}
