/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"scenariowriter/internal/scenario"
	"scenariowriter/internal/storage"
)

// ErrNoProject is returned by file operations on an editor that was never
// created from or saved to a project file.
var ErrNoProject = errors.New("no project file")

// Create starts an empty document backed by a new project file at path.
func (ed *Editor) Create(path string, params storage.Params) error {
	ph, err := storage.Create(path, params)
	if err != nil {
		return err
	}
	ed.reset(scenario.NewTree())
	ed.ph = ph
	ed.log.Info("project created", slog.String("path", ph.Path))
	return nil
}

// Open loads the project file at path, replacing the current document.
func (ed *Editor) Open(path string) error {
	ph, err := storage.Open(path)
	if err != nil {
		return err
	}
	if err := ed.Load(ph.File.Records()); err != nil {
		return err
	}
	ed.ph = ph
	return nil
}

// Project returns the handle of the backing file, or nil.
func (ed *Editor) Project() *storage.ProjectHandle { return ed.ph }

func (ed *Editor) sync() error {
	if ed.ph == nil {
		return ErrNoProject
	}
	ed.ph.File.SetRecords(ed.Records())
	return nil
}

// Save writes the document to its project file.
func (ed *Editor) Save() error {
	if err := ed.sync(); err != nil {
		return err
	}
	if err := storage.Save(ed.ph); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	ed.log.Info("project saved", slog.String("path", ed.ph.Path))
	return nil
}

// SaveAs writes the document to path. Relative scene background paths are
// rewritten so they still point at the same files from the new location.
func (ed *Editor) SaveAs(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("save as: %w", err)
	}
	var prev *storage.ProjectHandle
	if ed.ph == nil {
		ed.ph = &storage.ProjectHandle{File: storage.ProjectFile{ParamSer: storage.ParamSer{Param: storage.DefaultParams()}}}
	} else {
		cp := *ed.ph
		prev = &cp
	}
	restore := keepSceneImages(ed.tree.Root())
	if ed.ph.Root != "" {
		n := scenario.RebaseSceneImages(ed.tree.Root(), ed.ph.Root, filepath.Dir(abs))
		ed.log.Debug("scene images rebased", slog.Int("changed", n))
	}
	ed.ph.File.SetRecords(ed.Records())
	if err := storage.SaveAs(ed.ph, abs); err != nil {
		// a failed save leaves the document bound to its old file
		if prev != nil {
			*ed.ph = *prev
		} else {
			ed.ph = nil
		}
		restore()
		return fmt.Errorf("save as: %w", err)
	}
	ed.log.Info("project saved", slog.String("path", ed.ph.Path))
	return nil
}

// keepSceneImages records every scene background path and returns a func
// that puts them back.
func keepSceneImages(root *scenario.Node) func() {
	saved := map[*scenario.Scene]string{}
	scenario.Walk(root, func(n *scenario.Node) bool {
		if sc, ok := n.Scene(); ok {
			saved[sc] = sc.BgImg
		}
		return true
	})
	return func() {
		for sc, img := range saved {
			sc.BgImg = img
		}
	}
}

// Reindex rebuilds the search index of the project from the current tree.
func (ed *Editor) Reindex(ctx context.Context) error {
	if ed.ph == nil {
		return ErrNoProject
	}
	return storage.RebuildIndex(ctx, ed.ph.Root, ed.tree.Root())
}

// Snapshot stores the current document in the project's snapshot table.
func (ed *Editor) Snapshot(ctx context.Context) (int64, error) {
	if err := ed.sync(); err != nil {
		return 0, err
	}
	return storage.SaveSnapshot(ctx, ed.ph, time.Now())
}
