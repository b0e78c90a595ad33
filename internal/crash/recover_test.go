/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenariowriter/internal/scenario"
	"scenariowriter/internal/storage"
)

func silenceStderr(t *testing.T) {
	t.Helper()
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	})
}

func trapExit(t *testing.T) *int {
	t.Helper()
	code := -1
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = oldExit })
	return &code
}

func findBackup(t *testing.T, dir, prefix, suffix string) string {
	t.Helper()
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), suffix) {
			return filepath.Join(dir, f.Name())
		}
	}
	return ""
}

// TestRecoverWritesReportAndAutosave panics with an unsaved project in memory
// and expects both the crash log and a parseable autosave under backups/.
func TestRecoverWritesReportAndAutosave(t *testing.T) {
	silenceStderr(t)
	code := trapExit(t)

	root := t.TempDir()
	ph := &storage.ProjectHandle{Root: root, Path: filepath.Join(root, storage.DefaultProjectFileName)}
	ph.File.ParamSer.Param = storage.DefaultParams()
	scene := scenario.NewScene()
	scene.BgImg = "bg/unsaved.png"
	ph.File.SetRecords([]scenario.Record{{Item: scene, Role: scenario.RoleChild, ID: 1, Shape: scenario.ShapeLeaf}})

	func() {
		defer Recover(func() *storage.ProjectHandle { return ph })
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	bdir := filepath.Join(root, storage.BackupsDirName)
	report := findBackup(t, bdir, "crash-", ".log")
	if report == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	autosave := findBackup(t, bdir, storage.DefaultProjectFileName+".crash-", ".json")
	if autosave == "" {
		t.Fatalf("expected crash autosave under backups dir")
	}
	for _, want := range []string{"Panic: boom", "ProjectFile: " + ph.Path, "Records: 1", "Autosave: " + autosave} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("report lacks %q:\n%s", want, b)
		}
	}
	raw, err := os.ReadFile(autosave)
	if err != nil {
		t.Fatalf("read autosave: %v", err)
	}
	pf, err := storage.ParseProject(raw)
	if err != nil {
		t.Fatalf("autosave does not parse: %v", err)
	}
	if recs := pf.Records(); len(recs) != 1 || recs[0].Item.(*scenario.Scene).BgImg != "bg/unsaved.png" {
		t.Fatalf("autosave records = %+v", recs)
	}
	// the project file itself is untouched
	if _, err := os.Stat(ph.Path); !os.IsNotExist(err) {
		t.Fatalf("project file should not be written by a crash, stat err = %v", err)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	code := trapExit(t)
	root := t.TempDir()
	func() {
		defer Recover(func() *storage.ProjectHandle { return &storage.ProjectHandle{Root: root} })
	}()
	if *code != -1 {
		t.Fatalf("exit should not be called, got %d", *code)
	}
	if _, err := os.Stat(filepath.Join(root, storage.BackupsDirName)); !os.IsNotExist(err) {
		t.Fatalf("no backups dir expected, stat err = %v", err)
	}
}

func TestRecoverWithoutProject(t *testing.T) {
	silenceStderr(t)
	code := trapExit(t)
	func() {
		defer Recover(nil)
		panic(errors.New("no project"))
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
}

// The project is opened after the deferred call is set up, as in main.
func TestRecoverSeesProjectOpenedLater(t *testing.T) {
	silenceStderr(t)
	code := trapExit(t)
	root := t.TempDir()
	var current *storage.ProjectHandle
	func() {
		defer Recover(func() *storage.ProjectHandle { return current })
		current = &storage.ProjectHandle{Root: root, Path: filepath.Join(root, storage.DefaultProjectFileName)}
		current.File.ParamSer.Param = storage.DefaultParams()
		panic("late")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	bdir := filepath.Join(root, storage.BackupsDirName)
	if findBackup(t, bdir, "crash-", ".log") == "" {
		t.Fatalf("expected crash report under the late project's backups dir")
	}
}

func TestHandleReportsRecoveredValue(t *testing.T) {
	silenceStderr(t)
	code := trapExit(t)
	root := t.TempDir()
	ph := &storage.ProjectHandle{Root: root, Path: filepath.Join(root, storage.DefaultProjectFileName)}
	func() {
		defer func() {
			if r := recover(); r != nil {
				Handle(r, ph)
			}
		}()
		panic("handled")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	report := findBackup(t, filepath.Join(root, storage.BackupsDirName), "crash-", ".log")
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "Panic: handled") {
		t.Fatalf("report lacks panic value:\n%s", b)
	}
}
