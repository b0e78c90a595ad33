/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and an autosave of the open project.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "scenariowriter/internal/log"
	"scenariowriter/internal/storage"
	"scenariowriter/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// ProjectFunc yields the project open at the time of the panic; it may return nil.
type ProjectFunc func() *storage.ProjectHandle

// Recover captures a panic, autosaves the in-memory project (if any),
// writes a report next to the project's backups and exits with code 2.
// It must be deferred directly, since recover only stops a panic when
// called by the deferred function itself.
//
// Usage: defer crash.Recover(func() *storage.ProjectHandle { return ph })
func Recover(project ProjectFunc) {
	r := recover()
	if r == nil {
		return
	}
	var ph *storage.ProjectHandle
	if project != nil {
		ph = project()
	}
	Handle(r, ph)
}

// Handle reports an already recovered panic value r and exits with code 2.
// Callers that recover themselves pass the value here.
func Handle(r any, ph *storage.ProjectHandle) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	var autosave string
	if ph != nil {
		path, err := storage.AutosaveCrashSnapshot(ph)
		if err != nil {
			l.Error("autosave crash snapshot failed", applog.Err(err))
		} else {
			autosave = path
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	reportPath, err := writeReport(ph, r, stack, autosave)
	if err != nil {
		l.Error("crash report not written", applog.Err(err), slog.String("path", reportPath))
	}
	msg := fmt.Sprintf("A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	if autosave != "" {
		msg += fmt.Sprintf("Unsaved changes were written to: %s\n", autosave)
	}
	msg += fmt.Sprintf("Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	if _, err := fmt.Fprint(os.Stderr, msg); err != nil {
		l.Error("failed to write crash message to stderr", applog.Err(err))
	}
	exitFn(2)
}

// reportDir is the project's backups directory, or the temp dir without a project.
func reportDir(ph *storage.ProjectHandle) string {
	if ph == nil || ph.Root == "" {
		return os.TempDir()
	}
	dir := filepath.Join(ph.Root, storage.BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

func renderReport(now time.Time, ph *storage.ProjectHandle, panicVal any, stack []byte, autosave string) []byte {
	var buf bytes.Buffer
	line := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format+"\n", args...) }
	line("scenariowriter Crash Report")
	line("Timestamp: %s", now.Format(time.RFC3339))
	line("Version: %s", version.String())
	line("OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		line("ProjectRoot: %s", ph.Root)
		line("ProjectFile: %s", ph.Path)
		line("Records: %d", len(ph.File.Records()))
	}
	if autosave != "" {
		line("Autosave: %s", autosave)
	}
	line("")
	line("Panic: %v", panicVal)
	line("")
	line("Stack:\n%s", stack)
	return buf.Bytes()
}

func writeReport(ph *storage.ProjectHandle, panicVal any, stack []byte, autosave string) (string, error) {
	now := time.Now()
	path := filepath.Join(reportDir(ph), fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))
	data := renderReport(now, ph, panicVal, stack, autosave)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return path, err
	}
	_ = f.Sync()
	return path, f.Close()
}
