/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenariowriter/internal/config"
)

const fixture = `{
  "param_ser": {"param": {"target_width": 1280, "target_height": 720, "project_dir": "", "project_file_name": "project.json", "export_dir": "rel", "bgimg_en": true}},
  "sn_ser": [
    {"value": {"type": "Scene", "bgimg": "bg/one.png"}, "bt": "Child", "id": 1, "has_n_and_c": "Both"},
    {"value": {"type": "Page", "name": "opening"}, "bt": "Child", "id": 2, "has_n_and_c": "Child"},
    {"value": {"type": "Mat", "text": "hello world", "lbl": "box", "lbl_type": "Def"}, "bt": "Child", "id": 3, "has_n_and_c": "Neighbor"},
    {"value": {"type": "Mat", "text": "goodbye moon", "lbl": "LABEL", "lbl_type": "Ref"}, "bt": "Neighbor", "id": 4, "has_n_and_c": "None"},
    {"value": {"type": "Scene", "bgimg": "bg/two.png"}, "bt": "Neighbor", "id": 5, "has_n_and_c": "None"}
  ]
}
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvLogFile, "")
	t.Setenv(config.EnvAutoExpand, "")
	t.Setenv(config.EnvHistoryLimit, "")
	return dir
}

func writeFixture(t *testing.T, dir, ref string) string {
	t.Helper()
	path := filepath.Join(dir, "work", "project.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Replace(fixture, "LABEL", ref, 1)), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func runCLI(t *testing.T, wantCode int, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	if code := run(args, &out, &errOut); code != wantCode {
		t.Fatalf("run %v = %d, want %d\nstdout:\n%s\nstderr:\n%s", args, code, wantCode, out.String(), errOut.String())
	}
	return out.String() + errOut.String()
}

func TestUsageErrors(t *testing.T) {
	dir := setupEnv(t)
	file := writeFixture(t, dir, "box")
	cases := [][]string{
		nil,
		{"bogus"},
		{"add", file},
		{"add", file, "1", "Nope"},
		{"rm", file, "zero"},
		{"mv", file, "1", "5", "sideways"},
		{"new", filepath.Join(dir, "x.json"), "wide", "720"},
	}
	for _, args := range cases {
		runCLI(t, exitUsage, args...)
	}
}

func TestVersion(t *testing.T) {
	setupEnv(t)
	if out := runCLI(t, exitOK, "version"); !strings.Contains(out, "0.1.0-dev") {
		t.Fatalf("version output = %q", out)
	}
}

func TestNewAddRemove(t *testing.T) {
	dir := setupEnv(t)
	file := filepath.Join(dir, "fresh", "project.json")
	runCLI(t, exitOK, "new", file, "800", "600")

	if out := runCLI(t, exitOK, "add", file, "-", "scene"); !strings.Contains(out, "Added Scene#1") {
		t.Fatalf("add root output = %q", out)
	}
	if out := runCLI(t, exitOK, "add", file, "1", "page"); !strings.Contains(out, "Added Page#2") {
		t.Fatalf("add page output = %q", out)
	}
	out := runCLI(t, exitOK, "dump", file)
	if !strings.HasPrefix(out, "Scene#1") || !strings.Contains(out, "Page#2") {
		t.Fatalf("dump after add:\n%s", out)
	}

	runCLI(t, exitOK, "rm", file, "2")
	if out := runCLI(t, exitOK, "dump", file); strings.Contains(out, "Page#2") {
		t.Fatalf("Page#2 should be gone:\n%s", out)
	}
	// a second root is refused while the document is not empty
	runCLI(t, exitError, "add", file, "-", "scene")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if len(cfg.General.RecentProjects) == 0 || cfg.General.RecentProjects[0] != file {
		t.Fatalf("recent projects = %v", cfg.General.RecentProjects)
	}
}

func TestMove(t *testing.T) {
	dir := setupEnv(t)
	file := writeFixture(t, dir, "box")
	runCLI(t, exitOK, "mv", file, "5", "1", "before")
	out := runCLI(t, exitOK, "dump", file)
	if !strings.HasPrefix(out, "Scene#5") {
		t.Fatalf("Scene#5 should lead the document:\n%s", out)
	}
	// a node cannot be dropped into its own subtree
	runCLI(t, exitError, "mv", file, "1", "3", "child")
}

func TestCheck(t *testing.T) {
	dir := setupEnv(t)
	if out := runCLI(t, exitOK, "check", writeFixture(t, dir, "box")); !strings.Contains(out, "OK") {
		t.Fatalf("check output = %q", out)
	}
	other := t.TempDir()
	out := runCLI(t, exitError, "check", writeFixture(t, other, "nowhere"))
	if !strings.Contains(out, `Unresolved label "nowhere" at Mat#4`) {
		t.Fatalf("check output = %q", out)
	}
}

func TestMissingProject(t *testing.T) {
	dir := setupEnv(t)
	runCLI(t, exitError, "dump", filepath.Join(dir, "absent", "project.json"))
}

func TestIndexSearchLabelSnapshot(t *testing.T) {
	dir := setupEnv(t)
	file := writeFixture(t, dir, "box")

	if out := runCLI(t, exitOK, "index", file); !strings.Contains(out, "Indexed 5 node(s)") {
		t.Fatalf("index output = %q", out)
	}
	out := runCLI(t, exitOK, "search", file, "hello")
	if !strings.Contains(out, "Mat#3") || !strings.Contains(out, "1 match(es)") {
		t.Fatalf("search output = %q", out)
	}

	out = runCLI(t, exitOK, "label", file, "box")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Def\tMat#3") || !strings.HasPrefix(lines[1], "Ref\tMat#4") {
		t.Fatalf("label output = %q", out)
	}
	runCLI(t, exitError, "label", file, "missing")

	if out := runCLI(t, exitOK, "snapshot", file); !strings.Contains(out, "Snapshot 1 stored") {
		t.Fatalf("snapshot output = %q", out)
	}
}
