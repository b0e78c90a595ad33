/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "scenariowriter/internal/log"
	"scenariowriter/internal/scenario"
)

const (
	DefaultProjectFileName = "project.json"
	BackupsDirName         = "backups"
)

// Params are the document-wide settings stored next to the node records.
type Params struct {
	TargetWidth     int    `json:"target_width"`
	TargetHeight    int    `json:"target_height"`
	ProjectDir      string `json:"project_dir"`
	ProjectFileName string `json:"project_file_name"`
	ExportDir       string `json:"export_dir"`
	BgImgEnabled    bool   `json:"bgimg_en"`
}

func DefaultParams() Params {
	return Params{
		ProjectFileName: DefaultProjectFileName,
		ExportDir:       "rel",
		BgImgEnabled:    true,
	}
}

type ParamSer struct {
	Param Params `json:"param"`
}

// ProjectFile is the persisted document. Nodes is nil for an empty tree.
type ProjectFile struct {
	ParamSer ParamSer           `json:"param_ser"`
	Nodes    *[]scenario.Record `json:"sn_ser"`
}

func (p ProjectFile) Params() Params { return p.ParamSer.Param }

// Records returns the node records, or nil for an empty document.
func (p ProjectFile) Records() []scenario.Record {
	if p.Nodes == nil {
		return nil
	}
	return *p.Nodes
}

// SetRecords stores recs; an empty slice is written as null.
func (p *ProjectFile) SetRecords(recs []scenario.Record) {
	if len(recs) == 0 {
		p.Nodes = nil
		return
	}
	cp := append([]scenario.Record(nil), recs...)
	p.Nodes = &cp
}

// ProjectHandle keeps track of one project file on disk.
// Root is the directory holding the file, its backups and the index.
type ProjectHandle struct {
	Root string
	Path string
	File ProjectFile
}

func newHandle(path string) (*ProjectHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("project path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	return &ProjectHandle{Root: filepath.Dir(abs), Path: abs}, nil
}

// Create writes a new empty project file at path (creating its directory).
func Create(path string, params Params) (*ProjectHandle, error) {
	ph, err := newHandle(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(ph.Root, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	ph.File.ParamSer.Param = params
	if err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// Open loads an existing project file.
// If it cannot be read, validated or parsed, the latest backup is tried.
func Open(path string) (*ProjectHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	ph, err := newHandle(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(ph.Path)
	if err == nil {
		var pf ProjectFile
		if pf, err = ParseProject(b); err == nil {
			ph.File = pf
			return ph, nil
		}
	}
	l.Warn("project unreadable, trying backup", applog.Err(err))
	pf, berr := openFromLatestBackup(ph)
	if berr != nil {
		return nil, fmt.Errorf("open project: %w; backup attempt: %v", err, berr)
	}
	ph.File = *pf
	l.Info("project restored from backup")
	return ph, nil
}

// ParseProject validates b against the project schema and decodes it.
func ParseProject(b []byte) (ProjectFile, error) {
	var pf ProjectFile
	if err := ValidateProject(b); err != nil {
		return pf, err
	}
	if err := json.Unmarshal(b, &pf); err != nil {
		return pf, fmt.Errorf("parse project: %w", err)
	}
	return pf, nil
}

// Save writes ph.File with transactional semantics and a timestamped
// backup of the previous file (if present).
func Save(ph *ProjectHandle) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.Path == "" {
		return errors.New("invalid ProjectHandle: missing paths")
	}
	ph.File.ParamSer.Param.ProjectDir = ph.Root
	ph.File.ParamSer.Param.ProjectFileName = filepath.Base(ph.Path)

	data, err := json.MarshalIndent(ph.File, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(ph.Path), stamp))
		if cerr := copyFile(ph.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current project: %w", cerr)
		}
	}

	// temp file in the same directory, then rename over the target
	temp := filepath.Join(ph.Root, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(ph.Path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp project: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(ph.Path); err == nil {
		_ = os.Remove(ph.Path)
	}
	if rerr := os.Rename(temp, ph.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace project: %w", rerr)
	}
	return nil
}

// SaveAs points the handle at newPath and saves there.
func SaveAs(ph *ProjectHandle, newPath string) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	nh, err := newHandle(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(nh.Root, 0o755); err != nil {
		return fmt.Errorf("create new project dir: %w", err)
	}
	ph.Root, ph.Path = nh.Root, nh.Path
	return Save(ph)
}

// AutosaveCrashSnapshot writes the in-memory project next to the backups
// without touching the project file. It returns the written path.
func AutosaveCrashSnapshot(ph *ProjectHandle) (string, error) {
	if ph == nil || ph.Root == "" {
		return "", errors.New("invalid ProjectHandle")
	}
	data, err := json.MarshalIndent(ph.File, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", filepath.Base(ph.Path), stamp))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup parses the newest "<file>.<stamp>.bak" under backups/.
func openFromLatestBackup(ph *ProjectHandle) (*ProjectFile, error) {
	bdir := filepath.Join(ph.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(ph.Path) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	pf, err := ParseProject(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &pf, nil
}
