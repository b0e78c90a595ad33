/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	RecentProjects []string `yaml:"recent_projects"`
	MaxRecent      int      `yaml:"max_recent"`
}

type EditorConfig struct {
	HistoryLimit int    `yaml:"history_limit"`
	AutoExpand   bool   `yaml:"auto_expand"`
	TargetWidth  int    `yaml:"target_width"`
	TargetHeight int    `yaml:"target_height"`
	ExportDir    string `yaml:"export_dir"`
	BgImgEnabled bool   `yaml:"bgimg_enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{MaxRecent: 10},
		Editor: EditorConfig{
			HistoryLimit: 500,
			AutoExpand:   true,
			TargetWidth:  1920,
			TargetHeight: 1080,
			ExportDir:    "rel",
			BgImgEnabled: true,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath   = "SCW_CONFIG"
	EnvHistoryLimit = "SCW_HISTORY_LIMIT"
	EnvAutoExpand   = "SCW_AUTO_EXPAND"
	EnvExportDir    = "SCW_EXPORT_DIR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SCW_LOG_LEVEL"
	EnvLogFormat = "SCW_LOG_FORMAT"
	EnvLogSource = "SCW_LOG_SOURCE"
	EnvLogFile   = "SCW_LOG_FILE"
)

// ConfigPath returns the per-user config file path. SCW_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ScenarioWriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ScenarioWriter")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "scenariowriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "scenariowriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A file that does not parse is ignored.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// AddRecent moves path to the front of the recent projects list.
func (c *AppConfig) AddRecent(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	list := slices.DeleteFunc(c.General.RecentProjects, func(p string) bool { return p == path })
	list = append([]string{path}, list...)
	limit := c.General.MaxRecent
	if limit <= 0 {
		limit = Defaults().General.MaxRecent
	}
	if len(list) > limit {
		list = list[:limit]
	}
	c.General.RecentProjects = list
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.RecentProjects != nil {
		dst.General.RecentProjects = src.General.RecentProjects
	}
	if src.General.MaxRecent > 0 {
		dst.General.MaxRecent = src.General.MaxRecent
	}
	// editor
	if src.Editor.HistoryLimit != 0 {
		dst.Editor.HistoryLimit = src.Editor.HistoryLimit
	}
	if src.Editor.TargetWidth > 0 {
		dst.Editor.TargetWidth = src.Editor.TargetWidth
	}
	if src.Editor.TargetHeight > 0 {
		dst.Editor.TargetHeight = src.Editor.TargetHeight
	}
	if s := strings.TrimSpace(src.Editor.ExportDir); s != "" {
		dst.Editor.ExportDir = s
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Editor.AutoExpand = src.Editor.AutoExpand
	dst.Editor.BgImgEnabled = src.Editor.BgImgEnabled
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvHistoryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Editor.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutoExpand)); v != "" {
		cfg.Editor.AutoExpand = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDir)); v != "" {
		cfg.Editor.ExportDir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"editor.history_limit": EnvHistoryLimit,
		"editor.auto_expand":   EnvAutoExpand,
		"editor.export_dir":    EnvExportDir,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
