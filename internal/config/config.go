// Package config loads AURA's process configuration (SPEC_FULL.md §4.16)
// from flags, `AURA_*` environment variables, and an optional `aura.yaml`
// in the workspace root — the same `gopkg.in/yaml.v3` format the teacher's
// own `internal/config/config.go` uses, in the same precedence order
// (flags override env, env overrides file, file overrides defaults).
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is AURA's full process configuration.
type Config struct {
	Provider   string `yaml:"provider"`    // "genai" | "openai_compat" | "mock"
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`

	MaxFixLines                     int `yaml:"max_fix_lines"`
	MaxBacktrackDepth               int `yaml:"max_backtrack_depth"`
	MaxDeliberationsWithoutProgress int `yaml:"max_deliberations_without_progress"`
	MaxDeliberations                int `yaml:"max_deliberations"`
	MaxRetries                      int `yaml:"max_retries"`

	CheckpointCapacity int    `yaml:"checkpoint_capacity"`
	SnapshotCapacity   int    `yaml:"snapshot_capacity"`
	SnapshotDir        string `yaml:"snapshot_dir"`
	UndoHistoryCap     int    `yaml:"undo_history_cap"`

	MemoryFile string `yaml:"memory_file"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the built-in defaults, mirroring the safety/snapshot
// package defaults (DefaultConfig/DefaultCapacity/DefaultMaxHistory).
func Default() Config {
	return Config{
		Provider:                         "mock",
		Model:                            "gemini-2.0-flash",
		MaxFixLines:                      50,
		MaxBacktrackDepth:                3,
		MaxDeliberationsWithoutProgress:  5,
		MaxDeliberations:                 20,
		MaxRetries:                       5,
		CheckpointCapacity:               20,
		SnapshotCapacity:                 50,
		SnapshotDir:                      ".aura/snapshots",
		UndoHistoryCap:                   100,
		MemoryFile:                       ".aura-memory.json",
		LogLevel:                         "info",
	}
}

// Load builds a Config from (in increasing precedence) defaults, an
// optional aura.yaml in workspaceDir, AURA_* environment variables, and
// finally the supplied overrides (typically bound to CLI flags by the
// caller — config itself has no cobra dependency).
func Load(workspaceDir string, overrides Config) (Config, error) {
	cfg := Default()

	yamlPath := filepath.Join(workspaceDir, "aura.yaml")
	if b, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	applyEnv(&cfg)
	applyOverrides(&cfg, overrides)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AURA_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("AURA_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("AURA_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("AURA_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("AURA_MEMORY_FILE"); v != "" {
		cfg.MemoryFile = v
	}
	if v := os.Getenv("AURA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := envInt("AURA_MAX_FIX_LINES"); v != nil {
		cfg.MaxFixLines = *v
	}
	if v := envInt("AURA_MAX_BACKTRACK_DEPTH"); v != nil {
		cfg.MaxBacktrackDepth = *v
	}
	if v := envInt("AURA_MAX_DELIBERATIONS_WITHOUT_PROGRESS"); v != nil {
		cfg.MaxDeliberationsWithoutProgress = *v
	}
	if v := envInt("AURA_MAX_DELIBERATIONS"); v != nil {
		cfg.MaxDeliberations = *v
	}
	if v := envInt("AURA_MAX_RETRIES"); v != nil {
		cfg.MaxRetries = *v
	}
}

func envInt(name string) *int {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// applyOverrides merges non-zero-value fields from overrides onto cfg, the
// way CLI flags should win over file/env configuration.
func applyOverrides(cfg *Config, overrides Config) {
	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}
	if overrides.APIKey != "" {
		cfg.APIKey = overrides.APIKey
	}
	if overrides.Model != "" {
		cfg.Model = overrides.Model
	}
	if overrides.BaseURL != "" {
		cfg.BaseURL = overrides.BaseURL
	}
	if overrides.MemoryFile != "" {
		cfg.MemoryFile = overrides.MemoryFile
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.MaxFixLines != 0 {
		cfg.MaxFixLines = overrides.MaxFixLines
	}
	if overrides.MaxBacktrackDepth != 0 {
		cfg.MaxBacktrackDepth = overrides.MaxBacktrackDepth
	}
	if overrides.MaxDeliberationsWithoutProgress != 0 {
		cfg.MaxDeliberationsWithoutProgress = overrides.MaxDeliberationsWithoutProgress
	}
	if overrides.MaxDeliberations != 0 {
		cfg.MaxDeliberations = overrides.MaxDeliberations
	}
	if overrides.MaxRetries != 0 {
		cfg.MaxRetries = overrides.MaxRetries
	}
	if overrides.CheckpointCapacity != 0 {
		cfg.CheckpointCapacity = overrides.CheckpointCapacity
	}
	if overrides.SnapshotCapacity != 0 {
		cfg.SnapshotCapacity = overrides.SnapshotCapacity
	}
	if overrides.SnapshotDir != "" {
		cfg.SnapshotDir = overrides.SnapshotDir
	}
	if overrides.UndoHistoryCap != 0 {
		cfg.UndoHistoryCap = overrides.UndoHistoryCap
	}
}
