// Package config loads the worldlens.yaml project configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in a project root.
const FileName = "worldlens.yaml"

// Environment overrides, applied after the file is read.
const (
	EnvEngine   = "WORLDLENS_ENGINE"
	EnvDatabase = "WORLDLENS_DB"
	EnvLogLevel = "WORLDLENS_LOG_LEVEL"
)

type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Engine    EngineConfig    `yaml:"engine"`
	Debounce  DebounceConfig  `yaml:"debounce"`
	Validator ValidatorConfig `yaml:"validator"`
	Database  string          `yaml:"database"`
	LogLevel  string          `yaml:"log_level"`
}

type EngineConfig struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

type DebounceConfig struct {
	Syntax  time.Duration `yaml:"syntax"`
	Compile time.Duration `yaml:"compile"`
}

type ValidatorConfig struct {
	// ScriptsDir overrides the embedded validation scripts when set.
	ScriptsDir string `yaml:"scripts_dir"`
	Script     string `yaml:"script"`
	Auto       bool   `yaml:"auto"`
}

// Default returns the configuration used when no file is present.
func Default() *ProjectConfig {
	return &ProjectConfig{
		Version:  1,
		Engine:   EngineConfig{Binary: "urd"},
		Debounce: DebounceConfig{Syntax: 50 * time.Millisecond, Compile: 300 * time.Millisecond},
		Validator: ValidatorConfig{
			Script: "world",
		},
		Database: ".worldlens/snapshots.db",
		LogLevel: "info",
	}
}

// LoadProjectConfig reads path over the defaults. A missing file yields the
// defaults. A .env file next to path is loaded into the environment first,
// then the WORLDLENS_* variables override the file.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("loading project config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if v := os.Getenv(EnvEngine); v != "" {
		cfg.Engine.Binary = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if err := validateProjectConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	return cfg, nil
}

// DatabasePath resolves the snapshot database relative to root.
func (c *ProjectConfig) DatabasePath(root string) string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(root, c.Database)
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Engine.Binary) == "" {
		return fmt.Errorf("engine binary is required")
	}
	if cfg.Debounce.Syntax <= 0 || cfg.Debounce.Compile <= 0 {
		return fmt.Errorf("debounce delays must be positive")
	}
	if cfg.Debounce.Syntax > cfg.Debounce.Compile {
		return fmt.Errorf("syntax debounce %s exceeds compile debounce %s", cfg.Debounce.Syntax, cfg.Debounce.Compile)
	}
	if strings.TrimSpace(cfg.Validator.Script) == "" {
		return fmt.Errorf("validator script is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return fmt.Errorf("database path is required")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.LogLevel)
	}
	return nil
}
