// Package config loads the codeagentd.jsonc configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the single configuration file format for codeagentd.jsonc
type Config struct {
	Server    ServerSection    `json:"server"`
	CodeAgent CodeAgentSection `json:"codeagent"`
	Models    ModelsSection    `json:"models"`
	Data      DataSection      `json:"data"`
	Limits    LimitsSection    `json:"limits"`
}

// ServerSection contains HTTP server configuration
type ServerSection struct {
	Address string `json:"address"`
}

// CodeAgentSection configures how the wrapper binary is located and run
type CodeAgentSection struct {
	BinaryPath         string `json:"binary_path"` // Explicit wrapper path; empty means search
	Backend            string `json:"backend"`     // Explicit backend tag; empty means derive
	Workdir            string `json:"workdir"`
	SkipPermissions    bool   `json:"skip_permissions"`
	TimeoutMs          int64  `json:"timeout_ms"`
	MaxParallelWorkers int    `json:"max_parallel_workers"`
}

// ModelsSection contains model definitions and the default selection
type ModelsSection struct {
	Models  map[string]ModelDefinition `json:"models"`
	Default string                     `json:"default"`
}

// DataSection configures on-disk storage locations
type DataSection struct {
	Dir string `json:"dir"`
}

// LimitsSection contains request rate and file size limits
type LimitsSection struct {
	RatePerSec     float64 `json:"rate_per_sec"`
	RateBurst      int     `json:"rate_burst"`
	FsMaxReadBytes int64   `json:"fs_max_read_bytes"`
}

const configFileName = "codeagentd.jsonc"

// FindConfigPath returns the path to codeagentd.jsonc using precedence:
// 1. configDir + /codeagentd.jsonc (if configDir specified)
// 2. ./config/codeagentd.jsonc (project-local)
// 3. ~/.codeagentd/config/codeagentd.jsonc (user global)
func FindConfigPath(configDir string) (string, error) {
	if configDir != "" {
		path := filepath.Join(configDir, configFileName)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s not found in %s", configFileName, configDir)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return path, nil
		}
		return abs, nil
	}

	candidates := []string{
		filepath.Join("config", configFileName),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".codeagentd", "config", configFileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("%s not found; tried: %v", configFileName, candidates)
}

// Load reads and parses configuration from a codeagentd.jsonc file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}

	jsonData := StripJSONComments(data)

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8089"
	}

	if cfg.CodeAgent.TimeoutMs == 0 {
		cfg.CodeAgent.TimeoutMs = 7200000 // 2 hours
	}

	if cfg.Models.Models == nil {
		cfg.Models.Models = make(map[string]ModelDefinition)
	}

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}

	if cfg.Limits.RatePerSec == 0 {
		cfg.Limits.RatePerSec = 10
	}
	if cfg.Limits.RateBurst == 0 {
		cfg.Limits.RateBurst = 20
	}
	if cfg.Limits.FsMaxReadBytes == 0 {
		cfg.Limits.FsMaxReadBytes = 10 << 20
	}
}

// ModelRegistry returns the registry built from the models section
func (c *Config) ModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		Models:  c.Models.Models,
		Default: c.Models.Default,
	}
}
