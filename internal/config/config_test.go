package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadWithComments(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
		// HTTP server settings
		"server": {
			"address": ":9000"
		},
		/* wrapper settings */
		"codeagent": {
			"binary_path": "/opt/bin/codeagent-wrapper",
			"backend": "claude",
			"skip_permissions": true,
			"timeout_ms": 60000,
			"max_parallel_workers": 4
		},
		"models": {
			"models": {
				"sonnet": {"model": "claude-sonnet", "displayName": "Sonnet", "backend": "claude"}
			},
			"default": "sonnet"
		},
		"data": {"dir": "/var/lib/codeagentd"},
		"limits": {"rate_per_sec": 5, "rate_burst": 10, "fs_max_read_bytes": 1024}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("Address = %q", cfg.Server.Address)
	}
	if cfg.CodeAgent.BinaryPath != "/opt/bin/codeagent-wrapper" || cfg.CodeAgent.Backend != "claude" {
		t.Errorf("codeagent = %+v", cfg.CodeAgent)
	}
	if !cfg.CodeAgent.SkipPermissions || cfg.CodeAgent.TimeoutMs != 60000 || cfg.CodeAgent.MaxParallelWorkers != 4 {
		t.Errorf("codeagent = %+v", cfg.CodeAgent)
	}
	if cfg.Data.Dir != "/var/lib/codeagentd" {
		t.Errorf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.Limits.RatePerSec != 5 || cfg.Limits.RateBurst != 10 || cfg.Limits.FsMaxReadBytes != 1024 {
		t.Errorf("limits = %+v", cfg.Limits)
	}

	reg := cfg.ModelRegistry()
	if reg.Default != "sonnet" || !reg.HasModel("sonnet") {
		t.Errorf("registry = %+v", reg)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address != ":8089" {
		t.Errorf("default address = %q", cfg.Server.Address)
	}
	if cfg.CodeAgent.TimeoutMs != 7200000 {
		t.Errorf("default timeout = %d", cfg.CodeAgent.TimeoutMs)
	}
	if cfg.Data.Dir != "data" {
		t.Errorf("default data dir = %q", cfg.Data.Dir)
	}
	if cfg.Limits.RatePerSec != 10 || cfg.Limits.RateBurst != 20 {
		t.Errorf("default limits = %+v", cfg.Limits)
	}
	if cfg.Limits.FsMaxReadBytes != 10<<20 {
		t.Errorf("default fs read cap = %d", cfg.Limits.FsMaxReadBytes)
	}
	if cfg.Models.Models == nil {
		t.Error("Models map not initialized")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Address != ":8089" || cfg.Data.Dir != "data" {
		t.Errorf("Default() = %+v", cfg)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{ not json `)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted invalid JSON")
	}
}

func TestFindConfigPathExplicitDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{}`)

	path, err := FindConfigPath(dir)
	if err != nil {
		t.Fatalf("FindConfigPath: %v", err)
	}
	if !strings.HasSuffix(path, configFileName) {
		t.Errorf("path = %q", path)
	}

	if _, err := FindConfigPath(t.TempDir()); err == nil {
		t.Error("explicit dir without config file should fail")
	}
}

func TestFindConfigPathHomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	// Run from an empty directory so the project-local candidate misses
	work := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })

	cfgDir := filepath.Join(home, ".codeagentd", "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, cfgDir, `{}`)

	path, err := FindConfigPath("")
	if err != nil {
		t.Fatalf("FindConfigPath: %v", err)
	}
	if !strings.Contains(path, ".codeagentd") {
		t.Errorf("path = %q, want home fallback", path)
	}
}

func TestStripJSONComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"line comment", "{\"a\": 1} // trailing", "{\"a\": 1} "},
		{"block comment", "{/* hidden */\"a\": 1}", "{\"a\": 1}"},
		{"slashes inside string", `{"url": "http://example.com"}`, `{"url": "http://example.com"}`},
		{"comment marker inside string", `{"a": "not // a comment"}`, `{"a": "not // a comment"}`},
		{"escaped quote inside string", `{"a": "say \"hi\" // here"}`, `{"a": "say \"hi\" // here"}`},
		{"block comment keeps newlines", "{\n/* one\ntwo */\n\"a\": 1}", "{\n\n\n\"a\": 1}"},
		{"unterminated block comment", `{"a": 1} /* dangling`, `{"a": 1} `},
		{"no comments", `{"a": 1}`, `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(StripJSONComments([]byte(tt.input)))
			if got != tt.want {
				t.Errorf("StripJSONComments(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
