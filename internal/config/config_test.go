// # internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[scan]
roots = ["src", "components"]
exclude = ["**/vendor/**"]
jobs = 4

[rule]
ignores = ["state", "/^internal/"]
props_only_setup = false

[output]
format = "sarif"
path = "findings.sarif"

[baseline]
path = "base.db"

[watch]
debounce_ms = 150
rate_per_sec = 2.5
burst = 1

[telemetry]
metrics_listen = ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Scan.Roots) != 2 || cfg.Scan.Roots[0] != "src" {
		t.Errorf("unexpected roots: %v", cfg.Scan.Roots)
	}
	if cfg.Scan.Jobs != 4 {
		t.Errorf("expected jobs 4, got %d", cfg.Scan.Jobs)
	}
	if cfg.Rule.PropsOnlySetupEnabled() {
		t.Error("expected props_only_setup=false to disable the restriction")
	}
	if cfg.Output.Format != "sarif" {
		t.Errorf("expected format sarif, got %s", cfg.Output.Format)
	}
	if cfg.Baseline.Path != "base.db" {
		t.Errorf("expected baseline path base.db, got %s", cfg.Baseline.Path)
	}
	if cfg.Watch.DebounceMS != 150 {
		t.Errorf("expected debounce 150, got %d", cfg.Watch.DebounceMS)
	}
	if cfg.Telemetry.MetricsListen != ":9090" {
		t.Errorf("expected metrics listen :9090, got %s", cfg.Telemetry.MetricsListen)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Scan.Roots) != 1 || cfg.Scan.Roots[0] != "." {
		t.Errorf("expected default root '.', got %v", cfg.Scan.Roots)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("expected default format text, got %s", cfg.Output.Format)
	}
	if !cfg.Rule.PropsOnlySetupEnabled() {
		t.Error("expected props_only_setup to default to true")
	}
	if cfg.Watch.DebounceMS != 300 {
		t.Errorf("expected default debounce 300, got %d", cfg.Watch.DebounceMS)
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	path := writeConfig(t, `
[output]
format = "xml"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported output format")
	}
}

func TestLoadRejectsBadIgnoreRegex(t *testing.T) {
	path := writeConfig(t, `
[rule]
ignores = ["/((/"]
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid ignore regex")
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(root, DefaultFileName)
	if err := os.WriteFile(cfgPath, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := Discover(nested); got != cfgPath {
		t.Errorf("expected %s, got %s", cfgPath, got)
	}

	empty := t.TempDir()
	if got := Discover(empty); got != "" {
		t.Errorf("expected no config, got %s", got)
	}
}
