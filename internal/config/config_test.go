package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "spool:\n  paths: [/var/spool/shred]\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Shred.BlockSize != 8192 || cfg.Shred.ExtraMargin != 4096 {
		t.Errorf("unexpected write geometry: %+v", cfg.Shred)
	}
	if cfg.Shred.Workers != 5 || cfg.Shred.RenameCount != 3 {
		t.Errorf("unexpected worker/rename defaults: %+v", cfg.Shred)
	}
	if cfg.Interval() != 15*time.Minute {
		t.Errorf("Expected 15m interval, got %v", cfg.Interval())
	}
	if cfg.PrometheusAddress() != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.PrometheusAddress())
	}
	if err := cfg.ValidateForDaemon(); err != nil {
		t.Errorf("ValidateForDaemon failed: %v", err)
	}
}

func TestLoadCleansPaths(t *testing.T) {
	path := writeConfig(t, `
spool:
  paths: ["/var/spool/shred/../shred/"]
  min_age_minutes: 10
safety:
  allowed_roots: ["/srv/data/"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Spool.Paths[0] != "/var/spool/shred" {
		t.Errorf("spool path not cleaned: %s", cfg.Spool.Paths[0])
	}
	if cfg.Safety.AllowedRoots[0] != "/srv/data" {
		t.Errorf("allowed root not cleaned: %s", cfg.Safety.AllowedRoots[0])
	}
	if cfg.MinAge() != 10*time.Minute {
		t.Errorf("Expected 10m min age, got %v", cfg.MinAge())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"relative spool", "spool:\n  paths: [spool]\n", errInvalidPath},
		{"negative workers", "shred:\n  workers: -1\n", errNegative},
		{"bad extension", "shred:\n  extensions: [txt]\n", errInvalidExt},
		{"huge block", "shred:\n  block_size: 33554432\n", errBlockSizeTooBig},
		{"relative database", "database_path: erasures.db\n", errInvalidPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "scan_paths: [/tmp]\n"))
	if err == nil || !strings.Contains(err.Error(), "decode yaml") {
		t.Fatalf("Expected decode error, got %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected error for missing explicit config")
	}
}

func TestEmptyFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != Default().DatabasePath {
		t.Errorf("Expected default database path, got %s", cfg.DatabasePath)
	}
	if !errors.Is(cfg.ValidateForDaemon(), errNoSpoolPaths) {
		t.Error("Expected daemon validation to require spool paths")
	}
}
