package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 4 || cfg.CacheMaxSize != 1<<30 || cfg.ZeroDisk {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "workers: 8\nzero_disk: true\nnode_id: 3\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 8 || !cfg.ZeroDisk || cfg.NodeID != 3 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.CacheMaxSize != 1<<30 {
		t.Fatalf("unset field lost its default: %+v", cfg)
	}
}

func TestLoad_RejectsUnparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workers: [not an int"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unparsable config accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"node id too large", func(c *Config) { c.NodeID = 8 }, true},
		{"negative node id", func(c *Config) { c.NodeID = -1 }, true},
		{"zero cache size", func(c *Config) { c.CacheMaxSize = 0 }, true},
		{"no cache dir on disk mode", func(c *Config) { c.CacheDir = "" }, true},
		{"no cache dir on zero disk", func(c *Config) { c.CacheDir = ""; c.ZeroDisk = true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
