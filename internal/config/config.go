// Package config loads the engine's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dxengine/internal/dxl"
)

// Config holds the tunables the engine needs from its environment.
type Config struct {
	// CacheDir is the root of the disk-backed cache.
	CacheDir string `yaml:"cache_dir"`

	// CacheMaxSize bounds the cache's content bytes.
	CacheMaxSize uint64 `yaml:"cache_max_size"`

	// ZeroDisk keeps the cache purely in memory (CI runs with no
	// persistent disk).
	ZeroDisk bool `yaml:"zero_disk"`

	// Workers is the task execution concurrency.
	Workers int `yaml:"workers"`

	// NodeID is this machine's vector clock slot for lockfile mutations.
	NodeID int `yaml:"node_id"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cacheDir := ".dx/cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".dx", "cache")
	}
	return Config{
		CacheDir:     cacheDir,
		CacheMaxSize: 1 << 30, // 1 GiB
		Workers:      4,
		NodeID:       0,
	}
}

// Load reads a YAML config file, layering it over the defaults. A missing
// file is not an error; an unparsable one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine cannot operate with.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.NodeID < 0 || c.NodeID >= dxl.NodeCount {
		return fmt.Errorf("node_id must be in [0, %d), got %d", dxl.NodeCount, c.NodeID)
	}
	if c.CacheMaxSize == 0 {
		return fmt.Errorf("cache_max_size must be > 0")
	}
	if !c.ZeroDisk && c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required unless zero_disk is set")
	}
	return nil
}
