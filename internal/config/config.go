// Package config loads settings shared by the diskmap binaries from a YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/freeeve/diskmap/internal/logx"
	"github.com/freeeve/diskmap/internal/store"
)

// Config holds settings for opening a store and serving it.
type Config struct {
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"`
	MaxDepth    int    `yaml:"max_depth"`
	LogLevel    string `yaml:"log_level"`
	Addr        string `yaml:"addr"`
	MaxBodySize int64  `yaml:"max_body_size"`
	IngestDir   string `yaml:"ingest_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Dir:         "./data/diskmap",
		Compression: string(store.CompressionGzip),
		MaxDepth:    store.DefaultMaxDepth,
		LogLevel:    "info",
		Addr:        ":8007",
		MaxBodySize: 64 << 20,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DISKMAP_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DISKMAP_DIR"); v != "" {
		c.Dir = v
	}
	if v := os.Getenv("DISKMAP_COMPRESSION"); v != "" {
		c.Compression = v
	}
	if v := os.Getenv("DISKMAP_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DISKMAP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DISKMAP_INGEST_DIR"); v != "" {
		c.IngestDir = v
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if _, err := store.ParseCompression(c.Compression); err != nil {
		return err
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if _, err := logx.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max_body_size must be >= 0, got %d", c.MaxBodySize)
	}
	return nil
}

// StoreConfig maps the settings onto a store configuration.
func (c Config) StoreConfig(logger *zerolog.Logger) (store.Config, error) {
	comp, err := store.ParseCompression(c.Compression)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Dir:         c.Dir,
		Compression: comp,
		MaxDepth:    c.MaxDepth,
		Logger:      logger,
	}, nil
}
