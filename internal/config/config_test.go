package config

import (
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(viper.New())

	if cfg.APIPrefix != "/api/v1" || cfg.Port != "8081" {
		t.Fatalf("unexpected api defaults: %q %q", cfg.APIPrefix, cfg.Port)
	}
	if cfg.StorageBackend != StorageNone || cfg.SearchDefaultLimit != 100 || cfg.SearchMaxLimit != 500 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SearchTimeout != 10*time.Second {
		t.Fatalf("SearchTimeout = %v", cfg.SearchTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || len(cfg.CorpusPaths) != 0 {
		t.Fatalf("unexpected lists: %v %v", cfg.CORSOrigins, cfg.CorpusPaths)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("CORPUS_PATHS", `["corpus/kjv.xml.xz", "corpus/web.json"]`)
	t.Setenv("SEARCH_MAX_LIMIT", "50")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "20")
	t.Setenv("SEARCH_TIMEOUT", "250ms")

	cfg := Load(viper.New())
	if cfg.StorageBackend != StorageSQLite {
		t.Fatalf("StorageBackend = %q", cfg.StorageBackend)
	}
	if len(cfg.CorpusPaths) != 2 || cfg.CorpusPaths[1] != "corpus/web.json" {
		t.Fatalf("CorpusPaths = %v", cfg.CorpusPaths)
	}
	if cfg.SearchMaxLimit != 50 || cfg.SearchDefaultLimit != 20 || cfg.SearchTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected search settings: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"postgres without uri", func(c *Config) { c.StorageBackend = StoragePostgres }},
		{"unknown backend", func(c *Config) { c.StorageBackend = "mongo" }},
		{"default above max", func(c *Config) { c.SearchDefaultLimit = 900 }},
		{"zero max", func(c *Config) { c.SearchMaxLimit = 0 }},
	}
	for _, tc := range cases {
		cfg := Load(viper.New())
		tc.mod(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLevel(t *testing.T) {
	cases := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"warning": log.WARN,
		"error":   log.ERROR,
		"":        log.INFO,
		"verbose": log.INFO,
	}
	for name, want := range cases {
		cfg := &Config{LogLevel: name}
		if got := cfg.Level(); got != want {
			t.Errorf("Level(%q) = %v, want %v", name, got, want)
		}
	}
}
