package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageNone     = "none"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// API Settings
	APITitle   string
	APIVersion string
	APIPrefix  string
	Port       string
	LogLevel   string

	// CORS
	CORSOrigins []string

	// Storage backend: "none", "postgres" or "sqlite"
	StorageBackend string
	PostgresURI    string
	SQLitePath     string

	// Corpus files or directories loaded at startup
	CorpusPaths []string

	// Text index location; empty keeps the index in memory
	IndexPath string

	// Search limits
	SearchDefaultLimit int
	SearchMaxLimit     int
	SearchTimeout      time.Duration
	RebuildConcurrency int

	// Change notifications; empty RedisURL disables them
	RedisURL     string
	RedisChannel string
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		config = Load(viper.New())
	})
	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_TITLE", "Sola Scriptura Text Search API")
	v.SetDefault("API_VERSION", "1.0.0")
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PORT", "8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("STORAGE_BACKEND", StorageNone)
	v.SetDefault("POSTGRES_URI", "")
	v.SetDefault("SQLITE_PATH", "scripture.db")
	v.SetDefault("CORPUS_PATHS", "")
	v.SetDefault("INDEX_PATH", "")
	v.SetDefault("SEARCH_DEFAULT_LIMIT", 100)
	v.SetDefault("SEARCH_MAX_LIMIT", 500)
	v.SetDefault("SEARCH_TIMEOUT", "10s")
	v.SetDefault("REBUILD_CONCURRENCY", 4)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_CHANNEL", "scripture:changes")
}

// Load reads configuration from the environment through v. Values already
// set on v take precedence over the environment.
func Load(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		APITitle:    v.GetString("API_TITLE"),
		APIVersion:  v.GetString("API_VERSION"),
		APIPrefix:   v.GetString("API_PREFIX"),
		Port:        v.GetString("PORT"),
		LogLevel:    strings.ToLower(v.GetString("LOG_LEVEL")),
		CORSOrigins: parseList(v.GetString("CORS_ORIGINS")),

		StorageBackend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		PostgresURI:    v.GetString("POSTGRES_URI"),
		SQLitePath:     v.GetString("SQLITE_PATH"),

		CorpusPaths: parseList(v.GetString("CORPUS_PATHS")),
		IndexPath:   v.GetString("INDEX_PATH"),

		SearchDefaultLimit: v.GetInt("SEARCH_DEFAULT_LIMIT"),
		SearchMaxLimit:     v.GetInt("SEARCH_MAX_LIMIT"),
		SearchTimeout:      v.GetDuration("SEARCH_TIMEOUT"),
		RebuildConcurrency: v.GetInt("REBUILD_CONCURRENCY"),

		RedisURL:     v.GetString("REDIS_URL"),
		RedisChannel: v.GetString("REDIS_CHANNEL"),
	}
}

// Validate checks settings that would otherwise fail at startup
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageNone, StorageSQLite:
	case StoragePostgres:
		if c.PostgresURI == "" {
			return fmt.Errorf("POSTGRES_URI is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.SearchMaxLimit <= 0 || c.SearchDefaultLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.SearchDefaultLimit > c.SearchMaxLimit {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT %d exceeds SEARCH_MAX_LIMIT %d", c.SearchDefaultLimit, c.SearchMaxLimit)
	}
	return nil
}

// Level maps LOG_LEVEL to the echo logger level; unknown names mean INFO
func (c *Config) Level() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// parseList accepts a JSON array or a comma separated list
func parseList(value string) []string {
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err == nil {
		return items
	}
	parts := strings.Split(value, ",")
	items = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
