package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration for database operations
type Config struct {
	// PostgreSQL
	PostgresURI     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Embedded SQLite
	SQLitePath string
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		config = loadConfig(viper.New())
	})
	return config
}

func loadConfig(v *viper.Viper) *Config {
	v.SetDefault("POSTGRES_URI", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "1m")
	v.SetDefault("SQLITE_PATH", "scripture.db")
	v.AutomaticEnv()

	return &Config{
		PostgresURI:     v.GetString("POSTGRES_URI"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
	}
}
