// Package config resolves runtime settings and the room type table.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the process settings read from the environment.
type Config struct {
	Port          string
	StoreDriver   string
	Postgres      PostgresConfig
	RedisURL      string
	StoreTimeout  time.Duration
	LockTTL       time.Duration
	JWTSecret     string
	RoomTypesFile string
	Production    bool
}

// PostgresConfig holds connection settings for the room store.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Verbose  bool
	Migrate  bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: .env file not loaded, using process environment")
	}
	cfg := FromViper(newViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "user")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_DATABASE", "pairlabdb")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("VERBOSE_POSTGRES", false)
	v.SetDefault("MIGRATE_POSTGRES", true)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("STORE_TIMEOUT", 5*time.Second)
	v.SetDefault("LOCK_TTL", 10*time.Second)
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("ROOM_TYPES_FILE", "")
	v.SetDefault("PROD", false)
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetString("PORT"),
		StoreDriver: v.GetString("STORE_DRIVER"),
		Postgres: PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Database: v.GetString("POSTGRES_DATABASE"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
			Verbose:  v.GetBool("VERBOSE_POSTGRES"),
			Migrate:  v.GetBool("MIGRATE_POSTGRES"),
		},
		RedisURL:      v.GetString("REDIS_URL"),
		StoreTimeout:  v.GetDuration("STORE_TIMEOUT"),
		LockTTL:       v.GetDuration("LOCK_TTL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		RoomTypesFile: v.GetString("ROOM_TYPES_FILE"),
		Production:    v.GetBool("PROD"),
	}
}
