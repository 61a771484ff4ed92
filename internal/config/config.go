// Package config loads the application configuration. The file path comes
// from, in priority order:
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aanand-mishra/students-api/internal/password"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure. Every field maps to a YAML
// key and can be overridden by the environment variable in its env tag.
// Fields tagged env-required must be set in one of the two.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	Database   `yaml:"database"`
	HTTPServer `yaml:"http_server"`
	Session    `yaml:"session"`
	Password   `yaml:"password"`
}

// Database selects the SQL backend.
type Database struct {
	// Driver is "sqlite3" or "pgx".
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite3"`

	// DSN is a file path for sqlite3 or a postgres:// URL for pgx.
	DSN string `yaml:"dsn" env:"DB_DSN" env-required:"true"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// Session configures the server-side session store and its cookie.
type Session struct {
	// Backend is "memory" or "redis".
	Backend      string        `yaml:"backend"       env:"SESSION_BACKEND"   env-default:"memory"`
	CookieName   string        `yaml:"cookie_name"   env:"SESSION_COOKIE"    env-default:"students_session"`
	TTL          time.Duration `yaml:"ttl"           env:"SESSION_TTL"       env-default:"24h"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SESSION_SECURE"    env-default:"false"`
	RedisAddr    string        `yaml:"redis_addr"    env:"SESSION_REDIS_ADDR" env-default:"localhost:6379"`
	RedisDB      int           `yaml:"redis_db"      env:"SESSION_REDIS_DB"  env-default:"0"`
}

// Password holds the scrypt cost parameters for new hashes.
// Existing hashes carry their own parameters.
type Password struct {
	LogN        uint8 `yaml:"ln" env:"PASSWORD_LN" env-default:"15"`
	R           int   `yaml:"r"  env:"PASSWORD_R"  env-default:"8"`
	Parallelism int   `yaml:"p"  env:"PASSWORD_P"  env-default:"1"`
}

// Scrypt returns the hasher settings for p, keeping the default salt and
// key lengths.
func (p Password) Scrypt() password.Config {
	cfg := password.DefaultConfig()
	cfg.LogN = p.LogN
	cfg.R = p.R
	cfg.Parallelism = p.Parallelism
	return cfg
}

// Validate rejects combinations cleanenv cannot express with tags.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported session backend: %q", c.Session.Backend)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Session.TTL)
	}

	if _, err := password.New(c.Password.Scrypt()); err != nil {
		return fmt.Errorf("password: %w", err)
	}

	return nil
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// Environment variables override the file; env-required fields
	// missing from both fail here.
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path from CONFIG_PATH or --config and
// exits the process if the file is missing or invalid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
