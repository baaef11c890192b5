// Package config loads the service configuration from TOML files, an optional
// .env file, and FES_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/auth"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/cache"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/database"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"
	DotEnvFile           = ".env"

	EnvFesEnv             = "FES_ENV"
	EnvFesLogLevel        = "FES_LOG_LEVEL"
	EnvFesShutdownTimeout = "FES_SHUTDOWN_TIMEOUT"
	EnvFesVersion         = "FES_VERSION"
)

// DatabaseEnv names the variables that override the database section.
var DatabaseEnv = &database.Env{
	Host:            "FES_DB_HOST",
	Port:            "FES_DB_PORT",
	Name:            "FES_DB_NAME",
	User:            "FES_DB_USER",
	Password:        "FES_DB_PASSWORD",
	SSLMode:         "FES_DB_SSL_MODE",
	Schema:          "FES_DB_SCHEMA",
	MaxOpenConns:    "FES_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "FES_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "FES_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "FES_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "FES_STORAGE_CONTAINER_NAME",
	ConnectionString: "FES_STORAGE_CONNECTION_STRING",
	AccountURL:       "FES_STORAGE_ACCOUNT_URL",
	KeyPrefix:        "FES_STORAGE_KEY_PREFIX",
}

var cacheEnv = &cache.Env{
	Addr:        "FES_REDIS_ADDR",
	Username:    "FES_REDIS_USERNAME",
	Password:    "FES_REDIS_PASSWORD",
	DB:          "FES_REDIS_DB",
	TLS:         "FES_REDIS_TLS",
	DialTimeout: "FES_REDIS_DIAL_TIMEOUT",
}

var authEnv = &auth.Env{
	Mode:         "FES_AUTH_MODE",
	Secret:       "FES_AUTH_SECRET",
	Issuer:       "FES_AUTH_ISSUER",
	Audience:     "FES_AUTH_AUDIENCE",
	JWKSURL:      "FES_AUTH_JWKS_URL",
	SubjectClaim: "FES_AUTH_SUBJECT_CLAIM",
	ContactClaim: "FES_AUTH_CONTACT_CLAIM",
	EmailClaim:   "FES_AUTH_EMAIL_CLAIM",
}

// Config is the root configuration for the orchestration service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Cache           cache.Config    `toml:"cache"`
	Auth            auth.Config     `toml:"auth"`
	API             APIConfig       `toml:"api"`
	Documents       DocumentsConfig `toml:"documents"`
	LogLevel        string          `toml:"log_level"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the FES_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvFesEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	l.UnmarshalText([]byte(c.LogLevel))
	return l
}

// Load reads .env (if present), the base config (if present), applies any
// environment overlay, and finalizes all values. Variables already set in the
// process environment take precedence over .env entries.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase resolves only the database section from the same sources as
// Load. The migrate command uses it so schema changes do not require storage,
// cache, or auth settings.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(DatabaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	return &cfg.Database, nil
}

func read() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.Auth.Merge(&overlay.Auth)
	c.API.Merge(&overlay.API)
	c.Documents.Merge(&overlay.Documents)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Documents.Finalize(); err != nil {
		return fmt.Errorf("documents: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvFesLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvFesShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvFesVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvFesEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
