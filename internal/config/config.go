package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/missive/pkg/auth"
	"github.com/JaimeStill/missive/pkg/broker"
	"github.com/JaimeStill/missive/pkg/database"
	"github.com/JaimeStill/missive/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvMissiveEnv             = "MISSIVE_ENV"
	EnvMissiveShutdownTimeout = "MISSIVE_SHUTDOWN_TIMEOUT"
	EnvMissiveVersion         = "MISSIVE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "MISSIVE_DB_HOST",
	Port:            "MISSIVE_DB_PORT",
	Name:            "MISSIVE_DB_NAME",
	User:            "MISSIVE_DB_USER",
	Password:        "MISSIVE_DB_PASSWORD",
	SSLMode:         "MISSIVE_DB_SSL_MODE",
	MaxOpenConns:    "MISSIVE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MISSIVE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MISSIVE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MISSIVE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:              "MISSIVE_STORAGE_PROVIDER",
	AzureContainerName:    "MISSIVE_STORAGE_AZURE_CONTAINER_NAME",
	AzureConnectionString: "MISSIVE_STORAGE_AZURE_CONNECTION_STRING",
	MinIOEndpoint:         "MISSIVE_STORAGE_MINIO_ENDPOINT",
	MinIOAccessKey:        "MISSIVE_STORAGE_MINIO_ACCESS_KEY",
	MinIOSecretKey:        "MISSIVE_STORAGE_MINIO_SECRET_KEY",
	MinIOBucket:           "MISSIVE_STORAGE_MINIO_BUCKET",
	MinIOUseSSL:           "MISSIVE_STORAGE_MINIO_USE_SSL",
}

var natsEnv = &broker.Env{
	Enabled:        "MISSIVE_NATS_ENABLED",
	URL:            "MISSIVE_NATS_URL",
	Name:           "MISSIVE_NATS_NAME",
	ConnectTimeout: "MISSIVE_NATS_CONNECT_TIMEOUT",
	ReconnectWait:  "MISSIVE_NATS_RECONNECT_WAIT",
	MaxReconnects:  "MISSIVE_NATS_MAX_RECONNECTS",
}

var authEnv = &auth.Env{
	Secret: "MISSIVE_AUTH_SECRET",
	Issuer: "MISSIVE_AUTH_ISSUER",
	Leeway: "MISSIVE_AUTH_LEEWAY",
}

// Config is the root configuration for the Missive service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	NATS            broker.Config   `toml:"nats"`
	Auth            auth.Config     `toml:"auth"`
	API             APIConfig       `toml:"api"`
	Letters         LettersConfig   `toml:"letters"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the MISSIVE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMissiveEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
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

// LoadDatabase reads the same files and environment as Load but finalizes
// only the database section. Tools that need a connection, such as the
// migrator, use it without supplying service secrets.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	return &cfg.Database, nil
}

func read() (*Config, error) {
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
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.NATS.Merge(&overlay.NATS)
	c.Auth.Merge(&overlay.Auth)
	c.API.Merge(&overlay.API)
	c.Letters.Merge(&overlay.Letters)
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
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.NATS.Finalize(natsEnv); err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Letters.Finalize(); err != nil {
		return fmt.Errorf("letters: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMissiveShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMissiveVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
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
	if env := os.Getenv(EnvMissiveEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
