package broker

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds NATS connection settings.
type Config struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	Name           string `toml:"name"`
	ConnectTimeout string `toml:"connect_timeout"`
	ReconnectWait  string `toml:"reconnect_wait"`
	MaxReconnects  int    `toml:"max_reconnects"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled        string
	URL            string
	Name           string
	ConnectTimeout string
	ReconnectWait  string
	MaxReconnects  string
}

// ConnectTimeoutDuration returns ConnectTimeout as a time.Duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnectTimeout)
	return d
}

// ReconnectWaitDuration returns ReconnectWait as a time.Duration.
func (c *Config) ReconnectWaitDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReconnectWait)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies; other fields
// only apply when non-zero.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled

	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.ConnectTimeout != "" {
		c.ConnectTimeout = overlay.ConnectTimeout
	}
	if overlay.ReconnectWait != "" {
		c.ReconnectWait = overlay.ReconnectWait
	}
	if overlay.MaxReconnects != 0 {
		c.MaxReconnects = overlay.MaxReconnects
	}
}

func (c *Config) loadDefaults() {
	if c.URL == "" {
		c.URL = "nats://localhost:4222"
	}
	if c.Name == "" {
		c.Name = "missive"
	}
	if c.ConnectTimeout == "" {
		c.ConnectTimeout = "5s"
	}
	if c.ReconnectWait == "" {
		c.ReconnectWait = "2s"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 60
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.Name != "" {
		if v := os.Getenv(env.Name); v != "" {
			c.Name = v
		}
	}
	if env.ConnectTimeout != "" {
		if v := os.Getenv(env.ConnectTimeout); v != "" {
			c.ConnectTimeout = v
		}
	}
	if env.ReconnectWait != "" {
		if v := os.Getenv(env.ReconnectWait); v != "" {
			c.ReconnectWait = v
		}
	}
	if env.MaxReconnects != "" {
		if v := os.Getenv(env.MaxReconnects); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxReconnects = n
			}
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid connect_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.ReconnectWait); err != nil {
		return fmt.Errorf("invalid reconnect_wait: %w", err)
	}
	return nil
}
