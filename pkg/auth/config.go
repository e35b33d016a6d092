package auth

import (
	"fmt"
	"os"
	"time"
)

// Config holds bearer token validation settings.
type Config struct {
	Secret string `toml:"secret"`
	Issuer string `toml:"issuer"`
	Leeway string `toml:"leeway"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Secret string
	Issuer string
	Leeway string
}

// LeewayDuration returns Leeway as a time.Duration.
func (c *Config) LeewayDuration() time.Duration {
	d, _ := time.ParseDuration(c.Leeway)
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

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.Leeway != "" {
		c.Leeway = overlay.Leeway
	}
}

func (c *Config) loadDefaults() {
	if c.Leeway == "" {
		c.Leeway = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Secret != "" {
		if v := os.Getenv(env.Secret); v != "" {
			c.Secret = v
		}
	}
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.Leeway != "" {
		if v := os.Getenv(env.Leeway); v != "" {
			c.Leeway = v
		}
	}
}

func (c *Config) validate() error {
	if len(c.Secret) < 32 {
		return fmt.Errorf("secret must be at least 32 bytes")
	}
	if _, err := time.ParseDuration(c.Leeway); err != nil {
		return fmt.Errorf("invalid leeway: %w", err)
	}
	return nil
}
