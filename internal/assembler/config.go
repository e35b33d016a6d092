package assembler

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/missive/pkg/formatting"
)

// Config holds document assembly settings.
type Config struct {
	QRSize           int     `toml:"qr_size"`
	FallbackSize     float64 `toml:"fallback_size"`
	FallbackMargin   float64 `toml:"fallback_margin"`
	FetchTimeout     string  `toml:"fetch_timeout"`
	FetchConcurrency int     `toml:"fetch_concurrency"`
	MaxImageSize     string  `toml:"max_image_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	QRSize           string
	FallbackSize     string
	FallbackMargin   string
	FetchTimeout     string
	FetchConcurrency string
	MaxImageSize     string
}

// FetchTimeoutDuration returns FetchTimeout as a time.Duration.
func (c *Config) FetchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FetchTimeout)
	return d
}

// MaxImageSizeBytes parses MaxImageSize into a byte count.
func (c *Config) MaxImageSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxImageSize)
	return n
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
	if overlay.QRSize != 0 {
		c.QRSize = overlay.QRSize
	}
	if overlay.FallbackSize != 0 {
		c.FallbackSize = overlay.FallbackSize
	}
	if overlay.FallbackMargin != 0 {
		c.FallbackMargin = overlay.FallbackMargin
	}
	if overlay.FetchTimeout != "" {
		c.FetchTimeout = overlay.FetchTimeout
	}
	if overlay.FetchConcurrency != 0 {
		c.FetchConcurrency = overlay.FetchConcurrency
	}
	if overlay.MaxImageSize != "" {
		c.MaxImageSize = overlay.MaxImageSize
	}
}

func (c *Config) loadDefaults() {
	if c.QRSize == 0 {
		c.QRSize = 512
	}
	if c.FallbackSize == 0 {
		c.FallbackSize = 80
	}
	if c.FallbackMargin == 0 {
		c.FallbackMargin = 20
	}
	if c.FetchTimeout == "" {
		c.FetchTimeout = "10s"
	}
	if c.FetchConcurrency == 0 {
		c.FetchConcurrency = 4
	}
	if c.MaxImageSize == "" {
		c.MaxImageSize = "5MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.QRSize != "" {
		if v := os.Getenv(env.QRSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.QRSize = n
			}
		}
	}
	if env.FallbackSize != "" {
		if v := os.Getenv(env.FallbackSize); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.FallbackSize = f
			}
		}
	}
	if env.FallbackMargin != "" {
		if v := os.Getenv(env.FallbackMargin); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.FallbackMargin = f
			}
		}
	}
	if env.FetchTimeout != "" {
		if v := os.Getenv(env.FetchTimeout); v != "" {
			c.FetchTimeout = v
		}
	}
	if env.FetchConcurrency != "" {
		if v := os.Getenv(env.FetchConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.FetchConcurrency = n
			}
		}
	}
	if env.MaxImageSize != "" {
		if v := os.Getenv(env.MaxImageSize); v != "" {
			c.MaxImageSize = v
		}
	}
}

func (c *Config) validate() error {
	if c.QRSize < 64 {
		return fmt.Errorf("qr_size must be at least 64")
	}
	if c.FallbackSize <= 0 || c.FallbackMargin < 0 {
		return fmt.Errorf("fallback_size must be positive and fallback_margin not negative")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be positive")
	}
	if _, err := time.ParseDuration(c.FetchTimeout); err != nil {
		return fmt.Errorf("invalid fetch_timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxImageSize); err != nil {
		return fmt.Errorf("invalid max_image_size: %w", err)
	}
	return nil
}
