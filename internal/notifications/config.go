package notifications

import (
	"fmt"
	"os"
	"strings"
)

// Config holds notification delivery settings.
type Config struct {
	SubjectPrefix string `toml:"subject_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	SubjectPrefix string
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
	if overlay.SubjectPrefix != "" {
		c.SubjectPrefix = overlay.SubjectPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "missive.letters"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.SubjectPrefix != "" {
		if v := os.Getenv(env.SubjectPrefix); v != "" {
			c.SubjectPrefix = v
		}
	}
}

func (c *Config) validate() error {
	if strings.ContainsAny(c.SubjectPrefix, " *>") {
		return fmt.Errorf("subject_prefix must not contain spaces or wildcards")
	}
	if strings.HasPrefix(c.SubjectPrefix, ".") || strings.HasSuffix(c.SubjectPrefix, ".") {
		return fmt.Errorf("subject_prefix must not begin or end with a dot")
	}
	return nil
}
