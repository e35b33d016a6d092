package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/JaimeStill/missive/internal/assembler"
	"github.com/JaimeStill/missive/internal/notifications"
)

const EnvLettersPublicBaseURL = "MISSIVE_LETTERS_PUBLIC_BASE_URL"

var assemblerEnv = &assembler.Env{
	QRSize:           "MISSIVE_LETTERS_QR_SIZE",
	FallbackSize:     "MISSIVE_LETTERS_FALLBACK_SIZE",
	FallbackMargin:   "MISSIVE_LETTERS_FALLBACK_MARGIN",
	FetchTimeout:     "MISSIVE_LETTERS_FETCH_TIMEOUT",
	FetchConcurrency: "MISSIVE_LETTERS_FETCH_CONCURRENCY",
	MaxImageSize:     "MISSIVE_LETTERS_MAX_IMAGE_SIZE",
}

var notificationsEnv = &notifications.Env{
	SubjectPrefix: "MISSIVE_LETTERS_SUBJECT_PREFIX",
}

// LettersConfig holds settings for the letter workflow and its final
// document assembly.
type LettersConfig struct {
	// PublicBaseURL is the externally reachable origin embedded in public
	// links and their QR codes.
	PublicBaseURL string               `toml:"public_base_url"`
	Assembler     assembler.Config     `toml:"assembler"`
	Notifications notifications.Config `toml:"notifications"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the letters config and its nested assembler and notification configs.
func (c *LettersConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Assembler.Finalize(assemblerEnv); err != nil {
		return fmt.Errorf("assembler: %w", err)
	}
	if err := c.Notifications.Finalize(notificationsEnv); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *LettersConfig) Merge(overlay *LettersConfig) {
	if overlay.PublicBaseURL != "" {
		c.PublicBaseURL = overlay.PublicBaseURL
	}
	c.Assembler.Merge(&overlay.Assembler)
	c.Notifications.Merge(&overlay.Notifications)
}

func (c *LettersConfig) loadDefaults() {
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:8080"
	}
}

func (c *LettersConfig) loadEnv() {
	if v := os.Getenv(EnvLettersPublicBaseURL); v != "" {
		c.PublicBaseURL = v
	}
}

func (c *LettersConfig) validate() error {
	u, err := url.Parse(c.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("invalid public_base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("public_base_url must be an http or https url")
	}
	if u.Host == "" {
		return fmt.Errorf("public_base_url requires a host")
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return nil
}
