package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "MISSIVE_SERVER_HOST"
	EnvServerPort              = "MISSIVE_SERVER_PORT"
	EnvServerReadTimeout       = "MISSIVE_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "MISSIVE_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "MISSIVE_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "MISSIVE_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "MISSIVE_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. Durations are Go duration
// strings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration       { return duration(c.ReadTimeout) }
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return duration(c.ReadHeaderTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration      { return duration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration       { return duration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration   { return duration(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range c.fields(overlay) {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

type serverField struct {
	name string
	env  string
	dst  *string
	src  *string
	def  string
}

// fields lists the string settings in one place. src points into other,
// which may be nil when only dst, env and defaults are needed.
func (c *ServerConfig) fields(other *ServerConfig) []serverField {
	if other == nil {
		other = &ServerConfig{}
	}
	return []serverField{
		{"host", EnvServerHost, &c.Host, &other.Host, "0.0.0.0"},
		{"read_timeout", EnvServerReadTimeout, &c.ReadTimeout, &other.ReadTimeout, "1m"},
		{"read_header_timeout", EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout, &other.ReadHeaderTimeout, "10s"},
		{"write_timeout", EnvServerWriteTimeout, &c.WriteTimeout, &other.WriteTimeout, "15m"},
		{"idle_timeout", EnvServerIdleTimeout, &c.IdleTimeout, &other.IdleTimeout, "2m"},
		{"shutdown_timeout", EnvServerShutdownTimeout, &c.ShutdownTimeout, &other.ShutdownTimeout, "30s"},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, f := range c.fields(nil) {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, f := range c.fields(nil) {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range c.fields(nil)[1:] {
		d, err := time.ParseDuration(*f.dst)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
