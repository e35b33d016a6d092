package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Storage providers.
const (
	ProviderAzure  = "azure"
	ProviderMinIO  = "minio"
	ProviderMemory = "memory"
)

// Config selects a blob storage provider and holds its connection parameters.
type Config struct {
	Provider string      `toml:"provider"`
	Azure    AzureConfig `toml:"azure"`
	MinIO    MinIOConfig `toml:"minio"`
}

// AzureConfig holds Azure Blob Storage connection parameters.
type AzureConfig struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
}

// MinIOConfig holds S3-compatible object storage parameters.
type MinIOConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider              string
	AzureContainerName    string
	AzureConnectionString string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOBucket           string
	MinIOUseSSL           string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Azure.ContainerName != "" {
		c.Azure.ContainerName = overlay.Azure.ContainerName
	}
	if overlay.Azure.ConnectionString != "" {
		c.Azure.ConnectionString = overlay.Azure.ConnectionString
	}
	if overlay.MinIO.Endpoint != "" {
		c.MinIO.Endpoint = overlay.MinIO.Endpoint
	}
	if overlay.MinIO.AccessKey != "" {
		c.MinIO.AccessKey = overlay.MinIO.AccessKey
	}
	if overlay.MinIO.SecretKey != "" {
		c.MinIO.SecretKey = overlay.MinIO.SecretKey
	}
	if overlay.MinIO.Bucket != "" {
		c.MinIO.Bucket = overlay.MinIO.Bucket
	}
	if overlay.MinIO.UseSSL {
		c.MinIO.UseSSL = true
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.Azure.ContainerName == "" {
		c.Azure.ContainerName = "letters"
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = "letters"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Provider, &c.Provider)
	set(env.AzureContainerName, &c.Azure.ContainerName)
	set(env.AzureConnectionString, &c.Azure.ConnectionString)
	set(env.MinIOEndpoint, &c.MinIO.Endpoint)
	set(env.MinIOAccessKey, &c.MinIO.AccessKey)
	set(env.MinIOSecretKey, &c.MinIO.SecretKey)
	set(env.MinIOBucket, &c.MinIO.Bucket)

	if env.MinIOUseSSL != "" {
		if v := os.Getenv(env.MinIOUseSSL); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.MinIO.UseSSL = b
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderAzure:
		if c.Azure.ContainerName == "" {
			return fmt.Errorf("azure.container_name required")
		}
		if c.Azure.ConnectionString == "" {
			return fmt.Errorf("azure.connection_string required")
		}
	case ProviderMinIO:
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("minio.endpoint required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("minio.bucket required")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
