// Package config loads and validates gathersync.json, the configuration
// file shared by the CLI and the development server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gathersync.json"

	// DefaultBackendURL is where the CLI points without a config file.
	DefaultBackendURL = "http://localhost:8787"

	// DefaultListen is the development server's default bind address.
	DefaultListen = "localhost:8787"
)

// Config represents the complete gathersync.json configuration.
type Config struct {
	// Username is the acting user for mutations and feed fetches.
	Username string `json:"username,omitempty"`

	// Backend contains the API client settings.
	Backend BackendConfig `json:"backend,omitempty"`

	// Cache contains the like-cache persistence settings.
	Cache CacheConfig `json:"cache,omitempty"`

	// Dev contains development server settings.
	Dev DevConfig `json:"dev,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// BackendConfig contains API client settings.
type BackendConfig struct {
	// URL is the HTTP origin of the backend.
	URL string `json:"url,omitempty"`

	// Token is the bearer token sent with each request. Optional; the
	// development server also accepts anonymous requests.
	Token string `json:"token,omitempty"`

	// TimeoutSeconds bounds each request. Zero means the client default.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

// CacheConfig selects and configures the like-cache store.
type CacheConfig struct {
	// Backend is one of "memory", "file", "sqlite", or "redis".
	Backend string `json:"backend,omitempty"`

	// Dir is the blob directory for the file backend.
	Dir string `json:"dir,omitempty"`

	// DSN is the database path or connection string for the sqlite backend.
	DSN string `json:"dsn,omitempty"`

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string `json:"redisAddr,omitempty"`

	// RedisDB selects the redis database number.
	RedisDB int `json:"redisDb,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Listen is the address the server binds to.
	Listen string `json:"listen,omitempty"`

	// TokenTTLSeconds is how long an issued bearer token stays valid.
	TokenTTLSeconds int `json:"tokenTtlSeconds,omitempty"`

	// Blob contains image upload storage settings.
	Blob BlobConfig `json:"blob,omitempty"`
}

// BlobConfig selects where uploaded images are stored.
type BlobConfig struct {
	// Backend is "disk" or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the storage directory for the disk backend.
	Dir string `json:"dir,omitempty"`

	// Bucket is the bucket name for the s3 backend.
	Bucket string `json:"bucket,omitempty"`

	// Region is the bucket region for the s3 backend.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the s3 endpoint, for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Username: "anonymous",
		Backend: BackendConfig{
			URL: DefaultBackendURL,
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     ".gathersync/likes",
		},
		Dev: DevConfig{
			Listen:          DefaultListen,
			TokenTTLSeconds: 3600,
			Blob: BlobConfig{
				Backend: "disk",
				Dir:     ".gathersync/blobs",
			},
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// gathersync.json in the directory; a missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	cfg, err := LoadFile(path)
	if os.IsNotExist(err) {
		cfg = New()
		cfg.configPath = path
		return cfg, nil
	}
	return cfg, err
}

// LoadFile reads configuration from the specified file path. Values absent
// from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.configPath = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration back to the path it was loaded from, or to
// dir/gathersync.json for a fresh config.
func (c *Config) Save(dir string) error {
	path := c.configPath
	if path == "" {
		path = filepath.Join(dir, ConfigFileName)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// Path returns where the config was loaded from or saved to. Empty for a
// config built with New that was never saved.
func (c *Config) Path() string {
	return c.configPath
}

// Validate rejects combinations the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", "memory", "file":
	case "sqlite":
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache backend %q requires dsn", c.Cache.Backend)
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend %q requires redisAddr", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Dev.Blob.Backend {
	case "", "disk":
	case "s3":
		if c.Dev.Blob.Bucket == "" {
			return fmt.Errorf("blob backend %q requires bucket", c.Dev.Blob.Backend)
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Dev.Blob.Backend)
	}

	if c.Dev.TokenTTLSeconds < 0 {
		return fmt.Errorf("tokenTtlSeconds must not be negative")
	}
	return nil
}
