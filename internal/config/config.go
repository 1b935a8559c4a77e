package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	minJWTSecretLen = 32
)

// Config holds the catalog service configuration.
type Config struct {
	Service string `yaml:"service"`

	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Admin   AdminConfig   `yaml:"admin"`
}

type HTTPConfig struct {
	Port              string `yaml:"port"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`

	// TrustForwardedFor makes rate limits key on X-Forwarded-For. Enable it
	// only when a proxy in front of the service sets that header.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// StoreConfig selects the catalog backend. Path is used by the file driver,
// DSN by the postgres driver.
type StoreConfig struct {
	Driver string `yaml:"driver"` // file, memory, postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// AdminConfig controls the write surface of the HTTP API. With writes
// disabled only the read endpoints are mounted.
type AdminConfig struct {
	WritesEnabled bool   `yaml:"writes_enabled"`
	Username      string `yaml:"username"`
	PasswordHash  string `yaml:"password_hash"` // bcrypt
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTL      string `yaml:"token_ttl"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Service: "catalog",
		HTTP: HTTPConfig{
			Port:              "8080",
			ReadHeaderTimeout: "5s",
			ShutdownTimeout:   "10s",
		},
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   "products.json",
		},
		Logging: LoggingConfig{Level: "info"},
		Admin: AdminConfig{
			Username: "admin",
			TokenTTL: "15m",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("PORT", &c.HTTP.Port)
	str("STORE_DRIVER", &c.Store.Driver)
	str("CATALOG_FILE", &c.Store.Path)
	str("DATABASE_URL", &c.Store.DSN)
	str("LOG_LEVEL", &c.Logging.Level)
	str("METRICS_TOKEN", &c.Metrics.Token)
	str("ADMIN_USERNAME", &c.Admin.Username)
	str("ADMIN_PASSWORD_HASH", &c.Admin.PasswordHash)
	str("JWT_SECRET", &c.Admin.JWTSecret)
	str("TOKEN_TTL", &c.Admin.TokenTTL)

	if err := boolean("METRICS_ENABLED", &c.Metrics.Enabled); err != nil {
		return err
	}
	if err := boolean("TRUST_FORWARDED_FOR", &c.HTTP.TrustForwardedFor); err != nil {
		return err
	}
	return boolean("WRITES_ENABLED", &c.Admin.WritesEnabled)
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("store.path is required for the file driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	for name, v := range map[string]string{
		"http.read_header_timeout": c.HTTP.ReadHeaderTimeout,
		"http.shutdown_timeout":    c.HTTP.ShutdownTimeout,
		"admin.token_ttl":          c.Admin.TokenTTL,
	} {
		if _, err := parseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Admin.WritesEnabled {
		if len(c.Admin.JWTSecret) < minJWTSecretLen {
			errs = append(errs, fmt.Errorf("admin.jwt_secret must be at least %d chars when writes are enabled", minJWTSecretLen))
		}
		if c.Admin.Username == "" || c.Admin.PasswordHash == "" {
			errs = append(errs, errors.New("admin.username and admin.password_hash are required when writes are enabled"))
		}
	}

	return errors.Join(errs...)
}

func (c HTTPConfig) GetReadHeaderTimeout() time.Duration {
	d, _ := parseDuration(c.ReadHeaderTimeout)
	return d
}

func (c HTTPConfig) GetShutdownTimeout() time.Duration {
	d, _ := parseDuration(c.ShutdownTimeout)
	return d
}

func (c AdminConfig) GetTokenTTL() time.Duration {
	d, _ := parseDuration(c.TokenTTL)
	return d
}

// parseDuration accepts an empty string as "use the default" (zero).
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
