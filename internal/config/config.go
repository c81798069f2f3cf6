package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type StorageType string

const (
	StorageTypeMemory StorageType = "memory"
	StorageTypeRedis  StorageType = "redis"
	StorageTypeSQLite StorageType = "sqlite"
)

// Config holds the configuration for the moments front end.
type Config struct {
	// Listen is the address the web front end listens on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// API holds the configuration of the moments backend.
	API *APIConfig `yaml:"api" mapstructure:"api"`
	// Storage holds the configuration of the persistent session storage.
	Storage *StorageConfig `yaml:"storage" mapstructure:"storage"`
	// Session holds the session configuration.
	Session *SessionConfig `yaml:"session" mapstructure:"session"`
	// Routes holds the well-known page paths used for redirects.
	Routes *RoutesConfig `yaml:"routes" mapstructure:"routes"`
}

// APIConfig holds the configuration of the moments backend API.
type APIConfig struct {
	// BaseURL is the base URL of the backend API, e.g. http://localhost:5000/api.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout is the timeout of a single API call.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StorageConfig holds the configuration of the persistent key/value storage.
type StorageConfig struct {
	// Type is the storage backend (memory, redis, sqlite).
	Type StorageType `yaml:"type" mapstructure:"type"`
	// Path is the database file when using the sqlite backend.
	Path string `yaml:"path" mapstructure:"path"`
	// RedisURL is the redis address when using the redis backend.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// Prefix is prepended to every key in the memory and redis backends.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	// QuotaBytes is the maximum size of a single stored value. 0 disables the check.
	QuotaBytes int64 `yaml:"quota_bytes" mapstructure:"quota_bytes"`
}

// SessionConfig holds the session configuration.
type SessionConfig struct {
	// StorageKey is the storage key the serialised user is kept under.
	StorageKey string `yaml:"storage_key" mapstructure:"storage_key"`
}

// RoutesConfig holds the page paths the guard and the request pipeline redirect to.
type RoutesConfig struct {
	// Login is the login entry point.
	Login string `yaml:"login" mapstructure:"login"`
	// Register is the registration page.
	Register string `yaml:"register" mapstructure:"register"`
	// Landing is the default page for authenticated users.
	Landing string `yaml:"landing" mapstructure:"landing"`
	// Onboarding is the page first-time users have to complete.
	Onboarding string `yaml:"onboarding" mapstructure:"onboarding"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is not an error, defaults are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindNestedEnv(v)
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("MOMENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.moments")
		v.AddConfigPath("/etc/moments")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "127.0.0.1:8080")

	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", 5*time.Second)

	v.SetDefault("storage.type", StorageTypeSQLite)
	v.SetDefault("storage.path", "./data/moments.db")
	v.SetDefault("storage.prefix", "moments-")
	v.SetDefault("storage.quota_bytes", 5*1024*1024) // same order as browser local storage

	v.SetDefault("session.storage_key", "user")

	v.SetDefault("routes.login", "/login")
	v.SetDefault("routes.register", "/register")
	v.SetDefault("routes.landing", "/moments")
	v.SetDefault("routes.onboarding", "/first-login")
}

// redis_url has no default on purpose, so automatic env doesn't pick it up.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("storage.redis_url", "MOMENTS_STORAGE_REDIS_URL")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing moments config")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.API == nil || c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API base URL must start with http:// or https://")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be greater than 0")
	}

	if c.Storage == nil {
		return fmt.Errorf("missing storage config")
	}
	switch c.Storage.Type {
	case StorageTypeMemory:
		log.Warn("memory storage is configured, the session will not survive a restart")
	case StorageTypeRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when redis storage is enabled") //nolint:staticcheck
		}
	case StorageTypeSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required when sqlite storage is enabled")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage quota must not be negative")
	}

	if c.Session == nil || c.Session.StorageKey == "" {
		return fmt.Errorf("session storage key is required")
	}

	if c.Routes == nil {
		return fmt.Errorf("missing routes config")
	}
	for name, path := range map[string]string{
		"login":      c.Routes.Login,
		"register":   c.Routes.Register,
		"landing":    c.Routes.Landing,
		"onboarding": c.Routes.Onboarding,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s route must be an absolute path, got %q", name, path)
		}
	}
	if c.Routes.Landing == c.Routes.Login {
		return fmt.Errorf("landing route must differ from the login route")
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)

	if c.API != nil {
		c.API.BaseURL = urlSanitize(c.API.BaseURL)
	}

	if c.Routes != nil {
		c.Routes.Login = pathSanitize(c.Routes.Login)
		c.Routes.Register = pathSanitize(c.Routes.Register)
		c.Routes.Landing = pathSanitize(c.Routes.Landing)
		c.Routes.Onboarding = pathSanitize(c.Routes.Onboarding)
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

func pathSanitize(path string) string {
	path = strings.TrimSpace(path)
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
