// Package config loads crmctl configuration from a file, the environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override configuration keys.
const EnvPrefix = "CRM"

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all crmctl configuration
type Config struct {
	API     APIConfig
	Session SessionConfig
	Search  SearchConfig
	Log     LogConfig
	Metrics MetricsConfig
	Mock    MockConfig
}

// APIConfig holds settings for the REST backend collaborator
type APIConfig struct {
	BaseURL        string        // e.g. http://localhost:5000
	Prefix         string        // path prefix of every endpoint, default /api
	Timeout        time.Duration // per-request timeout
	RateLimitQPS   float64       // 0 disables client-side rate limiting
	RateLimitBurst int
	MaxRetries     int // retries for idempotent GETs on 5xx/429
	RetryDelay     time.Duration
}

// SessionConfig holds bearer token persistence settings
type SessionConfig struct {
	TokenFile string // empty keeps the token in memory only
}

// SearchConfig holds the component search widget settings
type SearchConfig struct {
	Debounce       time.Duration
	MinQueryLength int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string // empty disables the endpoint
}

// MockConfig holds settings for the in-memory mock backend
type MockConfig struct {
	Addr        string
	SeedModels  int
	SeedParties int
	RequireAuth bool
	JWTSecret   string
	Username    string
	Password    string
}

// Load loads configuration from a config file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CRM_ prefix (e.g., CRM_API_BASE_URL), including a .env file
// 2. The file at path, or crmctl.{toml,yaml,json} in the working directory or ~/.crmctl
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("crmctl")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".crmctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		API: APIConfig{
			BaseURL:        v.GetString("api.base_url"),
			Prefix:         v.GetString("api.prefix"),
			Timeout:        v.GetDuration("api.timeout"),
			RateLimitQPS:   v.GetFloat64("api.rate_limit_qps"),
			RateLimitBurst: v.GetInt("api.rate_limit_burst"),
			MaxRetries:     v.GetInt("api.max_retries"),
			RetryDelay:     v.GetDuration("api.retry_delay"),
		},
		Session: SessionConfig{
			TokenFile: v.GetString("session.token_file"),
		},
		Search: SearchConfig{
			Debounce:       v.GetDuration("search.debounce"),
			MinQueryLength: v.GetInt("search.min_query_length"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Mock: MockConfig{
			Addr:        v.GetString("mock.addr"),
			SeedModels:  v.GetInt("mock.seed_models"),
			SeedParties: v.GetInt("mock.seed_parties"),
			RequireAuth: v.GetBool("mock.require_auth"),
			JWTSecret:   v.GetString("mock.jwt_secret"),
			Username:    v.GetString("mock.username"),
			Password:    v.GetString("mock.password"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration populated only with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000"
	}
	if cfg.API.Prefix == "" {
		cfg.API.Prefix = "/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.RetryDelay == 0 {
		cfg.API.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Session.TokenFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Session.TokenFile = filepath.Join(home, ".crmctl", "token")
		}
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 500 * time.Millisecond
	}
	if cfg.Search.MinQueryLength == 0 {
		cfg.Search.MinQueryLength = 2
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Mock.Addr == "" {
		cfg.Mock.Addr = ":5000"
	}
	if cfg.Mock.SeedModels == 0 {
		cfg.Mock.SeedModels = 25
	}
	if cfg.Mock.SeedParties == 0 {
		cfg.Mock.SeedParties = 10
	}
	if cfg.Mock.JWTSecret == "" {
		cfg.Mock.JWTSecret = "crm-mock-secret"
	}
	if cfg.Mock.Username == "" {
		cfg.Mock.Username = "admin"
	}
	if cfg.Mock.Password == "" {
		cfg.Mock.Password = "admin"
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: api.base_url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: api.base_url must be an http or https URL, got %q", ErrInvalidConfig, c.API.BaseURL)
	}
	if !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("%w: api.prefix must start with '/'", ErrInvalidConfig)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: api.timeout cannot be negative", ErrInvalidConfig)
	}
	if c.API.RateLimitQPS < 0 {
		return fmt.Errorf("%w: api.rate_limit_qps cannot be negative", ErrInvalidConfig)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("%w: api.max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("%w: search.debounce cannot be negative", ErrInvalidConfig)
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("%w: search.min_query_length must be at least 1", ErrInvalidConfig)
	}
	return nil
}
