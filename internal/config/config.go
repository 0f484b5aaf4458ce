package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	SessionCookie = "cookie"
	SessionRedis  = "redis"
)

// Config holds all application configuration.
// Values come from defaults, an optional YAML file, .env and the environment,
// in that order of increasing precedence.
type Config struct {
	// Server
	Port            int           `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CRM backend
	BackendURL string `yaml:"backend_url"`

	// HTTP client
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Resilience
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxConcurrency int           `yaml:"max_concurrency"`

	// Query cache
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	AuthCacheTTL time.Duration `yaml:"auth_cache_ttl"`

	// Observability
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	TracingEnabled bool   `yaml:"tracing_enabled"`

	// Session
	SessionBackend string        `yaml:"session_backend"` // cookie | redis
	SessionSecret  string        `yaml:"session_secret"`
	SessionCookie  string        `yaml:"session_cookie"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	CookieSecure   bool          `yaml:"cookie_secure"`

	// Redis
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisNamespace string `yaml:"redis_namespace"`

	// Login throttling (redis only)
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
	LoginBlock      time.Duration `yaml:"login_block"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:            3000,
		LogLevel:        "info",
		ShutdownTimeout: 15 * time.Second,

		BackendURL: "http://localhost:8080/api",

		HTTPTimeout: 10 * time.Second,

		MaxRetries:     1,
		InitialBackoff: 200 * time.Millisecond,
		MaxConcurrency: 64,

		CacheTTL:     5 * time.Minute,
		AuthCacheTTL: time.Minute,

		OTLPEndpoint:   "localhost:4317",
		TracingEnabled: false,

		SessionBackend: SessionCookie,
		SessionCookie:  "crm_session",
		SessionTTL:     24 * time.Hour,

		RedisAddr:      "localhost:6379",
		RedisNamespace: "crmweb",

		LoginRateLimit:  10,
		LoginRateWindow: time.Minute,
		LoginBlock:      5 * time.Minute,
	}
}

// Load builds the configuration. CONFIG_FILE names an optional YAML file;
// a missing .env is ignored.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)

	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout)

	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.InitialBackoff = getEnvDuration("INITIAL_BACKOFF", c.InitialBackoff)
	c.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.MaxConcurrency)

	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)
	c.AuthCacheTTL = getEnvDuration("AUTH_CACHE_TTL", c.AuthCacheTTL)

	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.TracingEnabled = getEnvBool("TRACING_ENABLED", c.TracingEnabled)

	c.SessionBackend = strings.ToLower(getEnv("SESSION_BACKEND", c.SessionBackend))
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionCookie = getEnv("SESSION_COOKIE", c.SessionCookie)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisNamespace = getEnv("REDIS_NAMESPACE", c.RedisNamespace)

	c.LoginRateLimit = getEnvInt("LOGIN_RATE_LIMIT", c.LoginRateLimit)
	c.LoginRateWindow = getEnvDuration("LOGIN_RATE_WINDOW", c.LoginRateWindow)
	c.LoginBlock = getEnvDuration("LOGIN_BLOCK", c.LoginBlock)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("config: BACKEND_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	switch c.SessionBackend {
	case SessionCookie:
	case SessionRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis session backend")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionCookie == "" {
		return errors.New("config: SESSION_COOKIE must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
