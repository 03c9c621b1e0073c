package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Session store kinds.
const (
	SessionFile  = "file"
	SessionRedis = "redis"
)

// DevSigningKey signs sandbox tokens when JWT_SIGNING_KEY is unset.
const DevSigningKey = "dentalpro-sandbox-dev-key"

type Config struct {
	Env           string        `mapstructure:"ENV"`
	APIBaseURL    string        `mapstructure:"API_BASE_URL"`
	HTTPTimeout   time.Duration `mapstructure:"HTTP_TIMEOUT"`
	SessionStore  string        `mapstructure:"SESSION_STORE"`
	SessionDir    string        `mapstructure:"SESSION_DIR"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	RedisURL      string        `mapstructure:"REDIS_URL"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	LogFile       string        `mapstructure:"LOG_FILE"`
	Locale        string        `mapstructure:"LOCALE"`
	PhoneRegion   string        `mapstructure:"PHONE_REGION"`
	SandboxPort   string        `mapstructure:"SANDBOX_PORT"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"ENV", "API_BASE_URL", "HTTP_TIMEOUT", "SESSION_STORE", "SESSION_DIR", "SESSION_TTL",
	"REDIS_URL", "LOG_LEVEL", "LOG_FILE", "LOCALE", "PHONE_REGION", "SANDBOX_PORT",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "JWT_SIGNING_KEY", "CORS_ORIGINS",
}

// Load reads the environment, falling back to an optional .env file in the
// working directory.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("SESSION_STORE", SessionFile)
	v.SetDefault("SESSION_DIR", defaultSessionDir())
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOCALE", "id")
	v.SetDefault("PHONE_REGION", "ID")
	v.SetDefault("SANDBOX_PORT", "8080")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_SIGNING_KEY", DevSigningKey)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.SessionStore = strings.ToLower(cfg.SessionStore)
	return cfg, nil
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dentalpro")
	}
	return filepath.Join(dir, "dentalpro")
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Language parses LOCALE, falling back to Indonesian.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Indonesian
	}
	return tag
}

// Validate checks the client-side settings.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.SessionStore {
	case SessionFile:
		if c.SessionDir == "" {
			return fmt.Errorf("SESSION_DIR is required when SESSION_STORE is %q", SessionFile)
		}
	case SessionRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is %q", SessionRedis)
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionFile, SessionRedis, c.SessionStore)
	}
	return nil
}

// ValidateSandbox checks the settings the sandbox server needs.
func (c *Config) ValidateSandbox() error {
	if c.SandboxPort == "" {
		return fmt.Errorf("SANDBOX_PORT is required")
	}
	if c.IsProduction() && c.JWTSigningKey == DevSigningKey {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	if len(c.JWTSigningKey) < 16 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 16 bytes, got %d", len(c.JWTSigningKey))
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
