package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" yaml:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AuthConfig controls how the authenticated user is resolved.
type AuthConfig struct {
	// UserHeader carries the user id asserted by the upstream identity proxy.
	UserHeader string `mapstructure:"user_header" yaml:"user_header"`

	// TrustHeader enables UserHeader. Leave off when the server is exposed
	// without an identity proxy in front of it.
	TrustHeader bool `mapstructure:"trust_header" yaml:"trust_header"`

	// ServiceToken authenticates internal callers such as the generation
	// trigger. A request presenting it may assert UserHeader.
	ServiceToken string `mapstructure:"service_token" yaml:"service_token"`
}

// RateLimitConfig caps API-key traffic.
type RateLimitConfig struct {
	RequestsPerHour int `mapstructure:"requests_per_hour" yaml:"requests_per_hour"`
}

// AIConfig holds settings for the language-model integration.
type AIConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
}

// GenerationConfig drives the scheduled blog generation trigger.
type GenerationConfig struct {
	Cron             string        `mapstructure:"cron" yaml:"cron"`
	StaleAfter       time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	Endpoint         string        `mapstructure:"endpoint" yaml:"endpoint"`
	TopicConcurrency int           `mapstructure:"topic_concurrency" yaml:"topic_concurrency"`
	ClaimBatch       int           `mapstructure:"claim_batch" yaml:"claim_batch"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit" yaml:"ratelimit"`
	AI         AIConfig         `mapstructure:"ai" yaml:"ai"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Timezone   string           `mapstructure:"timezone" yaml:"timezone"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/dayplan/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "dayplan", "config.yaml")
}

// DefaultDatabasePath returns ~/.local/share/dayplan/dayplan.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "dayplan.db")
	}
	return filepath.Join(home, ".local", "share", "dayplan", "dayplan.db")
}

var configDefaults = map[string]any{
	"server.listen":                ":8080",
	"server.read_timeout":          15 * time.Second,
	"server.write_timeout":         60 * time.Second,
	"auth.user_header":             "X-Authenticated-User",
	"auth.trust_header":            false,
	"auth.service_token":           "",
	"ratelimit.requests_per_hour":  100,
	"ai.model":                     "claude-sonnet-4-20250514",
	"ai.max_tokens":                2048,
	"ai.base_url":                  "https://api.anthropic.com",
	"generation.cron":              "* * * * *",
	"generation.stale_after":       10 * time.Minute,
	"generation.max_retries":       3,
	"generation.endpoint":          "http://127.0.0.1:8080",
	"generation.topic_concurrency": 3,
	"generation.claim_batch":       10,
	"timezone":                     "Local",
	"log.level":                    "info",
	"log.json":                     false,
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Listen:       ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Auth: AuthConfig{
			UserHeader: "X-Authenticated-User",
		},
		RateLimit: RateLimitConfig{RequestsPerHour: 100},
		AI: AIConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 2048,
			BaseURL:   "https://api.anthropic.com",
		},
		Generation: GenerationConfig{
			Cron:             "* * * * *",
			StaleAfter:       10 * time.Minute,
			MaxRetries:       3,
			Endpoint:         "http://127.0.0.1:8080",
			TopicConcurrency: 3,
			ClaimBatch:       10,
		},
		Timezone: "Local",
		Log:      LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults are used. Environment variables
// prefixed with DAYPLAN_ override file values (server.listen becomes
// DAYPLAN_SERVER_LISTEN).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("dayplan")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range configDefaults {
		v.SetDefault(key, val)
	}
	v.SetDefault("database.path", DefaultDatabasePath())

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Generation.MaxRetries <= 0 {
		cfg.Generation.MaxRetries = 3
	}
	if cfg.Generation.TopicConcurrency <= 0 {
		cfg.Generation.TopicConcurrency = 1
	}
	if cfg.RateLimit.RequestsPerHour < 0 {
		cfg.RateLimit.RequestsPerHour = 0
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *AppConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", map[string]any{
		"listen":        cfg.Server.Listen,
		"read_timeout":  cfg.Server.ReadTimeout.String(),
		"write_timeout": cfg.Server.WriteTimeout.String(),
	})
	v.Set("database", map[string]any{"path": cfg.Database.Path})
	v.Set("auth", map[string]any{
		"user_header":   cfg.Auth.UserHeader,
		"trust_header":  cfg.Auth.TrustHeader,
		"service_token": cfg.Auth.ServiceToken,
	})
	v.Set("ratelimit", map[string]any{"requests_per_hour": cfg.RateLimit.RequestsPerHour})
	v.Set("ai", map[string]any{
		"model":      cfg.AI.Model,
		"max_tokens": cfg.AI.MaxTokens,
		"base_url":   cfg.AI.BaseURL,
	})
	v.Set("generation", map[string]any{
		"cron":              cfg.Generation.Cron,
		"stale_after":       cfg.Generation.StaleAfter.String(),
		"max_retries":       cfg.Generation.MaxRetries,
		"endpoint":          cfg.Generation.Endpoint,
		"topic_concurrency": cfg.Generation.TopicConcurrency,
		"claim_batch":       cfg.Generation.ClaimBatch,
	})
	v.Set("timezone", cfg.Timezone)
	v.Set("log", map[string]any{"level": cfg.Log.Level, "json": cfg.Log.JSON})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
