package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr      string          `yaml:"addr"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Auth      AuthConfig      `yaml:"auth"`
	LogLevel  string          `yaml:"log_level"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	Lifetime time.Duration `yaml:"lifetime"`
}

// RateLimitConfig bounds mutating API calls per client IP.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

type AuthConfig struct {
	Discord ProviderConfig `yaml:"discord"`
	Google  ProviderConfig `yaml:"google"`
}

type ProviderConfig struct {
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	CallbackURL string `yaml:"callback_url"`
}

func (p ProviderConfig) Enabled() bool {
	return p.Key != "" && p.Secret != ""
}

func Default() *Config {
	return &Config{
		Addr:      ":8080",
		Database:  DatabaseConfig{Path: "./arbiter.db"},
		Session:   SessionConfig{Lifetime: 24 * time.Hour},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 20},
		CORS:      CORSConfig{Origins: []string{"*"}},
		LogLevel:  "info",
	}
}

// Load reads .env (if present), then the YAML file at path (if present), then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("config file not found, using defaults and environment", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ARBITER_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_LIFETIME: %w", err)
		}
		c.Session.Lifetime = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = n
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORS.Origins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	overrideProvider(&c.Auth.Discord, "DISCORD")
	overrideProvider(&c.Auth.Google, "GOOGLE")
	return nil
}

func overrideProvider(p *ProviderConfig, prefix string) {
	if v := os.Getenv(prefix + "_KEY"); v != "" {
		p.Key = v
	}
	if v := os.Getenv(prefix + "_SECRET"); v != "" {
		p.Secret = v
	}
	if v := os.Getenv(prefix + "_CALLBACK_URL"); v != "" {
		p.CallbackURL = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("session lifetime must be positive"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
