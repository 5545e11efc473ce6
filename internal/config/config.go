package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"profit-dashboard/internal/models"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Dataset  DatasetConfig  `envconfig:"DATASET"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Security SecurityConfig `envconfig:"SECURITY"`
}

type ServerConfig struct {
	Host            string        `split_words:"true" default:"localhost"`
	Port            int           `split_words:"true" default:"8084"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

type DatasetConfig struct {
	File        string `split_words:"true" default:"data/dashboard/ModelSource.csv"`
	CacheDir    string `split_words:"true" default:".cache"`
	WindowStart string `split_words:"true" default:"2024-04"`
	WindowEnd   string `split_words:"true" default:"2025-03"`
}

type LoggerConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true" default:"json"`
}

type SecurityConfig struct {
	RateLimitEnabled bool     `split_words:"true" default:"true"`
	RateLimitRPS     int      `split_words:"true" default:"100"`
	RateLimitBurst   int      `split_words:"true" default:"10"`
	AllowedOrigins   []string `split_words:"true" default:"http://localhost:8084"`
	TrustedProxies   []string `split_words:"true" default:"127.0.0.1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.File == "" {
		return fmt.Errorf("dataset file path cannot be empty")
	}

	if _, err := c.Window(); err != nil {
		return err
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

// Window returns the allowed reporting window.
func (c *Config) Window() (models.Window, error) {
	start, err := models.ParseYearMonth(c.Dataset.WindowStart)
	if err != nil {
		return models.Window{}, fmt.Errorf("window start: %w", err)
	}
	end, err := models.ParseYearMonth(c.Dataset.WindowEnd)
	if err != nil {
		return models.Window{}, fmt.Errorf("window end: %w", err)
	}
	if end.Before(start) {
		return models.Window{}, fmt.Errorf("window end %s is before start %s", end, start)
	}
	return models.Window{Start: start, End: end}, nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
