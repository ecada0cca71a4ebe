// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// EnvFile names the dotenv file loaded before parsing. Missing files are
// ignored.
const EnvFile = "RESEARCH_ENV_FILE"

// Config holds all application configuration
type Config struct {
	Keys     Keys
	CacheDir string        `env:"RESEARCH_CACHE_DIR" envDefault:"./cache" validate:"required"`
	UseCache bool          `env:"RESEARCH_USE_CACHE" envDefault:"true"`
	Timeout  time.Duration `env:"RESEARCH_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	LogLevel string        `env:"RESEARCH_LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error disabled"`

	HTTPAddr    string `env:"RESEARCH_HTTP_ADDR" envDefault:":8080" validate:"required"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DatabaseURL string `env:"DATABASE_URL"`
}

// Keys holds provider credentials. Empty values fall through to each
// provider's own environment lookup.
type Keys struct {
	Census          string `env:"CENSUS_API_KEY"`
	GitHub          string `env:"GITHUB_TOKEN"`
	News            string `env:"NEWS_API_KEY"`
	NASA            string `env:"NASA_API_KEY"`
	AlphaVantage    string `env:"ALPHAVANTAGE_API_KEY"`
	YouTube         string `env:"YOUTUBE_API_KEY"`
	FEC             string `env:"FEC_API_KEY"`
	MyAnimeList     string `env:"MAL_API_KEY"`
	WolframAlpha    string `env:"WOLFRAMALPHA_APP_ID"`
	SemanticScholar string `env:"SEMANTIC_SCHOLAR_API_KEY"`
	NCBI            string `env:"NCBI_API_KEY"`
}

// Load reads an optional dotenv file, then the environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv(EnvFile)
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Level is the parsed log level. Validate has already vetted the string.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// HasQueue reports whether background jobs can be enqueued.
func (c *Config) HasQueue() bool {
	return c.RedisAddr != ""
}

// HasDatabase reports whether capture outcomes are persisted.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
