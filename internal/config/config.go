package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// RateLimit is requests per minute per client for song submission;
	// 0 disables limiting.
	RateLimit int `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	// URL selects the Postgres job store when set; empty keeps the
	// in-memory store.
	URL string `yaml:"url"`
}

type RedisConfig struct {
	// URL selects the Redis queue when set; empty keeps the in-memory queue.
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GenerationConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	// StubMode swaps the provider for a deterministic offline stub. This is
	// an explicit mode, never a silent fallback on provider failure.
	StubMode    bool `yaml:"stub_mode"`
	DurationSec int  `yaml:"duration_sec"`
}

type StorageConfig struct {
	SignSecret    string `yaml:"sign_secret"`
	PublicBaseURL string `yaml:"public_base_url"`
	SignedURLTTL  time.Duration `yaml:"signed_url_ttl"`
}

type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	// MaxDeliveries bounds queue-level redeliveries of a failed job.
	MaxDeliveries int           `yaml:"max_deliveries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Worker     WorkerConfig     `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "https://api.suno.ai/v1"
	}
	if c.Generation.DurationSec <= 0 {
		c.Generation.DurationSec = 45
	}
	if c.Storage.SignedURLTTL <= 0 {
		c.Storage.SignedURLTTL = 10 * time.Minute
	}
	// Small fixed concurrency to respect provider rate limits.
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 3
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 5 * time.Second
	}
	// 60 polls at 5s is the 5 minute ceiling.
	if c.Worker.MaxPollAttempts <= 0 {
		c.Worker.MaxPollAttempts = 60
	}
	if c.Worker.MaxDeliveries <= 0 {
		c.Worker.MaxDeliveries = 3
	}
	if c.Worker.RetryBackoff <= 0 {
		c.Worker.RetryBackoff = 5 * time.Second
	}
	if c.Worker.FFmpegPath == "" {
		c.Worker.FFmpegPath = "ffmpeg"
	}
}

func (c *Config) Validate() error {
	if !c.Generation.StubMode && c.Generation.APIKey == "" {
		return errors.New("generation.api_key is required unless generation.stub_mode is on")
	}
	if c.Storage.SignSecret == "" {
		if !c.Runtime.Dev {
			return errors.New("storage.sign_secret is required")
		}
		c.Storage.SignSecret = "dev-only-insecure-signing-secret"
	}
	return nil
}
