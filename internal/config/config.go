// Package config loads the service configuration file.
package config

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry backends for the task registry.
const (
	RegistryMemory = "memory"
	RegistrySQLite = "sqlite"
)

// Config is the loaded service configuration. Zero values mean "not set",
// callers merge it over their flag and built-in defaults.
type Config struct {
	ListenAddr    string
	DataDir       string
	Workers       int
	QueueSize     int
	Registry      string
	SQLitePath    string
	Retention     time.Duration
	SweepSchedule string

	PexelsAPIKey  string
	PixabayAPIKey string

	ProviderCallTimeout time.Duration
	SpeechTimeout       time.Duration
	TaskDeadline        time.Duration

	RetryAttempts       int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration

	DefaultVoice       string
	DefaultMusicVolume float64
}

// Merge returns the configuration with the non-zero fields of over replacing
// the receiver's values.
func (c Config) Merge(over Config) Config {
	if over.ListenAddr != "" {
		c.ListenAddr = over.ListenAddr
	}
	if over.DataDir != "" {
		c.DataDir = over.DataDir
	}
	if over.Workers != 0 {
		c.Workers = over.Workers
	}
	if over.QueueSize != 0 {
		c.QueueSize = over.QueueSize
	}
	if over.Registry != "" {
		c.Registry = over.Registry
	}
	if over.SQLitePath != "" {
		c.SQLitePath = over.SQLitePath
	}
	if over.Retention != 0 {
		c.Retention = over.Retention
	}
	if over.SweepSchedule != "" {
		c.SweepSchedule = over.SweepSchedule
	}
	if over.PexelsAPIKey != "" {
		c.PexelsAPIKey = over.PexelsAPIKey
	}
	if over.PixabayAPIKey != "" {
		c.PixabayAPIKey = over.PixabayAPIKey
	}
	if over.ProviderCallTimeout != 0 {
		c.ProviderCallTimeout = over.ProviderCallTimeout
	}
	if over.SpeechTimeout != 0 {
		c.SpeechTimeout = over.SpeechTimeout
	}
	if over.TaskDeadline != 0 {
		c.TaskDeadline = over.TaskDeadline
	}
	if over.RetryAttempts != 0 {
		c.RetryAttempts = over.RetryAttempts
	}
	if over.RetryInitialBackoff != 0 {
		c.RetryInitialBackoff = over.RetryInitialBackoff
	}
	if over.RetryMaxBackoff != 0 {
		c.RetryMaxBackoff = over.RetryMaxBackoff
	}
	if over.DefaultVoice != "" {
		c.DefaultVoice = over.DefaultVoice
	}
	if over.DefaultMusicVolume != 0 {
		c.DefaultMusicVolume = over.DefaultMusicVolume
	}
	return c
}

// YAMLLoader loads service configuration from YAML files.
type YAMLLoader struct {
	fs fs.FS
}

// NewYAMLLoader creates a new YAML config loader.
func NewYAMLLoader(filesystem fs.FS) *YAMLLoader {
	return &YAMLLoader{fs: filesystem}
}

// Load reads a YAML config file and returns a validated configuration.
func (l *YAMLLoader) Load(ctx context.Context, path string) (Config, error) {
	data, err := fs.ReadFile(l.fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Config{}, ctx.Err()
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel()
}

// fileConfig represents the YAML structure of the configuration file.
type fileConfig struct {
	ListenAddr    string          `yaml:"listen_addr"`
	DataDir       string          `yaml:"data_dir"`
	Workers       int             `yaml:"workers"`
	QueueSize     int             `yaml:"queue_size"`
	Registry      string          `yaml:"registry"`
	SQLitePath    string          `yaml:"sqlite_path"`
	Retention     string          `yaml:"retention"`
	SweepSchedule string          `yaml:"sweep_schedule"`
	Providers     providersConfig `yaml:"providers"`
	Timeouts      timeoutsConfig  `yaml:"timeouts"`
	Retry         retryConfig     `yaml:"retry"`
	Defaults      defaultsConfig  `yaml:"defaults"`
}

type providersConfig struct {
	PexelsAPIKey  string `yaml:"pexels_api_key"`
	PixabayAPIKey string `yaml:"pixabay_api_key"`
}

type timeoutsConfig struct {
	ProviderCall string `yaml:"provider_call"`
	Speech       string `yaml:"speech"`
	Task         string `yaml:"task"`
}

type retryConfig struct {
	Attempts       int    `yaml:"attempts"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

type defaultsConfig struct {
	Voice       string  `yaml:"voice"`
	MusicVolume float64 `yaml:"music_volume"`
}

func (c fileConfig) validate() error {
	switch c.Registry {
	case "", RegistryMemory, RegistrySQLite:
	default:
		return fmt.Errorf("unknown registry backend %q (must be %s or %s)", c.Registry, RegistryMemory, RegistrySQLite)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got: %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got: %d", c.QueueSize)
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got: %d", c.Retry.Attempts)
	}
	if c.Defaults.MusicVolume < 0 || c.Defaults.MusicVolume > 1 {
		return fmt.Errorf("defaults music_volume must be in [0, 1], got: %v", c.Defaults.MusicVolume)
	}

	return nil
}

func (c fileConfig) toModel() (Config, error) {
	cfg := Config{
		ListenAddr:         c.ListenAddr,
		DataDir:            c.DataDir,
		Workers:            c.Workers,
		QueueSize:          c.QueueSize,
		Registry:           c.Registry,
		SQLitePath:         c.SQLitePath,
		SweepSchedule:      c.SweepSchedule,
		PexelsAPIKey:       c.Providers.PexelsAPIKey,
		PixabayAPIKey:      c.Providers.PixabayAPIKey,
		RetryAttempts:      c.Retry.Attempts,
		DefaultVoice:       c.Defaults.Voice,
		DefaultMusicVolume: c.Defaults.MusicVolume,
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{name: "retention", value: c.Retention, dst: &cfg.Retention},
		{name: "timeouts provider_call", value: c.Timeouts.ProviderCall, dst: &cfg.ProviderCallTimeout},
		{name: "timeouts speech", value: c.Timeouts.Speech, dst: &cfg.SpeechTimeout},
		{name: "timeouts task", value: c.Timeouts.Task, dst: &cfg.TaskDeadline},
		{name: "retry initial_backoff", value: c.Retry.InitialBackoff, dst: &cfg.RetryInitialBackoff},
		{name: "retry max_backoff", value: c.Retry.MaxBackoff, dst: &cfg.RetryMaxBackoff},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s duration %q: %w", d.name, d.value, err)
		}
		if v < 0 {
			return Config{}, fmt.Errorf("%s must not be negative, got: %s", d.name, v)
		}
		*d.dst = v
	}

	return cfg, nil
}
