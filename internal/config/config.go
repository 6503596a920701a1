// Package config loads dsg settings with precedence defaults → YAML file →
// environment variables. Command-line flags are applied on top by the cli
// package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure. It is read-only after Load.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// APIConfig describes how to reach the governance platform.
type APIConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	Token      string   `yaml:"-"` // env-only, never in YAML
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
}

// ServerConfig configures the local development backend.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
	Token  string `yaml:"-"` // env-only
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EvaluationConfig tunes the evaluation workflow.
type EvaluationConfig struct {
	PageSize          int `yaml:"page_size"`
	SubmitConcurrency int `yaml:"submit_concurrency"`
}

// Duration is a time.Duration that reads from YAML strings such as "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:   "http://localhost:8700",
			Timeout:    Duration(10 * time.Second),
			MaxRetries: 2,
		},
		Server: ServerConfig{
			Addr:   "127.0.0.1:8700",
			DBPath: defaultDBPath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Evaluation: EvaluationConfig{
			PageSize:          10,
			SubmitConcurrency: 4,
		},
	}
}

// Load reads the config file at path, or the default location when path is
// empty, then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("DSG_CONFIG", defaultConfigPath())
	}
	if err := loadYAMLFile(cfg, path); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.Endpoint) == "" {
		return errors.New("api.endpoint is required")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must be >= 0, got %d", c.API.MaxRetries)
	}
	if c.API.Timeout.Std() <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Evaluation.PageSize <= 0 {
		return fmt.Errorf("evaluation.page_size must be positive, got %d", c.Evaluation.PageSize)
	}
	if c.Evaluation.SubmitConcurrency <= 0 {
		return fmt.Errorf("evaluation.submit_concurrency must be positive, got %d", c.Evaluation.SubmitConcurrency)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies DSG_* environment variables. Only non-empty,
// well-formed values override.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DSG_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("DSG_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("DSG_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.API.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("DSG_API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.API.MaxRetries = n
		}
	}

	if v := os.Getenv("DSG_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DSG_DB"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("DSG_SERVER_TOKEN"); v != "" {
		cfg.Server.Token = v
	}

	if v := os.Getenv("DSG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DSG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("DSG_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Evaluation.PageSize = n
		}
	}
	if v := os.Getenv("DSG_SUBMIT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Evaluation.SubmitConcurrency = n
		}
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dsg.yaml"
	}
	return filepath.Join(home, ".dsg", "config.yaml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dsg.db"
	}
	return filepath.Join(home, ".dsg", "dsg.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
