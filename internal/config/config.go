// Package config loads the service configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadFromEnv.
const (
	EnvConfigPath = "COLLEGE_API_CONFIG"
	EnvAddr       = "COLLEGE_API_ADDR"
	EnvStorePath  = "COLLEGE_API_DB"
	EnvLogPath    = "COLLEGE_API_LOG"
	EnvLogLevel   = "COLLEGE_API_LOG_LEVEL"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables limiting.
	RateLimit float64  `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int      `yaml:"rate_burst" validate:"gte=0"`
	CORSAllow []string `yaml:"cors_allow_origins"`
}

type StoreConfig struct {
	Path        string        `yaml:"path" validate:"required"`
	OpenTimeout time.Duration `yaml:"open_timeout" validate:"gte=0"`
}

type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl" validate:"gt=0"`
	ProducerTimeout time.Duration `yaml:"producer_timeout" validate:"gte=0"`
}

type LogConfig struct {
	// Path is a file path, or "-" for standard error.
	Path  string `yaml:"path"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
			CORSAllow:       []string{"*"},
		},
		Store: StoreConfig{Path: "college-api.bbolt", OpenTimeout: time.Second},
		Cache: CacheConfig{TTL: 30 * time.Minute, ProducerTimeout: 10 * time.Second},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by COLLEGE_API_CONFIG, or the defaults when
// it is unset, and applies the per-field environment overrides.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigPath); path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvAddr, &c.Server.Addr},
		{EnvStorePath, &c.Store.Path},
		{EnvLogPath, &c.Log.Path},
		{EnvLogLevel, &c.Log.Level},
	}
	for _, o := range overrides {
		if v := getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Fields, "; ")
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return out
}
