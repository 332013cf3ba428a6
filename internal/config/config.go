package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration.
type Config struct {
	HTTPAddr          string            `yaml:"http_addr"`
	DatabaseURL       string            `yaml:"database_url"`
	LogLevel          string            `yaml:"log_level"`
	JWTSecret         string            `yaml:"jwt_secret"`
	IngestSecret      string            `yaml:"ingest_secret"`
	IngestSkewSeconds int               `yaml:"ingest_max_skew_seconds"`
	DefaultInstance   string            `yaml:"default_instance"`
	RulesFile         string            `yaml:"rules_file"`
	Instances         map[string]string `yaml:"instances"`
	StreamBuffer      int               `yaml:"stream_buffer"`
	ShutdownTimeout   time.Duration     `yaml:"shutdown_timeout"`
}

// Load reads configuration from the environment, then from the YAML file
// named by OUTOFBOUND_CONFIG when set.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		DefaultInstance:   getenvDefault("RULE_INSTANCE", "outofbound"),
		RulesFile:         getenvDefault("RULES_FILE", ""),
		StreamBuffer:      getenvIntDefault("STREAM_BUFFER", 16),
		ShutdownTimeout:   getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if path := os.Getenv("OUTOFBOUND_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("config: http_addr is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("config: AUTH_JWT_SECRET is required"))
	}
	if c.StreamBuffer < 0 {
		errs = append(errs, errors.New("config: stream_buffer must not be negative"))
	}
	if c.IngestSkewSeconds < 0 {
		errs = append(errs, errors.New("config: ingest_max_skew_seconds must not be negative"))
	}
	if c.RulesFile != "" && c.DefaultInstance == "" {
		errs = append(errs, errors.New("config: default_instance is required with rules_file"))
	}
	for name, path := range c.Instances {
		if strings.TrimSpace(name) == "" || path == "" {
			errs = append(errs, fmt.Errorf("config: instance %q needs a name and a rules file", name))
		}
	}
	return errors.Join(errs...)
}

// IngestSkew returns the allowed ingest timestamp skew.
func (c Config) IngestSkew() time.Duration {
	return time.Duration(c.IngestSkewSeconds) * time.Second
}

// RuleFiles returns instance names mapped to rule_config files, including the
// default instance when RulesFile is set.
func (c Config) RuleFiles() map[string]string {
	out := make(map[string]string, len(c.Instances)+1)
	for name, path := range c.Instances {
		out[name] = path
	}
	if c.RulesFile != "" {
		out[c.DefaultInstance] = c.RulesFile
	}
	return out
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
