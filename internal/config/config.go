// Package config loads statarr configuration with precedence:
// defaults → YAML file → environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Database  DatabaseConfig      `yaml:"database"`
	Vault     VaultConfig         `yaml:"vault"`
	Namespace string              `yaml:"namespace"`
	Analysis  AnalysisConfig      `yaml:"analysis"`
	Sonarr    SonarrConfig        `yaml:"sonarr"`
	Retention RetentionConfig     `yaml:"retention"`
	Export    ExportStorageConfig `yaml:"export"`
	Log       LogConfig           `yaml:"log"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path         string   `yaml:"path"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// VaultConfig contains master key settings.
type VaultConfig struct {
	KeyPath string `yaml:"key_path"`
}

// AnalysisConfig contains outlier detection settings.
type AnalysisConfig struct {
	ZThreshold float64 `yaml:"z_threshold"`
	// AbsoluteThresholdMB flags any series whose average episode size
	// exceeds this value, independent of the z-score. Zero disables it.
	AbsoluteThresholdMB float64  `yaml:"absolute_threshold_mb"`
	Interval            Duration `yaml:"interval"`
}

// SonarrConfig contains upstream fetch settings.
type SonarrConfig struct {
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
}

// RetentionConfig contains snapshot retention settings.
type RetentionConfig struct {
	DaysToKeep int      `yaml:"days_to_keep"`
	Interval   Duration `yaml:"interval"`
}

// ExportStorageConfig contains offsite export (S3-compatible) settings.
// An empty bucket disables offsite export.
type ExportStorageConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Bucket    string   `yaml:"bucket"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	Region    string   `yaml:"region"`
	UseSSL    *bool    `yaml:"use_ssl"`
	URLExpiry Duration `yaml:"url_expiry"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
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

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	// Determine config path
	configPath := getEnv("STATARR_CONFIG_PATH", "config/statarr.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// Load YAML file (file must exist for this function)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/statarr.db",
			QueryTimeout: Duration(5 * time.Second),
		},
		Vault: VaultConfig{
			KeyPath: "data/statarr.key",
		},
		Namespace: "default",
		Analysis: AnalysisConfig{
			ZThreshold:          2.0,
			AbsoluteThresholdMB: 0,
			Interval:            Duration(24 * time.Hour),
		},
		Sonarr: SonarrConfig{
			Timeout:    Duration(30 * time.Second),
			MaxRetries: 3,
		},
		Retention: RetentionConfig{
			DaysToKeep: 90,
			Interval:   Duration(24 * time.Hour),
		},
		Export: ExportStorageConfig{
			Region:    "us-east-1",
			URLExpiry: Duration(1 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is OK; use defaults
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("STATARR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("STATARR_DB_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Database.QueryTimeout = Duration(d)
		}
	}

	// Vault
	if v := os.Getenv("STATARR_KEY_PATH"); v != "" {
		cfg.Vault.KeyPath = v
	}

	// Namespace
	if v := os.Getenv("STATARR_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}

	// Analysis
	if v := os.Getenv("STATARR_Z_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.ZThreshold = f
		}
	}
	if v := os.Getenv("STATARR_ABSOLUTE_THRESHOLD_MB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.AbsoluteThresholdMB = f
		}
	}
	if v := os.Getenv("STATARR_ANALYSIS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.Interval = Duration(d)
		}
	}

	// Sonarr
	if v := os.Getenv("STATARR_SONARR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sonarr.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("STATARR_SONARR_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sonarr.MaxRetries = n
		}
	}

	// Retention
	if v := os.Getenv("STATARR_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.DaysToKeep = n
		}
	}
	if v := os.Getenv("STATARR_RETENTION_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Retention.Interval = Duration(d)
		}
	}

	// Export storage
	if v := os.Getenv("STATARR_EXPORT_ENDPOINT"); v != "" {
		cfg.Export.Endpoint = v
	}
	if v := os.Getenv("STATARR_EXPORT_BUCKET"); v != "" {
		cfg.Export.Bucket = v
	}
	if v := os.Getenv("STATARR_EXPORT_ACCESS_KEY"); v != "" {
		cfg.Export.AccessKey = v
	}
	if v := os.Getenv("STATARR_EXPORT_SECRET_KEY"); v != "" {
		cfg.Export.SecretKey = v
	}
	if v := os.Getenv("STATARR_EXPORT_REGION"); v != "" {
		cfg.Export.Region = v
	}

	// Log
	if v := os.Getenv("STATARR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STATARR_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that configuration values are in range.
func (c *Config) validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if c.Analysis.ZThreshold <= 0 {
		return fmt.Errorf("analysis z_threshold must be positive, got %v", c.Analysis.ZThreshold)
	}
	if c.Analysis.AbsoluteThresholdMB < 0 {
		return fmt.Errorf("analysis absolute_threshold_mb must not be negative, got %v", c.Analysis.AbsoluteThresholdMB)
	}
	if c.Retention.DaysToKeep < 0 {
		return fmt.Errorf("retention days_to_keep must not be negative, got %d", c.Retention.DaysToKeep)
	}
	if c.Sonarr.MaxRetries < 0 {
		return fmt.Errorf("sonarr max_retries must not be negative, got %d", c.Sonarr.MaxRetries)
	}
	if c.Export.Bucket != "" && c.Export.Endpoint == "" {
		return fmt.Errorf("export endpoint is required when a bucket is configured")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
