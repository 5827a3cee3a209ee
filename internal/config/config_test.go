package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statarr.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Point at a non-existent file so only defaults apply.
	t.Setenv("STATARR_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "data/statarr.db" {
		t.Errorf("Expected default database path, got %q", cfg.Database.Path)
	}
	if time.Duration(cfg.Database.QueryTimeout) != 5*time.Second {
		t.Errorf("Expected 5s query timeout, got %v", time.Duration(cfg.Database.QueryTimeout))
	}
	if cfg.Vault.KeyPath != "data/statarr.key" {
		t.Errorf("Expected default key path, got %q", cfg.Vault.KeyPath)
	}
	if cfg.Namespace != "default" {
		t.Errorf("Expected default namespace, got %q", cfg.Namespace)
	}
	if cfg.Analysis.ZThreshold != 2.0 {
		t.Errorf("Expected z threshold 2.0, got %v", cfg.Analysis.ZThreshold)
	}
	if cfg.Analysis.AbsoluteThresholdMB != 0 {
		t.Errorf("Expected absolute threshold disabled, got %v", cfg.Analysis.AbsoluteThresholdMB)
	}
	if cfg.Retention.DaysToKeep != 90 {
		t.Errorf("Expected 90 retention days, got %d", cfg.Retention.DaysToKeep)
	}
	if cfg.Sonarr.MaxRetries != 3 {
		t.Errorf("Expected 3 max retries, got %d", cfg.Sonarr.MaxRetries)
	}
	if cfg.Export.Bucket != "" {
		t.Errorf("Expected offsite export disabled by default, got bucket %q", cfg.Export.Bucket)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Expected info/json logging defaults, got %+v", cfg.Log)
	}
}

func TestLoadFromFile_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: /var/lib/statarr/statarr.db
  query_timeout: 10s
namespace: living-room
analysis:
  z_threshold: 2.5
  absolute_threshold_mb: 1500
  interval: 12h
retention:
  days_to_keep: 30
sonarr:
  timeout: 60s
  max_retries: 5
log:
  level: debug
  format: text
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Database.Path != "/var/lib/statarr/statarr.db" {
		t.Errorf("Expected YAML database path, got %q", cfg.Database.Path)
	}
	if time.Duration(cfg.Database.QueryTimeout) != 10*time.Second {
		t.Errorf("Expected 10s query timeout, got %v", time.Duration(cfg.Database.QueryTimeout))
	}
	if cfg.Namespace != "living-room" {
		t.Errorf("Expected namespace living-room, got %q", cfg.Namespace)
	}
	if cfg.Analysis.ZThreshold != 2.5 {
		t.Errorf("Expected z threshold 2.5, got %v", cfg.Analysis.ZThreshold)
	}
	if cfg.Analysis.AbsoluteThresholdMB != 1500 {
		t.Errorf("Expected absolute threshold 1500, got %v", cfg.Analysis.AbsoluteThresholdMB)
	}
	if time.Duration(cfg.Analysis.Interval) != 12*time.Hour {
		t.Errorf("Expected 12h analysis interval, got %v", time.Duration(cfg.Analysis.Interval))
	}
	if cfg.Retention.DaysToKeep != 30 {
		t.Errorf("Expected 30 retention days, got %d", cfg.Retention.DaysToKeep)
	}
	if cfg.Sonarr.MaxRetries != 5 {
		t.Errorf("Expected 5 max retries, got %d", cfg.Sonarr.MaxRetries)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Expected debug/text logging, got %+v", cfg.Log)
	}
	// Untouched sections keep their defaults.
	if time.Duration(cfg.Retention.Interval) != 24*time.Hour {
		t.Errorf("Expected default retention interval, got %v", time.Duration(cfg.Retention.Interval))
	}
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
namespace: from-yaml
analysis:
  z_threshold: 2.5
`)
	t.Setenv("STATARR_NAMESPACE", "from-env")
	t.Setenv("STATARR_Z_THRESHOLD", "3.0")
	t.Setenv("STATARR_RETENTION_DAYS", "14")
	t.Setenv("STATARR_EXPORT_ENDPOINT", "s3.example.com")
	t.Setenv("STATARR_EXPORT_BUCKET", "exports")
	t.Setenv("STATARR_EXPORT_ACCESS_KEY", "AKIA")
	t.Setenv("STATARR_EXPORT_SECRET_KEY", "shhh")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Namespace != "from-env" {
		t.Errorf("Expected env namespace to win, got %q", cfg.Namespace)
	}
	if cfg.Analysis.ZThreshold != 3.0 {
		t.Errorf("Expected env z threshold to win, got %v", cfg.Analysis.ZThreshold)
	}
	if cfg.Retention.DaysToKeep != 14 {
		t.Errorf("Expected 14 retention days, got %d", cfg.Retention.DaysToKeep)
	}
	if cfg.Export.Bucket != "exports" || cfg.Export.Endpoint != "s3.example.com" {
		t.Errorf("Expected export env settings applied, got %+v", cfg.Export)
	}
	if cfg.Export.AccessKey != "AKIA" || cfg.Export.SecretKey != "shhh" {
		t.Error("Expected export credentials from environment")
	}
}

func TestLoadFromFile_MissingFileIsError(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadFromFile_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "namespace: [unclosed")

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestLoadFromFile_InvalidDuration(t *testing.T) {
	path := writeConfigFile(t, `
database:
  query_timeout: not-a-duration
`)

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("Expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("Expected duration parse error, got %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty namespace", func(c *Config) { c.Namespace = "" }, "namespace"},
		{"zero z threshold", func(c *Config) { c.Analysis.ZThreshold = 0 }, "z_threshold"},
		{"negative z threshold", func(c *Config) { c.Analysis.ZThreshold = -1 }, "z_threshold"},
		{"negative absolute threshold", func(c *Config) { c.Analysis.AbsoluteThresholdMB = -10 }, "absolute_threshold_mb"},
		{"negative retention days", func(c *Config) { c.Retention.DaysToKeep = -1 }, "days_to_keep"},
		{"negative max retries", func(c *Config) { c.Sonarr.MaxRetries = -1 }, "max_retries"},
		{"bucket without endpoint", func(c *Config) { c.Export.Bucket = "exports" }, "endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefaults()
			tt.mutate(cfg)
			err := cfg.validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error naming %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	d := Duration(90 * time.Minute)
	out, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	if out != "1h30m0s" {
		t.Errorf("Expected 1h30m0s, got %v", out)
	}
}
