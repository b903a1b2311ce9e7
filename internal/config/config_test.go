package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/snehjoshi/bakery/internal/config"
)

func TestDefault_HasSensibleValues(t *testing.T) {
	cfg := config.Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.DataDir != "./data" {
		t.Errorf("expected default data_dir ./data, got %s", cfg.Server.DataDir)
	}
	if cfg.Tables.CustomerBuckets != 20 || cfg.Tables.EmployeeBuckets != 20 {
		t.Errorf("expected 20 buckets per table, got %d/%d", cfg.Tables.CustomerBuckets, cfg.Tables.EmployeeBuckets)
	}
	if cfg.IDs.Strategy != config.IDSequence || cfg.IDs.OrderPrefix != "O" || cfg.IDs.OrderStart != 1000 {
		t.Errorf("unexpected id defaults: %+v", cfg.IDs)
	}
	if cfg.Auth.Enabled {
		t.Error("auth must be disabled by default")
	}
	if !cfg.Seed.Enabled {
		t.Error("seeding must be enabled by default")
	}
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port for missing file, got %d", cfg.Server.Port)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	yaml := `
server:
  port: 9999
  data_dir: "/tmp/bakery_test"
tables:
  customer_buckets: 7
ids:
  strategy: "ulid"
notify:
  retries: 5
  webhooks:
    - url: "http://dispatch.local/hooks/shipped"
      secret: "s3cret"
log:
  level: "debug"
  format: "text"
`
	path := writeTempYAML(t, yaml)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Tables.CustomerBuckets != 7 {
		t.Errorf("expected customer_buckets 7, got %d", cfg.Tables.CustomerBuckets)
	}
	if cfg.IDs.Strategy != config.IDULID {
		t.Errorf("expected ulid strategy, got %s", cfg.IDs.Strategy)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected text log format, got %s", cfg.Log.Format)
	}
	if len(cfg.Notify.Webhooks) != 1 || cfg.Notify.Webhooks[0].Secret != "s3cret" || cfg.Notify.Retries != 5 {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	// Unset fields keep their defaults.
	if cfg.Notify.Buffer != 256 {
		t.Errorf("expected default notify buffer 256, got %d", cfg.Notify.Buffer)
	}
	if cfg.Tables.EmployeeBuckets != 20 {
		t.Errorf("expected default employee_buckets 20 (unchanged), got %d", cfg.Tables.EmployeeBuckets)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid, got: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BAKERY_API_KEY", "k3y")
	t.Setenv("BAKERY_PORT", "7070")
	t.Setenv("BAKERY_DATA_DIR", "/srv/bakery")
	t.Setenv("BAKERY_LOG_LEVEL", "WARN")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "k3y" {
		t.Errorf("expected auth enabled with env key, got %+v", cfg.Auth)
	}
	if cfg.Server.Port != 7070 || cfg.Server.DataDir != "/srv/bakery" {
		t.Errorf("expected env server overrides, got %+v", cfg.Server)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Log.Level)
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	path := writeTempYAML(t, "server: [invalid: yaml: {{{}}")
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port 0", func(c *config.Config) { c.Server.Port = 0 }},
		{"port 99999", func(c *config.Config) { c.Server.Port = 99999 }},
		{"empty data dir", func(c *config.Config) { c.Server.DataDir = "" }},
		{"zero buckets", func(c *config.Config) { c.Tables.CustomerBuckets = 0 }},
		{"unknown id strategy", func(c *config.Config) { c.IDs.Strategy = "uuid" }},
		{"same prefixes", func(c *config.Config) { c.IDs.ProductPrefix = "O" }},
		{"auth without key", func(c *config.Config) { c.Auth.Enabled = true }},
		{"bcrypt cost too low", func(c *config.Config) { c.Auth.BcryptCost = 2 }},
		{"similarity above one", func(c *config.Config) { c.Catalog.SuggestMinSimilarity = 1.5 }},
		{"unknown log level", func(c *config.Config) { c.Log.Level = "loud" }},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"storage without file", func(c *config.Config) { c.Storage.File = "" }},
		{"negative retries", func(c *config.Config) { c.Notify.Retries = -1 }},
		{"zero notify buffer", func(c *config.Config) { c.Notify.Buffer = 0 }},
		{"webhook without url", func(c *config.Config) {
			c.Notify.Webhooks = []config.WebhookConfig{{Secret: "s"}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// writeTempYAML writes content to a temp file and returns its path.
func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writeTempYAML: %v", err)
	}
	return path
}
