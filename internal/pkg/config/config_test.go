package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  target_books: [crabsports]
  leagues: [nba]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Pipeline.Interval != time.Minute {
		t.Errorf("interval = %s, want 1m", cfg.Pipeline.Interval)
	}
	if cfg.Pipeline.CycleTimeout != 45*time.Second {
		t.Errorf("cycle_timeout = %s, want 45s", cfg.Pipeline.CycleTimeout)
	}
	if cfg.Retry.MaxAttempts != 4 || cfg.Retry.BackoffUnit != time.Second {
		t.Errorf("retry = %+v, want 4 attempts with 1s unit", cfg.Retry)
	}
	if cfg.Resolver.FuzzyThreshold != 0.90 {
		t.Errorf("fuzzy_threshold = %v, want 0.90", cfg.Resolver.FuzzyThreshold)
	}
	if cfg.Calculator.VigMethod != "multiplicative" {
		t.Errorf("vig_method = %q", cfg.Calculator.VigMethod)
	}
	if cfg.Pipeline.SharpBook != "pinnacle" {
		t.Errorf("sharp_book = %q", cfg.Pipeline.SharpBook)
	}
}

func TestLoad_EnvSecrets(t *testing.T) {
	t.Setenv("PINNACLE_API_KEY", "from-env")
	t.Setenv("CRABSPORTS_COOKIE", "")

	path := writeConfig(t, `
parser:
  crabsports:
    cookie: from-file
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Parser.Pinnacle.APIKey != "from-env" {
		t.Errorf("api_key = %q, want from-env", cfg.Parser.Pinnacle.APIKey)
	}
	if cfg.Parser.CrabSports.Cookie != "from-file" {
		t.Errorf("cookie = %q, want from-file", cfg.Parser.CrabSports.Cookie)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"timeout longer than interval", func(c *Config) { c.Pipeline.CycleTimeout = 2 * time.Minute }, true},
		{"sharp book as target", func(c *Config) { c.Pipeline.TargetBooks = []string{"Pinnacle"} }, true},
		{"unknown vig method", func(c *Config) { c.Calculator.VigMethod = "power" }, true},
		{"shin is allowed", func(c *Config) { c.Calculator.VigMethod = "shin" }, false},
		{"threshold above one", func(c *Config) { c.Resolver.FuzzyThreshold = 1.2 }, true},
		{"negative margin", func(c *Config) { c.Resolver.FuzzyMargin = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.ApplyDefaults()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
