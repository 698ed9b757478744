package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoaderLoadWithFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	targetFile := filepath.Join(dir, "targets.txt")
	if err := os.WriteFile(targetFile, []byte("https://one.test\n# comment\nhttps://two.test\n"), 0o600); err != nil {
		t.Fatalf("write targets: %v", err)
	}

	configPath := filepath.Join(dir, "phishguard.config.yml")
	configBody := []byte("mode: email\nthreads: 6\ntimeout: 10s\noutputDir: out\ntargetsFile: " + targetFile +
		"\ndetectors: ssl, brand\nformats:\n  - json\n")
	if err := os.WriteFile(configPath, configBody, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(envThreads, "12")
	t.Setenv(envFormats, "csv")
	t.Setenv(envOffline, "true")

	loader := Loader{ConfigPath: configPath, EnvFile: filepath.Join(dir, "missing.env")}
	cfg, err := loader.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}

	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(cfg.Targets))
	}

	if cfg.Mode != ModeEmail {
		t.Fatalf("expected mode email, got %s", cfg.Mode)
	}

	if cfg.Threads != 12 {
		t.Fatalf("env override should set threads to 12, got %d", cfg.Threads)
	}

	if cfg.Timeout != 10*time.Second {
		t.Fatalf("expected timeout 10s, got %s", cfg.Timeout)
	}

	if len(cfg.Detectors) != 2 || cfg.Detectors[1] != "brand" {
		t.Fatalf("unexpected detectors: %#v", cfg.Detectors)
	}

	if !cfg.Offline {
		t.Fatal("env override should enable offline mode")
	}

	if cfg.OutputDir != "out" {
		t.Fatalf("expected output dir out, got %s", cfg.OutputDir)
	}

	if len(cfg.Formats) != 1 || cfg.Formats[0] != "csv" {
		t.Fatalf("unexpected formats: %#v", cfg.Formats)
	}
}

func TestOverridesApplyTargetsList(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "phishguard.config.yml")
	if err := os.WriteFile(configPath, []byte("targets:\n  - https://from-file.test\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := Loader{ConfigPath: configPath}
	over := Overrides{Targets: []string{"https://override.test"}}
	cfg, err := loader.Load(over)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://override.test" {
		t.Fatalf("expected overrides to replace targets, got %#v", cfg.Targets)
	}
}

func TestLoaderRemoteLookupsAreOptIn(t *testing.T) {
	dir := t.TempDir()
	loader := Loader{ConfigPath: filepath.Join(dir, "none.yml"), EnvFile: filepath.Join(dir, "none.env")}

	cfg, err := loader.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RDAP || cfg.OpenPhish {
		t.Fatalf("RDAP and OpenPhish must be off by default, got rdap=%v openphish=%v", cfg.RDAP, cfg.OpenPhish)
	}

	t.Setenv(envRDAP, "true")
	cfg, err = loader.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.RDAP {
		t.Fatal("expected RDAP enabled from the environment")
	}
}

func TestLoaderReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte(envURLLimit+"=3\n"+envRateBurst+"=4\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	// Registered so that the variables godotenv sets are cleared afterwards.
	t.Setenv(envURLLimit, "")
	t.Setenv(envRateBurst, "7")
	os.Unsetenv(envURLLimit)

	cfg, err := Loader{ConfigPath: filepath.Join(dir, "none.yml"), EnvFile: envPath}.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.URLLimit != 3 {
		t.Fatalf("expected url limit from .env, got %d", cfg.URLLimit)
	}
	if cfg.RateBurst != 7 {
		t.Fatalf(".env must not override the process environment, got burst %d", cfg.RateBurst)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RuntimeConfig)
		want   string
	}{
		{"defaults", func(*RuntimeConfig) {}, ""},
		{"no targets", func(c *RuntimeConfig) { c.Targets = nil }, "no targets"},
		{"bad mode", func(c *RuntimeConfig) { c.Mode = "sms" }, "mode must be"},
		{"threads", func(c *RuntimeConfig) { c.Threads = 0 }, "threads must be"},
		{"short timeout", func(c *RuntimeConfig) { c.Timeout = 500 * time.Millisecond }, "timeout must be"},
		{"long timeout", func(c *RuntimeConfig) { c.Timeout = time.Minute }, "timeout must be"},
		{"format", func(c *RuntimeConfig) { c.Formats = []string{"xml"} }, "unsupported output format"},
		{"output", func(c *RuntimeConfig) { c.OutputDir = "" }, "output directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRuntimeConfig()
			cfg.Targets = []string{"https://example.com"}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"10":     10 * time.Second,
		"1500ms": 1500 * time.Millisecond,
		" 2s ":   2 * time.Second,
	}
	for input, want := range cases {
		got, err := ParseTimeout(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}

	if _, err := ParseTimeout("soon"); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}

func TestParseTargetsList(t *testing.T) {
	input := "https://one.test,https://two.test\nhttps://three.test"
	targets := ParseTargetsList(input)
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
}
