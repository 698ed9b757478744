package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/phishguard/internal/config"
)

func TestInitCommandSuccessfulValidation(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "results")

	cmd := newInitCmd(testLoader(t))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--output-dir", outputDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init command failed: %v\nOutput: %s", err, buf.String())
	}

	output := buf.String()
	if !strings.Contains(output, "Environment looks good") {
		t.Fatalf("expected success message, got: %s", output)
	}
	if !strings.Contains(output, outputDir) {
		t.Fatalf("expected output dir in message, got: %s", output)
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir to be created: %v", err)
	}
}

func TestInitCommandRejectsInvalidThreads(t *testing.T) {
	cmd := newInitCmd(testLoader(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--threads", "500", "--output-dir", t.TempDir()})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation error for threads out of range")
	}
}

func TestInitCommandRejectsMissingOverlay(t *testing.T) {
	cmd := newInitCmd(testLoader(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--refdata-overlay", filepath.Join(t.TempDir(), "missing.yml"), "--output-dir", t.TempDir()})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "reference overlay") {
		t.Fatalf("expected overlay error, got %v", err)
	}
}

func TestInitCommandWritesStarterConfig(t *testing.T) {
	dir := t.TempDir()
	loader := &config.Loader{
		ConfigPath: filepath.Join(dir, "phishguard.config.yml"),
		EnvFile:    filepath.Join(dir, "none.env"),
	}
	outputDir := filepath.Join(dir, "out")

	cmd := newInitCmd(loader)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--write-config", "--output-dir", outputDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init --write-config failed: %v\nOutput: %s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Wrote "+loader.ConfigPath) {
		t.Fatalf("expected write confirmation, got: %s", buf.String())
	}

	cfg, err := loader.Load(config.Overrides{})
	if err != nil {
		t.Fatalf("starter config does not load: %v", err)
	}
	if cfg.Mode != config.ModeURL || cfg.Threads != 4 || cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected starter config %+v", cfg)
	}

	again := newInitCmd(loader)
	again.SetOut(&bytes.Buffer{})
	again.SetErr(&bytes.Buffer{})
	again.SetArgs([]string{"--write-config", "--output-dir", outputDir})
	if err := again.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
}
