package cli

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/phishguard/internal/config"
	"github.com/example/phishguard/internal/scoring"
)

func testLoader(t *testing.T) *config.Loader {
	t.Helper()
	dir := t.TempDir()
	return &config.Loader{
		ConfigPath: filepath.Join(dir, "none.yml"),
		EnvFile:    filepath.Join(dir, "none.env"),
	}
}

func eventTypes(t *testing.T, out []byte) map[string]int {
	t.Helper()
	types := map[string]int{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var evt struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("invalid event line %q: %v", line, err)
		}
		types[evt.Type]++
	}
	return types
}

func TestScanCommandOfflineCreatesArtifacts(t *testing.T) {
	outputDir := t.TempDir()
	summaryPath := filepath.Join(outputDir, "summary.json")

	cmd := newScanCmd(testLoader(t), &rootOptions{})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{
		"--targets=https://www.google.com,https://www.paypa1.com/login",
		"--offline",
		"--output-dir", outputDir,
		"--formats", "json,csv",
		"--summary-file", summaryPath,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("scan command failed: %v", err)
	}

	jsonFiles, err := filepath.Glob(filepath.Join(outputDir, "scan_*.json"))
	if err != nil || len(jsonFiles) != 1 {
		t.Fatalf("expected one JSON artifact, found %v (%v)", jsonFiles, err)
	}
	data, err := os.ReadFile(jsonFiles[0])
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var entries []artifactEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Input != "https://www.google.com" || entries[0].Result.Classification != scoring.Safe {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Result.Classification != scoring.Malicious {
		t.Fatalf("expected typosquat to be malicious, got %+v", entries[1].Result)
	}
	if entries[1].Result.Official.CaseID == "" {
		t.Fatal("expected case id on malicious result")
	}

	csvFiles, _ := filepath.Glob(filepath.Join(outputDir, "scan_*.csv"))
	if len(csvFiles) != 1 {
		t.Fatalf("expected one CSV artifact, found %v", csvFiles)
	}
	file, err := os.Open(csvFiles[0])
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "input" || rows[2][3] != string(scoring.Malicious) {
		t.Fatalf("unexpected csv rows %v", rows)
	}

	summaryData, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var summary map[string]any
	if err := json.Unmarshal(summaryData, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary["inputs"].(float64) != 2 || summary["offline"] != true {
		t.Fatalf("unexpected summary %v", summary)
	}

	types := eventTypes(t, buf.Bytes())
	if types["scan.started"] != 2 || types["scan.completed"] != 2 || types["artifact.written"] != 2 {
		t.Fatalf("unexpected event counts %v", types)
	}
	if types["collector.completed"] == 0 {
		t.Fatal("expected collector.completed events")
	}
}

func TestScanCommandEmailFromStdin(t *testing.T) {
	outputDir := t.TempDir()
	email := "From: PayPal Service <service@paypa1-secure.com>\n" +
		"Subject: Account suspended\n" +
		"\n" +
		"Dear customer, verify your account at https://paypa1-secure.com/login immediately.\n"

	cmd := newScanCmd(testLoader(t), &rootOptions{})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(email))
	cmd.SetArgs([]string{"--mode", "email", "--offline", "--output-dir", outputDir, "--formats", "json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("scan command failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(outputDir, "scan_*.json"))
	if len(files) != 1 {
		t.Fatalf("expected one artifact, found %v", files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var entries []artifactEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if len(entries) != 1 || entries[0].Input != stdinLabel {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Result.Classification != scoring.Malicious {
		t.Fatalf("expected malicious email, got %+v", entries[0].Result)
	}
}

func TestScanCommandFailOn(t *testing.T) {
	cmd := newScanCmd(testLoader(t), &rootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"https://www.paypa1.com/login", "--offline", "--output-dir", t.TempDir(), "--fail-on", "malicious"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "paypa1.com") {
		t.Fatalf("expected fail-on error naming the input, got %v", err)
	}
}

func TestScanCommandRequiresTargets(t *testing.T) {
	cmd := newScanCmd(testLoader(t), &rootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--offline", "--output-dir", t.TempDir()})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no targets") {
		t.Fatalf("expected missing targets error, got %v", err)
	}
}

func TestWriteArtifactUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.xml")
	if err := writeArtifact(path, "xml", nil); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"Suspicious", scoring.SuspiciousThreshold, false},
		{" malicious ", scoring.MaliciousThreshold, false},
		{"critical", 0, true},
	}
	for _, tt := range tests {
		got, err := parseFailOn(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseFailOn(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseFailOn(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScanCommandReportsUnreadableEmail(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.eml")

	cmd := newScanCmd(testLoader(t), &rootOptions{})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{missing, "--mode", "email", "--offline", "--output-dir", t.TempDir()})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unreadable email")
	}
	if types := eventTypes(t, buf.Bytes()); types["scan.failed"] != 1 {
		t.Fatalf("expected one scan.failed event, got %v", types)
	}
}
