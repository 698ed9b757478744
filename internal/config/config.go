package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "phishguard.config.yml"
	DefaultEnvFile    = ".env"

	ModeURL   = "url"
	ModeEmail = "email"

	MinTimeout = time.Second
	MaxTimeout = 30 * time.Second

	envTargets      = "PHISHGUARD_TARGETS"
	envTargetsFile  = "PHISHGUARD_TARGETS_FILE"
	envMode         = "PHISHGUARD_MODE"
	envThreads      = "PHISHGUARD_THREADS"
	envTimeout      = "PHISHGUARD_TIMEOUT"
	envDetectors    = "PHISHGUARD_DETECTORS"
	envOffline      = "PHISHGUARD_OFFLINE"
	envAllowPrivate = "PHISHGUARD_ALLOW_PRIVATE_TARGETS"
	envOverlay      = "PHISHGUARD_REFDATA_OVERLAY"
	envAllowListDB  = "PHISHGUARD_ALLOWLIST_DB"
	envOpenPhish    = "PHISHGUARD_OPENPHISH"
	envRDAP         = "PHISHGUARD_RDAP"
	envURLLimit     = "PHISHGUARD_URL_LIMIT"
	envListenAddr   = "PHISHGUARD_LISTEN_ADDR"
	envRateLimit    = "PHISHGUARD_RATE_LIMIT"
	envRateBurst    = "PHISHGUARD_RATE_BURST"
	envOutputDir    = "PHISHGUARD_OUTPUT_DIR"
	envFormats      = "PHISHGUARD_FORMATS"
	envSummaryFile  = "PHISHGUARD_SUMMARY_FILE"
)

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
	// EnvFile is a dotenv file loaded into the process environment before
	// the environment is read. Variables already set are left alone.
	EnvFile string
}

// RuntimeConfig contains the fully merged settings required by phishguard sub-commands.
type RuntimeConfig struct {
	Targets   []string
	Mode      string
	Threads   int
	Timeout   time.Duration
	Detectors []string
	URLLimit  int

	Offline             bool
	AllowPrivateTargets bool
	OpenPhish           bool
	RDAP                bool

	RefdataOverlay string
	AllowListDB    string

	ListenAddr string
	RateLimit  float64
	RateBurst  int

	OutputDir   string
	Formats     []string
	SummaryFile string
}

// Overrides captures values coming from env vars or CLI flags.
type Overrides struct {
	Targets      []string
	TargetsFile  string
	Mode         string
	Threads      int
	ThreadsSet   bool
	Timeout      time.Duration
	Detectors    []string
	URLLimit     int
	Offline      *bool
	AllowPrivate *bool
	OpenPhish    *bool
	RDAP         *bool

	RefdataOverlay string
	AllowListDB    string

	ListenAddr string
	RateLimit  float64
	RateBurst  int

	OutputDir   string
	Formats     []string
	SummaryFile string
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Mode:       ModeURL,
		Threads:    4,
		Timeout:    5 * time.Second,
		URLLimit:   5,
		ListenAddr: ":8080",
		RateLimit:  2,
		RateBurst:  10,
		OutputDir:  "scan-results",
		Formats:    []string{"json", "csv"},
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	envFile := l.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load %s: %w", path, err)
		}
		if err := cfg.apply(fileOv); err != nil {
			return cfg, err
		}
	}

	envOv, err := overridesFromEnv()
	if err != nil {
		return cfg, err
	}
	if err := cfg.apply(envOv); err != nil {
		return cfg, err
	}

	if err := cfg.apply(override); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for scan/init commands.
func (c RuntimeConfig) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("no targets configured; provide arguments, --targets-file, or set PHISHGUARD_TARGETS")
	}
	return c.ValidateRuntime()
}

// ValidateRuntime checks everything except the targets, which the API server
// receives per request.
func (c RuntimeConfig) ValidateRuntime() error {
	if c.Mode != ModeURL && c.Mode != ModeEmail {
		return fmt.Errorf("mode must be %q or %q (got %q)", ModeURL, ModeEmail, c.Mode)
	}

	if c.Threads < 1 || c.Threads > 64 {
		return fmt.Errorf("threads must be between 1 and 64 (got %d)", c.Threads)
	}

	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		return fmt.Errorf("timeout must be between %s and %s (got %s)", MinTimeout, MaxTimeout, c.Timeout)
	}

	if c.URLLimit < 1 {
		return fmt.Errorf("url limit must be positive (got %d)", c.URLLimit)
	}

	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("rate limit must be positive (got %.2f/s, burst %d)", c.RateLimit, c.RateBurst)
	}

	if len(c.Formats) == 0 {
		return errors.New("at least one output format must be specified")
	}
	for _, f := range c.Formats {
		if f != "json" && f != "csv" {
			return fmt.Errorf("unsupported output format %q", f)
		}
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	return nil
}

func (c *RuntimeConfig) apply(src Overrides) error {
	if len(src.Targets) > 0 {
		c.Targets = cleanList(src.Targets)
	}

	if src.TargetsFile != "" {
		values, err := readTargetsFile(src.TargetsFile)
		if err != nil {
			return fmt.Errorf("read targets file: %w", err)
		}
		c.Targets = values
	}

	if src.Mode != "" {
		c.Mode = strings.ToLower(src.Mode)
	}

	if src.ThreadsSet {
		c.Threads = src.Threads
	}

	if src.Timeout != 0 {
		c.Timeout = src.Timeout
	}

	if len(src.Detectors) > 0 {
		c.Detectors = cleanList(src.Detectors)
	}

	if src.URLLimit != 0 {
		c.URLLimit = src.URLLimit
	}

	if src.Offline != nil {
		c.Offline = *src.Offline
	}

	if src.AllowPrivate != nil {
		c.AllowPrivateTargets = *src.AllowPrivate
	}

	if src.OpenPhish != nil {
		c.OpenPhish = *src.OpenPhish
	}

	if src.RDAP != nil {
		c.RDAP = *src.RDAP
	}

	if src.RefdataOverlay != "" {
		c.RefdataOverlay = src.RefdataOverlay
	}

	if src.AllowListDB != "" {
		c.AllowListDB = src.AllowListDB
	}

	if src.ListenAddr != "" {
		c.ListenAddr = src.ListenAddr
	}

	if src.RateLimit != 0 {
		c.RateLimit = src.RateLimit
	}

	if src.RateBurst != 0 {
		c.RateBurst = src.RateBurst
	}

	if src.OutputDir != "" {
		c.OutputDir = src.OutputDir
	}

	if len(src.Formats) > 0 {
		c.Formats = cleanList(src.Formats)
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}

	return nil
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		Targets             targetList `yaml:"targets"`
		TargetsFile         string     `yaml:"targetsFile"`
		Mode                string     `yaml:"mode"`
		Threads             *int       `yaml:"threads"`
		Timeout             string     `yaml:"timeout"`
		Detectors           targetList `yaml:"detectors"`
		URLLimit            int        `yaml:"urlLimit"`
		Offline             *bool      `yaml:"offline"`
		AllowPrivateTargets *bool      `yaml:"allowPrivateTargets"`
		OpenPhish           *bool      `yaml:"openPhish"`
		RDAP                *bool      `yaml:"rdap"`
		RefdataOverlay      string     `yaml:"refdataOverlay"`
		AllowListDB         string     `yaml:"allowListDB"`
		ListenAddr          string     `yaml:"listenAddr"`
		RateLimit           float64    `yaml:"rateLimit"`
		RateBurst           int        `yaml:"rateBurst"`
		OutputDir           string     `yaml:"outputDir"`
		Formats             []string   `yaml:"formats"`
		SummaryFile         string     `yaml:"summaryFile"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		Targets:        raw.Targets,
		TargetsFile:    raw.TargetsFile,
		Mode:           raw.Mode,
		Detectors:      raw.Detectors,
		URLLimit:       raw.URLLimit,
		Offline:        raw.Offline,
		AllowPrivate:   raw.AllowPrivateTargets,
		OpenPhish:      raw.OpenPhish,
		RDAP:           raw.RDAP,
		RefdataOverlay: raw.RefdataOverlay,
		AllowListDB:    raw.AllowListDB,
		ListenAddr:     raw.ListenAddr,
		RateLimit:      raw.RateLimit,
		RateBurst:      raw.RateBurst,
		OutputDir:      raw.OutputDir,
		Formats:        raw.Formats,
		SummaryFile:    raw.SummaryFile,
	}

	if raw.Threads != nil {
		over.Threads = *raw.Threads
		over.ThreadsSet = true
	}

	if raw.Timeout != "" {
		timeout, err := ParseTimeout(raw.Timeout)
		if err != nil {
			return Overrides{}, err
		}
		over.Timeout = timeout
	}

	return over, nil
}

func overridesFromEnv() (Overrides, error) {
	ov := Overrides{}

	if value := os.Getenv(envTargets); value != "" {
		ov.Targets = ParseTargetsList(value)
	}

	if value := os.Getenv(envTargetsFile); value != "" {
		ov.TargetsFile = value
	}

	if value := os.Getenv(envMode); value != "" {
		ov.Mode = value
	}

	if value := os.Getenv(envThreads); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Threads = parsed
			ov.ThreadsSet = true
		}
	}

	if value := os.Getenv(envTimeout); value != "" {
		timeout, err := ParseTimeout(value)
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envTimeout, err)
		}
		ov.Timeout = timeout
	}

	if value := os.Getenv(envDetectors); value != "" {
		ov.Detectors = ParseFormats(value)
	}

	if value := os.Getenv(envURLLimit); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.URLLimit = parsed
		}
	}

	ov.Offline = boolFromEnv(envOffline)
	ov.AllowPrivate = boolFromEnv(envAllowPrivate)
	ov.OpenPhish = boolFromEnv(envOpenPhish)
	ov.RDAP = boolFromEnv(envRDAP)

	if value := os.Getenv(envOverlay); value != "" {
		ov.RefdataOverlay = value
	}

	if value := os.Getenv(envAllowListDB); value != "" {
		ov.AllowListDB = value
	}

	if value := os.Getenv(envListenAddr); value != "" {
		ov.ListenAddr = value
	}

	if value := os.Getenv(envRateLimit); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			ov.RateLimit = parsed
		}
	}

	if value := os.Getenv(envRateBurst); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.RateBurst = parsed
		}
	}

	if value := os.Getenv(envOutputDir); value != "" {
		ov.OutputDir = value
	}

	if value := os.Getenv(envFormats); value != "" {
		ov.Formats = ParseFormats(value)
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	return ov, nil
}

func boolFromEnv(key string) *bool {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed := strings.EqualFold(value, "true") || value == "1"
	return &parsed
}

// ParseTimeout accepts a Go duration ("1500ms", "10s") or a bare number of
// seconds.
func ParseTimeout(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if secs, err := strconv.Atoi(input); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", input)
	}
	return d, nil
}

// ParseTargetsList turns comma or newline separated input into individual targets.
func ParseTargetsList(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r'})
}

// ParseFormats splits comma separated format strings.
func ParseFormats(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

func splitOnDelimiters(input string, delims []rune) []string {
	if input == "" {
		return nil
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	parts := strings.FieldsFunc(trimmed, separator)
	return cleanList(parts)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func readTargetsFile(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var targets []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// targetList enables YAML fields that can be specified as a scalar or sequence.
type targetList []string

func (t *targetList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*t = cleanList(out)
	case yaml.ScalarNode:
		*t = ParseTargetsList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for list")
	}
	return nil
}
