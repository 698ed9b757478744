package cli

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/phishguard/internal/config"
)

func TestRuntimeFlagSetToOverrides(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]string
		expected config.Overrides
	}{
		{
			name:     "no flags changed returns empty overrides",
			expected: config.Overrides{},
		},
		{
			name: "targets flag changed",
			args: map[string]string{"targets": "https://example.com,https://test.com"},
			expected: config.Overrides{
				Targets: []string{"https://example.com", "https://test.com"},
			},
		},
		{
			name:     "targets-file flag changed",
			args:     map[string]string{"targets-file": "/path/to/targets.txt"},
			expected: config.Overrides{TargetsFile: "/path/to/targets.txt"},
		},
		{
			name:     "mode flag changed",
			args:     map[string]string{"mode": "email"},
			expected: config.Overrides{Mode: "email"},
		},
		{
			name:     "threads flag changed",
			args:     map[string]string{"threads": "20"},
			expected: config.Overrides{Threads: 20, ThreadsSet: true},
		},
		{
			name:     "timeout flag changed",
			args:     map[string]string{"timeout": "7s"},
			expected: config.Overrides{Timeout: 7 * time.Second},
		},
		{
			name:     "detectors flag changed",
			args:     map[string]string{"detectors": "ssl, brand"},
			expected: config.Overrides{Detectors: []string{"ssl", "brand"}},
		},
		{
			name: "boolean flags changed",
			args: map[string]string{"offline": "true", "allow-private-targets": "true", "openphish": "false", "rdap": "false"},
			expected: config.Overrides{
				Offline:      boolPtr(true),
				AllowPrivate: boolPtr(true),
				OpenPhish:    boolPtr(false),
				RDAP:         boolPtr(false),
			},
		},
		{
			name: "reference data flags changed",
			args: map[string]string{"refdata-overlay": "refdata.yml", "allowlist-db": "allow.db", "url-limit": "3"},
			expected: config.Overrides{
				RefdataOverlay: "refdata.yml",
				AllowListDB:    "allow.db",
				URLLimit:       3,
			},
		},
		{
			name: "output flags changed",
			args: map[string]string{"output-dir": "/out", "formats": "json,csv", "summary-file": "/out/summary.json"},
			expected: config.Overrides{
				OutputDir:   "/out",
				Formats:     []string{"json", "csv"},
				SummaryFile: "/out/summary.json",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			flags := &runtimeFlagSet{}
			bindRuntimeFlags(cmd, flags)

			for name, value := range tt.args {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatalf("set %s: %v", name, err)
				}
			}

			result := flags.toOverrides(cmd)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("toOverrides() mismatch\nGot:      %+v\nExpected: %+v", result, tt.expected)
			}
		})
	}
}

func TestRuntimeFlagSetToOverridesUnchangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &runtimeFlagSet{
		targets:   "https://default.com",
		mode:      "email",
		threads:   10,
		outputDir: "/default/output",
		offline:   true,
	}
	bindRuntimeFlags(cmd, flags)

	result := flags.toOverrides(cmd)

	// No flag was set on the command line, so nothing may leak into the overrides.
	if !reflect.DeepEqual(result, config.Overrides{}) {
		t.Errorf("toOverrides() should return empty overrides when no flags changed, got %+v", result)
	}
}

func TestServeFlagsToOverrides(t *testing.T) {
	cmd := newServeCmd(&config.Loader{}, &rootOptions{})
	for name, value := range map[string]string{"listen": "127.0.0.1:9000", "rate-limit": "0.5", "rate-burst": "3", "offline": "true"} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	flags := serveFlagSet{listen: "127.0.0.1:9000", rateLimit: 0.5, rateBurst: 3}
	flags.runtime.offline = true
	ov := flags.toOverrides(cmd)
	if ov.ListenAddr != "127.0.0.1:9000" || ov.RateLimit != 0.5 || ov.RateBurst != 3 || ov.Offline == nil || !*ov.Offline {
		t.Fatalf("unexpected overrides %+v", ov)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
