package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/phishguard/internal/config"
	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/engine"
	"github.com/example/phishguard/internal/events"
	"github.com/example/phishguard/internal/report"
	"github.com/example/phishguard/internal/scoring"
)

// artifactEntry is one record of a JSON scan artifact.
type artifactEntry struct {
	Input  string        `json:"input"`
	Result report.Result `json:"result"`
}

func newScanCmd(loader *config.Loader, root *rootOptions) *cobra.Command {
	flags := &runtimeFlagSet{}
	var failOn string

	cmd := &cobra.Command{
		Use:   "scan [url | email-file ...]",
		Short: "Score URLs or emails and write risk reports",
		Long: `Scan scores every input and writes JSON and CSV artifacts to the output
directory while streaming NDJSON events on stdout.

In url mode the arguments are URLs. In email mode they are paths to message
files; "-" reads the message from stdin. With no arguments and no configured
targets, piped stdin is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			if len(args) > 0 {
				overrides.Targets = args
			}
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if len(cfg.Targets) == 0 {
				targets, err := stdinTargets(cfg.Mode, cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				cfg.Targets = targets
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			threshold, err := parseFailOn(failOn)
			if err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			emitter := events.NewEmitter(cmd.OutOrStdout())
			inputs, err := resolveInputs(cfg.Mode, cfg.Targets, cmd.InOrStdin())
			if err != nil {
				var inErr *inputError
				if errors.As(err, &inErr) {
					_ = emitter.ScanFailed(inErr.Target, inErr.Err)
				}
				return err
			}

			eng, err := buildEngine(cmd.Context(), cfg, root.Logger(), func(target string, src detector.Source, elapsed time.Duration) {
				_ = emitter.CollectorCompleted(target, src, elapsed)
			})
			if err != nil {
				return err
			}

			entries := scanAll(cmd.Context(), eng, inputs, detector.Mode(cfg.Mode), cfg.Threads, emitter)

			timestamp := time.Now().UTC().Format("20060102_150405")
			var outputs []string
			for _, format := range cfg.Formats {
				format = strings.ToLower(strings.TrimSpace(format))
				if format == "" {
					continue
				}

				outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("scan_%s.%s", timestamp, format))
				if err := writeArtifact(outputPath, format, entries); err != nil {
					return err
				}

				outputs = append(outputs, outputPath)
				if err := emitter.ArtifactWritten(format, outputPath); err != nil {
					return err
				}
			}

			if cfg.SummaryFile != "" {
				if err := writeSummary(cfg.SummaryFile, cfg, entries, outputs); err != nil {
					return err
				}
			}

			return checkThreshold(entries, threshold)
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when any input is classified at or above this level (suspicious, malicious)")

	return cmd
}

// scanAll scans inputs with at most threads in flight and returns the
// entries in input order.
func scanAll(ctx context.Context, eng *engine.Engine, inputs []scanInput, mode detector.Mode, threads int, emitter *events.Emitter) []artifactEntry {
	if ctx == nil {
		ctx = context.Background()
	}
	entries := make([]artifactEntry, len(inputs))

	var g errgroup.Group
	g.SetLimit(max(threads, 1))
	for i, in := range inputs {
		g.Go(func() error {
			_ = emitter.ScanStarted(in.Label, mode)
			res := eng.Detect(ctx, in.Text, mode)
			_ = emitter.ScanCompleted(in.Label, res)
			entries[i] = artifactEntry{Input: in.Label, Result: res}
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

func writeArtifact(path, format string, entries []artifactEntry) error {
	if err := ensureOutputDir(filepath.Dir(path)); err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(data, '\n'), 0o644)
	case "csv":
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeCSV(file, entries); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}

func writeCSV(file *os.File, entries []artifactEntry) error {
	w := csv.NewWriter(file)
	header := []string{"input", "mode", "riskScore", "classification", "threatCategory", "confidence", "rule", "caseId", "reasons"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		r := e.Result
		row := []string{
			csvSafe(e.Input),
			string(r.Mode),
			strconv.Itoa(r.RiskScore),
			string(r.Classification),
			r.Verdict.ThreatCategory,
			strconv.FormatFloat(r.Confidence, 'f', 1, 64),
			string(r.Official.Rule),
			r.Official.CaseID,
			csvSafe(strings.Join(r.Reasons, "; ")),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeSummary(path string, cfg config.RuntimeConfig, entries []artifactEntry, artifacts []string) error {
	counts := map[string]int{}
	for _, e := range entries {
		counts[string(e.Result.Classification)]++
	}

	summary := map[string]any{
		"generatedAt":     time.Now().UTC().Format(time.RFC3339),
		"mode":            cfg.Mode,
		"inputs":          len(entries),
		"classifications": counts,
		"artifacts":       artifacts,
		"offline":         cfg.Offline,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	if err := ensureOutputDir(filepath.Dir(path)); err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// parseFailOn maps a --fail-on value to the lowest score that fails the run;
// zero disables the check.
func parseFailOn(value string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return 0, nil
	case "suspicious":
		return scoring.SuspiciousThreshold, nil
	case "malicious":
		return scoring.MaliciousThreshold, nil
	default:
		return 0, fmt.Errorf("--fail-on must be suspicious or malicious (got %q)", value)
	}
}

func checkThreshold(entries []artifactEntry, threshold int) error {
	if threshold == 0 {
		return nil
	}
	var flagged []string
	for _, e := range entries {
		if e.Result.RiskScore >= threshold {
			flagged = append(flagged, e.Input)
		}
	}
	if len(flagged) > 0 {
		return fmt.Errorf("%d input(s) at or above risk %d: %s", len(flagged), threshold, strings.Join(flagged, ", "))
	}
	return nil
}
