package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/phishguard/internal/events"
)

// reportStats aggregates a JSON scan artifact.
type reportStats struct {
	Input             string         `json:"input"`
	GeneratedAt       string         `json:"generatedAt"`
	Scans             int            `json:"scans"`
	Classifications   map[string]int `json:"classifications"`
	ThreatCategories  map[string]int `json:"threatCategories"`
	Rules             map[string]int `json:"rules"`
	AverageScore      float64        `json:"averageScore"`
	TopDetections     []countEntry   `json:"topDetections"`
	UnverifiedSources int            `json:"unverifiedSources"`
}

type countEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newReportCmd() *cobra.Command {
	var inputPath string
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate aggregate stats from a JSON scan artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			data, err := os.ReadFile(filepath.Clean(inputPath))
			if err != nil {
				return err
			}

			var entries []artifactEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", inputPath, err)
			}

			stats := summarize(inputPath, entries)
			fields := map[string]any{}
			raw, err := json.Marshal(stats)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &fields); err != nil {
				return err
			}

			emitter := events.NewEmitter(cmd.OutOrStdout())
			if err := emitter.Emit(events.Event{Type: "report", Message: "Report generated", Fields: fields}); err != nil {
				return err
			}

			if summaryPath != "" {
				if err := writeReportSummary(summaryPath, stats); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to JSON scan artifact")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store summary JSON")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}

func summarize(input string, entries []artifactEntry) reportStats {
	stats := reportStats{
		Input:            input,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		Scans:            len(entries),
		Classifications:  map[string]int{},
		ThreatCategories: map[string]int{},
		Rules:            map[string]int{},
		TopDetections:    []countEntry{},
	}

	detections := map[string]int{}
	total := 0
	for _, e := range entries {
		r := e.Result
		total += r.RiskScore
		stats.Classifications[string(r.Classification)]++
		stats.ThreatCategories[r.Verdict.ThreatCategory]++
		stats.Rules[string(r.Official.Rule)]++
		for _, s := range r.Sources {
			if s.Detected {
				detections[s.Name]++
			}
			if !s.IsReal {
				stats.UnverifiedSources++
			}
		}
	}
	if len(entries) > 0 {
		stats.AverageScore = float64(total) / float64(len(entries))
	}

	for name, count := range detections {
		stats.TopDetections = append(stats.TopDetections, countEntry{Name: name, Count: count})
	}
	sort.Slice(stats.TopDetections, func(i, j int) bool {
		a, b := stats.TopDetections[i], stats.TopDetections[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(stats.TopDetections) > 5 {
		stats.TopDetections = stats.TopDetections[:5]
	}

	return stats
}

func writeReportSummary(path string, stats reportStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
