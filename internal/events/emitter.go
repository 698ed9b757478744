// Package events writes the scan lifecycle as NDJSON, one record per line,
// so that wrappers can follow a scan while it runs.
package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/report"
)

// Event types.
const (
	TypeScanStarted        = "scan.started"
	TypeCollectorCompleted = "collector.completed"
	TypeScanCompleted      = "scan.completed"
	TypeScanFailed         = "scan.failed"
	TypeArtifactWritten    = "artifact.written"
)

// Event represents a single NDJSON record.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
// A nil *Emitter discards everything.
type Emitter struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w}
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}

// ScanStarted announces a scan of input in mode.
func (e *Emitter) ScanStarted(input string, mode detector.Mode) error {
	return e.Emit(Event{
		Type:    TypeScanStarted,
		Message: "scan started",
		Fields: map[string]any{
			"input": preview(input),
			"mode":  string(mode),
		},
	})
}

// CollectorCompleted records one stamped source. target is empty for the
// collectors that look at the whole input.
func (e *Emitter) CollectorCompleted(target string, src detector.Source, elapsed time.Duration) error {
	fields := map[string]any{
		"collector":  src.ID,
		"tier":       src.Tier.String(),
		"detected":   src.Detected,
		"confidence": src.Confidence,
		"isReal":     src.IsReal,
		"elapsedMs":  elapsed.Milliseconds(),
	}
	if target != "" {
		fields["target"] = target
	}
	return e.Emit(Event{Type: TypeCollectorCompleted, Message: src.Reason, Fields: fields})
}

// ScanCompleted summarizes a finished scan.
func (e *Emitter) ScanCompleted(input string, res report.Result) error {
	return e.Emit(Event{
		Type:    TypeScanCompleted,
		Message: res.Official.PrimaryDeterminant,
		Fields: map[string]any{
			"input":          preview(input),
			"caseId":         res.Official.CaseID,
			"riskScore":      res.RiskScore,
			"classification": string(res.Classification),
			"threatCategory": res.Verdict.ThreatCategory,
			"sources":        len(res.Sources),
			"elapsedMs":      res.ProcessingMS,
		},
	})
}

// ScanFailed reports a scan that could not run.
func (e *Emitter) ScanFailed(input string, err error) error {
	return e.Emit(Event{
		Type:    TypeScanFailed,
		Message: err.Error(),
		Fields:  map[string]any{"input": preview(input)},
	})
}

// ArtifactWritten reports a result file written to disk.
func (e *Emitter) ArtifactWritten(format, path string) error {
	return e.Emit(Event{
		Type:   TypeArtifactWritten,
		Fields: map[string]any{"format": format, "path": path},
	})
}

// preview keeps events small when the input is a whole email.
func preview(input string) string {
	const limit = 120
	r := []rune(input)
	if len(r) <= limit {
		return input
	}
	return string(r[:limit]) + "..."
}
