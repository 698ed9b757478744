// Package report assembles the scan result: score, classification,
// confidence, reasons and the verdict and official reports built from the
// collected sources.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/scoring"
)

const maxDetailLen = 60

// Confidence tiers.
const (
	TierHigh   = "High"
	TierMedium = "Medium"
	TierLow    = "Low"
)

// Result is the outcome of one scan. It is built once and never modified.
type Result struct {
	RiskScore      int                    `json:"riskScore"`
	Classification scoring.Classification `json:"classification"`
	Confidence     float64                `json:"confidence"`
	Reasons        []string               `json:"reasons"`
	Sources        []detector.Source      `json:"sources"`
	Mode           detector.Mode          `json:"mode"`
	Targets        []string               `json:"targets"`
	Timestamp      time.Time              `json:"timestamp"`
	ProcessingTime time.Duration          `json:"-"`
	ProcessingMS   int64                  `json:"processingTimeMs"`
	Verdict        VerdictReport          `json:"verdictReport"`
	Official       OfficialReport         `json:"officialReport"`
}

// VerdictReport is the reader-facing summary of a result.
type VerdictReport struct {
	EvidenceSources   []string `json:"evidenceSources"`
	ConfirmedFindings []string `json:"confirmedFindings"`
	ConfidenceTier    string   `json:"confidenceTier"`
	RecommendedAction string   `json:"recommendedAction"`
	ThreatCategory    string   `json:"threatCategory"`
}

// OfficialReport is the audit record of a result.
type OfficialReport struct {
	CaseID             string       `json:"caseId"`
	PrimaryDeterminant string       `json:"primaryDeterminant"`
	Rule               scoring.Rule `json:"rule"`
	AuditTrail         []AuditEntry `json:"auditTrail"`
}

// AuditEntry records one source with the tier its evidence is worth.
type AuditEntry struct {
	Source       string        `json:"source"`
	EvidenceTier detector.Tier `json:"evidenceTier"`
	Detected     bool          `json:"detected"`
	Confidence   int           `json:"confidence"`
	Finding      string        `json:"finding"`
}

// Input is everything Build needs.
type Input struct {
	Mode     detector.Mode
	Targets  []string
	Sources  []detector.Source
	Decision scoring.Decision
	Started  time.Time
	Finished time.Time
}

// Build assembles the result of a completed scan.
func Build(in Input) Result {
	classification := scoring.ClassifyRisk(in.Decision.Score)
	confidence := OverallConfidence(in.Sources)
	elapsed := in.Finished.Sub(in.Started)

	return Result{
		RiskScore:      in.Decision.Score,
		Classification: classification,
		Confidence:     confidence,
		Reasons:        Reasons(in.Sources),
		Sources:        in.Sources,
		Mode:           in.Mode,
		Targets:        in.Targets,
		Timestamp:      in.Finished.UTC(),
		ProcessingTime: elapsed,
		ProcessingMS:   elapsed.Milliseconds(),
		Verdict: VerdictReport{
			EvidenceSources:   evidenceSources(in.Sources),
			ConfirmedFindings: confirmedFindings(in.Sources),
			ConfidenceTier:    ConfidenceTier(confidence),
			RecommendedAction: RecommendedAction(classification),
			ThreatCategory:    ThreatCategory(in.Sources),
		},
		Official: OfficialReport{
			CaseID:             uuid.NewString(),
			PrimaryDeterminant: primaryDeterminant(in.Decision),
			Rule:               in.Decision.Rule,
			AuditTrail:         AuditTrail(in.Sources),
		},
	}
}

// Invalid is the result for input that could not be scanned.
func Invalid(mode detector.Mode, cause string, started, finished time.Time) Result {
	elapsed := finished.Sub(started)
	reason := "Invalid input: " + cause
	return Result{
		Classification: scoring.Safe,
		Reasons:        []string{reason},
		Sources:        []detector.Source{},
		Mode:           mode,
		Targets:        []string{},
		Timestamp:      finished.UTC(),
		ProcessingTime: elapsed,
		ProcessingMS:   elapsed.Milliseconds(),
		Verdict: VerdictReport{
			EvidenceSources:   []string{},
			ConfirmedFindings: []string{},
			ConfidenceTier:    TierLow,
			RecommendedAction: "Provide a valid URL or the full text of the email.",
			ThreatCategory:    "None",
		},
		Official: OfficialReport{
			CaseID:             uuid.NewString(),
			PrimaryDeterminant: reason,
			Rule:               scoring.RuleDefault,
			AuditTrail:         []AuditEntry{},
		},
	}
}

// OverallConfidence is the highest source confidence plus 5 per detected
// source, capped at 99.9 when anything was detected and at 90 otherwise.
func OverallConfidence(sources []detector.Source) float64 {
	if len(sources) == 0 {
		return 0
	}
	best, detected := 0, 0
	for _, s := range sources {
		best = max(best, s.Confidence)
		if s.Detected {
			detected++
		}
	}
	conf := float64(best + 5*detected)
	if detected > 0 {
		return min(conf, 99.9)
	}
	return min(conf, 90)
}

// Reasons returns one line per detected source, deduplicated in source
// order, or two clean-bill lines when nothing was detected.
func Reasons(sources []detector.Source) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range sources {
		if !s.Detected {
			continue
		}
		line := s.Name + ": " + s.Reason
		if detail := truncate(s.Details, maxDetailLen); detail != "" {
			line += " (" + detail + ")"
		}
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return []string{
			fmt.Sprintf("No threats detected across %d security checks", len(sources)),
			"Every check completed without a detection",
		}
	}
	return out
}

// ThreatCategory labels the most significant kind of detected threat.
func ThreatCategory(sources []detector.Source) string {
	detected := map[string]bool{}
	intel, found := false, false
	for _, s := range sources {
		if !s.Detected {
			continue
		}
		found = true
		detected[s.ID] = true
		switch {
		case s.Tier == detector.TierIntelligence:
			intel = intel || s.IsReal
		case s.Category == detector.CategoryVirus:
			intel = true
		}
	}
	switch {
	case !found:
		return "None"
	case detected["brand"] || detected["email-identity"]:
		return "Brand Impersonation"
	case detected["deceptive-infra"]:
		return "Deceptive Infrastructure"
	case detected["homoglyph"]:
		return "Homoglyph Attack"
	case detected["crypto-scam"]:
		return "Crypto Scam"
	case intel:
		return "Malware/Phishing (API)"
	default:
		return "Suspicious Activity"
	}
}

// ConfidenceTier buckets an overall confidence.
func ConfidenceTier(confidence float64) string {
	switch {
	case confidence >= 85:
		return TierHigh
	case confidence >= 60:
		return TierMedium
	default:
		return TierLow
	}
}

// RecommendedAction is the advice shown for a classification.
func RecommendedAction(c scoring.Classification) string {
	switch c {
	case scoring.Malicious:
		return "Block: do not open the link, download attachments or reply. Report it to your security team."
	case scoring.Suspicious:
		return "Caution: verify the sender or site through an independent channel before acting."
	default:
		return "No action needed. Stay alert for unexpected requests for credentials or payment."
	}
}

// AuditTier is the tier a source's evidence is worth in the audit trail.
// Intelligence answered by a local fallback counts as heuristic.
func AuditTier(s detector.Source) detector.Tier {
	if s.Tier == detector.TierIntelligence && !s.IsReal {
		return detector.TierHeuristic
	}
	return s.Tier
}

// AuditTrail records every source with its audit tier.
func AuditTrail(sources []detector.Source) []AuditEntry {
	trail := make([]AuditEntry, 0, len(sources))
	for _, s := range sources {
		trail = append(trail, AuditEntry{
			Source:       s.Name,
			EvidenceTier: AuditTier(s),
			Detected:     s.Detected,
			Confidence:   s.Confidence,
			Finding:      s.Reason,
		})
	}
	return trail
}

func evidenceSources(sources []detector.Source) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range sources {
		if !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s.Name)
		}
	}
	return out
}

func confirmedFindings(sources []detector.Source) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range sources {
		if !s.Detected || !s.IsReal {
			continue
		}
		line := s.Name + ": " + s.Reason
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	return out
}

func primaryDeterminant(d scoring.Decision) string {
	if d.Summary == "" {
		return string(d.Rule)
	}
	return fmt.Sprintf("%s: %s", d.Rule, d.Summary)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
