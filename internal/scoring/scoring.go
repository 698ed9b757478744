// Package scoring turns collector sources into a risk score. Rules are
// evaluated in a fixed order and the first one that matches decides the
// score; nothing is summed or averaged.
package scoring

import (
	"fmt"

	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/urlnorm"
)

// Classification is the verdict label derived from a score.
type Classification string

const (
	Safe       Classification = "SAFE"
	Suspicious Classification = "SUSPICIOUS"
	Malicious  Classification = "MALICIOUS"
)

// Rule names the scoring rule that produced a score.
type Rule string

const (
	RuleAllowList     Rule = "allow-list"
	RuleAuthoritative Rule = "authoritative-intel"
	RuleOverride      Rule = "critical-override"
	RuleCorroboration Rule = "corroboration"
	RuleDefault       Rule = "default"
)

// Thresholds used by the rules.
const (
	allowListVetoConfidence = 90
	authoritativeConfidence = 80
	corroborationScore      = 85
)

// Classification boundaries.
const (
	SuspiciousThreshold = 40
	MaliciousThreshold  = 80
)

// overrides are the terminal technical rules in priority order. A rule
// listing several IDs fires on any of them.
var overrides = []struct {
	ids   []string
	score int
	label string
}{
	{[]string{"homoglyph"}, 99, "Homoglyph attack"},
	{[]string{"email-payload", "malware-patterns"}, 99, "Malicious payload"},
	{[]string{"brand"}, 98, "Brand impersonation"},
	{[]string{"crypto-scam"}, 95, "Crypto scam"},
	{[]string{"deceptive-infra"}, 95, "Deceptive infrastructure"},
	{[]string{"email-identity"}, 92, "Spoofed sender identity"},
}

// Decision is a score together with the rule that produced it.
type Decision struct {
	Score int
	Rule  Rule
	// SourceID is the collector that triggered the rule, when there is one.
	SourceID string
	Summary  string
}

// CalculateRiskScore returns the 0-100 risk score for sources collected over
// targets.
func CalculateRiskScore(sources []detector.Source, targets []string, data *refdata.Dataset) int {
	return Explain(sources, targets, data).Score
}

// Explain evaluates the scoring rules and reports which one fired.
func Explain(sources []detector.Source, targets []string, data *refdata.Dataset) Decision {
	if allowListed(targets, data) && !intelVeto(sources) {
		return Decision{Score: 0, Rule: RuleAllowList, Summary: "Every target is an allow-listed domain"}
	}

	for _, s := range sources {
		if s.Tier == detector.TierIntelligence && s.IsReal && s.Detected && s.Confidence >= authoritativeConfidence {
			return Decision{Score: 100, Rule: RuleAuthoritative, SourceID: s.ID,
				Summary: fmt.Sprintf("%s confirmed the threat", s.Name)}
		}
	}

	for _, o := range overrides {
		for _, id := range o.ids {
			if s, ok := detectedByID(sources, id); ok {
				return Decision{Score: o.score, Rule: RuleOverride, SourceID: s.ID,
					Summary: fmt.Sprintf("%s (%s)", o.label, s.Name)}
			}
		}
	}

	var heuristic, forensic int
	for _, s := range sources {
		if !s.Detected {
			continue
		}
		switch s.Tier {
		case detector.TierHeuristic:
			heuristic++
		case detector.TierForensics:
			forensic++
		}
	}
	if heuristic >= 2 && forensic >= 1 {
		return Decision{Score: corroborationScore, Rule: RuleCorroboration,
			Summary: fmt.Sprintf("%d heuristic signals corroborated by %d forensic signal(s)", heuristic, forensic)}
	}

	return Decision{Score: 0, Rule: RuleDefault, Summary: "No rule matched"}
}

// ClassifyRisk maps a score to its classification.
func ClassifyRisk(score int) Classification {
	switch {
	case score >= MaliciousThreshold:
		return Malicious
	case score >= SuspiciousThreshold:
		return Suspicious
	default:
		return Safe
	}
}

// allowListed reports whether there is at least one target and every target
// host is allow-listed without being a public hosting platform.
func allowListed(targets []string, data *refdata.Dataset) bool {
	if len(targets) == 0 || data == nil {
		return false
	}
	for _, target := range targets {
		host := urlnorm.Hostname(target)
		if host == "" || !data.IsAllowListed(host) || data.IsHostingPlatform(host) {
			return false
		}
	}
	return true
}

// intelVeto reports whether real threat intelligence overrides the allow-list.
func intelVeto(sources []detector.Source) bool {
	for _, s := range sources {
		if s.Tier == detector.TierIntelligence && s.IsReal && s.Detected && s.Confidence >= allowListVetoConfidence {
			return true
		}
	}
	return false
}

func detectedByID(sources []detector.Source, id string) (detector.Source, bool) {
	for _, s := range sources {
		if s.ID == id && s.Detected {
			return s, true
		}
	}
	return detector.Source{}, false
}
