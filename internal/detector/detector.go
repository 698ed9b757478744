package detector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/phishguard/internal/emailtext"
	"github.com/example/phishguard/internal/urlnorm"
)

// Tier ranks evidence by how far it can be trusted.
type Tier int

const (
	// TierIntelligence is external reputation data.
	TierIntelligence Tier = iota + 1
	// TierForensics is a technical property verified locally.
	TierForensics
	// TierHeuristic is keyword or statistical content analysis.
	TierHeuristic
)

func (t Tier) String() string {
	switch t {
	case TierIntelligence:
		return "T1"
	case TierForensics:
		return "T2"
	case TierHeuristic:
		return "T3"
	default:
		return "T?"
	}
}

// MarshalText renders the tier as "T1", "T2" or "T3".
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "T1":
		*t = TierIntelligence
	case "T2":
		*t = TierForensics
	case "T3":
		*t = TierHeuristic
	default:
		return fmt.Errorf("unknown tier %q", text)
	}
	return nil
}

// Category groups sources in reports. It plays no part in scoring.
type Category string

const (
	CategoryIdentity     Category = "Identity"
	CategoryTrust        Category = "Trust"
	CategoryVirus        Category = "Virus"
	CategoryTechnical    Category = "Technical"
	CategoryIntelligence Category = "Intelligence"
)

// Scope says what a collector looks at.
type Scope int

const (
	// ScopeURL collectors run once per target URL.
	ScopeURL Scope = iota
	// ScopeText collectors run once on the whole input in every mode.
	ScopeText
	// ScopeEmail collectors run once on the whole input in email mode only.
	ScopeEmail
)

// Mode is the kind of input being scanned.
type Mode string

const (
	ModeURL   Mode = "url"
	ModeEmail Mode = "email"
)

// Info is the fixed identity of a collector. Provenance is derived from it,
// so a collector cannot claim a trust level it was not registered with.
type Info struct {
	ID       string
	Name     string
	Tier     Tier
	Category Category
	Scope    Scope
	// Promoted marks a heuristic collector whose non-degraded evidence counts
	// as real.
	Promoted bool
}

// Evidence is what a collector reports.
type Evidence struct {
	Detected   bool
	Confidence int
	Reason     string
	Details    string
	// Degraded is set when the answer came from an approximation or a failed
	// check instead of the real inspection.
	Degraded bool
}

// Source is one stamped piece of evidence.
type Source struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Detected   bool     `json:"detected"`
	Confidence int      `json:"confidence"`
	Reason     string   `json:"reason"`
	IsReal     bool     `json:"isReal"`
	Category   Category `json:"category"`
	Tier       Tier     `json:"tier"`
	Details    string   `json:"details,omitempty"`
}

// Stamp turns evidence into a Source using the collector's fixed Info.
func Stamp(info Info, ev Evidence) Source {
	isReal := !ev.Degraded
	if info.Tier == TierHeuristic {
		isReal = info.Promoted && !ev.Degraded
	}

	confidence := ev.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	reason := strings.TrimSpace(ev.Reason)
	if reason == "" {
		if ev.Detected {
			reason = "Suspicious indicators found"
		} else {
			reason = "No suspicious indicators found"
		}
	}

	return Source{
		ID:         info.ID,
		Name:       info.Name,
		Detected:   ev.Detected,
		Confidence: confidence,
		Reason:     reason,
		IsReal:     isReal,
		Category:   info.Category,
		Tier:       info.Tier,
		Details:    ev.Details,
	}
}

// Target is a normalized URL with its host already decomposed.
type Target struct {
	URL    string
	Parsed *url.URL
	// Host keeps any Unicode characters of the input; ASCIIHost is its
	// punycode form.
	Host        string
	ASCIIHost   string
	Parts       urlnorm.Parts
	Registrable string
	IsIP        bool
}

// NewTarget normalizes rawURL and decomposes its host.
func NewTarget(rawURL string) (*Target, error) {
	u, err := urlnorm.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	ascii := urlnorm.ToASCII(host)
	t := &Target{
		URL:       urlnorm.Canonical(u),
		Parsed:    u,
		Host:      host,
		ASCIIHost: ascii,
		IsIP:      urlnorm.IsIPv4(host),
	}
	if t.IsIP {
		t.Parts = urlnorm.Parts{SLD: host}
		t.Registrable = host
	} else {
		t.Parts = urlnorm.ExtractDomainParts(ascii)
		t.Registrable = urlnorm.RegistrableDomain(ascii)
	}
	return t, nil
}

// Input is what one collector invocation sees. Target is set for ScopeURL
// collectors; Text and Email for the whole-input ones.
type Input struct {
	Mode   Mode
	Target *Target
	Text   string
	Email  *emailtext.Message
}

// Detector is implemented by every signal collector. Detect must not panic
// and must honour ctx; the runner guards against both anyway.
type Detector interface {
	Info() Info
	Detect(ctx context.Context, in Input) Evidence
}
