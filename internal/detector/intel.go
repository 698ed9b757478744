package detector

import (
	"context"

	"github.com/example/phishguard/internal/intel"
)

var (
	safeBrowsingInfo = Info{ID: "safe-browsing", Name: "Google Safe Browsing", Tier: TierIntelligence, Category: CategoryIntelligence, Scope: ScopeURL}
	phishTankInfo    = Info{ID: "phishtank", Name: "PhishTank", Tier: TierIntelligence, Category: CategoryIntelligence, Scope: ScopeURL}
	virusTotalInfo   = Info{ID: "virustotal", Name: "VirusTotal", Tier: TierIntelligence, Category: CategoryVirus, Scope: ScopeURL}
	openPhishInfo    = Info{ID: "openphish", Name: "OpenPhish Feed", Tier: TierIntelligence, Category: CategoryIntelligence, Scope: ScopeURL}
)

// intelCollector adapts a reputation client to the Detector contract. A
// verdict produced by the client's local fallback is reported as degraded.
type intelCollector struct {
	info    Info
	checker intel.URLChecker
}

func newIntelCollector(info Info, checker intel.URLChecker) intelCollector {
	return intelCollector{info: info, checker: checker}
}

// NewIntelCollector wraps any URL checker as a Tier 1 collector with the
// given ID and display name.
func NewIntelCollector(id, name string, checker intel.URLChecker) Detector {
	return newIntelCollector(Info{ID: id, Name: name, Tier: TierIntelligence, Category: CategoryIntelligence, Scope: ScopeURL}, checker)
}

func (c intelCollector) Info() Info { return c.info }

func (c intelCollector) Detect(ctx context.Context, in Input) Evidence {
	v := c.checker.CheckURL(ctx, in.Target.URL)
	return Evidence{
		Detected:   v.Detected,
		Confidence: v.Confidence,
		Reason:     v.Reason,
		Details:    in.Target.URL,
		Degraded:   !v.IsReal,
	}
}
