package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/phishguard/internal/intel"
	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/urlnorm"
)

type privacyProxyDetector struct {
	data  *refdata.Dataset
	whois intel.AgeLookup
}

func (privacyProxyDetector) Info() Info {
	return Info{ID: "privacy-proxy", Name: "Privacy & Parking Analysis", Tier: TierForensics, Category: CategoryTrust, Scope: ScopeURL}
}

func (d privacyProxyDetector) Detect(ctx context.Context, in Input) Evidence {
	t := in.Target
	host := urlnorm.StripWWW(t.ASCIIHost)
	if t.IsIP || d.data.IsAllowListed(host) {
		return Evidence{Confidence: 70, Reason: "No privacy or parking indicators", Details: host}
	}

	for _, marker := range d.data.PrivacyMarkers {
		if strings.Contains(host, marker) {
			return Evidence{Detected: true, Confidence: 70, Details: host,
				Reason: fmt.Sprintf("Hostname carries privacy or parking marker %q", marker)}
		}
	}

	tld := lastLabel(host)
	if d.data.IsParkingTLD(tld) {
		return Evidence{Detected: true, Confidence: 65, Details: host,
			Reason: fmt.Sprintf("Domain uses .%s, a free registry favoured for parked throwaway domains", tld)}
	}

	if d.whois != nil {
		age := d.whois.DomainAge(ctx, t.Registrable)
		if age.IsReal && age.Registrant != "" {
			registrant := strings.ToLower(age.Registrant)
			for _, marker := range d.data.PrivacyMarkers {
				if strings.Contains(strings.ReplaceAll(registrant, " ", ""), marker) {
					return Evidence{Detected: true, Confidence: 60, Details: age.Registrant,
						Reason: "Registrant hidden behind a privacy proxy service"}
				}
			}
		}
	}
	return Evidence{Confidence: 70, Reason: "No privacy or parking indicators", Details: host}
}

type domainAgeDetector struct {
	data  *refdata.Dataset
	whois intel.AgeLookup
}

func (domainAgeDetector) Info() Info {
	return Info{ID: "domain-age", Name: "Domain Age", Tier: TierForensics, Category: CategoryTrust, Scope: ScopeURL}
}

func (d domainAgeDetector) Detect(ctx context.Context, in Input) Evidence {
	t := in.Target
	if t.IsIP {
		return Evidence{Confidence: 50, Reason: "No domain registration for a raw IP address", Details: t.Host}
	}
	if d.data.IsAllowListed(t.Registrable) {
		return Evidence{Confidence: 85, Reason: "Established, allow-listed domain", Details: t.Registrable}
	}
	if d.whois == nil {
		return Evidence{Degraded: true, Confidence: 40, Reason: "Registration lookup unavailable", Details: t.Registrable}
	}

	age := d.whois.DomainAge(ctx, t.Registrable)
	ev := Evidence{Detected: age.IsNew, Reason: age.Reason, Details: t.Registrable, Degraded: !age.IsReal}
	switch {
	case age.IsReal && age.IsNew:
		ev.Confidence = 80
	case age.IsReal:
		ev.Confidence = 75
	case age.IsNew:
		ev.Confidence = 55
	default:
		ev.Confidence = 40
	}
	if age.Days >= 0 && ev.Reason == "" {
		ev.Reason = fmt.Sprintf("Domain registered %d days ago", age.Days)
	}
	return ev
}
