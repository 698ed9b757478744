package detector

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/urlnorm"
)

// confusables map characters and digraphs that read like a letter. The digit
// 1 stands in for both l and i, so there is one replacer per reading.
var confusables = []*strings.Replacer{
	strings.NewReplacer("rn", "m", "vv", "w", "0", "o", "1", "l", "3", "e", "4", "a", "5", "s", "7", "t", "8", "b", "@", "a"),
	strings.NewReplacer("rn", "m", "vv", "w", "0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t", "8", "b", "@", "a"),
}

// hostView splits a target host into the labels its registrant controls.
// On a hosting platform that is everything left of the platform suffix.
type hostView struct {
	host       string
	hosting    bool
	platform   string
	sld        string
	subLabels  []string
	pathTokens []string
}

func newHostView(data *refdata.Dataset, t *Target) hostView {
	host := urlnorm.StripWWW(t.ASCIIHost)
	v := hostView{host: host, pathTokens: refdata.Words(t.Parsed.Path)}
	if t.IsIP {
		return v
	}

	if platform, ok := data.HostingPlatform(host); ok && host != platform {
		own := strings.Split(strings.TrimSuffix(host, "."+platform), ".")
		v.hosting = true
		v.platform = platform
		v.sld = own[len(own)-1]
		v.subLabels = own[:len(own)-1]
		return v
	}

	v.sld = t.Parts.SLD
	for _, label := range t.Parts.Subdomains {
		if label != "www" {
			v.subLabels = append(v.subLabels, label)
		}
	}
	return v
}

func (v hostView) subTokens() []string {
	return refdata.Words(strings.Join(v.subLabels, "."))
}

func (v hostView) ownTokens() []string {
	return append(v.subTokens(), refdata.Words(v.sld)...)
}

// sldCandidates returns the SLD and, for hyphenated SLDs, each part.
func (v hostView) sldCandidates() []string {
	if v.sld == "" {
		return nil
	}
	out := []string{v.sld}
	if strings.Contains(v.sld, "-") {
		out = append(out, strings.Split(v.sld, "-")...)
	}
	return out
}

func lureIn(data *refdata.Dataset, s string) (string, bool) {
	s = strings.ToLower(s)
	for _, w := range data.LureWords {
		if strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}

type brandDetector struct {
	data *refdata.Dataset
}

func (brandDetector) Info() Info {
	return Info{ID: "brand", Name: "Brand Impersonation", Tier: TierForensics, Category: CategoryIdentity, Scope: ScopeURL}
}

func (d brandDetector) Detect(_ context.Context, in Input) Evidence {
	t := in.Target
	v := newHostView(d.data, t)

	if d.data.IsAllowListed(v.host) && !v.hosting {
		return Evidence{Confidence: 90, Reason: "Domain is an official or allow-listed domain", Details: v.host}
	}

	best := Evidence{Confidence: 70, Reason: "No brand impersonation indicators", Details: v.host}
	consider := func(ev Evidence) {
		if ev.Confidence > best.Confidence || !best.Detected {
			best = ev
		}
	}

	lure, hasLure := lureIn(d.data, v.host+t.Parsed.Path)

	if v.hosting {
		if brand, ok := d.data.BrandToken(append(v.ownTokens(), v.pathTokens...)); ok {
			if hasLure {
				consider(Evidence{Detected: true, Confidence: 92, Details: v.host,
					Reason: fmt.Sprintf("Brand %q with lure word %q on public hosting platform %s", brand, lure, v.platform)})
			} else {
				consider(Evidence{Detected: true, Confidence: 70, Details: v.host,
					Reason: fmt.Sprintf("Brand %q served from public hosting platform %s", brand, v.platform)})
			}
		}
	}

	if brand, dist, ok := d.typosquat(v); ok {
		consider(Evidence{Detected: true, Confidence: 85, Details: v.host,
			Reason: fmt.Sprintf("Domain %q imitates brand %q (edit distance %d)", v.sld, brand, dist)})
	}

	if brand, ok := d.confusable(v); ok {
		consider(Evidence{Detected: true, Confidence: 85, Details: v.host,
			Reason: fmt.Sprintf("Domain %q spells brand %q with look-alike characters", v.sld, brand)})
	}

	if hasLure && !v.hosting {
		if brand, ok := d.embedded(v); ok {
			consider(Evidence{Detected: true, Confidence: 85, Details: v.host,
				Reason: fmt.Sprintf("Brand %q embedded in domain with lure word %q", brand, lure)})
		}
		if brand, ok := d.data.BrandToken(append(v.subTokens(), v.pathTokens...)); ok {
			consider(Evidence{Detected: true, Confidence: 80, Details: v.host,
				Reason: fmt.Sprintf("Brand %q in subdomain or path with lure word %q", brand, lure)})
		}
	}

	return best
}

// typosquat finds a brand keyword of five letters or more within edit
// distance 1 of an SLD candidate, or distance 2 for keywords of six letters
// or more.
func (d brandDetector) typosquat(v hostView) (string, int, bool) {
	for _, cand := range v.sldCandidates() {
		if len(cand) <= 4 {
			continue
		}
		if _, isBrand := d.data.BrandFor(cand); isBrand {
			continue
		}
		for _, brand := range d.data.Brands() {
			if len(brand) < 5 {
				continue
			}
			dist := levenshtein.ComputeDistance(cand, brand)
			if dist == 1 || (dist == 2 && len(brand) >= 6) {
				return brand, dist, true
			}
		}
	}
	return "", 0, false
}

// confusable maps look-alike digits and digraphs back to letters and checks
// for an exact brand keyword.
func (d brandDetector) confusable(v hostView) (string, bool) {
	for _, cand := range v.sldCandidates() {
		for _, r := range confusables {
			normalized := r.Replace(cand)
			if normalized == cand {
				continue
			}
			if _, ok := d.data.BrandFor(normalized); ok {
				return normalized, true
			}
		}
	}
	return "", false
}

// sldBrand finds a brand keyword that opens one of the SLD's words, or that
// closes one behind a lure word as in "securepaypal".
func sldBrand(data *refdata.Dataset, sld string) (string, bool) {
	words := refdata.Words(sld)
	if brand, ok := data.BrandToken(words); ok {
		return brand, true
	}
	for _, w := range words {
		for _, brand := range data.Brands() {
			if len(brand) < 4 || !strings.HasSuffix(w, brand) {
				continue
			}
			if slices.Contains(data.LureWords, strings.TrimSuffix(w, brand)) {
				return brand, true
			}
		}
	}
	return "", false
}

// embedded finds a brand keyword inside an SLD whose registrable domain is
// not the brand's own.
func (d brandDetector) embedded(v hostView) (string, bool) {
	if v.sld == "" {
		return "", false
	}
	brand, ok := sldBrand(d.data, v.sld)
	if !ok {
		return "", false
	}
	official, _ := d.data.BrandFor(brand)
	if official == urlnorm.RegistrableDomain(v.host) {
		return "", false
	}
	return brand, true
}

type deceptiveInfraDetector struct {
	data *refdata.Dataset
}

func (deceptiveInfraDetector) Info() Info {
	return Info{ID: "deceptive-infra", Name: "Deceptive Infrastructure", Tier: TierForensics, Category: CategoryTechnical, Scope: ScopeURL}
}

func (d deceptiveInfraDetector) Detect(_ context.Context, in Input) Evidence {
	t := in.Target
	v := newHostView(d.data, t)
	if t.IsIP {
		return Evidence{Confidence: 60, Reason: "No domain infrastructure to inspect", Details: t.Host}
	}
	if d.data.IsAllowListed(v.host) && !v.hosting {
		return Evidence{Confidence: 85, Reason: "Domain is an official or allow-listed domain", Details: v.host}
	}

	brand, hasBrand := d.data.BrandToken(v.subTokens())
	if !hasBrand {
		brand, hasBrand = sldBrand(d.data, v.sld)
	}
	tld := lastLabel(v.host)

	if hasBrand && d.data.IsSuspiciousTLD(tld) {
		return Evidence{Detected: true, Confidence: 90, Details: v.host,
			Reason: fmt.Sprintf("Brand %q hosted on high-abuse TLD .%s", brand, tld)}
	}
	if d.data.IsTunnelService(v.host) {
		return Evidence{Detected: true, Confidence: 85, Details: v.host,
			Reason: "Hostname belongs to a tunnel service exposing a private machine"}
	}
	if hasBrand {
		for _, tok := range v.ownTokens() {
			for _, w := range d.data.EphemeralWords {
				if tok == w || (len(w) >= 4 && strings.HasPrefix(tok, w)) {
					return Evidence{Detected: true, Confidence: 75, Details: v.host,
						Reason: fmt.Sprintf("Brand %q on ephemeral %q infrastructure", brand, w)}
				}
			}
		}
	}
	return Evidence{Confidence: 70, Reason: "No deceptive infrastructure indicators", Details: v.host}
}
