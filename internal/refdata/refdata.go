// Package refdata holds the read-only reference tables consulted by the
// collectors and the scoring engine: the allow-list, hosting platforms, brand
// keywords and the keyword vocabularies.
package refdata

import (
	"sort"
	"strings"
	"unicode"

	"github.com/example/phishguard/internal/urlnorm"
)

// Dataset is built once at start-up and shared by pointer. Nothing mutates it
// after Load or Default returns.
type Dataset struct {
	allowList        map[string]struct{}
	hostingPlatforms map[string]struct{}
	freeMail         map[string]struct{}
	suspiciousTLDs   map[string]struct{}
	parkingTLDs      map[string]struct{}
	brands           map[string]string
	brandKeys        []string

	TunnelServices      []string
	PrivacyMarkers      []string
	LureWords           []string
	EphemeralWords      []string
	UrgencyWords        []string
	FinancialWords      []string
	SecurityWords       []string
	RewardWords         []string
	CryptoWords         []string
	SeedPhraseWords     []string
	DangerousExtensions []string
	SoftwareLureWords   []string
}

// Default returns the built-in dataset.
func Default() *Dataset {
	b := newBuilder()
	return b.build()
}

// IsAllowListed reports whether host is an allow-listed domain, a subdomain of
// one, or sits under .gov or .edu.
func (d *Dataset) IsAllowListed(host string) bool {
	host = cleanHost(host)
	if host == "" {
		return false
	}
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") {
		return true
	}
	_, ok := findSuffix(d.allowList, host)
	return ok
}

// IsHostingPlatform reports whether host is served from a public hosting or
// tunnel platform where anyone can publish under a subdomain.
func (d *Dataset) IsHostingPlatform(host string) bool {
	_, ok := d.HostingPlatform(host)
	return ok
}

// HostingPlatform returns the platform suffix host is published under.
func (d *Dataset) HostingPlatform(host string) (string, bool) {
	return findSuffix(d.hostingPlatforms, cleanHost(host))
}

// IsTunnelService reports whether host carries a tunnel-service marker.
func (d *Dataset) IsTunnelService(host string) bool {
	host = cleanHost(host)
	if host == "" {
		return false
	}
	for _, marker := range d.TunnelServices {
		if strings.Contains(host, marker) {
			return true
		}
	}
	return false
}

// IsFreeMailProvider reports whether domain is a consumer mailbox provider.
func (d *Dataset) IsFreeMailProvider(domain string) bool {
	_, ok := d.freeMail[cleanHost(domain)]
	return ok
}

// IsSuspiciousTLD reports whether tld (without leading dot) is commonly abused.
func (d *Dataset) IsSuspiciousTLD(tld string) bool {
	_, ok := d.suspiciousTLDs[strings.TrimPrefix(strings.ToLower(tld), ".")]
	return ok
}

// IsParkingTLD reports whether tld belongs to a free or near-free registry.
func (d *Dataset) IsParkingTLD(tld string) bool {
	_, ok := d.parkingTLDs[strings.TrimPrefix(strings.ToLower(tld), ".")]
	return ok
}

// BrandFor returns the official registrable domain for a brand keyword.
func (d *Dataset) BrandFor(keyword string) (string, bool) {
	domain, ok := d.brands[strings.ToLower(keyword)]
	return domain, ok
}

// Brands returns every brand keyword, longest first so that callers matching
// substrings see "paypal" before "pay"-like fragments.
func (d *Dataset) Brands() []string {
	return append([]string(nil), d.brandKeys...)
}

// BrandToken returns the first brand keyword that equals or prefixes one of
// the given lowercase tokens.
func (d *Dataset) BrandToken(tokens []string) (string, bool) {
	for _, keyword := range d.brandKeys {
		for _, tok := range tokens {
			if tok == keyword || (len(keyword) >= 4 && strings.HasPrefix(tok, keyword)) {
				return keyword, true
			}
		}
	}
	return "", false
}

// Words splits s into lowercase alphanumeric runs.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AllowListSize reports how many domains are allow-listed.
func (d *Dataset) AllowListSize() int {
	return len(d.allowList)
}

func cleanHost(host string) string {
	return urlnorm.StripWWW(strings.Trim(strings.ToLower(strings.TrimSpace(host)), "."))
}

// findSuffix checks host and each of its parent domains against set and
// returns the first entry found.
func findSuffix(set map[string]struct{}, host string) (string, bool) {
	if host == "" {
		return "", false
	}
	for {
		if _, ok := set[host]; ok {
			return host, true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return "", false
		}
		host = host[idx+1:]
	}
}

// builder accumulates tables from defaults, overlays and imports.
type builder struct {
	allowList        []string
	hostingPlatforms []string
	freeMail         []string
	suspiciousTLDs   []string
	parkingTLDs      []string
	manualBrands     map[string]string

	ds Dataset
}

func newBuilder() *builder {
	b := &builder{
		allowList:        append([]string(nil), defaultTopDomains...),
		hostingPlatforms: append([]string(nil), defaultHostingPlatforms...),
		freeMail:         append([]string(nil), defaultFreeMailProviders...),
		suspiciousTLDs:   append([]string(nil), defaultSuspiciousTLDs...),
		parkingTLDs:      append([]string(nil), defaultParkingTLDs...),
		manualBrands:     make(map[string]string, len(defaultManualBrands)),
	}
	for k, v := range defaultManualBrands {
		b.manualBrands[k] = v
	}
	b.ds = Dataset{
		TunnelServices:      append([]string(nil), defaultTunnelServices...),
		PrivacyMarkers:      append([]string(nil), defaultPrivacyMarkers...),
		LureWords:           append([]string(nil), defaultLureWords...),
		EphemeralWords:      append([]string(nil), defaultEphemeralWords...),
		UrgencyWords:        append([]string(nil), defaultUrgencyWords...),
		FinancialWords:      append([]string(nil), defaultFinancialWords...),
		SecurityWords:       append([]string(nil), defaultSecurityWords...),
		RewardWords:         append([]string(nil), defaultRewardWords...),
		CryptoWords:         append([]string(nil), defaultCryptoWords...),
		SeedPhraseWords:     append([]string(nil), defaultSeedPhraseWords...),
		DangerousExtensions: append([]string(nil), defaultDangerousExtensions...),
		SoftwareLureWords:   append([]string(nil), defaultSoftwareLureWords...),
	}
	return b
}

func (b *builder) build() *Dataset {
	ds := b.ds
	ds.allowList = toSet(b.allowList)
	ds.hostingPlatforms = toSet(b.hostingPlatforms)
	ds.freeMail = toSet(b.freeMail)
	ds.suspiciousTLDs = toSet(b.suspiciousTLDs)
	ds.parkingTLDs = toSet(b.parkingTLDs)
	ds.brands = deriveBrands(b.allowList, b.manualBrands)

	ds.brandKeys = make([]string, 0, len(ds.brands))
	for k := range ds.brands {
		ds.brandKeys = append(ds.brandKeys, k)
	}
	sort.Slice(ds.brandKeys, func(i, j int) bool {
		if len(ds.brandKeys[i]) != len(ds.brandKeys[j]) {
			return len(ds.brandKeys[i]) > len(ds.brandKeys[j])
		}
		return ds.brandKeys[i] < ds.brandKeys[j]
	})
	return &ds
}

// deriveBrands turns allow-listed SLDs into brand keywords and lays the manual
// table over them. Manual entries win on conflict.
func deriveBrands(allowList []string, manual map[string]string) map[string]string {
	out := make(map[string]string, len(allowList)+len(manual))
	for _, domain := range allowList {
		parts := urlnorm.ExtractDomainParts(domain)
		sld := parts.SLD
		if len(sld) < 4 || brandStoplist[sld] || !isLetters(sld) {
			continue
		}
		if _, exists := out[sld]; exists {
			continue
		}
		out[sld] = parts.Registrable()
	}
	for keyword, domain := range manual {
		out[strings.ToLower(keyword)] = strings.ToLower(domain)
	}
	return out
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.Trim(strings.ToLower(strings.TrimSpace(v)), ".")
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
