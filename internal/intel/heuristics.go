package intel

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Local stand-ins used when a reputation service cannot answer. Each one is
// deliberately narrow and never reports IsReal.

var (
	threatKeywordRegex = regexp.MustCompile(`(?i)(login|signin|verify|account|secure|update|banking|confirm|wallet|password|webscr)`)
	riskyTLDRegex      = regexp.MustCompile(`(?i)\.(tk|ml|ga|cf|gq|xyz|top|icu|buzz|rest|cyou|sbs|zip|mov)$`)
	executablePath     = regexp.MustCompile(`(?i)\.(exe|scr|bat|cmd|msi|apk|jar|vbs|ps1|hta|dmg|iso|lnk)$`)
)

// threatPatternHeuristic stands in for Safe Browsing: credentials in the
// authority, raw-IP hosts with lure paths, and lure words on throwaway TLDs.
func threatPatternHeuristic(rawURL string) Verdict {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Verdict{Reason: "Local threat-pattern heuristic: URL could not be parsed"}
	}
	host := strings.ToLower(u.Hostname())
	full := host + u.EscapedPath()

	switch {
	case strings.Contains(rawURL, "@"):
		return Verdict{Detected: true, Confidence: 70, Reason: "Local threat-pattern heuristic: credentials embedded in URL authority"}
	case net.ParseIP(host) != nil && threatKeywordRegex.MatchString(u.Path):
		return Verdict{Detected: true, Confidence: 70, Reason: "Local threat-pattern heuristic: raw IP host serving a credential path"}
	case riskyTLDRegex.MatchString(host) && threatKeywordRegex.MatchString(full):
		return Verdict{Detected: true, Confidence: 65, Reason: "Local threat-pattern heuristic: lure vocabulary on a high-abuse TLD"}
	}
	return Verdict{Confidence: 40, Reason: "Local threat-pattern heuristic found no known threat pattern"}
}

// phishingURLHeuristic stands in for PhishTank: several lure words spread
// over host and path, or a very deep subdomain chain.
func phishingURLHeuristic(rawURL string) Verdict {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Verdict{Reason: "Local phishing-URL heuristic: URL could not be parsed"}
	}
	host := strings.ToLower(u.Hostname())
	hits := len(threatKeywordRegex.FindAllString(host+u.EscapedPath(), -1))

	if hits >= 2 {
		return Verdict{Detected: true, Confidence: 60, Reason: fmt.Sprintf("Local phishing-URL heuristic: %d lure keywords in URL", hits)}
	}
	if strings.Count(host, ".") >= 4 {
		return Verdict{Detected: true, Confidence: 55, Reason: "Local phishing-URL heuristic: unusually deep subdomain chain"}
	}
	return Verdict{Confidence: 40, Reason: "Local phishing-URL heuristic found no phishing markers"}
}

// fileExtensionHeuristic stands in for VirusTotal: direct links to
// executable or installer payloads.
func fileExtensionHeuristic(rawURL string) Verdict {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Verdict{Reason: "Local file-extension heuristic: URL could not be parsed"}
	}
	if ext := executablePath.FindString(u.Path); ext != "" {
		return Verdict{Detected: true, Confidence: 70, Reason: fmt.Sprintf("Local file-extension heuristic: URL serves a %s payload", strings.ToLower(ext))}
	}
	return Verdict{Confidence: 40, Reason: "Local file-extension heuristic found no executable payload"}
}

// freeRegistryTLDs are registries that hand out domains at no cost; their
// domains are overwhelmingly short-lived.
var freeRegistryTLDs = map[string]bool{"tk": true, "ml": true, "ga": true, "cf": true, "gq": true}

// ageHeuristic estimates registration age from the TLD alone.
func ageHeuristic(domain string) Age {
	tld := domain
	if idx := strings.LastIndexByte(domain, '.'); idx >= 0 {
		tld = domain[idx+1:]
	}
	if freeRegistryTLDs[strings.ToLower(tld)] {
		return Age{Days: 14, IsNew: true, Reason: fmt.Sprintf("Estimated from TLD: .%s domains are free and typically days old", tld)}
	}
	return Age{Days: -1, Reason: "Registration date unavailable; no age estimate for this TLD"}
}
