package detector

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/example/phishguard/internal/urlnorm"
)

// fetchFailed is the evidence of a live collector that could not load the
// target.
func fetchFailed(target string, err error) Evidence {
	return Evidence{Degraded: true, Confidence: 30, Reason: fmt.Sprintf("Target could not be fetched: %v", err), Details: target}
}

type redirectDetector struct {
	fetcher *Fetcher
}

func (redirectDetector) Info() Info {
	return Info{ID: "redirect", Name: "Redirect Analysis", Tier: TierForensics, Category: CategoryTechnical, Scope: ScopeURL}
}

func (d redirectDetector) Detect(ctx context.Context, in Input) Evidence {
	t := in.Target
	probe, err := d.fetcher.Probe(ctx, t.URL)
	if err != nil {
		return fetchFailed(t.URL, err)
	}
	if probe.Status < 300 || probe.Status > 399 || probe.Location == "" {
		return Evidence{Confidence: 70, Reason: fmt.Sprintf("No redirect (HTTP %d)", probe.Status), Details: t.URL}
	}

	loc := strings.TrimSpace(probe.Location)
	lower := strings.ToLower(loc)
	for _, scheme := range []string{"data:", "javascript:", "vbscript:", "file:"} {
		if strings.HasPrefix(lower, scheme) {
			return Evidence{Detected: true, Confidence: 90, Details: truncate(loc, 120),
				Reason: fmt.Sprintf("Redirects to a %s URI", strings.TrimSuffix(scheme, ":"))}
		}
	}

	next, err := t.Parsed.Parse(loc)
	if err == nil && urlnorm.IsIPv4(next.Hostname()) && !t.IsIP {
		return Evidence{Detected: true, Confidence: 70, Details: next.String(),
			Reason: "Redirects from a domain name to a raw IP address"}
	}
	return Evidence{Confidence: 65, Reason: fmt.Sprintf("Redirects (HTTP %d) to an ordinary web address", probe.Status), Details: loc}
}

var (
	minerPattern     = regexp.MustCompile(`(?i)coinhive|coin-hive|cryptonight|coinimp|jsecoin|webminepool|minero\.cc|deepminer|cryptoloot`)
	keyHookPattern   = regexp.MustCompile(`(?i)document\.onkey(press|down|up)\s*=|addEventListener\(\s*['"]key(press|down|up)['"]`)
	exfilPattern     = regexp.MustCompile(`(?i)\bfetch\(|XMLHttpRequest|sendBeacon\(|new\s+Image\(\)`)
	passwordField    = regexp.MustCompile(`(?i)type\s*=\s*['"]?password`)
	forcedRedirect   = regexp.MustCompile(`(?i)location\.(replace|assign)\(|(window|top|document|self)\.location(\.href)?\s*=`)
	encodedPSPattern = regexp.MustCompile(`(?i)powershell(\.exe)?[^\n]{0,80}\s-(e|enc|encodedcommand)\s`)
	evalAtobPattern  = regexp.MustCompile(`(?i)eval\(\s*atob\(`)
	packerPattern    = regexp.MustCompile(`eval\(function\(p,a,c,k,e,[dr]\)`)
	autoDownload     = regexp.MustCompile(`(?i)(http-equiv\s*=\s*['"]?refresh[^>]*url\s*=|location(\.href)?\s*=\s*)['"]?[^'"\s>]+\.(exe|scr|msi|bat|ps1|hta)\b`)
	exeLink          = regexp.MustCompile(`(?i)href\s*=\s*['"][^'"]+\.(exe|scr|msi|bat)['"]`)
)

type jsBehaviorDetector struct {
	fetcher *Fetcher
}

func (jsBehaviorDetector) Info() Info {
	return Info{ID: "js-behavior", Name: "JavaScript Behavior", Tier: TierForensics, Category: CategoryTechnical, Scope: ScopeURL}
}

func (d jsBehaviorDetector) Detect(ctx context.Context, in Input) Evidence {
	page, err := d.fetcher.Page(ctx, in.Target.URL)
	if err != nil {
		return fetchFailed(in.Target.URL, err)
	}
	body := page.Body

	switch {
	case minerPattern.Match(body):
		return Evidence{Detected: true, Confidence: 90, Reason: "Page loads an in-browser cryptocurrency miner", Details: page.URL}
	case keyHookPattern.Match(body) && exfilPattern.Match(body):
		return Evidence{Detected: true, Confidence: 80, Reason: "Script captures keystrokes and sends data out", Details: page.URL}
	case passwordField.Match(body) && exfilPattern.Match(body):
		return Evidence{Detected: true, Confidence: 75, Reason: "Password field is posted by script to a remote endpoint", Details: page.URL}
	case forcedRedirect.Match(body):
		return Evidence{Detected: true, Confidence: 60, Reason: "Script forces the browser to another location", Details: page.URL}
	}
	return Evidence{Confidence: 70, Reason: "No hostile script behaviour found", Details: page.URL}
}

type externalResourcesDetector struct {
	fetcher *Fetcher
}

func (externalResourcesDetector) Info() Info {
	return Info{ID: "external-resources", Name: "External Resources", Tier: TierForensics, Category: CategoryTechnical, Scope: ScopeURL}
}

func (d externalResourcesDetector) Detect(ctx context.Context, in Input) Evidence {
	page, err := d.fetcher.Page(ctx, in.Target.URL)
	if err != nil {
		return fetchFailed(in.Target.URL, err)
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		base = in.Target.Parsed
	}
	own := urlnorm.RegistrableDomain(base.Hostname())

	best := Evidence{Confidence: 70, Reason: "Page resources are served from its own domain or common hosts", Details: page.URL}
	raise := func(ev Evidence) {
		if !best.Detected || ev.Confidence > best.Confidence {
			best = ev
		}
	}

	z := html.NewTokenizer(bytes.NewReader(page.Body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		attr := ""
		switch tok.Data {
		case "form":
			attr = "action"
		case "script", "img", "iframe", "embed":
			attr = "src"
		case "link":
			attr = "href"
		default:
			continue
		}
		ref := attrValue(tok, attr)
		if ref == "" {
			continue
		}
		u, err := base.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		host := u.Hostname()
		foreign := urlnorm.RegistrableDomain(host) != own

		switch {
		case urlnorm.IsIPv4(host) && host != base.Hostname():
			raise(Evidence{Detected: true, Confidence: 80, Details: u.String(),
				Reason: fmt.Sprintf("Page loads a <%s> resource from raw IP %s", tok.Data, host)})
		case tok.Data == "form" && foreign:
			raise(Evidence{Detected: true, Confidence: 75, Details: u.String(),
				Reason: fmt.Sprintf("Form submits to foreign host %s", host)})
		case tok.Data == "iframe" && foreign:
			raise(Evidence{Detected: true, Confidence: 60, Details: u.String(),
				Reason: fmt.Sprintf("Page frames content from foreign host %s", host)})
		}
	}
	return best
}

func attrValue(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

type malwarePatternsDetector struct {
	fetcher *Fetcher
}

func (malwarePatternsDetector) Info() Info {
	return Info{ID: "malware-patterns", Name: "Malware Patterns", Tier: TierForensics, Category: CategoryVirus, Scope: ScopeURL}
}

func (d malwarePatternsDetector) Detect(ctx context.Context, in Input) Evidence {
	page, err := d.fetcher.Page(ctx, in.Target.URL)
	if err != nil {
		return fetchFailed(in.Target.URL, err)
	}
	body := page.Body

	strong := []struct {
		re     *regexp.Regexp
		reason string
	}{
		{minerPattern, "Cryptojacking script signature"},
		{encodedPSPattern, "Encoded PowerShell command in page"},
		{evalAtobPattern, "Base64 payload executed with eval(atob(...))"},
		{packerPattern, "Packed JavaScript (p,a,c,k,e,d) payload"},
		{autoDownload, "Page triggers an automatic executable download"},
	}
	for _, p := range strong {
		if m := p.re.Find(body); m != nil {
			return Evidence{Detected: true, Confidence: 90, Reason: p.reason, Details: truncate(string(m), 80)}
		}
	}

	if n := len(exeLink.FindAll(body, -1)); n > 0 {
		return Evidence{Confidence: 55, Reason: fmt.Sprintf("Page links to %d executable download(s), no payload signature", n), Details: page.URL}
	}
	return Evidence{Confidence: 75, Reason: "No malware signatures in page", Details: page.URL}
}

type securityHeadersDetector struct {
	fetcher *Fetcher
}

func (securityHeadersDetector) Info() Info {
	return Info{ID: "security-headers", Name: "Security Headers", Tier: TierForensics, Category: CategoryTrust, Scope: ScopeURL}
}

func (d securityHeadersDetector) Detect(ctx context.Context, in Input) Evidence {
	page, err := d.fetcher.Page(ctx, in.Target.URL)
	if err != nil {
		return fetchFailed(in.Target.URL, err)
	}
	h := page.Header
	csp := h.Get("Content-Security-Policy")

	var missing []string
	if csp == "" {
		missing = append(missing, "Content-Security-Policy")
	}
	if strings.HasPrefix(page.URL, "https://") && h.Get("Strict-Transport-Security") == "" {
		missing = append(missing, "Strict-Transport-Security")
	}
	if h.Get("X-Frame-Options") == "" && !strings.Contains(strings.ToLower(csp), "frame-ancestors") {
		missing = append(missing, "X-Frame-Options")
	}

	if len(missing) >= 2 {
		return Evidence{Detected: true, Confidence: 40 + 10*len(missing),
			Reason:  fmt.Sprintf("Missing %d security headers", len(missing)),
			Details: strings.Join(missing, ", ")}
	}
	return Evidence{Confidence: 60, Reason: "Baseline security headers present", Details: strings.Join(missing, ", ")}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
