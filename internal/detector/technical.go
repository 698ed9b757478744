package detector

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/urlnorm"
)

type sslDetector struct{}

func (sslDetector) Info() Info {
	return Info{ID: "ssl", Name: "SSL/TLS Encryption", Tier: TierForensics, Category: CategoryTrust, Scope: ScopeURL}
}

func (sslDetector) Detect(_ context.Context, in Input) Evidence {
	if in.Target.Parsed.Scheme != "https" {
		return Evidence{Detected: true, Confidence: 60, Reason: "Connection is not encrypted (plain HTTP)", Details: in.Target.URL}
	}
	return Evidence{Confidence: 70, Reason: "URL uses HTTPS", Details: in.Target.URL}
}

type rawIPDetector struct{}

func (rawIPDetector) Info() Info {
	return Info{ID: "raw-ip", Name: "Raw IP Address", Tier: TierForensics, Category: CategoryTechnical, Scope: ScopeURL}
}

func (rawIPDetector) Detect(_ context.Context, in Input) Evidence {
	if in.Target.IsIP {
		return Evidence{Detected: true, Confidence: 75, Reason: "Hostname is a raw IPv4 address instead of a domain", Details: in.Target.Host}
	}
	return Evidence{Confidence: 80, Reason: "Hostname is a domain name", Details: in.Target.Host}
}

var zeroWidth = []rune{'\u200b', '\u200c', '\u200d', '\u2060', '\ufeff'}

type homoglyphDetector struct{}

func (homoglyphDetector) Info() Info {
	return Info{ID: "homoglyph", Name: "Homoglyph Attack Detection", Tier: TierForensics, Category: CategoryIdentity, Scope: ScopeURL}
}

func (homoglyphDetector) Detect(_ context.Context, in Input) Evidence {
	t := in.Target
	display := urlnorm.ToUnicode(t.Host)

	for _, r := range zeroWidth {
		if strings.ContainsRune(t.Host, r) || strings.ContainsRune(display, r) {
			return Evidence{Detected: true, Confidence: 97, Reason: "Hostname contains invisible zero-width characters", Details: t.ASCIIHost}
		}
	}

	latin, other := scriptMix(display)
	if latin && other != "" {
		return Evidence{
			Detected:   true,
			Confidence: 98,
			Reason:     fmt.Sprintf("Hostname mixes Latin and %s characters", other),
			Details:    fmt.Sprintf("%s (%s)", display, t.ASCIIHost),
		}
	}

	for _, label := range strings.Split(t.ASCIIHost, ".") {
		if strings.HasPrefix(label, "xn--") {
			return Evidence{
				Detected:   true,
				Confidence: 95,
				Reason:     "Hostname uses punycode (xn--) encoding",
				Details:    fmt.Sprintf("%s (%s)", display, t.ASCIIHost),
			}
		}
	}
	return Evidence{Confidence: 90, Reason: "Hostname uses a single plain script", Details: t.Host}
}

// scriptMix reports whether s has Latin letters and names the first
// Cyrillic or Greek script it also contains.
func scriptMix(s string) (latin bool, other string) {
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Latin, r):
			latin = true
		case other == "" && unicode.Is(unicode.Cyrillic, r):
			other = "Cyrillic"
		case other == "" && unicode.Is(unicode.Greek, r):
			other = "Greek"
		}
	}
	return latin, other
}

type randomDomainDetector struct {
	data *refdata.Dataset
}

func (randomDomainDetector) Info() Info {
	return Info{ID: "random-domain", Name: "Random Domain Analysis", Tier: TierForensics, Category: CategoryTechnical, Scope: ScopeURL}
}

func (d randomDomainDetector) Detect(_ context.Context, in Input) Evidence {
	t := in.Target
	if t.IsIP {
		return Evidence{Confidence: 50, Reason: "No domain name to analyse", Details: t.Host}
	}

	sld := t.Parts.SLD
	tld := lastLabel(t.ASCIIHost)
	entropyBar, lengthBar, consonantBar, digitBar := 4.2, 8, 7, 5
	if d.data.IsSuspiciousTLD(tld) {
		entropyBar, lengthBar, consonantBar, digitBar = 3.5, 6, 5, 4
	}

	entropy := ShannonEntropy(sld)
	switch {
	case entropy > entropyBar && len(sld) > lengthBar:
		return Evidence{Detected: true, Confidence: 75, Reason: fmt.Sprintf("Domain label has high character entropy (%.2f bits)", entropy), Details: sld}
	case longestRun(sld, isConsonant) >= consonantBar:
		return Evidence{Detected: true, Confidence: 70, Reason: "Domain label has an unpronounceable consonant run", Details: sld}
	case longestRun(sld, isDigit) >= digitBar:
		return Evidence{Detected: true, Confidence: 65, Reason: "Domain label has a long run of digits", Details: sld}
	}
	return Evidence{Confidence: 70, Reason: fmt.Sprintf("Domain label looks human-chosen (entropy %.2f)", entropy), Details: sld}
}

// ShannonEntropy returns the entropy of s in bits per character.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := map[rune]int{}
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

func longestRun(s string, pred func(rune) bool) int {
	best, cur := 0, 0
	for _, r := range s {
		if pred(r) {
			cur++
			if cur > best {
				best = cur
			}
			continue
		}
		cur = 0
	}
	return best
}

func isConsonant(r rune) bool {
	return r >= 'a' && r <= 'z' && !strings.ContainsRune("aeiouy", r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func lastLabel(host string) string {
	if idx := strings.LastIndexByte(host, '.'); idx >= 0 {
		return host[idx+1:]
	}
	return host
}
