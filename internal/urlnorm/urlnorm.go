// Package urlnorm canonicalizes scan input and splits hostnames into their
// registrable parts.
package urlnorm

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrInvalid is returned when the input cannot be turned into a URL with a
// usable host.
var ErrInvalid = errors.New("invalid url")

// DefaultURLLimit caps how many URLs are pulled out of free text.
const DefaultURLLimit = 5

// compoundQualifiers are second-level labels that belong to the TLD when they
// sit directly under a country code (co.uk, com.au, gov.in).
var compoundQualifiers = map[string]bool{
	"co": true, "com": true, "gov": true, "org": true, "net": true, "edu": true, "ac": true,
}

var ipv4Regex = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)

// Parts is a hostname decomposed into second-level domain, top-level domain
// and the remaining subdomain labels (outermost first).
type Parts struct {
	SLD        string   `json:"sld"`
	TLD        string   `json:"tld"`
	Subdomains []string `json:"subdomains,omitempty"`
}

// Registrable returns "sld.tld", or the TLD alone when there is no SLD.
func (p Parts) Registrable() string {
	if p.SLD == "" {
		return p.TLD
	}
	return p.SLD + "." + p.TLD
}

// Normalize adds a default scheme when missing, strips the query string and
// fragment, and lowercases the hostname.
func Normalize(input string) (string, error) {
	u, err := Parse(input)
	if err != nil {
		return "", err
	}
	return Canonical(u), nil
}

// Canonical renders a parsed URL with its host in punycode form, so that
// internationalized hosts are not percent-escaped.
func Canonical(u *url.URL) string {
	c := *u
	host := ToASCII(u.Hostname())
	if port := u.Port(); port != "" {
		c.Host = net.JoinHostPort(host, port)
	} else {
		c.Host = host
	}
	return c.String()
}

// Parse is Normalize returning the parsed form. The returned host keeps any
// Unicode characters of the input.
func Parse(input string) (*url.URL, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\r\n") {
		return nil, ErrInvalid
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, ErrInvalid
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalid
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return nil, ErrInvalid
	}
	if !strings.Contains(host, ".") && !IsIPv4(host) {
		return nil, ErrInvalid
	}
	if strings.HasPrefix(host, ".") || strings.Contains(host, "..") {
		return nil, ErrInvalid
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	return u, nil
}

// Hostname returns the lowercased host of a URL string without port and
// without a leading "www.". It returns "" for unparseable input.
func Hostname(rawURL string) string {
	u, err := Parse(rawURL)
	if err != nil {
		return ""
	}
	return StripWWW(u.Hostname())
}

// StripWWW removes a single leading "www." label.
func StripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// ExtractDomainParts splits a hostname into SLD, TLD and subdomains,
// treating compound country TLDs (co.uk, com.au, gov.in) as one TLD.
func ExtractDomainParts(domain string) Parts {
	domain = strings.Trim(strings.ToLower(domain), ".")
	if domain == "" {
		return Parts{}
	}
	if IsIPv4(domain) {
		return Parts{SLD: domain}
	}

	labels := strings.Split(domain, ".")
	if len(labels) == 1 {
		return Parts{TLD: labels[0]}
	}

	tldLabels := 1
	if len(labels) >= 3 && compoundQualifiers[labels[len(labels)-2]] {
		tldLabels = 2
	}

	tld := strings.Join(labels[len(labels)-tldLabels:], ".")
	sldIndex := len(labels) - tldLabels - 1
	parts := Parts{SLD: labels[sldIndex], TLD: tld}
	if sldIndex > 0 {
		parts.Subdomains = append([]string(nil), labels[:sldIndex]...)
	}
	return parts
}

// IsIPv4 reports whether host is a dotted-quad IPv4 literal.
func IsIPv4(host string) bool {
	if !ipv4Regex.MatchString(host) {
		return false
	}
	return net.ParseIP(host) != nil
}

// RegistrableDomain returns the public-suffix-aware eTLD+1 for host, falling
// back to ExtractDomainParts when the suffix list has no answer.
func RegistrableDomain(host string) string {
	host = StripWWW(strings.ToLower(host))
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return registrable
	}
	return ExtractDomainParts(host).Registrable()
}

// ToUnicode renders punycode labels for display. Input that fails to decode
// is returned unchanged.
func ToUnicode(host string) string {
	out, err := idna.Display.ToUnicode(host)
	if err != nil {
		return host
	}
	return out
}

// ToASCII converts an internationalized host to its punycode form. Hosts the
// lookup profile rejects are still encoded label by label.
func ToASCII(host string) string {
	if out, err := idna.Lookup.ToASCII(host); err == nil {
		return out
	}
	if out, err := idna.Punycode.ToASCII(host); err == nil {
		return out
	}
	return host
}
