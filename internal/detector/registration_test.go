package detector

import (
	"context"
	"testing"

	"github.com/example/phishguard/internal/intel"
	"github.com/example/phishguard/internal/refdata"
)

type stubAges map[string]intel.Age

func (s stubAges) DomainAge(_ context.Context, domain string) intel.Age {
	if age, ok := s[domain]; ok {
		return age
	}
	return intel.Age{Days: -1, Reason: "unknown"}
}

func TestDomainAgeDetector(t *testing.T) {
	ages := stubAges{
		"fresh-login.com":  {Days: 3, IsNew: true, IsReal: true},
		"old-company.com":  {Days: 4000, IsReal: true, Reason: "Domain registered 4000 days ago"},
		"guessed-new.tk":   {Days: 14, IsNew: true, Reason: "Free registry TLD"},
		"unknown-site.net": {Days: -1, Reason: "No registration data"},
	}
	d := domainAgeDetector{data: refdata.Default(), whois: ages}

	tests := []struct {
		url      string
		detected bool
		conf     int
		degraded bool
	}{
		{"https://fresh-login.com", true, 80, false},
		{"https://old-company.com", false, 75, false},
		{"https://guessed-new.tk", true, 55, true},
		{"https://unknown-site.net", false, 40, true},
		{"https://www.google.com", false, 85, false},
	}
	for _, tt := range tests {
		ev := detectURL(t, d, tt.url)
		if ev.Detected != tt.detected || ev.Confidence != tt.conf || ev.Degraded != tt.degraded {
			t.Errorf("%s: got %+v", tt.url, ev)
		}
		if ev.Reason == "" {
			t.Errorf("%s: missing reason", tt.url)
		}
	}
}

func TestPrivacyProxyDetector(t *testing.T) {
	ages := stubAges{
		"hidden-owner.com": {Days: 100, IsReal: true, Registrant: "Withheld for Privacy ehf"},
		"plain-owner.com":  {Days: 100, IsReal: true, Registrant: "Plain Owner LLC"},
	}
	d := privacyProxyDetector{data: refdata.Default(), whois: ages}

	tests := []struct {
		url  string
		want bool
		conf int
	}{
		{"https://domain-for-sale.example.org", true, 70},
		{"https://freebies.pw", true, 65},
		{"https://hidden-owner.com", true, 60},
		{"https://plain-owner.com", false, 70},
		{"https://www.google.com", false, 70},
	}
	for _, tt := range tests {
		ev := detectURL(t, d, tt.url)
		if ev.Detected != tt.want || ev.Confidence != tt.conf {
			t.Errorf("%s: got %+v", tt.url, ev)
		}
	}
}
