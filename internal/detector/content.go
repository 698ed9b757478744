package detector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/example/phishguard/internal/refdata"
)

// phrasePattern compiles a case-insensitive, word-bounded alternation.
func phrasePattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	// Longer phrases first so "cash prize" wins over "cash".
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// distinctHits returns the distinct lowercase matches of re in s.
func distinctHits(re *regexp.Regexp, s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range re.FindAllString(s, -1) {
		m = strings.ToLower(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

type wordFamily struct {
	name    string
	pattern *regexp.Regexp
	weight  int
}

var (
	cardDigits     = regexp.MustCompile(`\b(?:\d[ -]?){12,15}\d\b`)
	callToAction   = regexp.MustCompile(`(?i)\b(?:click here|click below|click the link|tap here|log ?in now|sign ?in now|verify now|update now|confirm now|open the attachment|download now|follow the link)\b`)
	impostorSender = regexp.MustCompile(`(?i)\b(?:support|security|service|billing|admin|helpdesk|no-?reply|team|account)s?\b`)
)

type nlpDetector struct {
	data     *refdata.Dataset
	families []wordFamily
}

func newNLPDetector(data *refdata.Dataset) nlpDetector {
	return nlpDetector{
		data: data,
		families: []wordFamily{
			{name: "urgency", pattern: phrasePattern(data.UrgencyWords), weight: 15},
			{name: "financial", pattern: phrasePattern(data.FinancialWords), weight: 10},
			{name: "security", pattern: phrasePattern(data.SecurityWords), weight: 12},
			{name: "reward", pattern: phrasePattern(data.RewardWords), weight: 10},
		},
	}
}

func (nlpDetector) Info() Info {
	return Info{ID: "nlp", Name: "NLP Phishing Language", Tier: TierHeuristic, Category: CategoryIdentity, Scope: ScopeText}
}

func (d nlpDetector) Detect(_ context.Context, in Input) Evidence {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		return Evidence{Confidence: 50, Reason: "No text to analyse"}
	}

	var (
		hits     int
		risk     int
		families []string
		sample   []string
	)
	for _, f := range d.families {
		occurrences := len(f.pattern.FindAllStringIndex(text, -1))
		if occurrences == 0 {
			continue
		}
		found := distinctHits(f.pattern, text)
		hits += occurrences
		risk += f.weight * len(found)
		families = append(families, f.name)
		sample = append(sample, found[0])
	}

	if in.Email != nil && d.suspiciousSender(in) {
		risk += 20
	}
	if cardDigits.MatchString(text) {
		risk += 25
	}
	if callToAction.MatchString(text) {
		risk += 15
	}

	if hits >= 3 || len(families) >= 2 {
		return Evidence{
			Detected:   true,
			Confidence: min(90, 40+risk/2),
			Reason:     fmt.Sprintf("Phishing language: %d keyword hits across %s (risk %d)", hits, strings.Join(families, ", "), risk),
			Details:    strings.Join(sample, ", "),
		}
	}
	return Evidence{Confidence: max(30, 60-risk/2), Reason: fmt.Sprintf("Little phishing language (%d keyword hits, risk %d)", hits, risk)}
}

// suspiciousSender flags a free-mail sender posing as an organisation's
// support or security desk.
func (d nlpDetector) suspiciousSender(in Input) bool {
	msg := in.Email
	if msg.Address == "" {
		return msg.From != ""
	}
	return d.data.IsFreeMailProvider(msg.Domain) && impostorSender.MatchString(msg.DisplayName+" "+msg.Address)
}

var walletAddress = regexp.MustCompile(`\b(?:0x[a-fA-F0-9]{40}|bc1[a-z0-9]{25,59}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`)

type cryptoScamDetector struct {
	words *regexp.Regexp
	seed  *regexp.Regexp
}

func newCryptoScamDetector(data *refdata.Dataset) cryptoScamDetector {
	return cryptoScamDetector{
		words: phrasePattern(data.CryptoWords),
		seed:  phrasePattern(data.SeedPhraseWords),
	}
}

func (cryptoScamDetector) Info() Info {
	return Info{ID: "crypto-scam", Name: "Crypto Scam Patterns", Tier: TierHeuristic, Category: CategoryIdentity, Scope: ScopeText, Promoted: true}
}

func (d cryptoScamDetector) Detect(_ context.Context, in Input) Evidence {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		return Evidence{Confidence: 50, Reason: "No text to analyse"}
	}

	words := distinctHits(d.words, text)
	points := 10 * len(words)
	var signals []string
	if len(words) > 0 {
		signals = append(signals, fmt.Sprintf("crypto vocabulary (%s)", strings.Join(words, ", ")))
	}
	if seed := distinctHits(d.seed, text); len(seed) > 0 {
		points += 50
		signals = append(signals, fmt.Sprintf("requests %q", seed[0]))
	}
	if walletAddress.MatchString(text) {
		points += 20
		signals = append(signals, "wallet address")
	}

	if points >= 30 {
		return Evidence{
			Detected:   true,
			Confidence: min(95, points+50),
			Reason:     fmt.Sprintf("Crypto scam indicators (%d points)", points),
			Details:    strings.Join(signals, "; "),
		}
	}
	return Evidence{Confidence: 70, Reason: fmt.Sprintf("No crypto scam pattern (%d points)", points)}
}
