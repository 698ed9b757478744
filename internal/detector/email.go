package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/example/phishguard/internal/emailtext"
	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/urlnorm"
)

func messageText(msg *emailtext.Message) string {
	return msg.Subject + "\n" + msg.Body
}

type emailIdentityDetector struct {
	data *refdata.Dataset
}

func (emailIdentityDetector) Info() Info {
	return Info{ID: "email-identity", Name: "Sender Identity", Tier: TierHeuristic, Category: CategoryIdentity, Scope: ScopeEmail}
}

func (d emailIdentityDetector) Detect(_ context.Context, in Input) Evidence {
	msg := in.Email
	if msg == nil || msg.Domain == "" {
		return Evidence{Confidence: 40, Reason: "No sender address to verify"}
	}
	domain := strings.ToLower(msg.Domain)

	if brand, ok := d.data.BrandToken(refdata.Words(msg.DisplayName)); ok && !d.sentByBrand(brand, domain) {
		return Evidence{Detected: true, Confidence: 95, Details: msg.From,
			Reason: fmt.Sprintf("Display name claims %q but the message comes from %s", brand, domain)}
	}

	text := messageText(msg)
	if d.data.IsFreeMailProvider(domain) {
		if brand, ok := d.data.BrandToken(refdata.Words(text)); ok && !d.sentByBrand(brand, domain) {
			return Evidence{Detected: true, Confidence: 85, Details: msg.From,
				Reason: fmt.Sprintf("Message about %q sent from free mailbox %s", brand, domain)}
		}
	}
	return Evidence{Confidence: 70, Reason: fmt.Sprintf("Sender %s is consistent with the message", domain), Details: msg.From}
}

// sentByBrand reports whether domain belongs to the brand: its official
// domain, a subdomain of it, or an allow-listed regional domain with the
// brand as SLD.
func (d emailIdentityDetector) sentByBrand(brand, domain string) bool {
	official, _ := d.data.BrandFor(brand)
	if official != "" && (domain == official || strings.HasSuffix(domain, "."+official)) {
		return true
	}
	return d.data.IsAllowListed(domain) && urlnorm.ExtractDomainParts(domain).SLD == brand
}

var (
	passwordArchive = regexp.MustCompile(`(?i)(?:password|passcode|pwd)[^\n]{0,40}\b(?:zip|rar|7z|archive|attachment|file)\b|\b(?:zip|rar|7z|archive|attachment)\b[^\n]{0,40}(?:password|passcode)`)
	doubleExtension = regexp.MustCompile(`(?i)[\w\-]+\.(?:pdf|docx?|xlsx?|pptx?|txt|jpe?g|png|gif|rtf|csv|html?)\.(?:exe|scr|bat|cmd|pif|vbs|vbe|js|jse|wsf|hta|msi|jar|ps1|lnk|com)\b`)
)

type emailPayloadDetector struct {
	data      *refdata.Dataset
	filenames *regexp.Regexp
	lures     *regexp.Regexp
}

func newEmailPayloadDetector(data *refdata.Dataset) emailPayloadDetector {
	exts := make([]string, 0, len(data.DangerousExtensions))
	for _, ext := range data.DangerousExtensions {
		exts = append(exts, regexp.QuoteMeta(strings.TrimPrefix(ext, ".")))
	}
	return emailPayloadDetector{
		data:      data,
		filenames: regexp.MustCompile(`(?i)[\w\-]+\.(?:` + strings.Join(exts, "|") + `)\b`),
		lures:     phrasePattern(data.SoftwareLureWords),
	}
}

func (emailPayloadDetector) Info() Info {
	return Info{ID: "email-payload", Name: "Email Payload", Tier: TierHeuristic, Category: CategoryVirus, Scope: ScopeEmail}
}

func (d emailPayloadDetector) Detect(_ context.Context, in Input) Evidence {
	msg := in.Email
	if msg == nil {
		return Evidence{Confidence: 40, Reason: "No message to inspect"}
	}
	names := strings.Join(msg.Attachments, "\n")
	haystack := names + "\n" + messageText(msg) + "\n" + strings.Join(msg.Links, "\n")

	if m := doubleExtension.FindString(haystack); m != "" {
		return Evidence{Detected: true, Confidence: 95, Details: m,
			Reason: "Attachment disguises an executable behind a document extension"}
	}
	if m := d.filenames.FindString(haystack); m != "" {
		if lure := distinctHits(d.lures, messageText(msg)); len(lure) > 0 {
			return Evidence{Detected: true, Confidence: 85, Details: m,
				Reason: fmt.Sprintf("Executable file offered with %q wording", lure[0])}
		}
	}
	if m := passwordArchive.FindString(messageText(msg)); m != "" {
		return Evidence{Detected: true, Confidence: 80, Details: truncate(m, 60),
			Reason: "Password-protected archive lure used to bypass scanning"}
	}

	if len(msg.Attachments) > 0 {
		return Evidence{Confidence: 70, Reason: fmt.Sprintf("%d attachment(s) without payload indicators", len(msg.Attachments)), Details: names}
	}
	return Evidence{Confidence: 75, Reason: "No dangerous attachments or payload lures"}
}

var (
	genericGreeting = regexp.MustCompile(`(?i)\bdear\s+(?:customer|user|client|member|account holder|valued (?:customer|member|user)|sir(?:/| or )madam|beneficiary)\b`)
	cannedPhrase    = regexp.MustCompile(`(?i)\b(?:you have been (?:selected|chosen)|you(?:'ve| have) won|we (?:have )?detected (?:unusual|suspicious)|we regret to inform you|kindly (?:verify|confirm|update|click)|your account (?:has been|will be) (?:suspended|limited|locked|closed|deactivated))\b`)
	clickWording    = regexp.MustCompile(`(?i)\b(?:click (?:here|below|the (?:link|button))|click on (?:the|this) link|tap here|follow (?:the|this) link)\b`)
	attachmentBait  = regexp.MustCompile(`(?i)\b(?:(?:see|open|view|download) (?:the )?attach(?:ed|ment)|attached (?:invoice|document|file|receipt|statement|form)|invoice|receipt|remittance|voicemail|scanned (?:document|copy)|shared (?:a|the) (?:file|document))\b`)
	embeddedAddress = regexp.MustCompile(`(?i)[\w.+\-]+@((?:[\w\-]+\.)+[a-z]{2,})`)
	fakeReply       = regexp.MustCompile(`(?i)^\s*(?:re|fwd?)\s*:`)
	quotedThread    = regexp.MustCompile(`(?im)^\s*>|\bwrote:|original message`)
	hiddenContent   = regexp.MustCompile(`(?i)display\s*:\s*none|font-size\s*:\s*0|visibility\s*:\s*hidden`)
	htmlForm        = regexp.MustCompile(`(?i)<form\b`)
	phoneCandidate  = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,16}\d`)
	callWording     = regexp.MustCompile(`(?i)\b(?:call|phone|dial|helpline|hotline|contact us at)\b`)
)

// Points per email-pattern signal family. A family scores once however
// often it matches.
const (
	senderHeaderPoints   = 8
	brandFreeMailPoints  = 12
	clickWordingPoints   = 7
	attachmentBaitPoints = 6
	cannedGrammarPoints  = 9
	urgencyPoints        = 8

	emailPatternThreshold = 25
)

type emailPatternDetector struct {
	data    *refdata.Dataset
	urgency *regexp.Regexp
}

func newEmailPatternDetector(data *refdata.Dataset) emailPatternDetector {
	return emailPatternDetector{data: data, urgency: phrasePattern(data.UrgencyWords)}
}

func (emailPatternDetector) Info() Info {
	return Info{ID: "email-pattern", Name: "Email Structure Patterns", Tier: TierHeuristic, Category: CategoryIdentity, Scope: ScopeEmail}
}

func (d emailPatternDetector) Detect(_ context.Context, in Input) Evidence {
	msg := in.Email
	if msg == nil {
		return Evidence{Confidence: 40, Reason: "No message to inspect"}
	}
	text := messageText(msg)

	points := 0
	var signals []string
	add := func(n int, signal string) {
		points += n
		signals = append(signals, signal)
	}

	if d.suspiciousSenderHeader(msg) {
		add(senderHeaderPoints, "suspicious sender header")
	}
	if d.data.IsFreeMailProvider(strings.ToLower(msg.Domain)) {
		if brand, ok := d.data.BrandToken(refdata.Words(msg.DisplayName + " " + text)); ok {
			add(brandFreeMailPoints, fmt.Sprintf("%s named by a free mailbox", brand))
		}
	}
	if clickWording.MatchString(text) || clickWording.MatchString(msg.HTML) {
		add(clickWordingPoints, "click-here link wording")
	}
	if attachmentBait.MatchString(text + "\n" + strings.Join(msg.Attachments, "\n")) {
		add(attachmentBaitPoints, "attachment bait")
	}
	if genericGreeting.MatchString(text) || cannedPhrase.MatchString(text) {
		add(cannedGrammarPoints, "canned phishing grammar")
	}
	if d.urgency.MatchString(text) {
		add(urgencyPoints, "urgency phrasing")
	}

	if fakeReply.MatchString(msg.Subject) && !quotedThread.MatchString(msg.Body) {
		add(10, "reply prefix without a thread")
	}
	if msg.HTML != "" && hiddenContent.MatchString(msg.HTML) {
		add(10, "hidden HTML content")
	}
	if htmlForm.MatchString(msg.HTML) {
		add(15, "embedded HTML form")
	}
	ipLink, abuseLink := false, false
	for _, link := range msg.Links {
		host := urlnorm.Hostname(link)
		switch {
		case urlnorm.IsIPv4(host):
			ipLink = true
		case d.data.IsSuspiciousTLD(lastLabel(host)):
			abuseLink = true
		}
	}
	if ipLink {
		add(15, "link to raw IP address")
	}
	if abuseLink {
		add(10, "link to high-abuse TLD")
	}
	if number, ok := callbackNumber(text); ok {
		add(15, "callback number "+number)
	}
	if subject := strings.TrimSpace(msg.Subject); len(subject) > 8 && subject == strings.ToUpper(subject) && strings.ToLower(subject) != subject {
		add(5, "all-caps subject")
	}
	if strings.Count(text, "!") >= 3 {
		add(5, "excessive exclamation")
	}

	if points >= emailPatternThreshold {
		return Evidence{Detected: true, Confidence: min(90, 50+points),
			Reason:  fmt.Sprintf("Phishing email structure (%d points)", points),
			Details: strings.Join(signals, ", ")}
	}
	return Evidence{Confidence: 60, Reason: fmt.Sprintf("Ordinary email structure (%d points)", points), Details: strings.Join(signals, ", ")}
}

// suspiciousSenderHeader flags a From header without a parseable address,
// a display name carrying another domain's address, or a free mailbox
// posing as a support or security desk.
func (d emailPatternDetector) suspiciousSenderHeader(msg *emailtext.Message) bool {
	if msg.Address == "" {
		return msg.From != ""
	}
	if m := embeddedAddress.FindStringSubmatch(msg.DisplayName); m != nil && !strings.EqualFold(m[1], msg.Domain) {
		return true
	}
	return d.data.IsFreeMailProvider(strings.ToLower(msg.Domain)) && impostorSender.MatchString(msg.DisplayName+" "+msg.Address)
}

// callbackNumber finds a valid phone number in text that also asks the
// reader to call, the shape of telephone-oriented attacks.
func callbackNumber(text string) (string, bool) {
	if !callWording.MatchString(text) {
		return "", false
	}
	for _, cand := range phoneCandidate.FindAllString(text, 10) {
		num, err := phonenumbers.Parse(cand, "US")
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.INTERNATIONAL), true
	}
	return "", false
}
