// Package emailtext turns pasted email text into sender, subject, body and
// link fields. Full RFC 5322 messages are decoded with enmime; anything else
// is scanned line by line.
package emailtext

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
	"golang.org/x/net/html"
)

// Message is the subset of an email the collectors look at.
type Message struct {
	From        string   `json:"from,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Address     string   `json:"address,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	Body        string   `json:"body,omitempty"`
	HTML        string   `json:"-"`
	Attachments []string `json:"attachments,omitempty"`
	Links       []string `json:"links,omitempty"`
	// Structured is true when the text was decoded as a MIME message.
	Structured bool `json:"structured"`
}

var (
	headerLineRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*:\s`)
	angleAddrRegex  = regexp.MustCompile(`<([^<>\s]+@[^<>\s]+)>`)
	bareAddrRegex   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Parse never fails: text that is not a well-formed message still yields a
// Message whose Body is the input.
func Parse(raw string) Message {
	if looksLikeMIME(raw) {
		if msg, ok := parseMIME(raw); ok {
			return msg
		}
	}
	return parseLoose(raw)
}

// looksLikeMIME reports whether raw opens with a header block that carries a
// From header and is terminated by a blank line.
func looksLikeMIME(raw string) bool {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	head, _, found := strings.Cut(strings.TrimLeft(normalized, "\n"), "\n\n")
	if !found {
		return false
	}
	lines := strings.Split(head, "\n")
	if !headerLineRegex.MatchString(lines[0]) {
		return false
	}
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "from:") {
			return true
		}
	}
	return false
}

func parseMIME(raw string) (Message, bool) {
	env, err := enmime.ReadEnvelope(strings.NewReader(strings.TrimLeft(raw, "\r\n")))
	if err != nil {
		return Message{}, false
	}

	msg := Message{
		Subject:    env.GetHeader("Subject"),
		Body:       env.Text,
		HTML:       env.HTML,
		Structured: true,
	}
	msg.setFrom(env.GetHeader("From"))

	for _, part := range env.Attachments {
		if part.FileName != "" {
			msg.Attachments = append(msg.Attachments, part.FileName)
		}
	}
	for _, part := range env.Inlines {
		if part.FileName != "" {
			msg.Attachments = append(msg.Attachments, part.FileName)
		}
	}

	if msg.HTML != "" {
		msg.Links = ExtractLinks(msg.HTML)
	}
	return msg, true
}

func parseLoose(raw string) Message {
	msg := Message{Body: raw}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case msg.From == "" && strings.HasPrefix(lower, "from:"):
			msg.setFrom(strings.TrimSpace(line[len("from:"):]))
		case msg.Subject == "" && strings.HasPrefix(lower, "subject:"):
			msg.Subject = strings.TrimSpace(line[len("subject:"):])
		}
	}
	if strings.Contains(strings.ToLower(raw), "<a ") {
		msg.HTML = raw
		msg.Links = ExtractLinks(raw)
	}
	return msg
}

func (m *Message) setFrom(value string) {
	m.From = strings.TrimSpace(value)
	if m.From == "" {
		return
	}

	if addr, err := mail.ParseAddress(m.From); err == nil {
		m.DisplayName = strings.TrimSpace(addr.Name)
		m.Address = strings.ToLower(addr.Address)
	} else if match := angleAddrRegex.FindStringSubmatchIndex(m.From); match != nil {
		m.Address = strings.ToLower(m.From[match[2]:match[3]])
		m.DisplayName = strings.Trim(strings.TrimSpace(m.From[:match[0]]), `"'`)
	} else if bare := bareAddrRegex.FindString(m.From); bare != "" {
		m.Address = strings.ToLower(bare)
	}

	if _, domain, ok := strings.Cut(m.Address, "@"); ok {
		m.Domain = strings.TrimSuffix(domain, ".")
	}
}

// ExtractLinks returns the http(s) href targets of anchor and area tags in
// document order, without duplicates.
func ExtractLinks(doc string) []string {
	var links []string
	seen := map[string]struct{}{}
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed document; either way keep what was found
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tokenizer.TagName()
		if !hasAttr || (string(name) != "a" && string(name) != "area") {
			continue
		}
		for {
			key, val, more := tokenizer.TagAttr()
			if string(key) == "href" {
				href := strings.TrimSpace(string(val))
				lower := strings.ToLower(href)
				if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
					if _, dup := seen[lower]; !dup {
						seen[lower] = struct{}{}
						links = append(links, href)
					}
				}
			}
			if !more {
				break
			}
		}
	}
}
