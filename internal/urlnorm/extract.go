package urlnorm

import (
	"regexp"
	"sort"
	"strings"
)

var (
	schemeURLRegex = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'()\[\]{}]+`)
	wwwURLRegex    = regexp.MustCompile(`(?i)\bwww\.[a-z0-9\-]+(?:\.[a-z0-9\-]+)+(?:/[^\s<>"'()\[\]{}]*)?`)
	bareURLRegex   = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9\-]*(?:\.[a-z0-9\-]+)*\.(?:com|net|org|io|co|info|biz|xyz|top|tk|ml|ga|cf|gq|app|dev|ru|cn|online|site|club|live|link|click|shop|store|me|us|uk|de)\b(?:/[^\s<>"'()\[\]{}]*)?`)
)

// trailingPunct is stripped from the end of extracted URLs; it usually
// belongs to the surrounding sentence.
const trailingPunct = ".,;:!?"

type span struct {
	start, end int
}

// ExtractURLs scans free text for scheme-qualified URLs, "www." forms and
// bare domain URLs. The result is deduplicated, keeps the order in which the
// URLs appear and is capped at limit entries (DefaultURLLimit when limit <= 0).
func ExtractURLs(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultURLLimit
	}

	// Earlier patterns win; later ones only count on text not yet consumed
	// (www.x.com inside https://www.x.com, or the domain of an email address).
	var found []span
	for _, re := range []*regexp.Regexp{schemeURLRegex, wwwURLRegex, bareURLRegex} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(found, s) {
				continue
			}
			if s.start > 0 && text[s.start-1] == '@' {
				continue
			}
			found = append(found, s)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })

	var out []string
	seen := map[string]struct{}{}
	for _, s := range found {
		candidate := strings.TrimRight(text[s.start:s.end], trailingPunct)
		if candidate == "" {
			continue
		}
		key := strings.ToLower(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
		if len(out) == limit {
			break
		}
	}
	return out
}

func overlaps(existing []span, s span) bool {
	for _, e := range existing {
		if s.start < e.end && e.start < s.end {
			return true
		}
	}
	return false
}
