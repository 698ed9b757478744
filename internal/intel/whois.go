package intel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultWhoisXMLURL = "https://www.whoisxmlapi.com/whoisserver/WhoisService"
	defaultRDAPURL     = "https://rdap.org"

	// NewDomainDays is the age below which a domain counts as newly registered.
	NewDomainDays = 30
)

var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Whois resolves domain registration age through WhoisXML when a key is
// configured, RDAP when enabled, and a TLD estimate otherwise. Concurrent
// lookups of one domain share a single call.
type Whois struct {
	service
	apiKey     string
	whoisURL   string
	rdapURL    string
	enableRDAP bool
	now        func() time.Time

	ages  *expirable.LRU[string, Age]
	group singleflight.Group
}

func newWhois(opts Options) *Whois {
	w := &Whois{
		service:    newService("whois", opts),
		apiKey:     opts.Credentials.Whois,
		whoisURL:   opts.Endpoints.WhoisXML,
		rdapURL:    strings.TrimSuffix(opts.Endpoints.RDAP, "/"),
		enableRDAP: opts.EnableRDAP,
		now:        opts.Now,
		ages:       expirable.NewLRU[string, Age](opts.CacheSize, nil, opts.CacheTTL),
	}
	if w.whoisURL == "" {
		w.whoisURL = defaultWhoisXMLURL
	}
	if w.rdapURL == "" {
		w.rdapURL = defaultRDAPURL
	}
	return w
}

// DomainAge implements AgeLookup.
func (w *Whois) DomainAge(ctx context.Context, domain string) Age {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return Age{Days: -1, Reason: "No domain to look up"}
	}
	if w.apiKey == "" && !w.enableRDAP {
		w.fallback(CauseNoCredential)
		return ageHeuristic(domain)
	}
	if age, ok := w.ages.Get(domain); ok {
		return age
	}

	v, err, _ := w.group.Do(domain, func() (any, error) {
		var (
			age Age
			err error
		)
		if w.apiKey != "" {
			age, err = w.whoisXML(ctx, domain)
		} else {
			age, err = w.rdap(ctx, domain)
		}
		if err != nil {
			return nil, err
		}
		w.ages.Add(domain, age)
		return age, nil
	})
	if err != nil {
		w.logger.Warn("intel: registration lookup", zap.String("domain", domain), zap.Error(err))
		w.fallback(CauseCallFailed)
		return ageHeuristic(domain)
	}
	return v.(Age)
}

type whoisXMLResponse struct {
	WhoisRecord struct {
		CreatedDate        string `json:"createdDate"`
		RegistrarName      string `json:"registrarName"`
		EstimatedDomainAge *int   `json:"estimatedDomainAge"`
		Registrant         struct {
			Organization string `json:"organization"`
			Name         string `json:"name"`
		} `json:"registrant"`
		RegistryData struct {
			CreatedDate   string `json:"createdDate"`
			RegistrarName string `json:"registrarName"`
		} `json:"registryData"`
	} `json:"WhoisRecord"`
}

func (w *Whois) whoisXML(ctx context.Context, domain string) (Age, error) {
	q := url.Values{}
	q.Set("apiKey", w.apiKey)
	q.Set("domainName", domain)
	q.Set("outputFormat", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.whoisURL+"?"+q.Encode(), nil)
	if err != nil {
		return Age{}, err
	}

	var resp whoisXMLResponse
	if err := w.doJSON(req, &resp); err != nil {
		return Age{}, err
	}

	rec := resp.WhoisRecord
	age := Age{
		Days:       -1,
		IsReal:     true,
		Registrar:  firstNonEmpty(rec.RegistrarName, rec.RegistryData.RegistrarName),
		Registrant: firstNonEmpty(rec.Registrant.Organization, rec.Registrant.Name),
	}

	switch {
	case rec.EstimatedDomainAge != nil:
		age.Days = *rec.EstimatedDomainAge
	default:
		created, ok := parseCreated(firstNonEmpty(rec.CreatedDate, rec.RegistryData.CreatedDate))
		if !ok {
			return Age{}, errors.New("whois record has no creation date")
		}
		age.Days = w.daysSince(created)
	}
	return finishAge(age, "WHOIS"), nil
}

type rdapResponse struct {
	Events []struct {
		EventAction string `json:"eventAction"`
		EventDate   string `json:"eventDate"`
	} `json:"events"`
	Entities []struct {
		Roles      []string `json:"roles"`
		VCardArray []any    `json:"vcardArray"`
	} `json:"entities"`
}

func (w *Whois) rdap(ctx context.Context, domain string) (Age, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.rdapURL+"/domain/"+url.PathEscape(domain), nil)
	if err != nil {
		return Age{}, err
	}
	req.Header.Set("Accept", "application/rdap+json")

	var resp rdapResponse
	if err := w.doJSON(req, &resp); err != nil {
		return Age{}, err
	}

	age := Age{Days: -1, IsReal: true}
	for _, ev := range resp.Events {
		if ev.EventAction != "registration" {
			continue
		}
		if created, ok := parseCreated(ev.EventDate); ok {
			age.Days = w.daysSince(created)
		}
	}
	if age.Days < 0 {
		return Age{}, errors.New("rdap record has no registration event")
	}

	for _, ent := range resp.Entities {
		name := vcardName(ent.VCardArray)
		for _, role := range ent.Roles {
			switch role {
			case "registrar":
				age.Registrar = firstNonEmpty(age.Registrar, name)
			case "registrant":
				age.Registrant = firstNonEmpty(age.Registrant, name)
			}
		}
	}
	return finishAge(age, "RDAP"), nil
}

func (w *Whois) daysSince(created time.Time) int {
	days := int(w.now().Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func finishAge(age Age, source string) Age {
	age.IsNew = age.Days >= 0 && age.Days < NewDomainDays
	if age.IsNew {
		age.Reason = fmt.Sprintf("%s: domain registered %d days ago", source, age.Days)
	} else {
		age.Reason = fmt.Sprintf("%s: domain is %d days old", source, age.Days)
	}
	return age
}

func parseCreated(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// vcardName pulls the "fn" property out of a jCard array.
func vcardName(card []any) string {
	if len(card) < 2 {
		return ""
	}
	props, ok := card[1].([]any)
	if !ok {
		return ""
	}
	for _, p := range props {
		prop, ok := p.([]any)
		if !ok || len(prop) < 4 {
			continue
		}
		if name, _ := prop[0].(string); name == "fn" {
			value, _ := prop[3].(string)
			return value
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
