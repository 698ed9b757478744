package intel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const defaultSafeBrowsingURL = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

// SafeBrowsing queries the Google Safe Browsing v4 Lookup API.
type SafeBrowsing struct {
	service
	apiKey   string
	endpoint string
}

func newSafeBrowsing(opts Options) *SafeBrowsing {
	endpoint := opts.Endpoints.SafeBrowsing
	if endpoint == "" {
		endpoint = defaultSafeBrowsingURL
	}
	return &SafeBrowsing{
		service:  newService("safe-browsing", opts),
		apiKey:   opts.Credentials.SafeBrowsing,
		endpoint: endpoint,
	}
}

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string        `json:"threatTypes"`
		PlatformTypes    []string        `json:"platformTypes"`
		ThreatEntryTypes []string        `json:"threatEntryTypes"`
		ThreatEntries    []sbThreatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// CheckURL implements URLChecker.
func (c *SafeBrowsing) CheckURL(ctx context.Context, rawURL string) Verdict {
	if c.apiKey == "" {
		c.fallback(CauseNoCredential)
		return threatPatternHeuristic(rawURL)
	}
	if v, ok := c.cache.Get(rawURL); ok {
		return v
	}

	v, err := c.lookup(ctx, rawURL)
	if err != nil {
		c.logger.Warn("intel: safe browsing lookup", zap.String("url", rawURL), zap.Error(err))
		c.fallback(CauseCallFailed)
		return threatPatternHeuristic(rawURL)
	}
	c.cache.Add(rawURL, v)
	return v
}

func (c *SafeBrowsing) lookup(ctx context.Context, rawURL string) (Verdict, error) {
	var body sbRequest
	body.Client.ClientID = "phishguard"
	body.Client.ClientVersion = "1.0"
	body.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []sbThreatEntry{{URL: rawURL}}

	payload, err := json.Marshal(body)
	if err != nil {
		return Verdict{}, err
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp sbResponse
	if err := c.doJSON(req, &resp); err != nil {
		return Verdict{}, err
	}

	if len(resp.Matches) == 0 {
		return Verdict{Confidence: 90, IsReal: true, Reason: "Google Safe Browsing reports no known threats"}, nil
	}

	var types []string
	seen := map[string]bool{}
	for _, m := range resp.Matches {
		if !seen[m.ThreatType] {
			seen[m.ThreatType] = true
			types = append(types, m.ThreatType)
		}
	}
	return Verdict{
		Detected:   true,
		Confidence: 95,
		IsReal:     true,
		Reason:     "Google Safe Browsing flagged URL as " + strings.Join(types, ", "),
	}, nil
}
