package intel

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const defaultPhishTankURL = "https://checkurl.phishtank.com/checkurl/"

// PhishTank queries the PhishTank checkurl endpoint.
type PhishTank struct {
	service
	apiKey   string
	endpoint string
}

func newPhishTank(opts Options) *PhishTank {
	endpoint := opts.Endpoints.PhishTank
	if endpoint == "" {
		endpoint = defaultPhishTankURL
	}
	return &PhishTank{
		service:  newService("phishtank", opts),
		apiKey:   opts.Credentials.PhishTank,
		endpoint: endpoint,
	}
}

type ptResponse struct {
	Results struct {
		InDatabase bool `json:"in_database"`
		Verified   bool `json:"verified"`
		Valid      bool `json:"valid"`
		PhishID    any  `json:"phish_id"`
	} `json:"results"`
}

// CheckURL implements URLChecker.
func (c *PhishTank) CheckURL(ctx context.Context, rawURL string) Verdict {
	if c.apiKey == "" {
		c.fallback(CauseNoCredential)
		return phishingURLHeuristic(rawURL)
	}
	if v, ok := c.cache.Get(rawURL); ok {
		return v
	}

	v, err := c.lookup(ctx, rawURL)
	if err != nil {
		c.logger.Warn("intel: phishtank lookup", zap.String("url", rawURL), zap.Error(err))
		c.fallback(CauseCallFailed)
		return phishingURLHeuristic(rawURL)
	}
	c.cache.Add(rawURL, v)
	return v
}

func (c *PhishTank) lookup(ctx context.Context, rawURL string) (Verdict, error) {
	form := url.Values{}
	form.Set("url", rawURL)
	form.Set("format", "json")
	form.Set("app_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "phishtank/phishguard")

	var resp ptResponse
	if err := c.doJSON(req, &resp); err != nil {
		return Verdict{}, err
	}

	r := resp.Results
	switch {
	case r.InDatabase && r.Valid && r.Verified:
		return Verdict{Detected: true, Confidence: 95, IsReal: true, Reason: "PhishTank lists URL as a verified phish"}, nil
	case r.InDatabase && r.Valid:
		return Verdict{Detected: true, Confidence: 85, IsReal: true, Reason: "PhishTank lists URL as a reported phish awaiting verification"}, nil
	case r.InDatabase:
		return Verdict{Confidence: 70, IsReal: true, Reason: "PhishTank lists URL but the report is no longer valid"}, nil
	}
	return Verdict{Confidence: 80, IsReal: true, Reason: "URL not found in PhishTank database"}, nil
}
