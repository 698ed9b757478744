package intel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const defaultVirusTotalURL = "https://www.virustotal.com/api/v3/urls/"

// VirusTotal queries the VirusTotal v3 URL report endpoint.
type VirusTotal struct {
	service
	apiKey   string
	endpoint string
}

func newVirusTotal(opts Options) *VirusTotal {
	endpoint := opts.Endpoints.VirusTotal
	if endpoint == "" {
		endpoint = defaultVirusTotalURL
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &VirusTotal{
		service:  newService("virustotal", opts),
		apiKey:   opts.Credentials.VirusTotal,
		endpoint: endpoint,
	}
}

type vtResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// URLID returns the VirusTotal identifier of a URL: unpadded URL-safe base64.
func URLID(rawURL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rawURL))
}

// CheckURL implements URLChecker.
func (c *VirusTotal) CheckURL(ctx context.Context, rawURL string) Verdict {
	if c.apiKey == "" {
		c.fallback(CauseNoCredential)
		return fileExtensionHeuristic(rawURL)
	}
	if v, ok := c.cache.Get(rawURL); ok {
		return v
	}

	v, err := c.lookup(ctx, rawURL)
	if err != nil {
		c.logger.Warn("intel: virustotal lookup", zap.String("url", rawURL), zap.Error(err))
		c.fallback(CauseCallFailed)
		return fileExtensionHeuristic(rawURL)
	}
	c.cache.Add(rawURL, v)
	return v
}

func (c *VirusTotal) lookup(ctx context.Context, rawURL string) (Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+URLID(rawURL), nil)
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	var resp vtResponse
	if err := c.doJSON(req, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return Verdict{Confidence: 50, IsReal: true, Reason: "URL has no VirusTotal analysis on record"}, nil
		}
		return Verdict{}, err
	}

	stats := resp.Data.Attributes.LastAnalysisStats
	engines := stats.Malicious + stats.Suspicious + stats.Harmless + stats.Undetected
	switch {
	case stats.Malicious >= 2:
		confidence := 80 + 2*stats.Malicious
		if confidence > 99 {
			confidence = 99
		}
		return Verdict{
			Detected:   true,
			Confidence: confidence,
			IsReal:     true,
			Reason:     fmt.Sprintf("VirusTotal: %d of %d engines flag URL as malicious", stats.Malicious, engines),
		}, nil
	case stats.Malicious == 1 || stats.Suspicious >= 2:
		return Verdict{
			Detected:   true,
			Confidence: 65,
			IsReal:     true,
			Reason:     fmt.Sprintf("VirusTotal: %d malicious and %d suspicious verdicts", stats.Malicious, stats.Suspicious),
		}, nil
	}
	return Verdict{
		Confidence: 85,
		IsReal:     true,
		Reason:     fmt.Sprintf("VirusTotal: no engine flags URL (%d engines)", engines),
	}, nil
}
