package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/intel"
	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/scoring"
)

type stubChecker struct {
	verdict intel.Verdict
}

func (s stubChecker) CheckURL(context.Context, string) intel.Verdict { return s.verdict }

func offlineOptions() Options {
	return Options{
		Data:    refdata.Default(),
		Intel:   intel.New(intel.Options{Offline: true}),
		Fetcher: detector.NewFetcher(detector.FetcherOptions{Offline: true}),
		Timeout: 2 * time.Second,
	}
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestDetectAllowListedDomainIsSafe(t *testing.T) {
	e := newEngine(t, offlineOptions())

	res := e.Detect(context.Background(), "https://www.google.com", detector.ModeURL)
	assert.Equal(t, 0, res.RiskScore)
	assert.Equal(t, scoring.Safe, res.Classification)
	assert.Equal(t, scoring.RuleAllowList, res.Official.Rule)
	assert.Len(t, res.Sources, len(detector.DefaultOrder)-3, "url mode skips the email-only collectors")
}

func TestDetectAuthoritativeIntelBlocks(t *testing.T) {
	opts := offlineOptions()
	opts.Extra = []detector.Detector{
		detector.NewIntelCollector("stub-intel", "Stub Intel", stubChecker{intel.Verdict{Detected: true, Confidence: 95, Reason: "listed", IsReal: true}}),
	}
	e := newEngine(t, opts)

	for _, target := range []string{"https://unknown-example-shop.com/", "https://www.google.com/"} {
		res := e.Detect(context.Background(), target, detector.ModeURL)
		assert.Equal(t, 100, res.RiskScore, target)
		assert.Equal(t, scoring.Malicious, res.Classification, target)
		assert.Equal(t, scoring.RuleAuthoritative, res.Official.Rule, target)
	}
}

func TestDetectHomoglyph(t *testing.T) {
	e := newEngine(t, offlineOptions())

	res := e.Detect(context.Background(), "https://pаypal.com/signin", detector.ModeURL)
	assert.GreaterOrEqual(t, res.RiskScore, 99)
	assert.Equal(t, scoring.Malicious, res.Classification)
	assert.Equal(t, scoring.RuleOverride, res.Official.Rule)
}

func TestDetectTyposquat(t *testing.T) {
	e := newEngine(t, offlineOptions())

	res := e.Detect(context.Background(), "https://www.paypa1.com/login", detector.ModeURL)
	assert.GreaterOrEqual(t, res.RiskScore, 85)
	assert.Equal(t, scoring.Malicious, res.Classification)
	assert.Equal(t, "Brand Impersonation", res.Verdict.ThreatCategory)
}

func TestDetectInvalidInput(t *testing.T) {
	e := newEngine(t, offlineOptions())

	for _, input := range []string{"", "not a url", "ftp://example.com/file"} {
		res := e.Detect(context.Background(), input, detector.ModeURL)
		assert.Equal(t, scoring.Safe, res.Classification, input)
		assert.Zero(t, res.RiskScore, input)
		assert.Empty(t, res.Sources, input)
		require.NotEmpty(t, res.Reasons, input)
		assert.True(t, strings.HasPrefix(res.Reasons[0], "Invalid input:"), res.Reasons[0])
	}

	res := e.Detect(context.Background(), "   ", detector.ModeEmail)
	assert.True(t, strings.HasPrefix(res.Reasons[0], "Invalid input:"))

	res = e.Detect(context.Background(), "https://example.com", detector.Mode("sms"))
	assert.Contains(t, res.Reasons[0], "unsupported mode")
}

func TestDetectDegradesGracefullyWithoutCredentials(t *testing.T) {
	e := newEngine(t, offlineOptions())

	res := e.Detect(context.Background(), "https://unknown-example-shop.com/", detector.ModeURL)
	require.NotEmpty(t, res.Sources)
	for _, s := range res.Sources {
		assert.NotEmpty(t, s.Reason, s.ID)
		if s.Tier == detector.TierIntelligence {
			assert.False(t, s.IsReal, "%s must be marked simulated offline", s.ID)
			assert.False(t, s.Detected && s.Confidence >= 80 && s.IsReal, s.ID)
		}
	}
	assert.NotEqual(t, scoring.RuleAuthoritative, res.Official.Rule)
}

func TestDetectIsDeterministic(t *testing.T) {
	e := newEngine(t, offlineOptions())

	first := e.Detect(context.Background(), "https://paypal-login.vercel.app/", detector.ModeURL)
	for i := 0; i < 3; i++ {
		again := e.Detect(context.Background(), "https://paypal-login.vercel.app/", detector.ModeURL)
		assert.Equal(t, first.RiskScore, again.RiskScore)
		assert.Equal(t, first.Classification, again.Classification)
		assert.Equal(t, first.Reasons, again.Reasons)
	}
}

func TestDetectEmail(t *testing.T) {
	var (
		mu      sync.Mutex
		targets = map[string]int{}
	)
	opts := offlineOptions()
	opts.OnSource = func(target string, src detector.Source, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		targets[target]++
	}
	e := newEngine(t, opts)

	email := "From: PayPal Service <service@paypa1-secure.com>\n" +
		"Subject: Account suspended\n" +
		"\n" +
		"Dear customer, verify your account at https://paypa1-secure.com/login immediately.\n" +
		"Backup link: www.google.com\n"

	res := e.Detect(context.Background(), email, detector.ModeEmail)
	assert.Equal(t, scoring.Malicious, res.Classification)
	assert.GreaterOrEqual(t, res.RiskScore, 92)
	assert.Equal(t, []string{"https://paypa1-secure.com/login", "https://www.google.com"}, res.Targets)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 17, targets["https://paypa1-secure.com/login"])
	assert.Equal(t, 17, targets["https://www.google.com"])
	assert.Equal(t, 5, targets[""], "text and email collectors run once")
}

func TestDetectEmailWithoutLinks(t *testing.T) {
	e := newEngine(t, offlineOptions())

	res := e.Detect(context.Background(), "Hi team, lunch is at noon on Friday.", detector.ModeEmail)
	assert.Equal(t, scoring.Safe, res.Classification)
	assert.Empty(t, res.Targets)
	assert.Len(t, res.Sources, 5)
}

func TestNewRejectsUnknownDetector(t *testing.T) {
	opts := offlineOptions()
	opts.Detectors = []string{"ssl", "nope"}
	_, err := New(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown detector: nope")
}

func TestDetectorSubset(t *testing.T) {
	opts := offlineOptions()
	opts.Detectors = []string{"ssl", "raw-ip"}
	e := newEngine(t, opts)

	res := e.Detect(context.Background(), "http://203.0.113.5/", detector.ModeURL)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "ssl", res.Sources[0].ID)
	assert.Equal(t, "raw-ip", res.Sources[1].ID)
}
