package intel

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOpenPhishFeedURL = "https://raw.githubusercontent.com/openphish/public_feed/refs/heads/main/feed.txt"
	openPhishCacheTTL       = 12 * time.Hour
)

// OpenPhish checks URLs against the OpenPhish community feed. The feed is
// downloaded on first use and refreshed every 12 hours.
type OpenPhish struct {
	service
	enabled bool
	feedURL string
	now     func() time.Time

	mu       sync.RWMutex
	feed     map[string]bool
	loadedAt time.Time
}

func newOpenPhish(opts Options) *OpenPhish {
	feedURL := opts.Endpoints.OpenPhish
	if feedURL == "" {
		feedURL = defaultOpenPhishFeedURL
	}
	return &OpenPhish{
		service: newService("openphish", opts),
		enabled: opts.EnableOpenPhish,
		feedURL: feedURL,
		now:     opts.Now,
	}
}

// CheckURL implements URLChecker.
func (c *OpenPhish) CheckURL(ctx context.Context, rawURL string) Verdict {
	if !c.enabled {
		c.fallback(CauseDisabled)
		return Verdict{Reason: "OpenPhish feed lookup disabled"}
	}

	feed := c.loadFeed(ctx)
	if len(feed) == 0 {
		c.fallback(CauseCallFailed)
		return Verdict{Reason: "OpenPhish feed unavailable"}
	}

	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	if feed[strings.ToLower(rawURL)] || (host != "" && feed[host]) {
		return Verdict{Detected: true, Confidence: 90, IsReal: true, Reason: "Host appears in the OpenPhish phishing feed"}
	}
	return Verdict{Confidence: 70, IsReal: true, Reason: "Host not present in the OpenPhish feed"}
}

func (c *OpenPhish) loadFeed(ctx context.Context) map[string]bool {
	c.mu.RLock()
	if c.feed != nil && c.now().Sub(c.loadedAt) < openPhishCacheTTL {
		defer c.mu.RUnlock()
		return c.feed
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.feed != nil && c.now().Sub(c.loadedAt) < openPhishCacheTTL {
		return c.feed
	}

	feed, err := c.download(ctx)
	if err != nil {
		c.logger.Warn("intel: openphish feed download", zap.Error(err))
		return c.feed
	}
	if len(feed) > 0 {
		c.feed = feed
		c.loadedAt = c.now()
	}
	return c.feed
}

func (c *OpenPhish) download(ctx context.Context) (map[string]bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errStatus(resp.StatusCode)
	}

	feed := make(map[string]bool)
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, 16*maxResponseBytes))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parsed, err := url.Parse(line)
		if err == nil && parsed.Host != "" {
			feed[strings.ToLower(parsed.Hostname())] = true
			feed[strings.ToLower(line)] = true
		}
	}
	return feed, scanner.Err()
}
