package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxBodyBytes caps how much of a page body is read.
const DefaultMaxBodyBytes = 1 << 20

// ErrPrivateTarget is returned when a target resolves to a private, loopback
// or otherwise internal address.
var ErrPrivateTarget = errors.New("target resolves to a private or reserved address")

// Page is a fetched document.
type Page struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// Probe is the answer to a HEAD request made without following redirects.
type Probe struct {
	Status   int
	Location string
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	// AllowPrivate disables the private-address guard.
	AllowPrivate bool
	// Transport replaces the default HTTP transport.
	Transport http.RoundTripper
	// Offline makes every fetch fail without touching the network.
	Offline bool
}

// Fetcher downloads target pages for the live-content collectors. Concurrent
// requests for the same URL share one download and results are kept briefly
// so that every content collector of a scan inspects the same document.
type Fetcher struct {
	client       *http.Client
	probeClient  *http.Client
	maxBodyBytes int64
	userAgent    string
	allowPrivate bool
	offline      bool
	lookup       func(ctx context.Context, host string) ([]string, error)

	group singleflight.Group
	pages *expirable.LRU[string, *Page]
}

var errOffline = errors.New("network access disabled")

// NewFetcher builds a Fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; phishguard/1.0)"
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		}
	}

	f := &Fetcher{
		maxBodyBytes: opts.MaxBodyBytes,
		userAgent:    opts.UserAgent,
		allowPrivate: opts.AllowPrivate,
		offline:      opts.Offline,
		lookup:       net.DefaultResolver.LookupHost,
		pages:        expirable.NewLRU[string, *Page](64, nil, time.Minute),
	}
	f.client = &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return f.guard(req.Context(), req.URL)
		},
	}
	f.probeClient = &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

// Page returns the document at rawURL.
func (f *Fetcher) Page(ctx context.Context, rawURL string) (*Page, error) {
	if page, ok := f.pages.Get(rawURL); ok {
		return page, nil
	}
	v, err, _ := f.group.Do(rawURL, func() (any, error) {
		page, err := f.fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		f.pages.Add(rawURL, page)
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := f.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// Probe issues a HEAD request for rawURL without following redirects.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (Probe, error) {
	req, err := f.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return Probe{}, err
	}
	resp, err := f.probeClient.Do(req)
	if err != nil {
		return Probe{}, err
	}
	resp.Body.Close()
	return Probe{Status: resp.StatusCode, Location: resp.Header.Get("Location")}, nil
}

func (f *Fetcher) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	if f.offline {
		return nil, errOffline
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if err := f.guard(ctx, req.URL); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	return req, nil
}

// guard refuses URLs whose host resolves to an internal address.
func (f *Fetcher) guard(ctx context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if f.allowPrivate {
		return nil
	}
	host := u.Hostname()
	addrs := []string{host}
	if net.ParseIP(host) == nil {
		resolved, err := f.lookup(ctx, host)
		if err != nil {
			return err
		}
		addrs = resolved
	}
	for _, addr := range addrs {
		if IsPrivateIP(addr) {
			return ErrPrivateTarget
		}
	}
	return nil
}

// IsPrivateIP reports whether ip is private, loopback, link-local,
// unspecified, carrier-grade NAT or a benchmarking range.
func IsPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127 {
			return true
		}
		if ip4[0] == 192 && ip4[1] == 0 && ip4[2] == 0 {
			return true
		}
		if ip4[0] == 198 && (ip4[1] == 18 || ip4[1] == 19) {
			return true
		}
	}
	return false
}
