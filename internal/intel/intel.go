// Package intel holds thin clients for the external reputation services.
// Every client answers even when the service cannot be reached: a missing
// credential or a failed call is logged and replaced by a named local
// heuristic whose result is marked as not real.
package intel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Environment variables holding service credentials.
const (
	EnvSafeBrowsingKey = "GOOGLE_SAFE_BROWSING_API_KEY"
	EnvPhishTankKey    = "PHISHTANK_API_KEY"
	EnvVirusTotalKey   = "VIRUSTOTAL_API_KEY"
	EnvWhoisKey        = "WHOIS_API_KEY"
)

// Fallback causes reported through Options.OnFallback.
const (
	CauseNoCredential = "no_credential"
	CauseCallFailed   = "call_failed"
	CauseDisabled     = "disabled"
)

const maxResponseBytes = 1 << 20

// Verdict is the answer of a URL reputation lookup.
type Verdict struct {
	Detected   bool   `json:"detected"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
	IsReal     bool   `json:"isReal"`
}

// Age is the answer of a domain registration lookup. Days is -1 when unknown.
type Age struct {
	Days       int    `json:"days"`
	IsNew      bool   `json:"isNew"`
	IsReal     bool   `json:"isReal"`
	Reason     string `json:"reason"`
	Registrant string `json:"registrant,omitempty"`
	Registrar  string `json:"registrar,omitempty"`
}

// URLChecker is implemented by every URL reputation client.
type URLChecker interface {
	CheckURL(ctx context.Context, rawURL string) Verdict
}

// AgeLookup is implemented by the registration-data client.
type AgeLookup interface {
	DomainAge(ctx context.Context, domain string) Age
}

// Credentials carries the API keys. Empty keys select the fallback.
type Credentials struct {
	SafeBrowsing string
	PhishTank    string
	VirusTotal   string
	Whois        string
}

// CredentialsFromEnv reads the API keys from the process environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		SafeBrowsing: os.Getenv(EnvSafeBrowsingKey),
		PhishTank:    os.Getenv(EnvPhishTankKey),
		VirusTotal:   os.Getenv(EnvVirusTotalKey),
		Whois:        os.Getenv(EnvWhoisKey),
	}
}

// FallbackFunc is an optional callback invoked whenever a heuristic answers
// instead of the live service.
type FallbackFunc func(service, cause string)

// Endpoints overrides the service base URLs, mainly for tests.
type Endpoints struct {
	SafeBrowsing string
	PhishTank    string
	VirusTotal   string
	OpenPhish    string
	WhoisXML     string
	RDAP         string
}

// Options configures the client set.
type Options struct {
	Credentials Credentials
	HTTPClient  *http.Client
	Logger      *zap.Logger
	Endpoints   Endpoints

	// EnableOpenPhish turns on the public feed download.
	EnableOpenPhish bool
	// EnableRDAP lets the WHOIS client query RDAP when no WhoisXML key is set.
	EnableRDAP bool
	// Offline forces every client onto its fallback.
	Offline bool

	CacheSize int
	CacheTTL  time.Duration
	// RequestsPerSecond paces outbound calls per service.
	RequestsPerSecond float64
	Burst             int

	OnFallback FallbackFunc
	Now        func() time.Time
}

// Clients bundles one client per service.
type Clients struct {
	SafeBrowsing *SafeBrowsing
	PhishTank    *PhishTank
	VirusTotal   *VirusTotal
	OpenPhish    *OpenPhish
	Whois        *Whois
}

// New builds the client set. Zero values in opts receive defaults.
func New(opts Options) *Clients {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Offline {
		opts.Credentials = Credentials{}
		opts.EnableOpenPhish = false
		opts.EnableRDAP = false
	}

	return &Clients{
		SafeBrowsing: newSafeBrowsing(opts),
		PhishTank:    newPhishTank(opts),
		VirusTotal:   newVirusTotal(opts),
		OpenPhish:    newOpenPhish(opts),
		Whois:        newWhois(opts),
	}
}

// service carries what every client shares: transport, pacing, cache and
// logging.
type service struct {
	name       string
	http       *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	cache      *expirable.LRU[string, Verdict]
	onFallback FallbackFunc
}

func newService(name string, opts Options) service {
	return service{
		name:       name,
		http:       opts.HTTPClient,
		logger:     opts.Logger.With(zap.String("service", name)),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		cache:      expirable.NewLRU[string, Verdict](opts.CacheSize, nil, opts.CacheTTL),
		onFallback: opts.OnFallback,
	}
}

func (s service) fallback(cause string) {
	if s.onFallback != nil {
		s.onFallback(s.name, cause)
	}
}

// errStatus is returned for responses outside the expected status set.
type errStatus int

func (e errStatus) Error() string {
	return fmt.Sprintf("unexpected status code %d", int(e))
}

var errNotFound = errors.New("not found")

// doJSON paces, sends req and decodes a 2xx JSON body into out. A 404 is
// reported as errNotFound.
func (s service) doJSON(req *http.Request, out any) error {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
