package detector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/phishguard/internal/intel"
	"github.com/example/phishguard/internal/refdata"
)

// DefaultTimeout bounds a single collector run.
const DefaultTimeout = 5 * time.Second

// Deps are the shared, read-only collaborators handed to every factory.
type Deps struct {
	Data    *refdata.Dataset
	Intel   *intel.Clients
	Fetcher *Fetcher
	Logger  *zap.Logger
}

// Registry maps collector IDs to constructors.
type Registry map[string]Factory

// Factory builds a collector instance.
type Factory func(deps Deps) Detector

// DefaultOrder is the order in which built-in collectors run and report.
var DefaultOrder = []string{
	"safe-browsing", "phishtank", "virustotal", "openphish",
	"ssl", "raw-ip", "homoglyph", "brand", "random-domain", "deceptive-infra",
	"privacy-proxy", "domain-age", "redirect",
	"js-behavior", "external-resources", "malware-patterns", "security-headers",
	"nlp", "crypto-scam", "email-identity", "email-payload", "email-pattern",
}

// DefaultRegistry contains built-in collectors.
var DefaultRegistry = Registry{
	"safe-browsing":      func(d Deps) Detector { return newIntelCollector(safeBrowsingInfo, d.Intel.SafeBrowsing) },
	"phishtank":          func(d Deps) Detector { return newIntelCollector(phishTankInfo, d.Intel.PhishTank) },
	"virustotal":         func(d Deps) Detector { return newIntelCollector(virusTotalInfo, d.Intel.VirusTotal) },
	"openphish":          func(d Deps) Detector { return newIntelCollector(openPhishInfo, d.Intel.OpenPhish) },
	"ssl":                func(Deps) Detector { return sslDetector{} },
	"raw-ip":             func(Deps) Detector { return rawIPDetector{} },
	"homoglyph":          func(Deps) Detector { return homoglyphDetector{} },
	"brand":              func(d Deps) Detector { return brandDetector{data: d.Data} },
	"random-domain":      func(d Deps) Detector { return randomDomainDetector{data: d.Data} },
	"deceptive-infra":    func(d Deps) Detector { return deceptiveInfraDetector{data: d.Data} },
	"privacy-proxy":      func(d Deps) Detector { return privacyProxyDetector{data: d.Data, whois: d.Intel.Whois} },
	"domain-age":         func(d Deps) Detector { return domainAgeDetector{data: d.Data, whois: d.Intel.Whois} },
	"redirect":           func(d Deps) Detector { return redirectDetector{fetcher: d.Fetcher} },
	"js-behavior":        func(d Deps) Detector { return jsBehaviorDetector{fetcher: d.Fetcher} },
	"external-resources": func(d Deps) Detector { return externalResourcesDetector{fetcher: d.Fetcher} },
	"malware-patterns":   func(d Deps) Detector { return malwarePatternsDetector{fetcher: d.Fetcher} },
	"security-headers":   func(d Deps) Detector { return securityHeadersDetector{fetcher: d.Fetcher} },
	"nlp":                func(d Deps) Detector { return newNLPDetector(d.Data) },
	"crypto-scam":        func(d Deps) Detector { return newCryptoScamDetector(d.Data) },
	"email-identity":     func(d Deps) Detector { return emailIdentityDetector{data: d.Data} },
	"email-payload":      func(d Deps) Detector { return newEmailPayloadDetector(d.Data) },
	"email-pattern":      func(d Deps) Detector { return newEmailPatternDetector(d.Data) },
}

// BuildDetectors instantiates collectors from the provided IDs, in the order
// given. An empty list selects every collector in DefaultOrder.
func (r Registry) BuildDetectors(ids []string, deps Deps) ([]Detector, error) {
	if len(ids) == 0 {
		ids = DefaultOrder
	}

	var detectors []Detector
	seen := map[string]struct{}{}
	for _, id := range ids {
		factory, ok := r[id]
		if !ok {
			return nil, fmt.Errorf("unknown detector: %s", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		detectors = append(detectors, factory(deps))
	}
	return detectors, nil
}

// ResultFunc is an optional callback invoked after every collector run.
type ResultFunc func(src Source, elapsed time.Duration)

// RunOptions tunes Run.
type RunOptions struct {
	Timeout  time.Duration
	Logger   *zap.Logger
	OnResult ResultFunc
}

// Run executes detectors concurrently against one input and waits for all of
// them. The result has one Source per detector, in detector order. A
// collector that panics or overruns its timeout yields a degraded,
// non-detecting Source.
func Run(ctx context.Context, detectors []Detector, in Input, opts RunOptions) []Source {
	if len(detectors) == 0 {
		return nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	results := make([]Source, len(detectors))
	var g errgroup.Group
	for i, d := range detectors {
		g.Go(func() error {
			start := time.Now()
			results[i] = runOne(ctx, d, in, opts)
			if opts.OnResult != nil {
				opts.OnResult(results[i], time.Since(start))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runOne(ctx context.Context, d Detector, in Input, opts RunOptions) Source {
	info := d.Info()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	done := make(chan Evidence, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				opts.Logger.Error("detector: panic", zap.String("detector", info.ID), zap.Any("panic", r))
				done <- Evidence{Degraded: true, Reason: fmt.Sprintf("Check failed internally: %v", r)}
			}
		}()
		done <- d.Detect(ctx, in)
	}()

	select {
	case ev := <-done:
		return Stamp(info, ev)
	case <-ctx.Done():
		opts.Logger.Debug("detector: timeout", zap.String("detector", info.ID), zap.Duration("timeout", opts.Timeout))
		return Stamp(info, Evidence{
			Degraded: true,
			Reason:   fmt.Sprintf("Check did not complete within %s", opts.Timeout),
		})
	}
}
