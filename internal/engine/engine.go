// Package engine orchestrates a scan: it normalizes the input, fans the
// collectors out over every target, scores the sources and assembles the
// report. Detect never returns an error; bad input yields a SAFE result that
// says why.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/emailtext"
	"github.com/example/phishguard/internal/intel"
	"github.com/example/phishguard/internal/metrics"
	"github.com/example/phishguard/internal/refdata"
	"github.com/example/phishguard/internal/report"
	"github.com/example/phishguard/internal/scoring"
	"github.com/example/phishguard/internal/urlnorm"
)

// ErrNoTargets is reported when an email holds no scannable content.
var ErrNoTargets = errors.New("email text is empty")

// SourceFunc is an optional callback invoked for every stamped source.
type SourceFunc func(target string, src detector.Source, elapsed time.Duration)

// Options configures an Engine. Zero values receive defaults.
type Options struct {
	Data    *refdata.Dataset
	Intel   *intel.Clients
	Fetcher *detector.Fetcher
	Logger  *zap.Logger

	// Registry defaults to detector.DefaultRegistry.
	Registry detector.Registry
	// Detectors selects collector IDs; empty means all of them.
	Detectors []string
	// Extra collectors run alongside the registry-built ones.
	Extra []detector.Detector

	Timeout  time.Duration
	URLLimit int

	OnSource SourceFunc
	Now      func() time.Time
}

// Engine runs scans. It is safe for concurrent use.
type Engine struct {
	data     *refdata.Dataset
	logger   *zap.Logger
	timeout  time.Duration
	urlLimit int
	onSource SourceFunc
	now      func() time.Time

	urlDetectors   []detector.Detector
	textDetectors  []detector.Detector
	emailDetectors []detector.Detector
}

// New builds an Engine and its collectors.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Data == nil {
		opts.Data = refdata.Default()
	}
	if opts.Intel == nil {
		opts.Intel = intel.New(intel.Options{Logger: opts.Logger, OnFallback: metrics.RecordIntelFallback})
	}
	if opts.Fetcher == nil {
		opts.Fetcher = detector.NewFetcher(detector.FetcherOptions{Timeout: opts.Timeout})
	}
	if opts.Registry == nil {
		opts.Registry = detector.DefaultRegistry
	}
	if opts.Timeout <= 0 {
		opts.Timeout = detector.DefaultTimeout
	}
	if opts.URLLimit <= 0 {
		opts.URLLimit = urlnorm.DefaultURLLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	built, err := opts.Registry.BuildDetectors(opts.Detectors, detector.Deps{
		Data:    opts.Data,
		Intel:   opts.Intel,
		Fetcher: opts.Fetcher,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build detectors: %w", err)
	}

	e := &Engine{
		data:     opts.Data,
		logger:   opts.Logger,
		timeout:  opts.Timeout,
		urlLimit: opts.URLLimit,
		onSource: opts.OnSource,
		now:      opts.Now,
	}
	for _, d := range append(built, opts.Extra...) {
		switch d.Info().Scope {
		case detector.ScopeURL:
			e.urlDetectors = append(e.urlDetectors, d)
		case detector.ScopeText:
			e.textDetectors = append(e.textDetectors, d)
		case detector.ScopeEmail:
			e.emailDetectors = append(e.emailDetectors, d)
		}
	}
	return e, nil
}

// Detect scans input in the given mode.
func (e *Engine) Detect(ctx context.Context, input string, mode detector.Mode) report.Result {
	started := e.now()

	var (
		targets []*detector.Target
		text    string
		msg     *emailtext.Message
	)
	switch mode {
	case detector.ModeURL:
		target, err := detector.NewTarget(input)
		if err != nil {
			return e.invalid(mode, err, started)
		}
		targets = []*detector.Target{target}
		text = strings.TrimSpace(input)
	case detector.ModeEmail:
		if strings.TrimSpace(input) == "" {
			return e.invalid(mode, ErrNoTargets, started)
		}
		parsed := emailtext.Parse(input)
		msg = &parsed
		text = parsed.Subject + "\n" + parsed.Body
		targets = e.emailTargets(parsed)
	default:
		return e.invalid(mode, fmt.Errorf("unsupported mode %q", mode), started)
	}

	sources := e.collect(ctx, mode, targets, text, msg)

	urls := make([]string, 0, len(targets))
	for _, t := range targets {
		urls = append(urls, t.URL)
	}
	decision := scoring.Explain(sources, urls, e.data)
	res := report.Build(report.Input{
		Mode:     mode,
		Targets:  urls,
		Sources:  sources,
		Decision: decision,
		Started:  started,
		Finished: e.now(),
	})

	e.logger.Info("engine: scan complete",
		zap.String("mode", string(mode)),
		zap.Int("targets", len(urls)),
		zap.Int("sources", len(sources)),
		zap.Int("score", res.RiskScore),
		zap.String("classification", string(res.Classification)),
		zap.String("rule", string(decision.Rule)),
		zap.Duration("elapsed", res.ProcessingTime),
	)
	metrics.RecordScan(string(mode), string(res.Classification), res.ProcessingTime)
	return res
}

// emailTargets collects the URLs of a message, text first and then HTML
// links, keeping the first urlLimit that normalize.
func (e *Engine) emailTargets(msg emailtext.Message) []*detector.Target {
	candidates := urlnorm.ExtractURLs(msg.Subject+"\n"+msg.Body, e.urlLimit)
	candidates = append(candidates, msg.Links...)

	var targets []*detector.Target
	seen := map[string]bool{}
	for _, raw := range candidates {
		target, err := detector.NewTarget(raw)
		if err != nil {
			e.logger.Debug("engine: skip url", zap.String("url", raw), zap.Error(err))
			continue
		}
		if seen[target.URL] {
			continue
		}
		seen[target.URL] = true
		targets = append(targets, target)
		if len(targets) == e.urlLimit {
			break
		}
	}
	return targets
}

// collect runs one collector batch per target plus the whole-input batch,
// all concurrently, and flattens the sources in target order.
func (e *Engine) collect(ctx context.Context, mode detector.Mode, targets []*detector.Target, text string, msg *emailtext.Message) []detector.Source {
	batches := make([][]detector.Source, len(targets)+1)

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			in := detector.Input{Mode: mode, Target: target, Text: text, Email: msg}
			batches[i] = detector.Run(ctx, e.urlDetectors, in, e.runOptions(target.URL))
			return nil
		})
	}

	whole := e.textDetectors
	if mode == detector.ModeEmail {
		whole = append(append([]detector.Detector(nil), whole...), e.emailDetectors...)
	}
	g.Go(func() error {
		in := detector.Input{Mode: mode, Text: text, Email: msg}
		batches[len(targets)] = detector.Run(ctx, whole, in, e.runOptions(""))
		return nil
	})
	_ = g.Wait()

	var sources []detector.Source
	for _, batch := range batches {
		sources = append(sources, batch...)
	}
	if sources == nil {
		sources = []detector.Source{}
	}
	return sources
}

func (e *Engine) runOptions(target string) detector.RunOptions {
	return detector.RunOptions{
		Timeout: e.timeout,
		Logger:  e.logger,
		OnResult: func(src detector.Source, elapsed time.Duration) {
			metrics.RecordCollector(src.ID, elapsed, src.Tier != detector.TierHeuristic && !src.IsReal)
			if e.onSource != nil {
				e.onSource(target, src, elapsed)
			}
		},
	}
}

func (e *Engine) invalid(mode detector.Mode, err error, started time.Time) report.Result {
	e.logger.Info("engine: invalid input", zap.String("mode", string(mode)), zap.Error(err))
	return report.Invalid(mode, err.Error(), started, e.now())
}
