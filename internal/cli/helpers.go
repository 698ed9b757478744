package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/example/phishguard/internal/config"
	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/engine"
	"github.com/example/phishguard/internal/intel"
	"github.com/example/phishguard/internal/metrics"
	"github.com/example/phishguard/internal/refdata"
)

const maxInputBytes = 10 << 20

// stdinLabel names input read from standard input in events and artifacts.
const stdinLabel = "-"

func ensureOutputDir(path string) error {
	if path == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return os.MkdirAll(path, 0o755)
}

// buildEngine wires the engine for a runtime configuration. API credentials
// come from the environment only.
func buildEngine(ctx context.Context, cfg config.RuntimeConfig, logger *zap.Logger, onSource engine.SourceFunc) (*engine.Engine, error) {
	data, err := refdata.Load(ctx, refdata.Options{OverlayPath: cfg.RefdataOverlay, SQLitePath: cfg.AllowListDB})
	if err != nil {
		return nil, err
	}

	clients := intel.New(intel.Options{
		Credentials:     intel.CredentialsFromEnv(),
		Logger:          logger,
		EnableOpenPhish: cfg.OpenPhish,
		EnableRDAP:      cfg.RDAP,
		Offline:         cfg.Offline,
		OnFallback:      metrics.RecordIntelFallback,
	})
	fetcher := detector.NewFetcher(detector.FetcherOptions{
		Timeout:      cfg.Timeout,
		AllowPrivate: cfg.AllowPrivateTargets,
		Offline:      cfg.Offline,
	})

	return engine.New(engine.Options{
		Data:      data,
		Intel:     clients,
		Fetcher:   fetcher,
		Logger:    logger,
		Detectors: cfg.Detectors,
		Timeout:   cfg.Timeout,
		URLLimit:  cfg.URLLimit,
		OnSource:  onSource,
	})
}

// scanInput is one unit of work: a URL, or the text of one email.
type scanInput struct {
	Label string
	Text  string
}

// inputError reports a scan input that could not be read.
type inputError struct {
	Target string
	Err    error
}

func (e *inputError) Error() string {
	return fmt.Sprintf("read email %s: %v", e.Target, e.Err)
}

func (e *inputError) Unwrap() error { return e.Err }

// resolveInputs turns configured targets into scan inputs. In email mode
// every target is a file path, "-" meaning standard input.
func resolveInputs(mode string, targets []string, stdin io.Reader) ([]scanInput, error) {
	var inputs []scanInput
	for _, target := range targets {
		if mode != config.ModeEmail {
			inputs = append(inputs, scanInput{Label: target, Text: target})
			continue
		}

		var (
			text string
			err  error
		)
		if target == stdinLabel {
			text, err = readAll(stdin)
		} else {
			text, err = readFile(target)
		}
		if err != nil {
			return nil, &inputError{Target: target, Err: err}
		}
		inputs = append(inputs, scanInput{Label: target, Text: text})
	}
	return inputs, nil
}

// stdinTargets reads targets from standard input when it is piped rather
// than attached to a terminal. Email mode treats the whole stream as one
// message.
func stdinTargets(mode string, stdin io.Reader) ([]string, error) {
	if !isPiped(stdin) {
		return nil, nil
	}
	if mode == config.ModeEmail {
		return []string{stdinLabel}, nil
	}
	text, err := readAll(stdin)
	if err != nil {
		return nil, err
	}
	return config.ParseTargetsList(text), nil
}

func isPiped(r io.Reader) bool {
	if r == nil {
		return false
	}
	if f, ok := r.(*os.File); ok {
		return !term.IsTerminal(int(f.Fd()))
	}
	return true
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readFile(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	defer file.Close()
	return readAll(file)
}

// csvSafe neutralizes values that spreadsheet software would evaluate.
func csvSafe(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	if value != "" && strings.ContainsRune("=+-@", rune(value[0])) {
		return "'" + value
	}
	return value
}
