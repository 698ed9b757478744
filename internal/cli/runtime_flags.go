package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/example/phishguard/internal/config"
)

// runtimeFlagSet tracks shared scan/init/doctor flags before they are converted into config overrides.
type runtimeFlagSet struct {
	targets      string
	targetsFile  string
	mode         string
	threads      int
	timeout      time.Duration
	detectors    string
	urlLimit     int
	offline      bool
	allowPrivate bool
	openPhish    bool
	rdap         bool
	overlay      string
	allowListDB  string
	outputDir    string
	formats      string
	summaryFile  string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.targets, "targets", "", "Comma-separated list of targets (overrides config)")
	cmd.Flags().StringVar(&flags.targetsFile, "targets-file", "", "Path to a file with one target per line")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Input mode: url or email")
	cmd.Flags().IntVar(&flags.threads, "threads", 0, "Number of inputs scanned concurrently (1-64)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-collector timeout (1s-30s)")
	cmd.Flags().StringVar(&flags.detectors, "detectors", "", "Comma-separated collector IDs to run (default: all)")
	cmd.Flags().IntVar(&flags.urlLimit, "url-limit", 0, "Maximum URLs scanned per email")
	cmd.Flags().BoolVar(&flags.offline, "offline", false, "Never touch the network; every remote check uses its fallback")
	cmd.Flags().BoolVar(&flags.allowPrivate, "allow-private-targets", false, "Allow fetching pages on private and loopback addresses")
	cmd.Flags().BoolVar(&flags.openPhish, "openphish", false, "Download the public OpenPhish feed")
	cmd.Flags().BoolVar(&flags.rdap, "rdap", false, "Query RDAP for domain age when no WHOIS key is set")
	cmd.Flags().StringVar(&flags.overlay, "refdata-overlay", "", "YAML file extending the built-in reference lists")
	cmd.Flags().StringVar(&flags.allowListDB, "allowlist-db", "", "SQLite database whose websites table extends the allow-list")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for scan artifacts")
	cmd.Flags().StringVar(&flags.formats, "formats", "", "Comma-separated output formats (json,csv)")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}
	if cmd.Flags().Changed("targets") {
		ov.Targets = config.ParseTargetsList(f.targets)
	}

	if cmd.Flags().Changed("targets-file") {
		ov.TargetsFile = f.targetsFile
	}

	if cmd.Flags().Changed("mode") {
		ov.Mode = f.mode
	}

	if cmd.Flags().Changed("threads") {
		ov.Threads = f.threads
		ov.ThreadsSet = true
	}

	if cmd.Flags().Changed("timeout") {
		ov.Timeout = f.timeout
	}

	if cmd.Flags().Changed("detectors") {
		ov.Detectors = config.ParseFormats(f.detectors)
	}

	if cmd.Flags().Changed("url-limit") {
		ov.URLLimit = f.urlLimit
	}

	if cmd.Flags().Changed("offline") {
		ov.Offline = &f.offline
	}

	if cmd.Flags().Changed("allow-private-targets") {
		ov.AllowPrivate = &f.allowPrivate
	}

	if cmd.Flags().Changed("openphish") {
		ov.OpenPhish = &f.openPhish
	}

	if cmd.Flags().Changed("rdap") {
		ov.RDAP = &f.rdap
	}

	if cmd.Flags().Changed("refdata-overlay") {
		ov.RefdataOverlay = f.overlay
	}

	if cmd.Flags().Changed("allowlist-db") {
		ov.AllowListDB = f.allowListDB
	}

	if cmd.Flags().Changed("output-dir") {
		ov.OutputDir = f.outputDir
	}

	if cmd.Flags().Changed("formats") {
		ov.Formats = config.ParseFormats(f.formats)
	}

	if cmd.Flags().Changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	return ov
}
