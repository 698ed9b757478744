package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/phishguard/internal/config"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool

	logger *zap.Logger
}

// Logger returns the logger built for the running command, or a no-op
// logger before PersistentPreRunE has run.
func (o *rootOptions) Logger() *zap.Logger {
	if o == nil || o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

func newRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath, EnvFile: config.DefaultEnvFile}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "phishguard",
		Short:         "Score URLs and emails for phishing risk",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	rootCmd.SetVersionTemplate("phishguard version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to phishguard.config.yml (optional)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.EnvFile, "env-file", config.DefaultEnvFile, "Path to a dotenv file with API credentials (optional)")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "Human-readable debug logging on stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
		if rootOpts.EnvFile != "" {
			loader.EnvFile = rootOpts.EnvFile
		}
		logger, err := newLogger(rootOpts.Verbose)
		if err != nil {
			return err
		}
		rootOpts.logger = logger
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = rootOpts.Logger().Sync()
	}

	rootCmd.AddCommand(
		newInitCmd(loader),
		newScanCmd(loader, rootOpts),
		newServeCmd(loader, rootOpts),
		newReportCmd(),
		newDoctorCmd(loader, rootOpts),
	)

	return rootCmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	// Scan events own stdout; logs go to stderr.
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
