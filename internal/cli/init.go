package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/phishguard/internal/config"
	"github.com/example/phishguard/internal/refdata"
)

const starterConfig = `# phishguard configuration. Environment variables (PHISHGUARD_*) and
# command line flags override these values.
mode: url
threads: 4
timeout: 5s
urlLimit: 5
offline: false
allowPrivateTargets: false
openPhish: false
rdap: false
# refdataOverlay: refdata.yml
# allowListDB: allowlist.db
listenAddr: ":8080"
rateLimit: 2
rateBurst: 10
outputDir: scan-results
formats:
  - json
  - csv
`

func newInitCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Validate the configuration and reference data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeConfig {
				path, err := writeStarterConfig(loader.ConfigPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			}

			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.ValidateRuntime(); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			data, err := refdata.Load(cmd.Context(), refdata.Options{OverlayPath: cfg.RefdataOverlay, SQLitePath: cfg.AllowListDB})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment looks good. %d allow-listed domains loaded; output will be stored in %s\n", data.AllowListSize(), cfg.OutputDir)
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write a starter config file at --config when none exists")

	return cmd
}

func writeStarterConfig(path string) (string, error) {
	if path == "" {
		path = config.DefaultConfigPath
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return path, fmt.Errorf("%s already exists", path)
		}
		return path, err
	}
	if _, err := file.WriteString(starterConfig); err != nil {
		file.Close()
		return path, err
	}
	return path, file.Close()
}
