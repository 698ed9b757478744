package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/phishguard/internal/config"
	"github.com/example/phishguard/internal/server"
)

type serveFlagSet struct {
	runtime   runtimeFlagSet
	listen    string
	rateLimit float64
	rateBurst int
	origins   string
}

func (f serveFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := f.runtime.toOverrides(cmd)
	if cmd.Flags().Changed("listen") {
		ov.ListenAddr = f.listen
	}
	if cmd.Flags().Changed("rate-limit") {
		ov.RateLimit = f.rateLimit
	}
	if cmd.Flags().Changed("rate-burst") {
		ov.RateBurst = f.rateBurst
	}
	return ov
}

func newServeCmd(loader *config.Loader, root *rootOptions) *cobra.Command {
	flags := &serveFlagSet{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return err
			}
			if err := cfg.ValidateRuntime(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := root.Logger()
			eng, err := buildEngine(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Scanner:     eng,
				Logger:      logger,
				RateLimit:   cfg.RateLimit,
				RateBurst:   cfg.RateBurst,
				CORSOrigins: config.ParseTargetsList(flags.origins),
			})
			logger.Info("serve: starting",
				zap.String("addr", cfg.ListenAddr),
				zap.Bool("offline", cfg.Offline),
				zap.Float64("rate_limit", cfg.RateLimit),
			)
			return srv.ListenAndServe(ctx, cfg.ListenAddr)
		},
	}

	bindRuntimeFlags(cmd, &flags.runtime)
	cmd.Flags().StringVar(&flags.listen, "listen", "", "Listen address (default :8080)")
	cmd.Flags().Float64Var(&flags.rateLimit, "rate-limit", 0, "Scan requests per second allowed per client IP")
	cmd.Flags().IntVar(&flags.rateBurst, "rate-burst", 0, "Burst size for the per-IP rate limit")
	cmd.Flags().StringVar(&flags.origins, "cors-origins", "", "Comma-separated allowed CORS origins (default *)")

	return cmd
}
