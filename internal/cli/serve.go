package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/revenuemap/internal/server"
	"github.com/matzehuels/revenuemap/pkg/metrics"
	"github.com/matzehuels/revenuemap/pkg/pipeline"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the heatmap HTTP API",
		Long: `Serve the heatmap HTTP API.

Cache and share backends come from the [cache] and [share] sections of the
config file or the REVENUEMAP_CACHE / REVENUEMAP_SHARE_STORE variables.
Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			store, err := cfg.Cache.Open(ctx)
			if err != nil {
				return fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
			}
			runner := pipeline.NewRunner(store, cacheKeyer(cfg.Cache), c.Logger)
			defer runner.Close()

			shares, err := cfg.Share.Open(ctx)
			if err != nil {
				return fmt.Errorf("open %s share store: %w", cfg.Share.Backend, err)
			}
			defer shares.Close()

			opts := []server.Option{server.WithLogger(loggerFromContext(ctx).WithPrefix("http"))}
			if !noMetrics {
				reg := metrics.DefaultRegistry()
				metrics.Install(reg)
				opts = append(opts, server.WithMetrics(reg))
			}

			printInfo("Serving on %s", StyleHighlight.Render(cfg.Server.Addr))
			printKeyValue("cache", cfg.Cache.Backend)
			printKeyValue("shares", cfg.Share.Backend)

			return server.New(cfg, runner, shares, opts...).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides [server] addr)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable /metrics and instrumentation")

	return cmd
}
