package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/orthofix/internal/server"
	"github.com/matzehuels/orthofix/pkg/observability"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the repair engine over HTTP",
		Long: `Serve the repair engine over HTTP.

Routes:
  POST /v1/repair      repair one segment
  POST /v1/sweep       repair every diagonal segment of a link
  POST /v1/candidates  list ranked candidates
  GET  /healthz        liveness check
  GET  /version        build information

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			hooks := observability.NewLogHooks(c.Logger)
			observability.SetRepairHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := server.Options{
				Addr:           c.cfg.Server.Addr,
				RequestTimeout: c.cfg.Server.RequestTimeout.Duration,
				MaxBodyBytes:   c.cfg.Server.MaxBodyBytes,
				Defaults:       c.cfg.PipelineOptions(),
			}
			if addr != "" {
				opts.Addr = addr
			}

			printInfo("Listening on %s", StyleHighlight.Render(opts.Addr))
			return server.New(runner, c.Logger, opts).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable result caching")

	return cmd
}
