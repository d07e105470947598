package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kg-road/roadrag/internal/api"
	"github.com/kg-road/roadrag/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question loop over HTTP",
	Long: `Serve the question loop over HTTP.

Endpoints:
  POST   /v1/ask                  {"question": "...", "session_id": "..."}
  POST   /v1/sessions             start a session
  GET    /v1/sessions/:id         show a session's link and road
  POST   /v1/sessions/:id/link    {"link": "..."}
  POST   /v1/sessions/:id/road    {"road": "..."}
  DELETE /v1/sessions/:id
  GET    /healthz
  GET    /metrics                 when metrics are enabled`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveListen string

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides api.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appConfig

	a, err := newApp(ctx, cfg, appOptions{withLLM: true})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	listen := cfg.API.Listen
	if serveListen != "" {
		listen = serveListen
	}

	opts := []api.Option{
		api.WithLogger(observability.NewTracedLogger(slog.Default(), "api")),
		api.WithHealthCheck("tools", a.toolHealth),
		api.WithHealthCheck("llm", a.provider.Health),
	}
	if a.graph != nil {
		opts = append(opts, api.WithHealthCheck("graph", a.graph.Health))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, api.WithMetricsHandler(cfg.Metrics.Path, a.metrics.Handler))
	}

	srv := api.NewServer(api.Config{
		Listen:          listen,
		SessionTTL:      cfg.API.SessionTTL,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
		ServiceName:     cfg.Tracing.ServiceName,
	}, func() (api.Asker, error) {
		return a.newController()
	}, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		// Warm the schema cache so the first question does not pay for it.
		if _, err := a.schema.DescribeSchema(gctx); err != nil {
			a.logger.Warn(gctx, "schema warmup failed; will retry on first question", "error", err)
		}
		return nil
	})
	return g.Wait()
}
