package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/geoadjacency/internal/server"
	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
		maxBody   int64
		maxSites  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve adjacency analyses over HTTP",
		Long: `Start an HTTP server that answers POST /v1/adjacency with the
adjacency mapping and any requested artifacts.

The cache backend is chosen with GEOADJ_CACHE (none, file, redis, mongo).
Redis and MongoDB connections are read from GEOADJ_REDIS_URL and
GEOADJ_MONGO_URI; GEOADJ_CACHE_PREFIX keeps keys apart when deployments
share a backend. Prometheus metrics are served on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := readEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				env.Addr = addr
			}
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runServe(ctx, env, serveOptions{
				noCache:   noCache,
				noMetrics: noMetrics,
				maxBody:   maxBody,
				maxSites:  maxSites,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address (overrides "+envAddr+")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBodyBytes, "maximum request body in bytes")
	cmd.Flags().IntVar(&maxSites, "max-sites", adjacency.DefaultMaxSites, "maximum vertices per analysis after densification (-1 for no limit)")

	return cmd
}

type serveOptions struct {
	noCache   bool
	noMetrics bool
	maxBody   int64
	maxSites  int
}

func (c *CLI) runServe(ctx context.Context, env environment, so serveOptions) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, env, so.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()
	runner.MaxSites = so.maxSites

	opts := []server.Option{server.WithMaxBodyBytes(so.maxBody)}
	if !so.noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := server.NewMetrics(reg)
		observability.SetPipelineHooks(metrics)
		observability.SetCacheHooks(metrics)
		observability.SetHTTPHooks(metrics)
		defer observability.Reset()
		opts = append(opts, server.WithMetrics(metrics))
	}

	srv := &http.Server{
		Addr:              env.Addr,
		Handler:           server.New(runner, logger, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", env.Addr, "cache", cacheLabel(env, so.noCache))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func cacheLabel(env environment, noCache bool) string {
	if noCache {
		return "none"
	}
	return env.CacheBackend
}
