package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/eric/internal/jobs"
	"github.com/mesh-intelligence/eric/internal/metrics"
	"github.com/mesh-intelligence/eric/internal/refresh"
	"github.com/mesh-intelligence/eric/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	jobTimeout      = 5 * time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var warm bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve board webhooks and the cache API",
		Long: "Listen for monday.com webhooks, refresh cache entries in background\n" +
			"workers and serve cached records, health and metrics over HTTP.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.config.ListenAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr, warm)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config)")
	cmd.Flags().BoolVar(&warm, "warm", false, "warm the whole cache from the boards at startup")
	return cmd
}

// serve runs the HTTP server until ctx ends, then drains the job queue.
func (a *app) serve(ctx context.Context, addr string, warm bool) error {
	m := metrics.New()
	rt, err := a.newRuntime(os.Stderr, m, m)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	pool := jobs.NewPool(jobs.Config{
		Workers:    a.config.Workers,
		JobTimeout: jobTimeout,
		Logger:     logger,
		Observer:   m,
	})
	pool.Start(context.WithoutCancel(ctx))

	refresher := refresh.New(rt.env)
	if warm {
		if _, err := pool.Enqueue(refresh.KindWarmAll, refresh.KindWarmAll, func(ctx context.Context) error {
			stats, err := refresher.WarmAll(ctx)
			if err == nil {
				logger.Info("cache warmed", "devices", stats.Devices, "products", stats.Products, "orphans", stats.Orphans)
			}
			return err
		}); err != nil {
			return fmt.Errorf("queue warm-up: %w", err)
		}
	}

	srv := web.NewServer(web.Config{
		Env:       rt.env,
		Jobs:      pool,
		Refresher: refresher,
		Metrics:   m.Handler(),
		Health:    rt.cache.ping,
		Logger:    logger,
	}).HTTPServer(addr)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "cache_backend", a.config.CacheBackend, "workers", a.config.Workers)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = pool.Shutdown(context.Background())
			return sysErr("listen on %s: %w", addr, err)
		}
	case <-ctx.Done():
		logger.Info("shutting down", "pending_jobs", pool.Pending())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("job queue did not drain", "error", err)
	}
	return nil
}
