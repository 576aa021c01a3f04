package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/giantswarm/embeddb"
	"github.com/giantswarm/embeddb/internal/metrics"
)

// metricsShutdownTimeout bounds the graceful shutdown of the metrics server.
const metricsShutdownTimeout = 5 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the server and provision databases until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd)
		},
	}
}

func (c *cli) serve(cmd *cobra.Command) error {
	if err := c.validate(); err != nil {
		return err
	}

	log, closer, err := newLogger(cmd.ErrOrStderr(),
		c.v.GetString(keyLogFile), c.v.GetString(keyLogFormat), c.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck // best effort on exit
	embeddb.SetLogger(log)
	defer embeddb.SetLogger(nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := c.options()
	if addr := c.v.GetString(keyMetricsAddr); addr != "" {
		reg := prometheus.NewRegistry()
		m, err := embeddb.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, embeddb.WithMetrics(m))

		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("serving metrics", "addr", addr)
	}

	// Script execution is not bounded by the signal context.
	h := embeddb.OnInit(context.WithoutCancel(ctx), c.params(), opts...)
	if h == nil {
		return errors.New("embedded database server did not start, see log for details")
	}
	defer embeddb.OnShutdown(h)

	log.Info("server is running, press Ctrl+C to stop", "port", h.Controller().Port())
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}
