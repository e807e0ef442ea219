package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/logger"
)

func (c *cli) monitorCommand() *cobra.Command {
	var (
		listen   string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve Prometheus metrics and health of the configured connector",
		Long: `Initialize the configured connector and serve /metrics and /healthz until
interrupted. The connector health check runs every --interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.withConnector(cmd, func(_ context.Context, conn core.Connector) error {
				return serveMonitor(ctx, conn, listen, interval)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":9464", "Address to serve metrics on")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Health check interval")
	return cmd
}

func monitorHandler(conn core.Connector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		err := conn.Health(r.Context())
		status := http.StatusOK
		body := map[string]interface{}{
			"connector": conn.Name(),
			"status":    "healthy",
			"metrics":   conn.Metrics(),
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["error"] = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = printJSON(w, body)
	})
	return mux
}

func serveMonitor(ctx context.Context, conn core.Connector, listen string, interval time.Duration) error {
	log := logger.With(zap.String("component", "monitor"), zap.String("connector", conn.Name()))
	srv := &http.Server{
		Addr:              listen,
		Handler:           monitorHandler(conn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("serving metrics", zap.String("listen", listen))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, errors.ErrorTypeConnection, "metrics server failed")
			}
			return nil
		case <-ticker.C:
			if err := conn.Health(ctx); err != nil {
				log.Warn("health check failed", zap.Error(err))
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		}
	}
}
