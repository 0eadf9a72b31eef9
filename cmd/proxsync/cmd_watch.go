package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tylwright/craft-docs-proxmox/config"
	"github.com/tylwright/craft-docs-proxmox/internal/daemon"
	"github.com/tylwright/craft-docs-proxmox/telemetry"
)

var (
	watchInterval    time.Duration
	watchMetricsPort int
	watchRunOnStart  bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Sync continuously at a fixed interval",
		Long: `Run the sync loop as a daemon. Each tick performs one incremental
sync pass. Health and Prometheus metrics are served over HTTP.`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Sync interval (overrides config)")
	watchCmd.Flags().IntVar(&watchMetricsPort, "metrics-port", 9090, "Port for /metrics and /healthz")
	watchCmd.Flags().BoolVar(&watchRunOnStart, "run-on-start", true, "Sync immediately instead of waiting for the first tick")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("interval") {
		cfg.Sync.Interval = watchInterval
	}

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
			ServiceName:    "proxsync",
			ServiceVersion: version,
			Environment:    cfg.Telemetry.Environment,
			OTELEndpoint:   cfg.Telemetry.OTELEndpoint,
			Insecure:       cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	app, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer app.Close()

	d, err := daemon.NewDaemon(daemon.Config{
		Interval:    cfg.Sync.Interval,
		MetricsPort: watchMetricsPort,
		RunOnStart:  watchRunOnStart,
	}, func(ctx context.Context) error {
		_, err := app.syncOnce(ctx, true, false)
		return err
	}, app.logger)
	if err != nil {
		return err
	}

	app.logger.Info().
		Dur("interval", cfg.Sync.Interval).
		Int("metrics_port", watchMetricsPort).
		Msg("watch mode starting")

	var group run.Group

	group.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	daemonCtx, daemonCancel := context.WithCancel(ctx)
	group.Add(func() error {
		return d.Start(daemonCtx)
	}, func(error) {
		daemonCancel()
	})

	server := metricsServer(d, watchMetricsPort)
	group.Add(func() error {
		err := server.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	err = group.Run()
	if _, ok := err.(run.SignalError); ok {
		app.logger.Info().Int64("syncs", d.SyncCount()).Msg("shutting down")
		return nil
	}
	return err
}

func metricsServer(d *daemon.Daemon, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := d.Health()
		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			fmt.Fprintln(os.Stderr, "healthz encode:", err)
		}
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
