/*
serve subcommand: wires config, the Postgres-backed credential store
behind a circuit breaker, the verdict cache, connection tracker, activity
logger, decision service, metrics collector, and HTTP router into a
running process with signal-driven graceful shutdown — the same
shutdown shape as metrics-collector/main.go, replacing its bespoke
sync.WaitGroup/channel dance with golang.org/x/sync/errgroup per the
idiomatic-group instruction.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gatekeeperd/internal/activitylog"
	"gatekeeperd/internal/cache"
	"gatekeeperd/internal/config"
	"gatekeeperd/internal/decision"
	"gatekeeperd/internal/httpapi"
	"gatekeeperd/internal/identity"
	"gatekeeperd/internal/identity/breaker"
	"gatekeeperd/internal/identity/postgres"
	"gatekeeperd/internal/metrics"
	"gatekeeperd/internal/tracker"
)

const (
	breakerErrorThreshold   = 5
	breakerSuccessThreshold = 2
	shutdownGrace           = 10 * time.Second
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the decision service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a YAML configuration file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	banner := color.New(color.FgHiCyan, color.Bold).PrintfFunc()
	banner("gatekeeperd starting, listening on %s\n", cfg.HTTP.ListenAddr)

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("building credential store: %w", err)
	}
	defer store.Close()

	metrics.Initialize()
	collector := metrics.Default()

	logger := activitylog.New(cfg.Logger.QueueCapacity, cfg.Logger.BatchSize, activitylog.LogSink{})

	var publisher *metrics.Publisher
	if cfg.MQTT.BrokerURL != "" {
		publisher, err = metrics.NewPublisher(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, collector)
		if err != nil {
			color.New(color.FgYellow).Printf("metrics publisher disabled: %v\n", err)
			publisher = nil
		} else {
			publisher.Start()
		}
	}

	svc := decision.New(
		store,
		cache.New[decision.Verdict](cfg.Cache.Capacity),
		tracker.New(),
		logger,
		collector,
		decision.Config{
			AdminPrefix:      cfg.AdminPrefix,
			ConnectTTL:       cfg.ConnectTTL(),
			DenyTTL:          cfg.DenyTTL(),
			EndpointDeadline: cfg.EndpointDeadline(),
		},
	)

	api := httpapi.New(svc)
	server := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var eg errgroup.Group
	eg.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	<-ctx.Done()
	color.New(color.FgHiCyan).Println("shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		color.New(color.FgRed).Printf("http server shutdown error: %v\n", err)
	}

	logger.Shutdown(shutdownGrace)
	if publisher != nil {
		publisher.Shutdown()
	}

	return eg.Wait()
}

func buildStore(cfg *config.Config) (identity.Store, error) {
	raw, err := postgres.New(cfg.Store.DSN, cfg.Password.HashCost)
	if err != nil {
		return nil, err
	}
	return breaker.New(raw, breakerErrorThreshold, breakerSuccessThreshold), nil
}
