package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mohamedirsath07/ExpireGuard/internal/middleware"
	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
	"github.com/mohamedirsath07/ExpireGuard/internal/registry"
	"github.com/mohamedirsath07/ExpireGuard/internal/surface"
	"github.com/mohamedirsath07/ExpireGuard/pkg/telemetry"
	"github.com/mohamedirsath07/ExpireGuard/services/worker"
	"github.com/mohamedirsath07/ExpireGuard/services/worker/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Install the cache generation and start the fetch gateway",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen-addr", ":8080", "gateway listen address")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
	serveCmd.Flags().String("upstream-url", "http://localhost:3000", "origin the gateway fronts")
	serveCmd.Flags().String("api-prefixes", "/api/", "comma-separated path prefixes that always pass through")
	serveCmd.Flags().Int("cache-version", 1, "cache generation version; bump on every asset-affecting deploy")
	serveCmd.Flags().String("assets", strings.Join(registry.DefaultAssets, ","), "comma-separated precache manifest")
	serveCmd.Flags().Int("max-retries", 3, "precache fetch attempts per asset")
	serveCmd.Flags().Duration("fetch-timeout", 30*time.Second, "per-fetch upstream timeout")
	serveCmd.Flags().String("notify-webhook-url", "", "webhook that renders platform notifications; empty disables rendering")
	serveCmd.Flags().String("metrics-addr", ":9091", "Prometheus metrics server address")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("listen_addr", serveCmd.Flags(), "listen-addr")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("upstream_url", serveCmd.Flags(), "upstream-url")
	bindFlag("api_prefixes", serveCmd.Flags(), "api-prefixes")
	bindFlag("cache_version", serveCmd.Flags(), "cache-version")
	bindFlag("assets", serveCmd.Flags(), "assets")
	bindFlag("max_retries", serveCmd.Flags(), "max-retries")
	bindFlag("fetch_timeout", serveCmd.Flags(), "fetch-timeout")
	bindFlag("notify_webhook_url", serveCmd.Flags(), "notify-webhook-url")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())

	logger := buildLogger(cfg.LogLevel, "worker").With(
		slog.Int("cache_version", cfg.CacheVersion),
	)

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "expireguard-worker", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	redisClient := redisstore.NewClient(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	caches := redisstore.NewCacheStore(redisClient)
	state := redisstore.NewStateStore(redisClient)
	msgBus := redisstore.NewBus(redisClient, logger)

	assets := cfg.Assets
	if len(assets) == 0 {
		assets = registry.DefaultAssets
	}

	opts := []worker.Option{
		worker.WithLogger(logger),
		worker.WithRetries(cfg.MaxRetries),
		worker.WithFetcher(worker.NewHTTPFetcher(cfg.UpstreamURL, cfg.FetchTimeout)),
	}
	if len(cfg.APIPrefixes) > 0 {
		opts = append(opts, worker.WithAPIPrefixes(cfg.APIPrefixes))
	}
	if cfg.WebhookURL != "" {
		opts = append(opts, worker.WithNotificationSurface(surface.NewWebhook(cfg.WebhookURL)))
	}

	ctrl, err := worker.NewController(
		cfg.CacheVersion, assets, cfg.UpstreamURL,
		caches, state, msgBus, msgBus,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger)

	installCtx, cancel := context.WithTimeout(runCtx, 2*time.Minute)
	err = ctrl.Install(installCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("install generation %d: %w", cfg.CacheVersion, err)
	}

	// Control-message loop: skip-waiting and notification rendering.
	go func() {
		if err := ctrl.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("control loop stopped", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: middleware.RequestLogger(logger)(ctrl),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		logger.Info("shutting down")
		runCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway starting",
		slog.String("addr", cfg.ListenAddr),
		slog.String("upstream", cfg.UpstreamURL),
		slog.Int("assets", len(assets)),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	logger.Info("stopped cleanly")
	return nil
}
