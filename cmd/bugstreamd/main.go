package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jarvis-chat/bugstream/internal/httpapi"
	"github.com/jarvis-chat/bugstream/internal/logging"
	"github.com/jarvis-chat/bugstream/internal/stream"
	"github.com/jarvis-chat/bugstream/internal/telemetry"
)

const (
	appName    = "bugstreamd"
	appVersion = "0.1.0"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	pflag.String("listen", ":8080", "HTTP listen address")
	pflag.String("secret-key", "", "JWT signing secret")
	pflag.StringSlice("allowed-origins", []string{"*"}, "CORS allowed origins")
	pflag.Int("max-connections", 1000, "Maximum concurrent WebSocket connections")
	pflag.Int("max-subscriptions", 50, "Maximum subscriptions per connection")
	pflag.Duration("delivery-interval", time.Second, "Delivery scheduler tick interval")
	pflag.Duration("heartbeat-interval", 30*time.Second, "Heartbeat tick interval")
	pflag.Int("bug-batch-size", 100, "Bug events drained per delivery tick")
	pflag.Int("analytics-batch-size", 50, "Analytics events drained per delivery tick")
	pflag.Int("queue-depth-limit", 0, "Pending event cap per queue (0 = unbounded)")
	pflag.String("queue-overflow-policy", "drop_oldest", "Queue overflow policy: drop_oldest or reject_new")
	pflag.String("log-level", "info", "Log level: debug, info, warn, error")
	pflag.String("log-file", "", "Optional log file path (rotated)")
	showVersion := pflag.Bool("version", false, "Show version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	viper.SetEnvPrefix("BUGSTREAM")
	viper.AutomaticEnv()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		fmt.Fprintf(os.Stderr, "flag binding failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(viper.GetString("log-level"), viper.GetString("log-file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := stream.Config{
		MaxConnections:                viper.GetInt("max-connections"),
		MaxSubscriptionsPerConnection: viper.GetInt("max-subscriptions"),
		DeliveryInterval:              viper.GetDuration("delivery-interval"),
		HeartbeatInterval:             viper.GetDuration("heartbeat-interval"),
		BugBatchSize:                  viper.GetInt("bug-batch-size"),
		AnalyticsBatchSize:            viper.GetInt("analytics-batch-size"),
		QueueDepthLimit:               viper.GetInt("queue-depth-limit"),
		QueueOverflowPolicy:           stream.OverflowPolicy(viper.GetString("queue-overflow-policy")),
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink := telemetry.MultiSink{
		telemetry.NewZapSink(logger),
		telemetry.NewPromSink(registry),
	}

	// The streaming service and the login endpoint must agree on the
	// signing secret, so resolve the development default here.
	secret := viper.GetString("secret-key")
	if secret == "" {
		secret = "bugstream-dev-secret-key-change-in-production"
	}

	jwtAuth := httpapi.NewJWTAuth(secret)
	service, err := stream.NewService(cfg, logger, jwtAuth, sink)
	if err != nil {
		return fmt.Errorf("service setup: %w", err)
	}

	telemetry.RegisterGauges(registry, func() (int, int, int, int) {
		stats := service.Stats()
		return stats.BugQueueDepth, stats.AnalyticsQueueDepth,
			stats.TotalConnections, stats.TotalSubscriptions
	})

	server := httpapi.NewServer(service, httpapi.Config{
		Addr:           viper.GetString("listen"),
		SecretKey:      secret,
		AllowedOrigins: viper.GetStringSlice("allowed-origins"),
		Registry:       registry,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("service start: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("bugstream started",
		zap.String("version", appVersion),
		zap.String("listen", viper.GetString("listen")),
		zap.Int("maxConnections", cfg.MaxConnections))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}
	if err := service.Close(); err != nil {
		logger.Warn("service shutdown error", zap.Error(err))
	}
	logger.Info("bugstream stopped")
	return nil
}
