package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/auth"
	"github.com/HerbHall/netsense/internal/channel"
	"github.com/HerbHall/netsense/internal/config"
	"github.com/HerbHall/netsense/internal/discovery"
	"github.com/HerbHall/netsense/internal/event"
	"github.com/HerbHall/netsense/internal/metrics"
	"github.com/HerbHall/netsense/internal/netinfo"
	"github.com/HerbHall/netsense/internal/permission"
	"github.com/HerbHall/netsense/internal/plugin"
	"github.com/HerbHall/netsense/internal/server"
	"github.com/HerbHall/netsense/internal/sink"
	"github.com/HerbHall/netsense/internal/version"
	pkgplugin "github.com/HerbHall/netsense/pkg/plugin"
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush on exit

	logger.Info("NetSense server starting", zap.String("version", version.Short()))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	mode, err := permission.ParseMode(cfg.GetString("permission.mode"))
	if err != nil {
		logger.Fatal("invalid permission mode", zap.Error(err))
	}

	bus := event.NewBus(logger.Named("bus"))
	a, err := newApp(cfg, mode, bus, logger)
	if err != nil {
		logger.Fatal("failed to set up providers", zap.Error(err))
	}

	verifier := auth.NewVerifier(cfg.GetString("auth.jwt_secret"))
	if !verifier.Enabled() {
		logger.Warn("auth.jwt_secret not set, permission decisions are unauthenticated")
	}

	channels := channel.NewRegistry()
	if err := netinfo.RegisterChannels(channels, a.facade); err != nil {
		logger.Fatal("failed to register channels", zap.Error(err))
	}
	if err := permission.RegisterChannel(channels, a.perms, verifier); err != nil {
		logger.Fatal("failed to register channels", zap.Error(err))
	}

	registry := plugin.NewRegistry(logger)

	// Register all plugins (compile-time composition)
	plugins := []pkgplugin.Plugin{
		netinfo.NewPlugin(a.facade),
		permission.NewPlugin(a.perms, verifier),
		channel.NewPlugin(channels),
		sink.NewPlugin(),
		discovery.NewPlugin(),
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := registry.InitAll(ctx, cfg, bus); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}
	if err := registry.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	addr := net.JoinHostPort(cfg.GetString("server.host"), cfg.GetString("server.port"))
	srv := server.New(server.Options{
		Addr:           addr,
		MaxConnections: cfg.GetInt("server.max_connections"),
		RateLimit:      float64(cfg.GetInt("server.rate_limit")),
		RateBurst:      cfg.GetInt("server.rate_burst"),
	}, registry, logger.Named("server"))

	if cfg.GetBool("metrics.enabled") {
		mountMetrics(srv, a, cfg.GetString("metrics.path"), logger.Named("metrics"))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("NetSense server ready", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	registry.StopAll(shutdownCtx)

	logger.Info("NetSense server stopped")
}

// mountMetrics serves the collector on path. Scrapes read through their
// own facade without a bus or permission gate, so they neither prompt nor
// feed the MQTT sink.
func mountMetrics(srv *server.Server, a *app, path string, logger *zap.Logger) {
	scrapes := netinfo.New(a.platform.Services, nil, nil, logger)

	var gw metrics.StatusSource
	if a.platform.Gateway != nil {
		gw = a.platform.Gateway
	}
	collector := metrics.NewCollector(scrapes, gw, logger)
	srv.Handle("GET "+path, metrics.Handler(metrics.NewRegistry(collector), logger))
}
