package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/forkpoint/gateway/internal/admin"
	"github.com/forkpoint/gateway/internal/config"
	"github.com/forkpoint/gateway/internal/dispatch"
	"github.com/forkpoint/gateway/internal/fanout"
	"github.com/forkpoint/gateway/internal/gateway"
	"github.com/forkpoint/gateway/internal/metrics"
	"github.com/forkpoint/gateway/internal/ops"
	"github.com/forkpoint/gateway/internal/server"
	"github.com/forkpoint/gateway/internal/storage"
	"github.com/forkpoint/gateway/internal/storage/memory"
	"github.com/forkpoint/gateway/internal/storage/sqlite"
	"github.com/forkpoint/gateway/internal/telemetry"
	"github.com/forkpoint/gateway/internal/version"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("forkpoint-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	configPath := os.Getenv("FORK_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	registry, err := buildRegistry(cfg, store, logger)
	if err != nil {
		log.Fatalf("Failed to build version registry: %v", err)
	}
	resolver := version.NewResolver(registry)

	endpoints := cfg.RegionEndpoints()
	healthChecker := fanout.NewHealthChecker(registry, endpoints, cfg.Fanout.DeliveryTimeout)

	dispatcher := dispatch.New(registry)
	if err := ops.RegisterAll(dispatcher, ops.Deps{
		Backend:      ops.NewStaticBackend(),
		Registry:     registry,
		Resolver:     resolver,
		RegionHealth: healthChecker.Handler(),
	}); err != nil {
		log.Fatalf("Failed to register operations: %v", err)
	}

	broadcaster := fanout.NewBroadcaster(
		registry,
		fanout.NewHTTPTransport(nil),
		endpoints,
		store,
		cfg.Fanout.DeliveryTimeout,
		logger,
	)

	srv := server.New(cfg.Server.Port, cfg.Server.RequestTimeout, logger)
	srv.Router.Post("/rpc", gateway.NewHandler(registry, resolver, dispatcher, store, logger).ServeHTTP)
	srv.Router.Post("/fanout", fanout.NewHandler(broadcaster).ServeHTTP)
	srv.Router.Route("/admin", admin.NewHandler(registry, store, logger).Routes)
	srv.Router.Handle("/metrics", metrics.Handler())
	srv.Router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	snap := registry.Active()
	logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.String("active_version", snap.Current),
		slog.String("fallback_version", snap.Fallback),
		slog.String("primary_region", cfg.Regions.Primary))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("gateway shutdown complete")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.New(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildRegistry constructs the registry from config and then seeds the
// active/fallback snapshot: the most recently persisted activation wins
// over the config file, so a switch made through the admin API survives
// restarts.
func buildRegistry(cfg *config.Config, store storage.Store, logger *slog.Logger) (*version.Registry, error) {
	defs := make([]version.Definition, 0, len(cfg.Versions.Definitions))
	for _, d := range cfg.Versions.Definitions {
		defs = append(defs, version.Definition{
			ID:            d.ID,
			Status:        version.Status(d.Status),
			MinAppVersion: d.MinAppVersion,
		})
	}
	registry, err := version.NewRegistry(defs, cfg.RegionIDs(), cfg.Regions.Primary)
	if err != nil {
		return nil, err
	}

	current, fallback := cfg.Versions.Active, cfg.Versions.Fallback
	if saved, err := store.LatestActivation(context.Background()); err != nil {
		logger.Warn("could not read persisted activation, using config",
			slog.String("error", err.Error()))
	} else if saved != nil && registry.IsKnown(saved.Current) && registry.IsKnown(saved.Fallback) {
		current, fallback = saved.Current, saved.Fallback
	}

	if current != "" && fallback != "" {
		if _, err := registry.Activate(current, fallback); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
