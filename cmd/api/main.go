package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/canvass/internal/adapters/http"
	"github.com/samirrijal/canvass/internal/adapters/memory"
	natsadapter "github.com/samirrijal/canvass/internal/adapters/nats"
	"github.com/samirrijal/canvass/internal/adapters/postgres"
	"github.com/samirrijal/canvass/internal/adapters/valkey"
	"github.com/samirrijal/canvass/internal/core/ports"
	"github.com/samirrijal/canvass/internal/core/usecases"
	"github.com/samirrijal/canvass/internal/pkg/config"
	"github.com/samirrijal/canvass/internal/pkg/logging"
	"github.com/samirrijal/canvass/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("canvass-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Store
	var (
		repo  ports.VisitRepository
		store http.Pinger
	)
	switch cfg.Database.Driver {
	case "memory":
		slog.Warn("using in-memory store, visits are lost on restart")
		m := memory.NewVisitStore()
		repo, store = m, m
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.CollectStats(ctx, 15*time.Second)
		repo, store = postgres.NewVisitRepo(db), db
	}

	// Cache
	var (
		cache       ports.CacheService
		cachePinger http.Pinger
	)
	if cfg.Valkey.Enabled {
		c, err := valkey.New(cfg.Valkey.Addr, "canvass")
		if err != nil {
			slog.Warn("valkey unavailable, aggregates served uncached", "error", err)
		} else {
			defer c.Close()
			cache, cachePinger = c, c
		}
	}

	// Realtime hub
	hub := usecases.NewBroadcastHub(cfg.Realtime.InboxSize)
	go hub.Run(ctx)

	// NATS: publish visits for every instance, relay everything into the hub.
	var (
		notifier ports.VisitNotifier = hub
		natsConn *nats.Conn
	)
	if cfg.NATS.Enabled {
		pub, relay, nc, err := setupNATS(cfg.NATS.URL, hub)
		if err != nil {
			slog.Warn("nats unavailable, broadcasting to local clients only", "error", err)
		} else {
			defer pub.Close()
			defer relay.Close()
			notifier, natsConn = pub, nc
		}
	}

	deps := &http.Dependencies{
		Visits:         usecases.NewVisitService(repo, notifier, cache),
		Aggregates:     usecases.NewAggregationService(repo, cache),
		Hub:            hub,
		NATS:           natsConn,
		Store:          store,
		Cache:          cachePinger,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		WSWriteTimeout: time.Duration(cfg.Realtime.WriteTimeout) * time.Second,
		WSPingInterval: time.Duration(cfg.Realtime.PingInterval) * time.Second,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024, // visits are tiny
		AppName:      "Canvass Campaign API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "driver", cfg.Database.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// WebSocket handlers block until their socket closes.
	hub.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	cancel()

	slog.Info("server stopped")
}

func setupNATS(url string, hub *usecases.BroadcastHub) (*natsadapter.Publisher, *natsadapter.Relay, *nats.Conn, error) {
	nc, err := natsadapter.Connect(url, "canvass-api")
	if err != nil {
		return nil, nil, nil, err
	}

	pub, err := natsadapter.NewPublisher(nc)
	if err != nil {
		nc.Close()
		return nil, nil, nil, err
	}
	pub.WithFallback(hub)

	relay := natsadapter.NewRelay(nc, hub)
	if err := relay.Start(); err != nil {
		nc.Close()
		return nil, nil, nil, err
	}
	return pub, relay, nc, nil
}
