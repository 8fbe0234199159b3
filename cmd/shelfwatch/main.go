package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/checker"
	"github.com/shelfwatch/shelfwatch/internal/config"
	"github.com/shelfwatch/shelfwatch/internal/market"
	"github.com/shelfwatch/shelfwatch/internal/metrics"
	"github.com/shelfwatch/shelfwatch/internal/notify"
	"github.com/shelfwatch/shelfwatch/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; compiled-in defaults apply)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("shelfwatch starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"addr", cfg.Server.Addr(),
		"endpoint", cfg.Upstream.Endpoint,
		"stores", len(cfg.Stores),
		"push_interval", cfg.Push.Interval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.New()
	client := market.NewClient(cfg.Upstream.Endpoint, cfg.Upstream.Timeout)
	chk := checker.New(client, cfg, reg)
	notifier := notify.New(cfg.Notify.Webhooks)

	// WebSocket hub — pushes fresh snapshots to connected pages and feeds
	// the restock notifier.
	hub := web.NewHub(chk, notifier, cfg.Push.Interval)
	reg.SetClientGauge(hub.Count)
	go hub.Run(ctx)

	// Hot-reload the store list and product settings on file change. The
	// upstream endpoint and timeout stay with the client built above — those
	// need a restart.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, chk.SetConfig); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: web.New(chk, reg, hub),
	}
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shelfwatch shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
