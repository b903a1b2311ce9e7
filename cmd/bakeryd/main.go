// Command bakeryd is the bakery order-fulfilment server process.
// It loads configuration, restores the last snapshot, and starts the server.
//
// Usage:
//
//	bakeryd [--config path/to/config.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/snehjoshi/bakery/internal/bakery"
	"github.com/snehjoshi/bakery/internal/config"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/metrics"
	"github.com/snehjoshi/bakery/internal/notify"
	"github.com/snehjoshi/bakery/internal/storage"
	"github.com/snehjoshi/bakery/internal/storage/local"
	transphttp "github.com/snehjoshi/bakery/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bakeryd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ── 2. Set up structured logger ──────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Log))

	// ── 3. Initialise instance identity ──────────────────────────────────────
	instance, err := ident.Instance(cfg.Server.DataDir)
	if err != nil {
		return fmt.Errorf("init instance: %w", err)
	}

	slog.Info("bakery starting",
		"instance_id", instance,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"data_dir", cfg.Server.DataDir,
		"id_strategy", cfg.IDs.Strategy,
	)

	// ── 4. Initialise metrics, shipment webhooks and the service ─────────────
	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.New()
	}
	notifier, err := notify.New(cfg.Notify, notify.WithMetrics(reg))
	if err != nil {
		return fmt.Errorf("init webhooks: %w", err)
	}
	defer notifier.Close()

	svc, err := bakery.New(cfg,
		bakery.WithMetrics(reg),
		bakery.WithShipObserver(notifier),
	)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	// ── 5. Open the snapshot store and restore ───────────────────────────────
	var store storage.Store
	if cfg.Storage.Enabled {
		path := filepath.Join(cfg.Server.DataDir, cfg.Storage.File)
		s, err := local.Open(path, time.Duration(cfg.Storage.OpenTimeoutMs)*time.Millisecond)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		store = s

		snap, err := store.Load()
		switch {
		case errors.Is(err, storage.ErrNotFound):
			slog.Info("no snapshot found, starting empty", "path", path)
		case err != nil:
			return fmt.Errorf("load snapshot: %w", err)
		default:
			if err := svc.Restore(snap); err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
		}
	}

	// ── 6. Seed the default catalogue ────────────────────────────────────────
	if cfg.Seed.Enabled {
		n, err := svc.Seed()
		if err != nil {
			return fmt.Errorf("seed catalogue: %w", err)
		}
		if n > 0 {
			slog.Info("catalogue seeded", "products", n)
		}
	}

	// ── 7. Start HTTP / WebSocket transport ──────────────────────────────────
	srv := transphttp.New(svc, cfg, reg, transphttp.WithNotifier(notifier))
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Serve in a background goroutine so we can handle signals.
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("bakery ready", "instance_id", instance, "addr", addr)
		if err := srv.ListenAndServe(addr); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		} else {
			serveErr <- nil
		}
	}()

	// ── 8. Periodic snapshots ────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if store != nil && cfg.Storage.SaveIntervalMs > 0 {
		go saveEvery(ctx, store, svc, time.Duration(cfg.Storage.SaveIntervalMs)*time.Millisecond)
	}

	// ── 9. Graceful shutdown on SIGINT / SIGTERM ─────────────────────────────
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutMs)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	if store != nil {
		if err := save(store, svc); err != nil {
			return fmt.Errorf("final snapshot: %w", err)
		}
	}

	slog.Info("bakery stopped")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func saveEvery(ctx context.Context, store storage.Store, svc *bakery.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := save(store, svc); err != nil {
				slog.Error("snapshot failed", "err", err)
			}
		}
	}
}

func save(store storage.Store, svc *bakery.Service) error {
	snap := svc.Snapshot()
	if err := store.Save(snap); err != nil {
		return err
	}
	slog.Debug("snapshot saved",
		"products", len(snap.Products),
		"orders", len(snap.Orders),
		"customers", len(snap.Customers),
		"employees", len(snap.Employees),
	)
	return nil
}
