package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/relay-dashboard/internal/backend"
	"github.com/DoyleJ11/relay-dashboard/internal/config"
	"github.com/DoyleJ11/relay-dashboard/internal/dashboard"
	"github.com/DoyleJ11/relay-dashboard/internal/httpapi"
	"github.com/DoyleJ11/relay-dashboard/internal/metrics"
	"github.com/DoyleJ11/relay-dashboard/internal/render"
	"github.com/DoyleJ11/relay-dashboard/internal/storage"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// A missing .env is normal; real env vars still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("dashboard stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("dashboard stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (err error) {
	store, closer, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeWith("url store", closer)) }()

	m := metrics.New()
	be, err := backend.New(cfg.BackendURL, cfg.BasePath, cfg.RequestTimeout,
		backend.WithLogger(log.Named("backend")),
		backend.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	ctrl := dashboard.New(ctx, be,
		dashboard.WithStore(store),
		dashboard.WithLogger(log.Named("dashboard")),
		dashboard.WithMetrics(m),
		dashboard.WithRenderer(render.New(cfg.Locale)),
		dashboard.WithRevertDelay(cfg.StatusRevertDelay),
	)
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		// The console stays up so the operator can retry or reconfigure.
		log.Warn("initial status fetch failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.SetupRoutes(ctrl, m, log.Named("http")),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("operator console listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("backend", cfg.BackendURL),
			zap.String("live_url", be.LiveURL()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func closeWith(what string, c io.Closer) error {
	if err := c.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", what, err)
	}
	return nil
}
