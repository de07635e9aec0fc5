package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adisyon/api/internal/cache"
	"github.com/adisyon/api/internal/catalog"
	"github.com/adisyon/api/internal/config"
	"github.com/adisyon/api/internal/logger"
	"github.com/adisyon/api/internal/router"
	"github.com/adisyon/api/internal/service"
	"github.com/adisyon/api/internal/store"
	"github.com/adisyon/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Error("server exited", zap.Error(err))
		zl.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	zl.Info("connected to database")

	var snapshots service.SnapshotCache = cache.Noop{}
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		snapshots = cache.NewRedis(client, cfg.SnapshotTTL)
		zl.Info("open-order snapshots cached in redis", zap.Duration("ttl", cfg.SnapshotTTL))
	} else {
		zl.Info("REDIS_URL not set, open-order snapshots are not cached")
	}

	hub := ws.NewHub(zl.Named("ws"))

	svc := service.NewTabService(store.NewPostgres(pool), catalog.NewPostgres(pool), service.Options{
		Cache:       snapshots,
		Notifier:    hub,
		Logger:      zl.Named("tab"),
		LockTimeout: cfg.LockTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, zl, svc, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		zl.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
