package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/FearlessSpiff/radio-calico/internal/api"
	"github.com/FearlessSpiff/radio-calico/internal/config"
	"github.com/FearlessSpiff/radio-calico/internal/logger"
	"github.com/FearlessSpiff/radio-calico/internal/metadata"
	"github.com/FearlessSpiff/radio-calico/internal/ratings"
	"github.com/FearlessSpiff/radio-calico/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Configuration (.env is optional, real environment wins)
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// 2. Logging
	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer zlog.Sync()

	// 3. Rating store (backend picked by DATABASE_URL, schema applied on open)
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatalw("store open failed", "database_url", cfg.DatabaseURL, "error", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Ping(ctx); err != nil {
		zlog.Fatalw("store unreachable", "error", err)
	}

	// 4. Upstream metadata client and rating service
	meta := metadata.NewClient(cfg.MetadataURL, cfg.MetadataTimeout)
	svc := ratings.NewService(st)

	// 5. HTTP server
	router := api.NewRouter(api.Deps{
		Log:      zlog,
		Cfg:      cfg,
		Ratings:  svc,
		Metadata: meta,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Infow("radio calico listening", "addr", srv.Addr, "version", cfg.BuildVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zlog.Fatalw("http server failed", "error", err)
		}
	case <-ctx.Done():
		zlog.Infow("shutdown signal received, draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Errorw("graceful shutdown failed", "error", err)
		}
		<-errCh
	}
}
