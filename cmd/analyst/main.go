// Package main запускает HTTP-сервер аналитики продаж.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/sales-analyst/internal/config"
	"github.com/mmeshcher/sales-analyst/internal/handler"
	"github.com/mmeshcher/sales-analyst/internal/middleware"
	"github.com/mmeshcher/sales-analyst/internal/repository"
	"github.com/mmeshcher/sales-analyst/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	source, err := newSource(cfg)
	if err != nil {
		sugar.Fatalw("snapshot source initialization error", "error", err.Error())
	}

	svc := service.NewService(source, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := svc.Reload(ctx); err != nil {
		sugar.Fatalw("initial snapshot load error", "error", err.Error())
	}

	h := handler.NewHandler(svc, logger, middleware.NewAPIKeyMiddleware(cfg.APIKey))

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.StartSnapshotRefresh(ctx, cfg.RefreshInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting sales analyst server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newSource выбирает источник снимка: база данных, если задана, иначе каталог CSV.
func newSource(cfg *config.Config) (service.SnapshotSource, error) {
	if cfg.DatabaseURI != "" {
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
	return repository.NewCSVSource(cfg.DataDir), nil
}
