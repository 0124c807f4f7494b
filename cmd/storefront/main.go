// Package main запускает HTTP-сервер оптового магазина.
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

	"github.com/luckybee/storefront-system/internal/catalog"
	"github.com/luckybee/storefront-system/internal/config"
	"github.com/luckybee/storefront-system/internal/handler"
	"github.com/luckybee/storefront-system/internal/mailer"
	"github.com/luckybee/storefront-system/internal/middleware"
	"github.com/luckybee/storefront-system/internal/repository"
	"github.com/luckybee/storefront-system/internal/search"
	"github.com/luckybee/storefront-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var searcher catalog.Searcher
	if cfg.SearchAddress != "" {
		searcher = search.NewClient(cfg.SearchAddress, cfg.SearchIndex)
	}

	notifier := mailer.NewNotifier(repo, logger, cfg.OwnerEmail)

	svc := service.NewService(repo, notifier)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, repo)
	h := handler.NewHandler(svc, repo, searcher, logger, authMiddleware, cfg.PageSize)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
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
