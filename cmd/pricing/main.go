// Package main запускает HTTP-сервер сервиса расчёта стоимости перевозок.
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

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/admission"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/cache"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/calendar"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/config"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/handler"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/middleware"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/pricing"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/repository"
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

	resolver := calendar.NewResolver(repo)
	statusCache := cache.New(cfg.CacheTTL, resolver.CityStatus, repo.PricingConfig)
	gate := admission.NewController(cfg.MaxConcurrent, cfg.QueueTimeout)

	svc := pricing.NewService(repo, statusCache, gate, pricing.Options{
		BatchLimit: cfg.BatchLimit,
		WarmupDays: cfg.WarmupDays,
	})

	authSecret := cfg.AuthSecret
	if authSecret == "" {
		authSecret = "rehome-pricing-secret"
	}
	authMiddleware := middleware.NewAuthMiddleware(authSecret)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	h := handler.NewHandler(svc, logger, authMiddleware, rateLimiter)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового прогрева кэша статусов
	g.Go(func() error {
		svc.StartWarmup(ctx, cfg.WarmupInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting pricing server", "addr", cfg.RunAddress)
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
