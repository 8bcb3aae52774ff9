package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/service"
)

func main() {
	cfg := config.NewGateway()

	var (
		orderRepo service.OrderRepository
		userRepo  service.UserRepository
	)
	if cfg.DatabaseURI == "" {
		slog.Warn("no database configured, keeping orders in memory")
		orderRepo = database.NewMemoryOrders()
		userRepo = database.NewMemoryUsers()
	} else {
		db, err := database.NewDB(cfg.DatabaseURI)
		if err != nil {
			slog.Error("failed to connect to DB", "error", err)
			os.Exit(1)
		}
		defer database.CloseDB(context.Background(), db)

		if err := database.InitSchema(db); err != nil {
			slog.Error("failed to init DB schema", "error", err)
			os.Exit(1)
		}
		orderRepo = database.NewOrderRepository(db)
		userRepo = database.NewUserRepository(db)
	}

	// Services
	authSvc := service.NewAuthService(userRepo)
	orderSvc := service.NewOrderService(orderRepo)

	if err := authSvc.EnsureAdmin(context.Background(), cfg.AdminLogin, cfg.AdminPassword); err != nil {
		slog.Error("failed to seed admin", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      handler.NewRouter(authSvc, orderSvc, cfg.JWTSecret),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting order gateway", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
