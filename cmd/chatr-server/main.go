package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chatr/internal/config"
	"chatr/internal/di"
)

func main() {
	cfg := config.LoadConfig()

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize chatr server: %v", err)
	}
	defer cleanup()

	logger := app.Logger
	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     app.Router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// no WriteTimeout: it would cut long-lived websocket connections
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("chatr server listening", zap.String("addr", addr), zap.String("env", cfg.Server.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := app.Admin.Start(); err != nil {
			logger.Error("admin grpc server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down chatr server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.WriteTimeout)*time.Second)
	defer cancel()

	app.Admin.Stop()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := app.Realtime.Shutdown(ctx); err != nil {
		logger.Error("websocket sessions not closed", zap.Error(err))
	}
	logger.Info("chatr server stopped")
}
