package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"review-digest/api/router"
	"review-digest/config"
	"review-digest/db"
	"review-digest/pipeline"
	"review-digest/repositories"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB, Kafka 는 설정된 경우에만 연결
	opts, closeCollaborators, err := pipeline.ConnectCollaborators(ctx, cfg)
	if err != nil {
		config.Logger.Errorf("failed to connect collaborators: %v", err)
		os.Exit(1)
	}
	defer closeCollaborators()

	app, err := pipeline.NewApp(ctx, cfg, opts...)
	if err != nil {
		config.Logger.Errorf("failed to initialize pipeline: %v", err)
		os.Exit(1)
	}

	deps := router.Deps{Analyzer: app}
	if d := db.Database(); d != nil {
		deps.CallLogs = repositories.NewAILogRepository(d)
		deps.Ping = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
	}

	srv := &http.Server{
		Addr:              cfg.API.Address,
		Handler:           router.WithCORS(router.New(deps), cfg.API.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		config.Logger.Infof("api server listening on %s", cfg.API.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Errorf("api server error: %v", err)
			cancel()
		}
	}()

	// Graceful shutdown 설정
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		config.Logger.Info("received shutdown signal, shutting down api server...")
	case <-ctx.Done():
	}

	// 진행 중인 분석은 수 분이 걸릴 수 있다
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Logger.Errorf("api server shutdown error: %v", err)
	}

	config.Logger.Info("api server stopped")
}
