package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/client/authclient"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/config"
	handlers "github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/http"
	customMiddleware "github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/middleware"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/realtime"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/repository"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/service"
	"github.com/ahmedafzal2677/exact-sol-task/shared/logger"
	"github.com/ahmedafzal2677/exact-sol-task/shared/middleware"
)

func main() {
	logrusLogger := logger.Init("tasks")

	cfg, err := config.Load()
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, ready, closeRepo, err := openRepository(ctx, cfg, logrusLogger)
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to open task storage")
	}
	defer closeRepo()

	authClient, err := authclient.NewClient(cfg.AuthGRPCAddr, cfg.AuthTimeout, logrusLogger)
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to create auth client")
	}
	defer authClient.Close()

	hub := realtime.NewHub(logrusLogger)
	taskService := service.NewTaskService(repo, hub, logrusLogger)
	taskHandler := handlers.NewTaskHandler(taskService, authClient, hub, logrusLogger).WithReadiness(ready)

	mux := http.NewServeMux()
	taskHandler.Register(mux)
	mux.Handle("GET /metrics", customMiddleware.MetricsHandler())

	// Цепочка middleware, снаружи внутрь: request-id, логирование, метрики, CSRF, заголовки.
	// request-id внешний, иначе строка лога запроса уходит без него
	handler := customMiddleware.SecurityHeadersMiddleware(mux)
	handler = customMiddleware.CSRFMiddleware(handler)
	handler = customMiddleware.MetricsMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.TasksPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrusLogger.WithFields(logrus.Fields{
			"port":      cfg.TasksPort,
			"db_driver": cfg.DB.Driver,
		}).Info("tasks service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrusLogger.Info("shutting down tasks service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrusLogger.WithError(err).Warn("http shutdown error")
	}
	// hijacked websocket-соединения Shutdown не закрывает
	hub.Close()
}

// openRepository выбирает хранилище по DB_DRIVER и при необходимости засевает демо-задачи
func openRepository(ctx context.Context, cfg *config.Config, log *logrus.Logger) (repository.TaskRepository, func(context.Context) error, func(), error) {
	var (
		repo      repository.TaskRepository
		ready     = func(context.Context) error { return nil }
		closeRepo = func() {}
	)

	if cfg.DB.Driver == "memory" {
		repo = repository.NewMemoryTaskRepository()
	} else {
		sqlRepo, err := repository.OpenSQL(ctx, cfg.DB.Driver, cfg.DB.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqlRepo.Migrate(ctx); err != nil {
			_ = sqlRepo.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		repo, ready = sqlRepo, sqlRepo.PingContext
		closeRepo = func() {
			if err := sqlRepo.Close(); err != nil {
				log.WithError(err).Warn("failed to close database")
			}
		}
	}

	if cfg.SeedDemo {
		n, err := repository.Seed(ctx, repo, repository.DemoTasks(time.Now().UTC()))
		if err != nil {
			closeRepo()
			return nil, nil, nil, fmt.Errorf("seed demo tasks: %w", err)
		}
		log.WithField("inserted", n).Info("demo tasks seeded")
	}
	return repo, ready, closeRepo, nil
}
