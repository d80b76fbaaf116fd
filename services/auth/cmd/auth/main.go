package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	pb "github.com/ahmedafzal2677/exact-sol-task/proto/auth"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/config"
	grp "github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/grpc"
	httpHandler "github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/http"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/service"
	"github.com/ahmedafzal2677/exact-sol-task/shared/logger"
	"github.com/ahmedafzal2677/exact-sol-task/shared/middleware"
	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

func main() {
	logrusLogger := logger.Init("auth")

	cfg, err := config.Load()
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to load config")
	}

	users, err := service.NewDirectory(models.DemoAccounts, 0)
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to build user directory")
	}
	authService := service.NewAuthService(users, token.NewIssuer(cfg.TokenSecret, cfg.TokenTTL), logrusLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP сервер для логина
	mux := http.NewServeMux()
	httpHandler.NewHandler(authService, logrusLogger, cfg.CookieSecure).Register(mux)

	handler := middleware.LoggingMiddleware(mux)
	handler = middleware.RequestIDMiddleware(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrusLogger.WithField("port", cfg.HTTPPort).Info("Auth HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// gRPC сервер для Verify
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logrusLogger.WithError(err).Fatal("failed to listen")
	}

	s := grpc.NewServer()
	pb.RegisterAuthServiceServer(s, &grp.Server{Auth: authService, Logger: logrusLogger})
	// перечисление сервисов для grpcurl; дескрипторов нет, контракт на JSON
	reflection.Register(s)

	go func() {
		logrusLogger.WithField("port", cfg.GRPCPort).Info("Auth gRPC server starting")
		if err := s.Serve(lis); err != nil {
			logrusLogger.WithError(err).Fatal("failed to serve")
		}
	}()

	<-ctx.Done()
	logrusLogger.Info("Shutting down Auth server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrusLogger.WithError(err).Warn("http shutdown error")
	}
	s.GracefulStop()
}
