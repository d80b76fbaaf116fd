package grpc

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/ahmedafzal2677/exact-sol-task/proto/auth"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/service"
)

type Server struct {
	pb.UnimplementedAuthServiceServer
	Auth   *service.AuthService
	Logger *logrus.Logger
}

func (s *Server) Verify(ctx context.Context, req *pb.VerifyRequest) (*pb.VerifyResponse, error) {
	// Извлекаем request-id из входящих метаданных
	var requestID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("x-request-id"); len(values) > 0 {
			requestID = values[0]
		}
	}

	logEntry := s.Logger.WithFields(logrus.Fields{
		"component":     "grpc_server",
		"request_id":    requestID,
		"token_present": req.Token != "",
	})

	user, err := s.Auth.Verify(ctx, req.Token)
	if errors.Is(err, service.ErrNotAuthenticated) {
		logEntry.Warn("invalid token attempt")
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	if err != nil {
		logEntry.WithError(err).Error("verify failed")
		return nil, status.Error(codes.Internal, "verify failed")
	}

	logEntry.WithField("subject", user.ID).Info("token verified successfully")

	return &pb.VerifyResponse{
		Valid:   true,
		Subject: user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    string(user.Role),
	}, nil
}
