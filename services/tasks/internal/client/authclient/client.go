package authclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/ahmedafzal2677/exact-sol-task/proto/auth"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/shared/middleware"
)

// ErrNotAuthenticated - auth-сервис отверг токен
var ErrNotAuthenticated = errors.New("token rejected by auth service")

type Client struct {
	conn    *grpc.ClientConn
	client  pb.AuthServiceClient
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient не блокируется: соединение устанавливается при первом вызове
func NewClient(addr string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}
	c := New(pb.NewAuthServiceClient(conn), timeout, logger)
	c.conn = conn
	return c, nil
}

// New оборачивает готовый gRPC-клиент
func New(client pb.AuthServiceClient, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{client: client, timeout: timeout, logger: logger}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// VerifyToken возвращает сессию владельца токена или ErrNotAuthenticated
func (c *Client) VerifyToken(ctx context.Context, token string) (*models.Session, error) {
	// Извлекаем request-id из контекста для прокидывания в gRPC метаданные
	requestID := middleware.GetRequestID(ctx)

	logEntry := c.logger.WithFields(logrus.Fields{
		"component":  "auth_client",
		"request_id": requestID,
	})

	if token == "" {
		return nil, ErrNotAuthenticated
	}

	logEntry.Debug("calling auth service Verify")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)
	}

	resp, err := c.client.Verify(ctx, &pb.VerifyRequest{Token: token})
	if err != nil {
		st, ok := status.FromError(err)
		if !ok {
			logEntry.WithError(err).Error("auth service unavailable")
			return nil, fmt.Errorf("auth service unavailable: %w", err)
		}

		switch st.Code() {
		case codes.Unauthenticated:
			logEntry.Debug("token invalid")
			return nil, ErrNotAuthenticated
		case codes.DeadlineExceeded:
			logEntry.Warn("auth service timeout")
			return nil, fmt.Errorf("auth service timeout")
		default:
			logEntry.WithFields(logrus.Fields{
				"code":  st.Code(),
				"error": st.Message(),
			}).Error("auth service error")
			return nil, fmt.Errorf("auth service error: %v", st.Message())
		}
	}

	if !resp.Valid || resp.Subject == "" {
		logEntry.Debug("token reported invalid")
		return nil, ErrNotAuthenticated
	}

	logEntry.WithFields(logrus.Fields{
		"subject": resp.Subject,
		"role":    resp.Role,
	}).Debug("auth response received")

	return &models.Session{
		UserID: resp.Subject,
		Name:   resp.Name,
		Email:  resp.Email,
		Role:   resp.Role,
	}, nil
}
