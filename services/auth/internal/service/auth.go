package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUserNotFound       = errors.New("user not found")
)

// Session - результат успешного входа
type Session struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService выпускает токены и проверяет их на стороне сервера
type AuthService struct {
	users  *Directory
	issuer *token.Issuer
	logger *logrus.Logger
}

func NewAuthService(users *Directory, issuer *token.Issuer, logger *logrus.Logger) *AuthService {
	return &AuthService{users: users, issuer: issuer, logger: logger}
}

// Login проверяет учётные данные и выпускает токен на 24 часа
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, ok := s.users.Authenticate(email, password)
	if !ok {
		s.logger.WithField("component", "auth_service").Warn("login failed")
		return Session{}, ErrInvalidCredentials
	}

	raw, claims, err := s.issuer.Issue(token.Claims{
		Subject: u.ID,
		Email:   u.Email,
		Role:    string(u.Role),
	})
	if err != nil {
		return Session{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"component": "auth_service",
		"subject":   u.ID,
		"role":      u.Role,
	}).Info("login successful")

	return Session{User: u, Token: raw, ExpiresAt: claims.ExpiresAt}, nil
}

// Verify проверяет подпись, срок действия и наличие субъекта в справочнике
func (s *AuthService) Verify(ctx context.Context, raw string) (models.User, error) {
	if raw == "" {
		return models.User{}, ErrNotAuthenticated
	}
	claims, err := s.issuer.Parse(raw)
	if err != nil {
		s.logger.WithError(err).WithField("component", "auth_service").Debug("token rejected")
		return models.User{}, ErrNotAuthenticated
	}
	u, err := s.UserByID(ctx, claims.Subject)
	if err != nil {
		return models.User{}, ErrNotAuthenticated
	}
	return u, nil
}

// UserByID ищет пользователя в справочнике
func (s *AuthService) UserByID(_ context.Context, id string) (models.User, error) {
	u, ok := s.users.ByID(id)
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}
