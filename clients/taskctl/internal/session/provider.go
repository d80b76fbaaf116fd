// Package session - клиентское состояние входа: Anonymous или Authenticated(user).
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/api"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/tokenstore"
	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

// AuthAPI - операции auth-сервиса, нужные провайдеру
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, models.User, error)
	Me(ctx context.Context, token string) (models.User, error)
}

type Provider struct {
	mu     sync.Mutex
	auth   AuthAPI
	store  tokenstore.Store
	logger *logrus.Logger
	now    func() time.Time
	user   *models.User
}

func NewProvider(auth AuthAPI, store tokenstore.Store, logger *logrus.Logger) *Provider {
	return &Provider{auth: auth, store: store, logger: logger, now: time.Now}
}

// Login при успехе сохраняет токен; при неверной паре текущий пользователь не меняется
func (p *Provider) Login(ctx context.Context, email, password string) (models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, u, err := p.auth.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	if err := p.store.Set(tok); err != nil {
		return models.User{}, fmt.Errorf("persist token: %w", err)
	}
	p.user = &u
	p.logger.WithField("user_id", u.ID).Debug("logged in")
	return u, nil
}

// RestoreSession восстанавливает пользователя по сохранённому токену.
// Просроченный, нечитаемый или отвергнутый сервером токен удаляется.
// Сетевые ошибки возвращаются как есть, токен при этом сохраняется.
func (p *Provider) RestoreSession(ctx context.Context) (models.User, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.user = nil
	raw, ok, err := p.store.Get()
	if err != nil {
		return models.User{}, false, err
	}
	if !ok {
		return models.User{}, false, nil
	}

	claims, err := token.DecodeUnverified(raw)
	if err != nil {
		p.logger.WithError(err).Info("stored token unreadable, discarding")
		return models.User{}, false, p.store.Clear()
	}
	if claims.Expired(p.now()) {
		p.logger.WithField("expired_at", claims.ExpiresAt).Info("stored token expired, discarding")
		return models.User{}, false, p.store.Clear()
	}

	u, err := p.auth.Me(ctx, raw)
	if errors.Is(err, api.ErrNotAuthenticated) || errors.Is(err, api.ErrNotFound) {
		p.logger.Info("stored token rejected by auth service")
		return models.User{}, false, p.store.Clear()
	}
	if err != nil {
		return models.User{}, false, err
	}
	if u.ID != claims.Subject {
		p.logger.WithFields(logrus.Fields{"subject": claims.Subject, "resolved": u.ID}).Warn("token subject mismatch")
		return models.User{}, false, p.store.Clear()
	}

	p.user = &u
	return u, true, nil
}

// Logout очищает токен и текущего пользователя
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.user = nil
	return p.store.Clear()
}

// CurrentUser сверяется с хранилищем: токен, удалённый API-клиентом после 401,
// переводит сессию в Anonymous
func (p *Provider) CurrentUser() (models.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.user != nil {
		if _, ok, err := p.store.Get(); err == nil && !ok {
			p.logger.WithField("user_id", p.user.ID).Debug("session token cleared, signing out")
			p.user = nil
		}
	}
	if p.user == nil {
		return models.User{}, false
	}
	return *p.user, true
}
