// Package api - HTTP-клиент сервисов auth и tasks.
//
// Любой ответ 401 очищает хранилище токена: сессия считается завершённой
// и пользователь должен войти заново.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/tokenstore"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUnauthorized       = errors.New("not allowed to access this task")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTask        = errors.New("invalid task")
)

// APIError - ответ сервиса, не попавший в таксономию
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	APIURL  string
	AuthURL string
	Timeout time.Duration
}

type Client struct {
	apiURL  string
	authURL string
	http    *http.Client
	store   tokenstore.Store
	logger  *logrus.Logger
}

func NewClient(cfg Config, store tokenstore.Store, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		authURL: strings.TrimRight(cfg.AuthURL, "/"),
		http:    &http.Client{Timeout: timeout},
		store:   store,
		logger:  logger,
	}
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Login возвращает выданный сервером токен; сохранение токена - забота вызывающего
func (c *Client) Login(ctx context.Context, email, password string) (string, models.User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, c.authURL+"/auth/login", "", body, &resp)
	if errors.Is(err, ErrNotAuthenticated) {
		return "", models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, err
	}
	return resp.Token, resp.User, nil
}

// Me разрешает владельца токена
func (c *Client) Me(ctx context.Context, token string) (models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, c.authURL+"/auth/me", token, nil, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := c.authorized(ctx, http.MethodGet, "/tasks", nil, &tasks)
	return tasks, err
}

func (c *Client) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	var tasks []models.Task
	err := c.authorized(ctx, http.MethodGet, "/tasks/search?q="+url.QueryEscape(query), nil, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var t models.Task
	err := c.authorized(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &t)
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error) {
	var t models.Task
	err := c.authorized(ctx, http.MethodPost, "/tasks", in, &t)
	return t, err
}

// UpdateTask заменяет запись целиком
func (c *Client) UpdateTask(ctx context.Context, task models.Task) (models.Task, error) {
	var t models.Task
	err := c.authorized(ctx, http.MethodPut, "/tasks/"+url.PathEscape(task.ID), task, &t)
	return t, err
}

func (c *Client) SetStatus(ctx context.Context, id string, status models.Status) (models.Task, error) {
	var t models.Task
	body := map[string]models.Status{"status": status}
	err := c.authorized(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/status", body, &t)
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.authorized(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := c.authorized(ctx, http.MethodGet, "/tasks/stats", nil, &st)
	return st, err
}

// authorized выполняет запрос к tasks API с сохранённым токеном
func (c *Client) authorized(ctx context.Context, method, path string, in, out any) error {
	token, ok, err := c.store.Get()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthenticated
	}
	return c.do(ctx, method, c.apiURL+path, token, in, out)
}

func (c *Client) do(ctx context.Context, method, rawURL, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logEntry := c.logger.WithFields(logrus.Fields{
		"component":  "api_client",
		"method":     method,
		"url":        rawURL,
		"request_id": requestID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		logEntry.WithError(err).Debug("request failed")
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()
	logEntry.WithField("status", resp.StatusCode).Debug("response received")

	if resp.StatusCode >= 300 {
		return c.classify(resp, token != "")
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) classify(resp *http.Response, withToken bool) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if withToken {
			if err := c.store.Clear(); err != nil {
				c.logger.WithError(err).Warn("failed to clear rejected token")
			}
		}
		return ErrNotAuthenticated
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		if msg := strings.TrimPrefix(payload.Error, ErrInvalidTask.Error()+": "); msg != "" {
			return fmt.Errorf("%w: %s", ErrInvalidTask, msg)
		}
		return ErrInvalidTask
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
}
