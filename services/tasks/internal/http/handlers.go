package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/client/authclient"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/service"
	"github.com/ahmedafzal2677/exact-sol-task/shared/middleware"
)

// maxBodyBytes ограничивает тело запроса с задачей
const maxBodyBytes = 1 << 20

// SessionVerifier проверяет токен (gRPC-клиент auth-сервиса)
type SessionVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Session, error)
}

// Streamer держит websocket-соединения подписчиков
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, sess models.Session)
}

type TaskHandler struct {
	taskService *service.TaskService
	authClient  SessionVerifier
	stream      Streamer
	ready       func(ctx context.Context) error
	logger      *logrus.Logger
}

func NewTaskHandler(ts *service.TaskService, ac SessionVerifier, stream Streamer, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: ts,
		authClient:  ac,
		stream:      stream,
		logger:      logger,
	}
}

// WithReadiness задаёт проверку хранилища для /readyz
func (h *TaskHandler) WithReadiness(check func(ctx context.Context) error) *TaskHandler {
	h.ready = check
	return h
}

// Register вешает маршруты на mux
func (h *TaskHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/tasks", h.ListTasks)
	mux.HandleFunc("POST /v1/tasks", h.CreateTask)
	mux.HandleFunc("GET /v1/tasks/search", h.SearchTasks)
	mux.HandleFunc("GET /v1/tasks/stats", h.TaskStats)
	mux.HandleFunc("GET /v1/tasks/{id}", h.GetTask)
	mux.HandleFunc("PUT /v1/tasks/{id}", h.UpdateTask)
	mux.HandleFunc("PATCH /v1/tasks/{id}/status", h.SetTaskStatus)
	mux.HandleFunc("DELETE /v1/tasks/{id}", h.DeleteTask)
	mux.HandleFunc("GET /v1/ws", h.Stream)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)
}

func (h *TaskHandler) entry(r *http.Request, handler string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"component":  "http_handler",
		"handler":    handler,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

// authenticate проверяет токен через auth-сервис; при ошибке ответ уже записан
func (h *TaskHandler) authenticate(w http.ResponseWriter, r *http.Request, logEntry *logrus.Entry) (*models.Session, bool) {
	cred, ok := middleware.ExtractCredential(r)
	if !ok {
		logEntry.Debug("credentials missing")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return h.verify(w, r, cred.Token, logEntry)
}

func (h *TaskHandler) verify(w http.ResponseWriter, r *http.Request, token string, logEntry *logrus.Entry) (*models.Session, bool) {
	sess, err := h.authClient.VerifyToken(r.Context(), token)
	if errors.Is(err, authclient.ErrNotAuthenticated) {
		logEntry.Debug("token rejected")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if err != nil {
		logEntry.WithError(err).Error("auth service unavailable")
		writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
		return nil, false
	}
	return sess, true
}

type taskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status"`
	DueDate     string          `json:"dueDate"`
	Priority    models.Priority `json:"priority"`
	UserID      string          `json:"userId"`
}

type statusRequest struct {
	Status models.Status `json:"status"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ListTasks обрабатывает GET /v1/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "ListTasks")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(r.Context(), sess)
	if err != nil {
		h.writeServiceError(w, logEntry, err)
		return
	}

	logEntry.WithField("count", len(tasks)).Debug("tasks listed")
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

// CreateTask обрабатывает POST /v1/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "CreateTask")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	var req taskRequest
	if err := decodeBody(w, r, &req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.taskService.Create(r.Context(), sess, service.TaskFields{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		UserID:      req.UserID,
	})
	if err != nil {
		h.writeServiceError(w, logEntry, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// GetTask обрабатывает GET /v1/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "GetTask")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	id := r.PathValue("id")
	task, err := h.taskService.Get(r.Context(), sess, id)
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask обрабатывает PUT /v1/tasks/{id}: полная замена записи
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "UpdateTask")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	id := r.PathValue("id")
	var req taskRequest
	if err := decodeBody(w, r, &req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.taskService.Update(r.Context(), sess, models.Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		UserID:      req.UserID,
	})
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// SetTaskStatus обрабатывает PATCH /v1/tasks/{id}/status
func (h *TaskHandler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "SetTaskStatus")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	id := r.PathValue("id")
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.taskService.SetStatus(r.Context(), sess, id, req.Status)
	if err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask обрабатывает DELETE /v1/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "DeleteTask")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.taskService.Delete(r.Context(), sess, id); err != nil {
		h.writeServiceError(w, logEntry.WithField("task_id", id), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchTasks обрабатывает GET /v1/tasks/search?q=
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "SearchTasks")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "search query parameter 'q' is required")
		return
	}

	tasks, err := h.taskService.Search(r.Context(), sess, query)
	if err != nil {
		h.writeServiceError(w, logEntry, err)
		return
	}
	logEntry.WithFields(logrus.Fields{"query": query, "count": len(tasks)}).Debug("tasks searched")
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

// TaskStats обрабатывает GET /v1/tasks/stats
func (h *TaskHandler) TaskStats(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "TaskStats")
	sess, ok := h.authenticate(w, r, logEntry)
	if !ok {
		return
	}

	st, err := h.taskService.Stats(r.Context(), sess)
	if err != nil {
		h.writeServiceError(w, logEntry, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Stream обрабатывает GET /v1/ws. Браузерный WebSocket не умеет слать заголовки,
// поэтому токен принимается и в ?token=
func (h *TaskHandler) Stream(w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "Stream")

	var (
		sess *models.Session
		ok   bool
	)
	if tok := r.URL.Query().Get("token"); tok != "" {
		sess, ok = h.verify(w, r, tok, logEntry)
	} else {
		sess, ok = h.authenticate(w, r, logEntry)
	}
	if !ok {
		return
	}

	logEntry.WithField("user_id", sess.UserID).Info("realtime subscriber connected")
	h.stream.Serve(w, r, *sess)
}

func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TaskHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.entry(r, "Ready").WithError(err).Warn("storage not ready")
			writeError(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *TaskHandler) writeServiceError(w http.ResponseWriter, logEntry *logrus.Entry, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrUnauthorized):
		logEntry.Warn("ownership check failed")
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrInvalidTask):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logEntry.WithError(err).Error("task operation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func nonNil(tasks []*models.Task) []*models.Task {
	if tasks == nil {
		return []*models.Task{}
	}
	return tasks
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
