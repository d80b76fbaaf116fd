package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/service"
	"github.com/ahmedafzal2677/exact-sol-task/shared/middleware"
)

// maxLoginBytes ограничивает тело запроса входа
const maxLoginBytes = 64 << 10

type Handler struct {
	auth         *service.AuthService
	logger       *logrus.Logger
	cookieSecure bool
	now          func() time.Time
}

func NewHandler(auth *service.AuthService, logger *logrus.Logger, cookieSecure bool) *Handler {
	return &Handler{auth: auth, logger: logger, cookieSecure: cookieSecure, now: time.Now}
}

// Register вешает маршруты на mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/login", h.Login)
	mux.HandleFunc("POST /v1/auth/logout", h.Logout)
	mux.HandleFunc("GET /v1/auth/me", h.Me)
	mux.HandleFunc("GET /v1/auth/users/{id}", h.UserByID)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Login обрабатывает POST /v1/auth/login: токен в теле и в cookie для браузера
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logger.WithFields(logrus.Fields{
		"component":  "http_handler",
		"handler":    "Login",
		"request_id": middleware.GetRequestID(r.Context()),
	})

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBytes)).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		logEntry.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	maxAge := int(sess.ExpiresAt.Sub(h.now()).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	// CSRF cookie читается JS и возвращается в заголовке X-CSRF-Token
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CSRFCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})

	logEntry.WithField("subject", sess.User.ID).Info("login successful")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      toUserResponse(sess.User),
	})
}

// Logout обрабатывает POST /v1/auth/logout. Токены без состояния, поэтому только чистим cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.SessionCookie, middleware.CSRFCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me обрабатывает GET /v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.ExtractCredential(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.auth.Verify(r.Context(), cred.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UserByID обрабатывает GET /v1/auth/users/{id}: admin видит любого, остальные только себя
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.ExtractCredential(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	caller, err := h.auth.Verify(r.Context(), cred.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if caller.Role != models.RoleAdmin && caller.ID != id {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	u, err := h.auth.UserByID(r.Context(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
