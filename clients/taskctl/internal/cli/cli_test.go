package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

// fakeBoard - минимальные auth и tasks API поверх настоящих подписанных токенов
type fakeBoard struct {
	issuer *token.Issuer
	mu     sync.Mutex
	tasks  []models.Task
}

func newFakeBoard(t *testing.T) string {
	t.Helper()
	b := &fakeBoard{
		issuer: token.NewIssuer("secret", time.Hour),
		tasks: []models.Task{
			{ID: "3", Title: "Client Meeting", Status: models.StatusCompleted, Priority: models.PriorityHigh, UserID: "2"},
			{ID: "4", Title: "Design Review", Status: models.StatusInProgress, Priority: models.PriorityMedium, UserID: "3"},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", b.login)
	mux.HandleFunc("GET /v1/auth/me", b.me)
	mux.HandleFunc("GET /v1/tasks", b.list)
	mux.HandleFunc("POST /v1/tasks", b.create)
	mux.HandleFunc("PATCH /v1/tasks/{id}/status", b.status)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

var johnUser = models.User{ID: "2", Name: "John Doe", Email: "john@xyz.com", Role: "user"}

func (b *fakeBoard) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Email != johnUser.Email || req.Password != "john123" {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	tok, _, _ := b.issuer.Issue(token.Claims{Subject: johnUser.ID, Email: johnUser.Email, Role: johnUser.Role})
	writeTestJSON(w, http.StatusOK, map[string]any{"token": tok, "user": johnUser})
}

func (b *fakeBoard) session(w http.ResponseWriter, r *http.Request) bool {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if _, err := b.issuer.Parse(raw); err != nil {
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

func (b *fakeBoard) me(w http.ResponseWriter, r *http.Request) {
	if b.session(w, r) {
		writeTestJSON(w, http.StatusOK, johnUser)
	}
}

func (b *fakeBoard) list(w http.ResponseWriter, r *http.Request) {
	if !b.session(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var own []models.Task
	for _, t := range b.tasks {
		if t.UserID == johnUser.ID {
			own = append(own, t)
		}
	}
	writeTestJSON(w, http.StatusOK, own)
}

func (b *fakeBoard) create(w http.ResponseWriter, r *http.Request) {
	if !b.session(w, r) {
		return
	}
	var in models.TaskInput
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	defer b.mu.Unlock()
	t := models.Task{ID: "t_new", Title: in.Title, Status: models.StatusTodo, Priority: models.PriorityMedium, DueDate: in.DueDate, UserID: johnUser.ID}
	b.tasks = append(b.tasks, t)
	writeTestJSON(w, http.StatusCreated, t)
}

func (b *fakeBoard) status(w http.ResponseWriter, r *http.Request) {
	if !b.session(w, r) {
		return
	}
	if r.PathValue("id") != "3" {
		writeTestJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	writeTestJSON(w, http.StatusOK, models.Task{ID: "3", Title: "Client Meeting", Status: models.StatusTodo, UserID: "2"})
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	t        *testing.T
	stateDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := newFakeBoard(t)
	t.Setenv("TASKBOARD_API_URL", base+"/v1")
	t.Setenv("TASKBOARD_AUTH_URL", base+"/v1")
	t.Setenv("TASKBOARD_PASSWORD", "")
	return &harness{t: t, stateDir: t.TempDir()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(append([]string{"--state-dir", h.stateDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run("login", "--email", "john@xyz.com", "--password", "wrong"); err == nil {
		t.Fatal("login with wrong password succeeded")
	}
	if _, err := h.run("whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("whoami before login: err=%v", err)
	}

	out, err := h.run("login", "--email", "john@xyz.com", "--password", "john123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "John Doe") {
		t.Fatalf("login output=%q", out)
	}

	out, err = h.run("whoami", "-o", "json")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	var u models.User
	if err := json.Unmarshal([]byte(out), &u); err != nil || u.ID != "2" {
		t.Fatalf("whoami output=%q err=%v", out, err)
	}

	if _, err := h.run("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := h.run("whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("whoami after logout: err=%v", err)
	}
}

func TestTasksCommands(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("login", "--email", "john@xyz.com", "--password", "john123"); err != nil {
		t.Fatal(err)
	}

	out, err := h.run("tasks", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Client Meeting") || strings.Contains(out, "Design Review") {
		t.Fatalf("list output=%q", out)
	}

	out, err = h.run("tasks", "create", "--title", "Write report", "--due", "2026-03-01", "-o", "yaml")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "id: t_new") || !strings.Contains(out, "2026-03-01") {
		t.Fatalf("create output=%q", out)
	}

	if _, err := h.run("tasks", "status", "3", "todo"); err != nil {
		t.Fatalf("status own task: %v", err)
	}
	if _, err := h.run("tasks", "status", "4", "todo"); err == nil {
		t.Fatal("status on foreign task succeeded")
	}
}

func TestTasksWithoutLogin(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("tasks", "list"); err == nil {
		t.Fatal("list without login succeeded")
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("tasks", "list", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
