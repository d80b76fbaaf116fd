package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/api"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/tokenstore"
	"github.com/ahmedafzal2677/exact-sol-task/shared/logger"
	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

var john = models.User{ID: "2", Name: "John Doe", Email: "john@xyz.com", Role: "user"}

// fakeAuth выдаёт настоящие подписанные токены, чтобы клиент декодировал их как в проде
type fakeAuth struct {
	issuer  *token.Issuer
	meErr   error
	meCalls int
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (string, models.User, error) {
	if email != john.Email || password != "john123" {
		return "", models.User{}, api.ErrInvalidCredentials
	}
	tok, _, err := f.issuer.Issue(token.Claims{Subject: john.ID, Email: john.Email, Role: john.Role})
	return tok, john, err
}

func (f *fakeAuth) Me(_ context.Context, raw string) (models.User, error) {
	f.meCalls++
	if f.meErr != nil {
		return models.User{}, f.meErr
	}
	c, err := f.issuer.Parse(raw)
	if err != nil {
		return models.User{}, api.ErrNotAuthenticated
	}
	if c.Subject != john.ID {
		return models.User{}, api.ErrNotFound
	}
	return john, nil
}

func newProvider(t *testing.T) (*Provider, *fakeAuth, *tokenstore.MemoryStore) {
	t.Helper()
	auth := &fakeAuth{issuer: token.NewIssuer("secret", token.DefaultTTL)}
	store := tokenstore.NewMemoryStore()
	return NewProvider(auth, store, logger.Discard()), auth, store
}

func TestLogin_Success(t *testing.T) {
	p, _, store := newProvider(t)

	u, err := p.Login(context.Background(), "john@xyz.com", "john123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u != john {
		t.Fatalf("user=%+v", u)
	}
	if cur, ok := p.CurrentUser(); !ok || cur.ID != "2" {
		t.Fatalf("current=%+v ok=%v", cur, ok)
	}
	if _, ok, _ := store.Get(); !ok {
		t.Fatal("token not persisted")
	}
}

func TestLogin_WrongPasswordLeavesAnonymous(t *testing.T) {
	p, _, store := newProvider(t)

	_, err := p.Login(context.Background(), "john@xyz.com", "nope")
	if !errors.Is(err, api.ErrInvalidCredentials) {
		t.Fatalf("err=%v want ErrInvalidCredentials", err)
	}
	if _, ok := p.CurrentUser(); ok {
		t.Fatal("current user set after failed login")
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatal("token stored after failed login")
	}
}

func TestRestoreSession(t *testing.T) {
	p, auth, store := newProvider(t)
	if _, err := p.Login(context.Background(), "john@xyz.com", "john123"); err != nil {
		t.Fatal(err)
	}

	// новый процесс: провайдер без состояния, тот же store
	fresh := NewProvider(auth, store, logger.Discard())
	u, ok, err := fresh.RestoreSession(context.Background())
	if err != nil || !ok || u.ID != "2" {
		t.Fatalf("restore: user=%+v ok=%v err=%v", u, ok, err)
	}
	if cur, ok := fresh.CurrentUser(); !ok || cur != john {
		t.Fatalf("current=%+v ok=%v", cur, ok)
	}
}

func TestRestoreSession_NoToken(t *testing.T) {
	p, auth, _ := newProvider(t)

	_, ok, err := p.RestoreSession(context.Background())
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if auth.meCalls != 0 {
		t.Fatal("auth service called without a token")
	}
}

func TestRestoreSession_ExpiredTokenIsCleared(t *testing.T) {
	p, auth, store := newProvider(t)
	past := time.Now().Add(-48 * time.Hour)
	old := token.NewIssuer("secret", token.DefaultTTL).WithClock(func() time.Time { return past })
	tok, _, err := old.Issue(token.Claims{Subject: "2", Email: john.Email, Role: "user"})
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Set(tok)

	_, ok, err := p.RestoreSession(context.Background())
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, ok := p.CurrentUser(); ok {
		t.Fatal("expired token restored a user")
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatal("expired token not cleared")
	}
	if auth.meCalls != 0 {
		t.Fatal("expired token sent to auth service")
	}
}

func TestRestoreSession_GarbageTokenIsCleared(t *testing.T) {
	p, _, store := newProvider(t)
	_ = store.Set("not-a-token")

	if _, ok, err := p.RestoreSession(context.Background()); err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatal("garbage token not cleared")
	}
}

func TestRestoreSession_UnknownSubjectIsCleared(t *testing.T) {
	p, auth, store := newProvider(t)
	tok, _, _ := auth.issuer.Issue(token.Claims{Subject: "99", Role: "user"})
	_ = store.Set(tok)

	if _, ok, err := p.RestoreSession(context.Background()); err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatal("token for unknown subject not cleared")
	}
}

func TestRestoreSession_NetworkErrorKeepsToken(t *testing.T) {
	p, auth, store := newProvider(t)
	if _, err := p.Login(context.Background(), "john@xyz.com", "john123"); err != nil {
		t.Fatal(err)
	}
	auth.meErr = errors.New("connection refused")

	if _, ok, err := p.RestoreSession(context.Background()); err == nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, ok, _ := store.Get(); !ok {
		t.Fatal("token dropped on transient error")
	}
}

func TestLogout(t *testing.T) {
	p, _, store := newProvider(t)
	if _, err := p.Login(context.Background(), "john@xyz.com", "john123"); err != nil {
		t.Fatal(err)
	}

	if err := p.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.CurrentUser(); ok {
		t.Fatal("user kept after logout")
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatal("token kept after logout")
	}
}

func TestCurrentUser_AnonymousAfterAPIRejectsToken(t *testing.T) {
	p, _, store := newProvider(t)
	if _, err := p.Login(context.Background(), "john@xyz.com", "john123"); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := api.NewClient(api.Config{APIURL: srv.URL}, store, logger.Discard())
	if _, err := client.ListTasks(context.Background()); !errors.Is(err, api.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if u, ok := p.CurrentUser(); ok {
		t.Fatalf("still authenticated as %+v", u)
	}
}
