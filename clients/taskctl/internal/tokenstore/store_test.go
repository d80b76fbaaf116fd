package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	const tok = "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln"
	if err := s.Set(tok); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get()
	if err != nil || !ok || got != tok {
		t.Fatalf("Get=%q ok=%v err=%v", got, ok, err)
	}

	if err := s.Set("second"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _, _ := s.Get(); got != "second" {
		t.Fatalf("overwrite failed: %q", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Get(); ok {
		t.Fatal("token present after Clear")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "nested")))
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	if err := NewFileStore(dir).Set("persisted"); err != nil {
		t.Fatal(err)
	}

	got, ok, err := NewFileStore(dir).Get()
	if err != nil || !ok || got != "persisted" {
		t.Fatalf("Get=%q ok=%v err=%v", got, ok, err)
	}

	info, err := os.Stat(filepath.Join(dir, Key))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode=%o want 600", perm)
	}
}
