package localstore

import (
	"os"
	"path/filepath"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	if _, ok, err := s.Get(KeyAuthToken); err != nil || ok {
		t.Fatalf("empty Get = %v, %v", ok, err)
	}
	if err := s.Set(KeyAuthToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyTheme, "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := s.Get(KeyAuthToken); !ok || v != "tok" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if err := s.Delete(KeyAuthToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(KeyAuthToken); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, ok, _ := s.Get(KeyAuthToken); ok {
		t.Fatalf("deleted key still present")
	}
	if v, _, _ := s.Get(KeyTheme); v != "dark" {
		t.Fatalf("theme = %q", v)
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	exercise(t, NewFileStore(path))

	// A fresh handle sees what the first one wrote.
	v, ok, err := NewFileStore(path).Get(KeyTheme)
	if err != nil || !ok || v != "dark" {
		t.Fatalf("reopened Get = %q, %v, %v", v, ok, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileStore(path).Get(KeyTheme); err == nil {
		t.Fatalf("corrupt file accepted")
	}
}
