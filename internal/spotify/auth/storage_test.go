package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func sampleToken() *Token {
	return &Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir, "")
	if s.Location() != filepath.Join(dir, DefaultTokenFileName) {
		t.Errorf("Location() = %q", s.Location())
	}

	token, err := s.Load()
	if err != nil || token != nil {
		t.Fatalf("Load() on empty storage = %v, %v; want nil, nil", token, err)
	}

	if err := s.Save(sampleToken()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(s.Location())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := s.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestFileStorageCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStorage("", path).Load(); err == nil {
		t.Error("Load() of corrupt file should fail")
	}
}

func TestKeyringStorage(t *testing.T) {
	keyring.MockInit()
	s := NewKeyringStorage()

	token, err := s.Load()
	if err != nil || token != nil {
		t.Fatalf("Load() before Save = %v, %v", token, err)
	}
	if err := s.Save(sampleToken()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.RefreshToken != "refresh" {
		t.Errorf("RefreshToken = %q", loaded.RefreshToken)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Errorf("Delete() of missing secret error = %v", err)
	}
}

func TestNewTokenStore(t *testing.T) {
	if s, err := NewTokenStore("file", t.TempDir()); err != nil {
		t.Fatal(err)
	} else if _, ok := s.(*FileStorage); !ok {
		t.Errorf("file kind = %T", s)
	}
	if s, err := NewTokenStore("keyring", ""); err != nil {
		t.Fatal(err)
	} else if _, ok := s.(*KeyringStorage); !ok {
		t.Errorf("keyring kind = %T", s)
	}
	if _, err := NewTokenStore("vault", ""); err == nil {
		t.Error("unknown kind should fail")
	}
}
