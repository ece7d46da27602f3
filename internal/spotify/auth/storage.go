package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultTokenFileName is the default name for the token file.
	DefaultTokenFileName = "spotify_token.json"

	keyringService = "nocturne"
	keyringUser    = "spotify"
)

// TokenStore persists the OAuth token between runs. Load returns (nil, nil)
// when nothing has been stored yet.
type TokenStore interface {
	Save(token *Token) error
	Load() (*Token, error)
	Delete() error
	Location() string
}

// FileStorage keeps the token in a JSON file readable only by the owner.
type FileStorage struct {
	path string
}

// NewFileStorage creates file-backed token storage. An empty path selects
// spotify_token.json inside dir.
func NewFileStorage(dir, path string) *FileStorage {
	if path == "" {
		path = filepath.Join(dir, DefaultTokenFileName)
	}
	return &FileStorage{path: path}
}

// Save persists a token to disk.
func (s *FileStorage) Save(token *Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load reads a token from disk.
func (s *FileStorage) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// Delete removes the stored token.
func (s *FileStorage) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// Location returns the path to the token file.
func (s *FileStorage) Location() string {
	return s.path
}

// KeyringStorage keeps the token in the operating system keyring.
type KeyringStorage struct {
	service string
	user    string
}

// NewKeyringStorage creates keyring-backed token storage.
func NewKeyringStorage() *KeyringStorage {
	return &KeyringStorage{service: keyringService, user: keyringUser}
}

// Save stores the token as a JSON secret.
func (s *KeyringStorage) Save(token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := keyring.Set(s.service, s.user, string(data)); err != nil {
		return fmt.Errorf("error setting keyring credentials: %w", err)
	}
	return nil
}

// Load reads the token secret.
func (s *KeyringStorage) Load() (*Token, error) {
	secret, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading keyring credentials: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(secret), &token); err != nil {
		return nil, fmt.Errorf("failed to parse keyring token: %w", err)
	}
	return &token, nil
}

// Delete removes the token secret.
func (s *KeyringStorage) Delete() error {
	if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("error deleting keyring credentials: %w", err)
	}
	return nil
}

// Location describes where the token lives.
func (s *KeyringStorage) Location() string {
	return fmt.Sprintf("keyring %s/%s", s.service, s.user)
}

// NewTokenStore selects a token store by configured kind: "file" or "keyring".
func NewTokenStore(kind, dir string) (TokenStore, error) {
	switch kind {
	case "", "file":
		return NewFileStorage(dir, ""), nil
	case "keyring":
		return NewKeyringStorage(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", kind)
	}
}
