package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Kiosk.HoldMS != 2000 {
		t.Errorf("HoldMS = %d, want 2000", cfg.Kiosk.HoldMS)
	}
	if cfg.Kiosk.SettleMS != 500 || cfg.Kiosk.TokenGraceMS != 1000 {
		t.Errorf("settle/grace = %d/%d", cfg.Kiosk.SettleMS, cfg.Kiosk.TokenGraceMS)
	}
	if cfg.Kiosk.Width != 800 || cfg.Kiosk.Height != 480 {
		t.Errorf("resolution = %dx%d", cfg.Kiosk.Width, cfg.Kiosk.Height)
	}
	if cfg.Lyrics.PollMS != 100 {
		t.Errorf("PollMS = %d, want 100", cfg.Lyrics.PollMS)
	}
	if !cfg.LyricsMenuEnabled() {
		t.Error("LyricsMenuEnabled() = false, want true")
	}
	if cfg.Defaults.Repeat != "off" {
		t.Errorf("Repeat = %q, want off", cfg.Defaults.Repeat)
	}
	if cfg.Store.Backend != "file" || cfg.Store.Path == "" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestApplyDefaultsKeepsValues(t *testing.T) {
	off := false
	cfg := &Config{
		Kiosk:  KioskConfig{HoldMS: 1500},
		Lyrics: LyricsConfig{MenuEnabled: &off},
	}
	cfg.ApplyDefaults()

	if cfg.Kiosk.HoldMS != 1500 {
		t.Errorf("HoldMS = %d, want 1500", cfg.Kiosk.HoldMS)
	}
	if cfg.LyricsMenuEnabled() {
		t.Error("LyricsMenuEnabled() = true, want explicit false kept")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad repeat", func(c *Config) { c.Defaults.Repeat = "forever" }, "invalid repeat mode"},
		{"bad backend", func(c *Config) { c.Store.Backend = "sqlite" }, "invalid backend"},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis" }, "redis_addr is required"},
		{"negative hold", func(c *Config) { c.Kiosk.HoldMS = -1 }, "hold_ms must be non-negative"},
		{"bad token store", func(c *Config) { c.Spotify.TokenStore = "vault" }, "invalid token_store"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[spotify]
client_id = "file-id"

[kiosk]
hold_ms = 1800
default_device = "Kitchen"

[store]
backend = "memory"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NOCTURNE_SPOTIFY_CLIENT_ID", "env-id")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Spotify.ClientID != "env-id" {
		t.Errorf("ClientID = %q, want env override", cfg.Spotify.ClientID)
	}
	if cfg.Kiosk.HoldMS != 1800 || cfg.Kiosk.DefaultDevice != "Kitchen" {
		t.Errorf("kiosk = %+v", cfg.Kiosk)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.Store.Backend)
	}
	if cfg.Kiosk.ToastMS != 2000 {
		t.Errorf("ToastMS = %d, want default", cfg.Kiosk.ToastMS)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Kiosk.DefaultDevice = "Car"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Kiosk.DefaultDevice != "Car" {
		t.Errorf("DefaultDevice = %q", loaded.Kiosk.DefaultDevice)
	}
}
