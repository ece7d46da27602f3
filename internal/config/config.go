package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.nocturnerc, $XDG_CONFIG_HOME/nocturne/config.toml, ~/.config/nocturne/config.toml
// A .env file in the working directory is loaded first; it never overrides
// variables already set in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Path returns the path Load would read, or the preferred location for a new file.
func Path() string {
	if p := findConfigFile(); p != "" {
		return p
	}
	return filepath.Join(xdgConfigHome(), appName, "config.toml")
}

// Save writes cfg as TOML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".nocturnerc"))
	}
	paths = append(paths, filepath.Join(xdgConfigHome(), appName, "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Spotify
	setString(&cfg.Spotify.ClientID, "NOCTURNE_SPOTIFY_CLIENT_ID")
	setString(&cfg.Spotify.RedirectURI, "NOCTURNE_SPOTIFY_REDIRECT_URI")
	setString(&cfg.Spotify.BaseURL, "NOCTURNE_SPOTIFY_BASE_URL")
	setString(&cfg.Spotify.TokenStore, "NOCTURNE_SPOTIFY_TOKEN_STORE")

	// Kiosk
	setInt(&cfg.Kiosk.HoldMS, "NOCTURNE_KIOSK_HOLD_MS")
	setInt(&cfg.Kiosk.SettleMS, "NOCTURNE_KIOSK_SETTLE_MS")
	setString(&cfg.Kiosk.DefaultDevice, "NOCTURNE_KIOSK_DEFAULT_DEVICE")

	// Lyrics
	setString(&cfg.Lyrics.BaseURL, "NOCTURNE_LYRICS_BASE_URL")
	if v := os.Getenv("NOCTURNE_LYRICS_MENU_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Lyrics.MenuEnabled = &b
		}
	}

	// Store
	setString(&cfg.Store.Backend, "NOCTURNE_STORE_BACKEND")
	setString(&cfg.Store.Path, "NOCTURNE_STORE_PATH")
	setString(&cfg.Store.RedisAddr, "NOCTURNE_STORE_REDIS_ADDR")
	setInt(&cfg.Store.RedisDB, "NOCTURNE_STORE_REDIS_DB")

	// Server
	setString(&cfg.Server.Addr, "NOCTURNE_SERVER_ADDR")

	// TUI
	setString(&cfg.TUI.Theme, "NOCTURNE_TUI_THEME")
	setInt(&cfg.TUI.RefreshInterval, "NOCTURNE_TUI_REFRESH_INTERVAL")

	// Log
	setString(&cfg.Log.Level, "NOCTURNE_LOG_LEVEL")
	setString(&cfg.Log.File, "NOCTURNE_LOG_FILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
