package config

import (
	"path/filepath"

	"github.com/20after4/configdir"
)

const appName = "nocturne"

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	menu := true
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURI: "http://127.0.0.1:8888/callback",
			BaseURL:     "https://api.spotify.com/v1",
			TokenStore:  "file",
		},
		Kiosk: KioskConfig{
			HoldMS:       2000,
			ToastMS:      2000,
			OverlayMS:    2000,
			SettleMS:     500,
			TokenGraceMS: 1000,
			MixCleanupMS: 200,
			Width:        800,
			Height:       480,
		},
		Lyrics: LyricsConfig{
			BaseURL:     "https://lrclib.net",
			PollMS:      100,
			LeadMS:      1000,
			MenuEnabled: &menu,
		},
		Store: StoreConfig{
			Backend:  "file",
			Path:     filepath.Join(DataDir(), "settings.json"),
			RedisKey: "nocturne:settings",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:3500",
		},
		Defaults: DefaultsConfig{
			Shuffle: false,
			Repeat:  "off",
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 1000,
			ReleaseMS:       700,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DataDir returns the per-user directory for the settings store and logs.
func DataDir() string {
	return configdir.LocalConfig(appName)
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Spotify
	if c.Spotify.RedirectURI == "" {
		c.Spotify.RedirectURI = d.Spotify.RedirectURI
	}
	if c.Spotify.BaseURL == "" {
		c.Spotify.BaseURL = d.Spotify.BaseURL
	}
	if c.Spotify.TokenStore == "" {
		c.Spotify.TokenStore = d.Spotify.TokenStore
	}

	// Kiosk
	fillInt(&c.Kiosk.HoldMS, d.Kiosk.HoldMS)
	fillInt(&c.Kiosk.ToastMS, d.Kiosk.ToastMS)
	fillInt(&c.Kiosk.OverlayMS, d.Kiosk.OverlayMS)
	fillInt(&c.Kiosk.SettleMS, d.Kiosk.SettleMS)
	fillInt(&c.Kiosk.TokenGraceMS, d.Kiosk.TokenGraceMS)
	fillInt(&c.Kiosk.MixCleanupMS, d.Kiosk.MixCleanupMS)
	fillInt(&c.Kiosk.Width, d.Kiosk.Width)
	fillInt(&c.Kiosk.Height, d.Kiosk.Height)

	// Lyrics
	if c.Lyrics.BaseURL == "" {
		c.Lyrics.BaseURL = d.Lyrics.BaseURL
	}
	fillInt(&c.Lyrics.PollMS, d.Lyrics.PollMS)
	fillInt(&c.Lyrics.LeadMS, d.Lyrics.LeadMS)
	if c.Lyrics.MenuEnabled == nil {
		c.Lyrics.MenuEnabled = d.Lyrics.MenuEnabled
	}

	// Store
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.Path == "" {
		c.Store.Path = d.Store.Path
	}
	if c.Store.RedisKey == "" {
		c.Store.RedisKey = d.Store.RedisKey
	}

	// Server
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}

	// Defaults
	if c.Defaults.Repeat == "" {
		c.Defaults.Repeat = d.Defaults.Repeat
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	fillInt(&c.TUI.RefreshInterval, d.TUI.RefreshInterval)
	fillInt(&c.TUI.ReleaseMS, d.TUI.ReleaseMS)

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	fillInt(&c.Log.MaxSizeMB, d.Log.MaxSizeMB)
	fillInt(&c.Log.MaxBackups, d.Log.MaxBackups)
	fillInt(&c.Log.MaxAgeDays, d.Log.MaxAgeDays)
}

func fillInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// LyricsMenuEnabled reports the configured initial lyrics menu setting.
func (c *Config) LyricsMenuEnabled() bool {
	return c.Lyrics.MenuEnabled == nil || *c.Lyrics.MenuEnabled
}
