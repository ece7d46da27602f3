package config

// Config is the root configuration structure.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Kiosk    KioskConfig    `toml:"kiosk"`
	Lyrics   LyricsConfig   `toml:"lyrics"`
	Store    StoreConfig    `toml:"store"`
	Server   ServerConfig   `toml:"server"`
	Defaults DefaultsConfig `toml:"defaults"`
	TUI      TUIConfig      `toml:"tui"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig holds Spotify API settings.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	BaseURL     string `toml:"base_url"`
	TokenStore  string `toml:"token_store"`
}

// KioskConfig holds the button and timing settings of the kiosk.
// Durations are in milliseconds.
type KioskConfig struct {
	HoldMS        int    `toml:"hold_ms"`
	ToastMS       int    `toml:"toast_ms"`
	OverlayMS     int    `toml:"overlay_ms"`
	SettleMS      int    `toml:"settle_ms"`
	TokenGraceMS  int    `toml:"token_grace_ms"`
	MixCleanupMS  int    `toml:"mix_cleanup_ms"`
	DefaultDevice string `toml:"default_device"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
}

// LyricsConfig holds lrclib settings.
type LyricsConfig struct {
	BaseURL     string `toml:"base_url"`
	PollMS      int    `toml:"poll_ms"`
	LeadMS      int    `toml:"lead_ms"`
	MenuEnabled *bool  `toml:"menu_enabled"`
}

// StoreConfig selects and configures the settings store backend.
type StoreConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	RedisKey  string `toml:"redis_key"`
}

// ServerConfig holds the kiosk HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultsConfig holds default playback settings.
type DefaultsConfig struct {
	Shuffle bool   `toml:"shuffle"`
	Repeat  string `toml:"repeat"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme"`
	RefreshInterval int    `toml:"refresh_interval"`
	ReleaseMS       int    `toml:"release_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}
