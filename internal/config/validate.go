package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Spotify.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("spotify: %w", err))
	}
	if err := c.Kiosk.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("kiosk: %w", err))
	}
	if err := c.Lyrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("lyrics: %w", err))
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := c.Defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks SpotifyConfig for errors.
func (c *SpotifyConfig) Validate() error {
	if c.RedirectURI != "" {
		if _, err := url.Parse(c.RedirectURI); err != nil {
			return fmt.Errorf("invalid redirect_uri: %w", err)
		}
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	switch c.TokenStore {
	case "", "file", "keyring":
	default:
		return fmt.Errorf("invalid token_store: %s (must be file or keyring)", c.TokenStore)
	}
	return nil
}

// Validate checks KioskConfig for errors.
func (c *KioskConfig) Validate() error {
	var errs []error
	for name, v := range map[string]int{
		"hold_ms":        c.HoldMS,
		"toast_ms":       c.ToastMS,
		"overlay_ms":     c.OverlayMS,
		"settle_ms":      c.SettleMS,
		"token_grace_ms": c.TokenGraceMS,
		"mix_cleanup_ms": c.MixCleanupMS,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative", name))
		}
	}
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, errors.New("width and height must be non-negative"))
	}
	return errors.Join(errs...)
}

// Validate checks LyricsConfig for errors.
func (c *LyricsConfig) Validate() error {
	if c.PollMS < 0 {
		return errors.New("poll_ms must be non-negative")
	}
	if c.LeadMS < 0 {
		return errors.New("lead_ms must be non-negative")
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	return nil
}

// Validate checks StoreConfig for errors.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case "", "file", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be file, redis, or memory)", c.Backend)
	}
	if c.RedisDB < 0 {
		return errors.New("redis_db must be non-negative")
	}
	return nil
}

// Validate checks DefaultsConfig for errors.
func (c *DefaultsConfig) Validate() error {
	switch c.Repeat {
	case "", "off", "track", "context":
		// valid
	default:
		return fmt.Errorf("invalid repeat mode: %s (must be off, track, or context)", c.Repeat)
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "dark", "light":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, dark, or light)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	if c.ReleaseMS < 0 {
		return errors.New("release_ms must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return errors.New("rotation limits must be non-negative")
	}
	return nil
}
