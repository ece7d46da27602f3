package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/tessro/nocturne/internal/config"
	nerrors "github.com/tessro/nocturne/internal/errors"
)

const baseConfig = `
[spotify]
client_id = "abc"

[kiosk]
hold_ms = 2000
`

func decodeConfig(t *testing.T, data []byte) config.Config {
	t.Helper()
	var c config.Config
	if _, err := toml.Decode(string(data), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return c
}

func TestSetConfigValue(t *testing.T) {
	out, err := setConfigValue([]byte(baseConfig), "kiosk.default_device", "Pi Kiosk")
	if err != nil {
		t.Fatalf("setConfigValue() error = %v", err)
	}
	c := decodeConfig(t, out)
	if c.Kiosk.DefaultDevice != "Pi Kiosk" {
		t.Errorf("default_device = %q", c.Kiosk.DefaultDevice)
	}
	if c.Spotify.ClientID != "abc" || c.Kiosk.HoldMS != 2000 {
		t.Errorf("existing values lost: %+v", c)
	}
}

func TestSetConfigValueTyped(t *testing.T) {
	out, err := setConfigValue([]byte(baseConfig), "kiosk.hold_ms", "1500")
	if err != nil {
		t.Fatalf("setConfigValue() error = %v", err)
	}
	out, err = setConfigValue(out, "lyrics.menu_enabled", "false")
	if err != nil {
		t.Fatalf("setConfigValue() error = %v", err)
	}

	c := decodeConfig(t, out)
	if c.Kiosk.HoldMS != 1500 {
		t.Errorf("hold_ms = %d, want 1500", c.Kiosk.HoldMS)
	}
	if c.Lyrics.MenuEnabled == nil || *c.Lyrics.MenuEnabled {
		t.Errorf("menu_enabled = %v, want false", c.Lyrics.MenuEnabled)
	}
}

func TestSetConfigValueRejects(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"no section", "hold_ms", "1", "invalid key format"},
		{"nested", "kiosk.hold.ms", "1", "invalid key format"},
		{"not an int", "kiosk.hold_ms", "long", "must be an integer"},
		{"not a bool", "defaults.shuffle", "maybe", "must be true or false"},
		{"unknown key", "kiosk.colour", "blue", "unknown config key"},
		{"invalid value", "defaults.repeat", "forever", "invalid repeat mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := setConfigValue([]byte(baseConfig), tt.key, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("setConfigValue() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSetConfigValueInvalidIsConfigError(t *testing.T) {
	_, err := setConfigValue([]byte(baseConfig), "store.backend", "redis")
	if !errors.Is(err, nerrors.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig (redis needs an address)", err)
	}
}
