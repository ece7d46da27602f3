package core

import (
	"context"
	"time"
)

// Player defines the playback control surface used by the kiosk screens.
type Player interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error

	GetState(ctx context.Context) (*PlaybackState, error)
	GetDevices(ctx context.Context) ([]Device, error)
	GetRecentlyPlayed(ctx context.Context, limit int) ([]HistoryEntry, error)

	TransferPlayback(ctx context.Context, deviceID string, play bool) error
}

// HistoryEntry represents a recently played track.
type HistoryEntry struct {
	Track    *Track
	PlayedAt time.Time
}
