package player

import (
	"context"
	"time"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/spotify/client"
)

// Player implements core.Player for Spotify.
type Player struct {
	client   *client.Client
	deviceID string
	now      func() time.Time
}

// New creates a new Spotify player.
func New(c *client.Client) *Player {
	return &Player{client: c, now: time.Now}
}

// SetDevice sets the target device for playback commands.
func (p *Player) SetDevice(deviceID string) {
	p.deviceID = deviceID
}

// Play resumes playback.
func (p *Player) Play(ctx context.Context) error {
	return p.client.Play(ctx, p.deviceID, nil)
}

// Pause pauses playback.
func (p *Player) Pause(ctx context.Context) error {
	return p.client.Pause(ctx, p.deviceID)
}

// Next skips to the next track.
func (p *Player) Next(ctx context.Context) error {
	return p.client.Next(ctx, p.deviceID)
}

// Prev skips to the previous track.
func (p *Player) Prev(ctx context.Context) error {
	return p.client.Previous(ctx, p.deviceID)
}

// GetState returns the current playback state. An idle account yields an
// empty state rather than nil.
func (p *Player) GetState(ctx context.Context) (*core.PlaybackState, error) {
	state, err := p.client.GetPlaybackState(ctx)
	if err != nil {
		return nil, err
	}
	return ConvertState(state, p.now()), nil
}

// GetRecentlyPlayed returns the user's recently played tracks.
func (p *Player) GetRecentlyPlayed(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	resp, err := p.client.GetRecentlyPlayed(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]core.HistoryEntry, len(resp.Items))
	for i, item := range resp.Items {
		playedAt, _ := time.Parse(time.RFC3339, item.PlayedAt)
		entries[i] = core.HistoryEntry{
			Track:    ConvertTrack(&item.Track),
			PlayedAt: playedAt,
		}
	}
	return entries, nil
}

// TransferPlayback transfers playback to a different device.
func (p *Player) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	return p.client.TransferPlayback(ctx, deviceID, play)
}

// GetDevices returns the user's available playback devices.
func (p *Player) GetDevices(ctx context.Context) ([]core.Device, error) {
	devices, err := p.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]core.Device, len(devices))
	for i := range devices {
		result[i] = *ConvertDevice(&devices[i])
	}
	return result, nil
}

// ConvertState converts a Spotify playback state observed at fetchedAt.
func ConvertState(state *client.PlaybackState, fetchedAt time.Time) *core.PlaybackState {
	if state == nil {
		return &core.PlaybackState{Repeat: core.RepeatOff, FetchedAt: fetchedAt}
	}

	out := &core.PlaybackState{
		IsPlaying: state.IsPlaying,
		Progress:  time.Duration(state.ProgressMS) * time.Millisecond,
		Shuffle:   state.ShuffleState,
		Repeat:    core.ParseRepeatMode(state.RepeatState),
		FetchedAt: fetchedAt,
	}
	if state.Device.VolumePercent != nil {
		out.Volume = *state.Device.VolumePercent
	}
	if state.Device.ID != "" {
		out.Device = ConvertDevice(&state.Device)
	}
	if state.Item != nil {
		out.Track = ConvertTrack(state.Item)
	}
	return out
}

// ConvertTrack converts a Spotify track to a core track.
func ConvertTrack(t *client.Track) *core.Track {
	if t == nil {
		return nil
	}

	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	artist := ""
	if len(artists) > 0 {
		artist = artists[0]
	}

	return &core.Track{
		ID:       t.ID,
		URI:      t.URI,
		Title:    t.Name,
		Artist:   artist,
		Artists:  artists,
		Album:    t.Album.Name,
		AlbumID:  t.Album.ID,
		ImageURL: client.FirstImageURL(t.Album.Images),
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
	}
}

// ConvertDevice converts a Spotify device to a core device.
func ConvertDevice(d *client.Device) *core.Device {
	if d == nil {
		return nil
	}

	deviceType := core.DeviceType(d.Type)
	switch d.Type {
	case "Computer":
		deviceType = core.DeviceTypeComputer
	case "Smartphone":
		deviceType = core.DeviceTypePhone
	case "Speaker":
		deviceType = core.DeviceTypeSpeaker
	case "TV":
		deviceType = core.DeviceTypeTV
	case "Automobile":
		deviceType = core.DeviceTypeCar
	}

	volume := 0
	if d.VolumePercent != nil {
		volume = *d.VolumePercent
	}

	return &core.Device{
		ID:       d.ID,
		Name:     d.Name,
		Type:     deviceType,
		IsActive: d.IsActive,
		Volume:   volume,
	}
}

var _ core.Player = (*Player)(nil)
