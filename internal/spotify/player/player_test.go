package player

import (
	"testing"
	"time"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/spotify/client"
)

func TestConvertTrack(t *testing.T) {
	spotifyTrack := &client.Track{
		ID:         "track123",
		URI:        "spotify:track:track123",
		Name:       "Test Song",
		DurationMS: 180000,
		Artists:    []client.Artist{{Name: "Artist One"}, {Name: "Artist Two"}},
		Album: client.Album{
			ID:     "album1",
			Name:   "Test Album",
			Images: []client.Image{{URL: "https://i.scdn.co/image/cover"}},
		},
	}

	got := ConvertTrack(spotifyTrack)

	if got.ID != "track123" || got.Title != "Test Song" {
		t.Errorf("track = %+v", got)
	}
	if got.Artist != "Artist One" || len(got.Artists) != 2 {
		t.Errorf("artists = %q %v", got.Artist, got.Artists)
	}
	if got.Album != "Test Album" || got.AlbumID != "album1" {
		t.Errorf("album = %q %q", got.Album, got.AlbumID)
	}
	if got.ImageURL != "https://i.scdn.co/image/cover" {
		t.Errorf("ImageURL = %q", got.ImageURL)
	}
	if got.Duration != 180*time.Second {
		t.Errorf("Duration = %v", got.Duration)
	}
}

func TestConvertDevice(t *testing.T) {
	vol := 42
	got := ConvertDevice(&client.Device{ID: "d", Name: "Head Unit", Type: "Automobile", IsActive: true, VolumePercent: &vol})

	if got.Type != core.DeviceTypeCar {
		t.Errorf("Type = %q, want %q", got.Type, core.DeviceTypeCar)
	}
	if !got.IsActive || got.Volume != 42 || got.Name != "Head Unit" {
		t.Errorf("device = %+v", got)
	}
}

func TestConvertState(t *testing.T) {
	at := time.Unix(1700000000, 0)
	got := ConvertState(&client.PlaybackState{
		Device:       client.Device{ID: "d1", IsActive: true},
		ShuffleState: true,
		RepeatState:  "track",
		ProgressMS:   5000,
		IsPlaying:    true,
		Item:         &client.Track{ID: "t1"},
	}, at)

	if !got.Shuffle || got.Repeat != core.RepeatTrack || got.Progress != 5*time.Second {
		t.Errorf("state = %+v", got)
	}
	if got.Device == nil || got.Device.ID != "d1" || got.TrackID() != "t1" {
		t.Errorf("device/track = %+v %+v", got.Device, got.Track)
	}
	if !got.FetchedAt.Equal(at) {
		t.Errorf("FetchedAt = %v", got.FetchedAt)
	}
}

func TestConvertIdleState(t *testing.T) {
	got := ConvertState(nil, time.Now())
	if got == nil || got.HasTrack() || got.Device != nil || got.Repeat != core.RepeatOff {
		t.Errorf("idle state = %+v", got)
	}
}

func TestConvertNil(t *testing.T) {
	if ConvertTrack(nil) != nil || ConvertDevice(nil) != nil {
		t.Error("expected nil for nil input")
	}
}
