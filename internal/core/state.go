package core

import "time"

// RepeatMode is the Spotify repeat setting.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatTrack   RepeatMode = "track"
	RepeatContext RepeatMode = "context"
)

// ParseRepeatMode maps a stored value to a RepeatMode; unknown values are off.
func ParseRepeatMode(s string) RepeatMode {
	switch RepeatMode(s) {
	case RepeatTrack, RepeatContext:
		return RepeatMode(s)
	default:
		return RepeatOff
	}
}

// PlaybackState represents the current playback state.
type PlaybackState struct {
	Track     *Track        `json:"track"`
	Device    *Device       `json:"device"`
	IsPlaying bool          `json:"is_playing"`
	Progress  time.Duration `json:"progress"`
	Shuffle   bool          `json:"shuffle"`
	Repeat    RepeatMode    `json:"repeat"`
	Volume    int           `json:"volume"`
	// FetchedAt is when Progress was observed.
	FetchedAt time.Time `json:"fetched_at"`
}

// HasTrack returns true if there is an active track.
func (s *PlaybackState) HasTrack() bool {
	return s != nil && s.Track != nil
}

// TrackID returns the id of the active track, or "".
func (s *PlaybackState) TrackID() string {
	if !s.HasTrack() {
		return ""
	}
	return s.Track.ID
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *PlaybackState) ProgressPercent() float64 {
	if s == nil || s.Track == nil || s.Track.Duration == 0 {
		return 0
	}
	return float64(s.Progress) / float64(s.Track.Duration) * 100
}

// PositionAt extrapolates the playback position to now from the last
// observation, clamped to the track duration.
func (s *PlaybackState) PositionAt(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	pos := s.Progress
	if s.IsPlaying && !s.FetchedAt.IsZero() && now.After(s.FetchedAt) {
		pos += now.Sub(s.FetchedAt)
	}
	if s.Track != nil && s.Track.Duration > 0 && pos > s.Track.Duration {
		pos = s.Track.Duration
	}
	return pos
}
