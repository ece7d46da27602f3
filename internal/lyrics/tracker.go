package lyrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
)

// Status is the lyrics state of the active track.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSynced
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSynced:
		return "synced"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "idle"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the observable lyrics state.
type Snapshot struct {
	TrackID string `json:"track_id"`
	Status  Status `json:"status"`
	Open    bool   `json:"open"`
	Lines   []Line `json:"lines,omitempty"`
	Index   int    `json:"index"`
}

type cached struct {
	lines []Line
}

// Tracker owns the lyrics panel for the active track. Lookups are cached per
// track id for the life of the tracker, except transport failures, which
// leave the track unavailable until it is loaded again.
type Tracker struct {
	fetcher Fetcher
	clock   clock.Clock
	lead    time.Duration
	logger  *zap.Logger

	// OnChange is called after every status or line change.
	OnChange func(Snapshot)

	mu     sync.Mutex
	cache  map[string]cached
	track  *core.Track
	status Status
	lines  []Line
	index  int
	open   bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) TrackerOption {
	return func(t *Tracker) { t.clock = c }
}

// WithLead sets how far ahead of its timestamp a line becomes current.
func WithLead(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.lead = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker backed by fetcher.
func NewTracker(fetcher Fetcher, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		fetcher: fetcher,
		clock:   clock.New(),
		lead:    DefaultLead,
		logger:  zap.NewNop(),
		cache:   map[string]cached{},
		index:   -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := Snapshot{Status: t.status, Open: t.open, Lines: t.lines, Index: t.index}
	if t.track != nil {
		s.TrackID = t.track.ID
	}
	return s
}

func (t *Tracker) notify(s Snapshot) {
	if t.OnChange != nil {
		t.OnChange(s)
	}
}

// SetTrack reports the active track. A different track id resets the state
// to idle and, if the panel is open, loads the new lyrics. A nil track closes
// the panel.
func (t *Tracker) SetTrack(ctx context.Context, track *core.Track) {
	t.mu.Lock()
	if track == nil {
		changed := t.track != nil || t.open
		t.track = nil
		t.open = false
		t.reset()
		s := t.snapshotLocked()
		t.mu.Unlock()
		if changed {
			t.notify(s)
		}
		return
	}
	if t.track != nil && t.track.ID == track.ID {
		t.track = track
		t.mu.Unlock()
		return
	}
	t.track = track
	t.reset()
	var pending *core.Track
	if t.open {
		pending = t.beginLoadLocked()
	}
	s := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(s)
	if pending != nil {
		t.finishLoad(ctx, pending)
	}
}

func (t *Tracker) reset() {
	t.status = StatusIdle
	t.lines = nil
	t.index = -1
}

// Toggle opens or closes the panel and returns whether it is now open.
// Opening loads the lyrics of the active track if they are not known yet.
func (t *Tracker) Toggle(ctx context.Context) bool {
	t.mu.Lock()
	open := !t.open
	t.mu.Unlock()
	if open {
		t.Open(ctx)
	} else {
		t.Close()
	}
	return open
}

// Open shows the panel, loading lyrics for the active track when it is idle
// or was left unavailable by a transport failure.
func (t *Tracker) Open(ctx context.Context) {
	t.mu.Lock()
	t.open = true
	needLoad := t.track != nil && t.status != StatusLoading && t.status != StatusSynced
	if needLoad && t.status == StatusUnavailable {
		_, known := t.cache[t.track.ID]
		needLoad = !known
	}
	var pending *core.Track
	if needLoad {
		pending = t.beginLoadLocked()
	}
	s := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(s)
	if pending != nil {
		t.finishLoad(ctx, pending)
	}
}

// Close hides the panel.
func (t *Tracker) Close() {
	t.mu.Lock()
	if !t.open {
		t.mu.Unlock()
		return
	}
	t.open = false
	s := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(s)
}

// beginLoadLocked serves the active track from the cache, or marks it
// loading and returns it for finishLoad. Marking happens under the same lock
// as the decision, so concurrent openers fetch at most once.
func (t *Tracker) beginLoadLocked() *core.Track {
	if t.track == nil {
		return nil
	}
	if c, ok := t.cache[t.track.ID]; ok {
		t.applyLocked(c.lines)
		return nil
	}
	t.status = StatusLoading
	return t.track
}

// finishLoad fetches lyrics for track and applies them if it is still the
// active track. It blocks until the lookup ends.
func (t *Tracker) finishLoad(ctx context.Context, track *core.Track) {
	lines, cacheable := t.fetch(ctx, track)

	t.mu.Lock()
	if cacheable {
		t.cache[track.ID] = cached{lines: lines}
	}
	if t.track == nil || t.track.ID != track.ID {
		// The track changed while the lookup was in flight.
		t.mu.Unlock()
		return
	}
	t.applyLocked(lines)
	s := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(s)
}

func (t *Tracker) applyLocked(lines []Line) {
	t.lines = lines
	t.index = -1
	if len(lines) > 0 {
		t.status = StatusSynced
	} else {
		t.status = StatusUnavailable
	}
}

// fetch returns the parsed lines of track and whether the outcome may be
// cached.
func (t *Tracker) fetch(ctx context.Context, track *core.Track) ([]Line, bool) {
	artist := track.Artist
	if len(track.Artists) > 0 {
		artist = track.Artists[0]
	}
	rec, err := t.fetcher.Fetch(ctx, artist, track.Title)
	switch {
	case errors.Is(err, nerrors.ErrLyricsNotFound):
		t.logger.Debug("no lyrics", zap.String("track", track.ID))
		return nil, true
	case errors.Is(err, ErrMalformed):
		t.logger.Warn("malformed lyrics", zap.String("track", track.ID), zap.Error(err))
		return nil, true
	case err != nil:
		t.logger.Warn("lyrics lookup failed", zap.String("track", track.ID), zap.Error(err))
		return nil, false
	}
	if rec.SyncedLyrics == "" {
		return nil, true
	}
	return ParseLRC(rec.SyncedLyrics, t.lead), true
}

// Tick maps the playback position in state to the current line. It reports
// the new index and true when the index changed while the panel is open.
func (t *Tracker) Tick(state *core.PlaybackState) (int, bool) {
	t.mu.Lock()
	if !t.open || t.status != StatusSynced || t.track == nil || state.TrackID() != t.track.ID {
		idx := t.index
		t.mu.Unlock()
		return idx, false
	}
	idx := IndexAt(t.lines, state.PositionAt(t.clock.Now()))
	if idx == t.index {
		t.mu.Unlock()
		return idx, false
	}
	t.index = idx
	s := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(s)
	return idx, true
}

// Follow calls Tick every interval with the state returned by current until
// ctx ends.
func (t *Tracker) Follow(ctx context.Context, interval time.Duration, current func() *core.PlaybackState) {
	ticker := t.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s := current(); s != nil {
				t.Tick(s)
			}
		}
	}
}
