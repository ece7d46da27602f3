// Package tail follows the kiosk's playback and turns state polls into
// discrete events for the session, the websocket hub and `nocturne tail`.
package tail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventPause
	EventResume
	EventDeviceChange
	EventShuffleChange
	EventRepeatChange
	EventLyric
	EventStopped
)

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.PlaybackState
	Current   *core.PlaybackState
	// Lyric is the current line for EventLyric.
	Lyric string
}

// StateSource reports the current playback state.
type StateSource interface {
	GetState(ctx context.Context) (*core.PlaybackState, error)
}

// Watcher polls a state source and emits events for the differences
// between consecutive polls.
type Watcher struct {
	source   StateSource
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	events   chan Event

	mu     sync.RWMutex
	prev   *core.PlaybackState
	polled bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock replaces the system clock used for event timestamps.
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher polling every interval.
func NewWatcher(source StateSource, interval time.Duration, opts ...Option) *Watcher {
	if interval == 0 {
		interval = time.Second
	}
	w := &Watcher{
		source:   source,
		interval: interval,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		events:   make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the channel Run delivers events on. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Latest returns the state of the last successful poll.
func (w *Watcher) Latest() *core.PlaybackState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.prev
}

// Observe records a state obtained elsewhere, such as the refresh after a
// scene starts, and returns the events it implies.
func (w *Watcher) Observe(curr *core.PlaybackState) []Event {
	if curr == nil {
		return nil
	}
	w.mu.Lock()
	prev, first := w.prev, !w.polled
	w.prev = curr
	w.polled = true
	w.mu.Unlock()

	if first {
		prev = nil
	}
	return diffStates(prev, curr, w.clock.Now())
}

// Poll fetches the state once and returns the resulting events.
func (w *Watcher) Poll(ctx context.Context) ([]Event, error) {
	curr, err := w.source.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return w.Observe(curr), nil
}

// Run polls until ctx ends. Events that do not fit the buffer are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()
	defer close(w.events)

	w.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.emit(ctx)
		}
	}
}

func (w *Watcher) emit(ctx context.Context) {
	events, err := w.Poll(ctx)
	if err != nil {
		w.logger.Debug("state poll failed", zap.Error(err))
		return
	}
	for _, e := range events {
		select {
		case w.events <- e:
		default:
			w.logger.Debug("event dropped", zap.String("type", eventTypeName(e.Type)))
		}
	}
}

// diffStates compares two states and returns detected events.
func diffStates(prev, curr *core.PlaybackState, now time.Time) []Event {
	if curr == nil {
		return nil
	}

	if prev == nil {
		if curr.HasTrack() {
			return []Event{{Type: EventTrackChange, Timestamp: now, Current: curr}}
		}
		return nil
	}

	var events []Event
	add := func(t EventType) {
		events = append(events, Event{Type: t, Timestamp: now, Previous: prev, Current: curr})
	}

	if trackChanged(prev, curr) {
		if curr.HasTrack() {
			add(EventTrackChange)
		} else {
			add(EventStopped)
		}
	}

	if prev.IsPlaying && !curr.IsPlaying && curr.HasTrack() {
		add(EventPause)
	} else if !prev.IsPlaying && curr.IsPlaying {
		add(EventResume)
	}

	if deviceChanged(prev, curr) {
		add(EventDeviceChange)
	}
	if prev.Shuffle != curr.Shuffle {
		add(EventShuffleChange)
	}
	if prev.Repeat != curr.Repeat {
		add(EventRepeatChange)
	}

	return events
}

func trackChanged(prev, curr *core.PlaybackState) bool {
	return prev.TrackID() != curr.TrackID()
}

func deviceChanged(prev, curr *core.PlaybackState) bool {
	if prev.Device == nil && curr.Device == nil {
		return false
	}
	if prev.Device == nil || curr.Device == nil {
		return true
	}
	return prev.Device.ID != curr.Device.ID
}
