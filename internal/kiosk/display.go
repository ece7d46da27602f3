package kiosk

import (
	"sync"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/tail"
)

// EventSink is implemented by displays that also follow playback and lyrics.
type EventSink interface {
	PlaybackEvent(e tail.Event)
	LyricsChanged(s lyrics.Snapshot)
}

// Fanout forwards display effects to every attached display.
type Fanout struct {
	mu       sync.RWMutex
	next     int
	displays map[int]core.Display
}

// NewFanout returns an empty fanout.
func NewFanout() *Fanout {
	return &Fanout{displays: map[int]core.Display{}}
}

// Add attaches d and returns a function that detaches it.
func (f *Fanout) Add(d core.Display) (remove func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.displays[id] = d
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.displays, id)
	}
}

func (f *Fanout) each(fn func(core.Display)) {
	f.mu.RLock()
	ds := make([]core.Display, 0, len(f.displays))
	for _, d := range f.displays {
		ds = append(ds, d)
	}
	f.mu.RUnlock()
	for _, d := range ds {
		fn(d)
	}
}

func (f *Fanout) ShowToast(message string) {
	f.each(func(d core.Display) { d.ShowToast(message) })
}

func (f *Fanout) HideToast() {
	f.each(func(d core.Display) { d.HideToast() })
}

func (f *Fanout) ShowOverlay(b core.ButtonID) {
	f.each(func(d core.Display) { d.ShowOverlay(b) })
}

func (f *Fanout) HideOverlay() {
	f.each(func(d core.Display) { d.HideOverlay() })
}

func (f *Fanout) Navigate(path string) {
	f.each(func(d core.Display) { d.Navigate(path) })
}

func (f *Fanout) ShowError(code, message string) {
	f.each(func(d core.Display) { d.ShowError(code, message) })
}

// PlaybackEvent forwards e to every attached EventSink.
func (f *Fanout) PlaybackEvent(e tail.Event) {
	f.each(func(d core.Display) {
		if s, ok := d.(EventSink); ok {
			s.PlaybackEvent(e)
		}
	})
}

// LyricsChanged forwards s to every attached EventSink.
func (f *Fanout) LyricsChanged(s lyrics.Snapshot) {
	f.each(func(d core.Display) {
		if sink, ok := d.(EventSink); ok {
			sink.LyricsChanged(s)
		}
	})
}
