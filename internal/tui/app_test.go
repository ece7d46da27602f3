package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/nocturne/internal/buttons"
	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/kiosk"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/scene"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/spotify/player"
	"github.com/tessro/nocturne/internal/spotify/spotifytest"
	"github.com/tessro/nocturne/internal/store"
	"github.com/tessro/nocturne/internal/tail"
)

func newTestModel(t *testing.T) (Model, *kiosk.Session) {
	t.Helper()
	api := spotifytest.New(t)
	api.Devices = []client.Device{{ID: "car", Name: "Car", IsActive: true}}
	api.AddPlaylist("p1", "Road Trip", "kiosk-user", 40)

	c := api.Client(t)
	clk := clock.NewFake(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	settings := store.NewSettings(store.NewMemory())
	d := scene.New(c, settings, scene.WithClock(clk))
	pl := player.New(c)

	session := kiosk.New(kiosk.Components{
		Settings:   settings,
		Dispatcher: d,
		Library:    library.New(c, nil),
		Watcher:    tail.NewWatcher(pl, time.Second),
		Player:     pl,
	}, kiosk.Options{RecorderOptions: []buttons.Option{buttons.WithClock(clk)}})
	t.Cleanup(func() { _ = session.Close() })

	m := NewModel(session, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), session
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPageFor(t *testing.T) {
	tests := []struct {
		path string
		want page
	}{
		{"/", pageHome},
		{"", pageHome},
		{"/playlist/p1", pagePlaylist},
		{"/mix/m1", pageMix},
		{"/collection/tracks", pageLikedSongs},
		{core.NowPlayingRoute, pageNowPlaying},
		{"/album/a1", pageHome},
	}
	for _, tt := range tests {
		if got := pageFor(tt.path); got != tt.want {
			t.Errorf("pageFor(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDisplayEffectsRender(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, toastMsg("Playlist mapped to Button 1"))
	if !strings.Contains(m.View(), "Playlist mapped to Button 1") {
		t.Error("toast not rendered")
	}
	m, _ = update(t, m, hideToastMsg{})
	if strings.Contains(m.View(), "Playlist mapped") {
		t.Error("toast still rendered after hide")
	}

	m, _ = update(t, m, overlayMsg(3))
	if !strings.Contains(m.View(), "Button 3") {
		t.Error("overlay not rendered")
	}
	m, _ = update(t, m, hideOverlayMsg{})
	if m.overlay != 0 {
		t.Errorf("overlay = %d", m.overlay)
	}

	m, _ = update(t, m, kioskErrorMsg{"PLAY_REQUEST_ERROR", "no playback device"})
	if !strings.Contains(m.View(), "no playback device") {
		t.Error("error not rendered")
	}
}

func TestErrorExpires(t *testing.T) {
	m, _ := newTestModel(t)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m, _ = update(t, m, kioskErrorMsg{"FETCH_MIX_ERROR", "Mix not found"})
	now = now.Add(errorTTL + time.Second)
	m, _ = update(t, m, tickMsg(now))
	if m.errText != "" {
		t.Errorf("errText = %q after expiry", m.errText)
	}
}

func TestPresetRepeatIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m, cmd := update(t, m, key("1"))
	if cmd == nil {
		t.Fatal("first press produced no command")
	}
	now = now.Add(50 * time.Millisecond)
	if _, cmd = update(t, m, key("1")); cmd != nil {
		t.Error("auto-repeat press produced a command")
	}
}

func TestReleaseCheckReschedules(t *testing.T) {
	m, _ := newTestModel(t)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, gen := m.keys.press("2", now)
	now = now.Add(100 * time.Millisecond)
	if _, cmd := update(t, m, releaseCheckMsg{key: "2", gen: gen}); cmd == nil {
		t.Error("held key not rescheduled")
	}

	now = now.Add(DefaultRelease)
	_, cmd := update(t, m, releaseCheckMsg{key: "2", gen: gen})
	if cmd == nil {
		t.Fatal("released key produced no key-up")
	}
	if msg, ok := cmd().(actionMsg); !ok || msg.err != nil {
		t.Errorf("key-up result = %#v", msg)
	}
}

func TestSettingsToggle(t *testing.T) {
	m, session := newTestModel(t)
	session.SetSection(library.SectionSettings)

	if !strings.Contains(m.View(), "Lyrics menu") {
		t.Error("settings rows not rendered")
	}

	m.list.Down(len(m.rows()))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter produced no command")
	}
	if msg := cmd().(actionMsg); msg.err != nil {
		t.Fatal(msg.err)
	}
	if got := session.Settings().Repeat(); got != core.RepeatContext {
		t.Errorf("repeat = %q, want context", got)
	}
}

func TestCycleSection(t *testing.T) {
	m, session := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if session.Section() != library.SectionLibrary {
		t.Errorf("section = %q", session.Section())
	}
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if session.Section() != library.SectionSettings {
		t.Errorf("section = %q", session.Section())
	}
}

func TestPlaybackAndLyricsMessages(t *testing.T) {
	m, session := newTestModel(t)
	session.SetPath(core.NowPlayingRoute)

	state := &core.PlaybackState{
		Track:     &core.Track{ID: "t1", Title: "Nightcall", Artist: "Kavinsky", Duration: 4 * time.Minute},
		IsPlaying: true,
	}
	m, _ = update(t, m, playbackMsg(tail.Event{Type: tail.EventTrackChange, Current: state}))
	if !strings.Contains(m.View(), "Nightcall") {
		t.Error("track not rendered")
	}

	m, _ = update(t, m, lyricsMsg{
		TrackID: "t1",
		Open:    true,
		Status:  lyrics.StatusSynced,
		Lines:   []lyrics.Line{{Time: 0, Text: "I'm giving you a nightcall"}},
	})
	if !strings.Contains(m.View(), "nightcall") {
		t.Error("lyrics not rendered")
	}

	m, _ = update(t, m, playbackMsg(tail.Event{Type: tail.EventStopped}))
	if m.state != nil {
		t.Error("state kept after stop")
	}
}

func TestEscapeRunsOffLoop(t *testing.T) {
	m, session := newTestModel(t)
	session.SetPath("/playlist/p1")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc produced no command")
	}
	cmd()
	if session.Path() != "/" {
		t.Errorf("path = %q", session.Path())
	}
}
