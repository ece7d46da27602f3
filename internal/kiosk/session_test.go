package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tessro/nocturne/internal/buttons"
	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/scene"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/spotify/player"
	"github.com/tessro/nocturne/internal/spotify/spotifytest"
	"github.com/tessro/nocturne/internal/store"
	"github.com/tessro/nocturne/internal/tail"
)

type recordingDisplay struct {
	mu       sync.Mutex
	effects  []string
	navigate chan string
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{navigate: make(chan string, 8)}
}

func (d *recordingDisplay) add(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effects = append(d.effects, fmt.Sprintf(format, args...))
}

func (d *recordingDisplay) Effects() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.effects...)
}

func (d *recordingDisplay) ShowToast(message string)    { d.add("toast %s", message) }
func (d *recordingDisplay) HideToast()                  { d.add("hide-toast") }
func (d *recordingDisplay) ShowOverlay(b core.ButtonID) { d.add("overlay %d", b) }
func (d *recordingDisplay) HideOverlay()                { d.add("hide-overlay") }
func (d *recordingDisplay) ShowError(code, msg string)  { d.add("error %s %s", code, msg) }
func (d *recordingDisplay) Navigate(path string) {
	d.add("navigate %s", path)
	d.navigate <- path
}

func (d *recordingDisplay) has(effect string) bool {
	for _, e := range d.Effects() {
		if e == effect {
			return true
		}
	}
	return false
}

type fixture struct {
	api      *spotifytest.Server
	clock    *clock.Fake
	settings *store.Settings
	session  *Session
	display  *recordingDisplay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := spotifytest.New(t)
	api.Devices = []client.Device{{ID: "car", Name: "Car", IsActive: true}}
	api.Playback = &client.PlaybackState{Device: api.Devices[0], RepeatState: "off", ShuffleState: true}
	api.AddPlaylist("p1", "Road Trip", "kiosk-user", 40)
	api.AddPlaylist("m1", "Daily Mix 1", "spotify", 30)

	c := api.Client(t)
	clk := clock.NewFake(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	settings := store.NewSettings(store.NewMemory())

	d := scene.New(c, settings, scene.WithClock(clk))
	d.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	pl := player.New(c)
	s := New(Components{
		Settings:   settings,
		Dispatcher: d,
		Library:    library.New(c, nil),
		Watcher:    tail.NewWatcher(pl, time.Second),
		Player:     pl,
	}, Options{
		Viewport:        Viewport{Width: 800, Height: 480},
		RecorderOptions: []buttons.Option{buttons.WithClock(clk)},
	})
	t.Cleanup(func() { _ = s.Close() })

	disp := newRecordingDisplay()
	s.Attach(disp)
	return &fixture{api: api, clock: clk, settings: settings, session: s, display: disp}
}

func waitNavigate(t *testing.T, d *recordingDisplay) string {
	t.Helper()
	select {
	case p := <-d.navigate:
		return p
	case <-time.After(5 * time.Second):
		t.Fatalf("no navigation; effects = %v", d.Effects())
		return ""
	}
}

func TestEscape(t *testing.T) {
	f := newFixture(t)
	f.session.SetPath("/playlist/p1")
	f.session.SetSection(library.SectionArtists)

	f.session.SetDrawer(true)
	f.session.Escape()
	if f.session.DrawerOpen() || f.session.Path() != "/playlist/p1" {
		t.Errorf("drawer = %v path = %q", f.session.DrawerOpen(), f.session.Path())
	}

	f.session.Escape()
	if got := waitNavigate(t, f.display); got != "/" {
		t.Errorf("navigate = %q", got)
	}
	if f.session.Path() != "/" || f.session.Section() != library.SectionRecents {
		t.Errorf("path = %q section = %q", f.session.Path(), f.session.Section())
	}
}

func TestResolutionGate(t *testing.T) {
	f := newFixture(t)

	if err := f.session.SetViewport(Viewport{Width: 1024, Height: 600}); !errors.Is(err, nerrors.ErrInvalidResolution) {
		t.Fatalf("SetViewport() = %v", err)
	}
	if err := f.session.KeyDown("1", false); !errors.Is(err, nerrors.ErrInvalidResolution) {
		t.Errorf("KeyDown() = %v, want blocked", err)
	}

	if err := f.session.SetViewport(Viewport{Width: 800, Height: 480}); err != nil {
		t.Fatalf("SetViewport(800x480) = %v", err)
	}
	if err := f.session.KeyDown("1", false); err != nil {
		t.Errorf("KeyDown() = %v", err)
	}
}

func TestOpenPlaylistTracksCoverAndShuffle(t *testing.T) {
	f := newFixture(t)

	p, pager, err := f.session.OpenPlaylist(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Road Trip" || len(pager.Items()) != library.PageSize {
		t.Errorf("playlist = %q items = %d", p.Name, len(pager.Items()))
	}
	if f.session.Path() != "/playlist/p1" {
		t.Errorf("path = %q", f.session.Path())
	}
	if got := f.settings.PageImage(core.PagePlaylist); got != "https://img.example/p1" {
		t.Errorf("playlist page image = %q", got)
	}
	if !f.settings.Shuffle() {
		t.Error("shuffle not synced from player")
	}
}

func TestMapThenActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.session.OpenPlaylist(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := f.session.KeyDown("1", false); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(2 * time.Second)
	if err := f.session.KeyUp("1"); err != nil {
		t.Fatal(err)
	}

	m, ok := f.settings.Mapping(1)
	if !ok || m.Route != "/playlist/p1" || m.ImageURL != "https://img.example/p1" {
		t.Fatalf("mapping = %+v, %v", m, ok)
	}
	if !f.display.has("toast Playlist mapped to Button 1") {
		t.Errorf("effects = %v", f.display.Effects())
	}

	f.session.SetPath("/")
	_ = f.session.KeyDown("1", false)
	_ = f.session.KeyUp("1")

	if got := waitNavigate(t, f.display); got != core.NowPlayingRoute {
		t.Errorf("navigate = %q", got)
	}
	if !f.display.has("overlay 1") || !f.display.has("hide-overlay") {
		t.Errorf("effects = %v", f.display.Effects())
	}
	if f.session.Path() != core.NowPlayingRoute {
		t.Errorf("path = %q", f.session.Path())
	}
}

func TestOpenMixNotFound(t *testing.T) {
	f := newFixture(t)
	f.session.Library().Load(context.Background())

	if _, err := f.session.OpenMix(context.Background(), "nope"); err == nil {
		t.Fatal("OpenMix() error = nil")
	}
	if !f.display.has("error FETCH_MIX_ERROR Mix not found: mix not found") {
		t.Errorf("effects = %v", f.display.Effects())
	}
}

func TestPlayMix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.Library().Load(ctx)

	mix, err := f.session.OpenMix(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mix.URIs) != 30 || f.settings.PageImage(core.PageMix) != "https://img.example/m1" {
		t.Fatalf("mix = %+v", mix)
	}

	if err := f.session.PlayMix(ctx, mix, nil); err != nil {
		t.Fatal(err)
	}
	if got := waitNavigate(t, f.display); got != core.NowPlayingRoute {
		t.Errorf("navigate = %q", got)
	}
	if uri, ok := f.settings.PlayingMix("m1"); !ok || uri != "spotify:playlist:temp1" {
		t.Errorf("playingMix = %q, %v", uri, ok)
	}

	f.clock.Advance(200 * time.Millisecond)
	f.session.dispatcher.Wait()
	f.api.Lock()
	_, exists := f.api.Playlists["temp1"]
	f.api.Unlock()
	if exists {
		t.Error("temp playlist not removed")
	}
}

func TestToggleLyricsDisabled(t *testing.T) {
	f := newFixture(t)
	if err := f.settings.SetLyricsMenuEnabled(false); err != nil {
		t.Fatal(err)
	}
	if f.session.ToggleLyrics(context.Background()) {
		t.Error("ToggleLyrics() opened a disabled menu")
	}
}

func TestTransport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.session.Transport(ctx, "play"); err != nil {
		t.Fatal(err)
	}
	if err := f.session.Transport(ctx, "rewind"); err == nil {
		t.Error("unknown action accepted")
	}
	f.api.Lock()
	playing := f.api.Playback.IsPlaying
	f.api.Unlock()
	if !playing {
		t.Error("play did not reach the API")
	}
}
