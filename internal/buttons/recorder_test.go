package buttons

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/store"
)

type recordingDisplay struct {
	mu     sync.Mutex
	events []string
}

func (d *recordingDisplay) add(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *recordingDisplay) ShowToast(msg string) { d.add("toast %s", msg) }
func (d *recordingDisplay) HideToast() { d.add("hide-toast") }
func (d *recordingDisplay) ShowOverlay(b core.ButtonID) { d.add("overlay %d", b) }
func (d *recordingDisplay) HideOverlay() { d.add("hide-overlay") }
func (d *recordingDisplay) Navigate(path string) { d.add("navigate %s", path) }
func (d *recordingDisplay) ShowError(code, msg string) { d.add("error %s %s", code, msg) }

func (d *recordingDisplay) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

type fakeActivator struct {
	err   error
	block chan struct{}
	calls chan core.ButtonMapping
}

func newFakeActivator() *fakeActivator {
	return &fakeActivator{calls: make(chan core.ButtonMapping, 8)}
}

func (a *fakeActivator) Activate(ctx context.Context, m core.ButtonMapping) error {
	a.calls <- m
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return a.err
}

type fixture struct {
	clock    *clock.Fake
	settings *store.Settings
	display  *recordingDisplay
	act      *fakeActivator
	rec      *Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewFake(time.Unix(1700000000, 0)),
		settings: store.NewSettings(store.NewMemory()),
		display:  &recordingDisplay{},
		act:      newFakeActivator(),
	}
	f.rec = NewRecorder(f.settings, f.act, f.display, WithClock(f.clock))
	t.Cleanup(f.rec.Close)
	return f
}

func (f *fixture) waitCall(t *testing.T) core.ButtonMapping {
	t.Helper()
	select {
	case m := <-f.act.calls:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("activator was not called")
		return core.ButtonMapping{}
	}
}

func (f *fixture) noCall(t *testing.T) {
	t.Helper()
	select {
	case m := <-f.act.calls:
		t.Fatalf("unexpected activation %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFor(t *testing.T, d *recordingDisplay, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range d.Events() {
			if e == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event %q not seen; got %v", want, d.Events())
}

func TestHoldMapsPlaylist(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetPageImage(core.PagePlaylist, "cover.jpg")

	if err := f.rec.KeyDown("2", "/playlist/abc", false); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(1999 * time.Millisecond)
	if _, ok := f.settings.Mapping(2); ok {
		t.Fatal("mapped before hold delay")
	}
	f.clock.Advance(time.Millisecond)

	m, ok := f.settings.Mapping(2)
	if !ok || m.Route != "/playlist/abc" || m.ImageURL != "cover.jpg" {
		t.Fatalf("Mapping(2) = %+v, %v", m, ok)
	}
	waitFor(t, f.display, "toast Playlist mapped to Button 2")

	// Releasing after the hold does nothing more.
	_ = f.rec.KeyUp("2")
	f.noCall(t)

	f.clock.Advance(2 * time.Second)
	waitFor(t, f.display, "hide-toast")
}

func TestHoldOnLikedSongsStoresSentinel(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 3, Route: "/playlist/old", ImageURL: "old.jpg"})

	_ = f.rec.KeyDown("3", "/collection/tracks", false)
	f.clock.Advance(2 * time.Second)

	m, _ := f.settings.Mapping(3)
	if m.Route != core.LikedSongsRoute {
		t.Errorf("Route = %q, want %q", m.Route, core.LikedSongsRoute)
	}
	if m.ImageURL != "old.jpg" {
		t.Errorf("ImageURL = %q, want previous image kept", m.ImageURL)
	}
	waitFor(t, f.display, "toast Liked Songs mapped to Button 3")
}

func TestHoldOnMixPage(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetPageImage(core.PageMix, "mix.jpg")

	_ = f.rec.KeyDown("1", "/mix/37i9", false)
	f.clock.Advance(2 * time.Second)

	m, _ := f.settings.Mapping(1)
	if m.Route != "/mix/37i9" || m.ImageURL != "mix.jpg" {
		t.Errorf("mapping = %+v", m)
	}
	waitFor(t, f.display, "toast Mix mapped to Button 1")
}

func TestHoldOnHomeDoesNothing(t *testing.T) {
	f := newFixture(t)
	_ = f.rec.KeyDown("1", "/", false)
	f.clock.Advance(3 * time.Second)
	_ = f.rec.KeyUp("1")

	if f.settings.AnyMapping() {
		t.Error("hold on home page created a mapping")
	}
	f.noCall(t)
}

func TestRepeatKeyDownIgnored(t *testing.T) {
	f := newFixture(t)
	_ = f.rec.KeyDown("1", "/playlist/a", false)
	f.clock.Advance(1500 * time.Millisecond)
	_ = f.rec.KeyDown("1", "/playlist/a", true)
	f.clock.Advance(500 * time.Millisecond)

	if _, ok := f.settings.Mapping(1); !ok {
		t.Error("repeat key-down reset the hold timer")
	}
}

func TestFreshKeyDownResetsTimer(t *testing.T) {
	f := newFixture(t)
	_ = f.rec.KeyDown("1", "/playlist/a", false)
	f.clock.Advance(1500 * time.Millisecond)
	_ = f.rec.KeyDown("1", "/playlist/a", false)
	f.clock.Advance(1000 * time.Millisecond)

	if _, ok := f.settings.Mapping(1); ok {
		t.Error("mapping written before the restarted hold elapsed")
	}
	if f.clock.Pending() != 1 {
		t.Errorf("Pending() = %d, want one timer per key", f.clock.Pending())
	}
	f.clock.Advance(1000 * time.Millisecond)
	if _, ok := f.settings.Mapping(1); !ok {
		t.Error("restarted hold did not map")
	}
}

func TestShortPressActivates(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 1, Route: "/playlist/abc"})

	_ = f.rec.KeyDown("1", "/", false)
	f.clock.Advance(300 * time.Millisecond)
	_ = f.rec.KeyUp("1")

	m := f.waitCall(t)
	if m.Route != "/playlist/abc" {
		t.Errorf("activated %+v", m)
	}
	waitFor(t, f.display, "overlay 1")
	waitFor(t, f.display, "hide-overlay")
	waitFor(t, f.display, "navigate /now-playing")

	f.clock.Advance(2 * time.Second)
	if _, ok := f.settings.Mapping(1); !ok {
		t.Error("mapping lost")
	}
}

func TestShortPressOnPlaylistPageDoesNotActivate(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 1, Route: "/playlist/abc"})

	for _, path := range []string{"/playlist/xyz", "/collection/tracks"} {
		_ = f.rec.KeyDown("1", path, false)
		_ = f.rec.KeyUp("1")
	}
	f.noCall(t)
	if len(f.display.Events()) != 0 {
		t.Errorf("events = %v", f.display.Events())
	}
}

func TestShortPressOnMixPageActivates(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 4, Route: core.LikedSongsRoute})

	_ = f.rec.KeyDown("4", "/mix/abc", false)
	_ = f.rec.KeyUp("4")
	if m := f.waitCall(t); m.Route != core.LikedSongsRoute {
		t.Errorf("activated %+v", m)
	}
}

func TestActivationIgnoredWithoutAnyMapping(t *testing.T) {
	f := newFixture(t)
	_ = f.rec.KeyDown("1", "/", false)
	_ = f.rec.KeyUp("1")

	f.noCall(t)
	if len(f.display.Events()) != 0 {
		t.Errorf("events = %v, want none", f.display.Events())
	}
}

func TestUnmappedButtonShowsOverlayOnly(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 1, Route: "/playlist/abc"})

	_ = f.rec.KeyDown("2", "/", false)
	_ = f.rec.KeyUp("2")
	waitFor(t, f.display, "overlay 2")
	f.noCall(t)

	f.clock.Advance(2 * time.Second)
	waitFor(t, f.display, "hide-overlay")
}

func TestSupersedingPressReplacesOverlayTimer(t *testing.T) {
	f := newFixture(t)
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 1, Route: "/playlist/a"})

	_ = f.rec.KeyDown("2", "/", false)
	_ = f.rec.KeyUp("2")
	f.clock.Advance(1500 * time.Millisecond)
	_ = f.rec.KeyDown("3", "/", false)
	_ = f.rec.KeyUp("3")
	f.clock.Advance(1000 * time.Millisecond)

	for _, e := range f.display.Events() {
		if e == "hide-overlay" {
			t.Fatal("first overlay timer was not replaced")
		}
	}
	f.clock.Advance(1000 * time.Millisecond)
	waitFor(t, f.display, "hide-overlay")
}

func TestActivationFailureReportsCode(t *testing.T) {
	f := newFixture(t)
	f.act.err = nerrors.WithCode(nerrors.CodePlayRequest, errors.New("start-playback: Spotify API error 404: Device not found"))
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 1, Route: "/playlist/a"})

	_ = f.rec.KeyDown("1", "/", false)
	_ = f.rec.KeyUp("1")
	f.waitCall(t)

	waitFor(t, f.display, "error PLAY_REQUEST_ERROR start-playback: Spotify API error 404: Device not found")
	for _, e := range f.display.Events() {
		if e == "navigate /now-playing" {
			t.Error("navigated after failure")
		}
	}
}

func TestInvalidKey(t *testing.T) {
	f := newFixture(t)
	if err := f.rec.KeyDown("9", "/", false); !errors.Is(err, nerrors.ErrInvalidButton) {
		t.Errorf("KeyDown(9) = %v", err)
	}
	if err := f.rec.KeyUp("x"); !errors.Is(err, nerrors.ErrInvalidButton) {
		t.Errorf("KeyUp(x) = %v", err)
	}
}

func TestCloseCancelsTimersAndDispatch(t *testing.T) {
	f := newFixture(t)
	f.act.block = make(chan struct{})
	_ = f.settings.SetMapping(core.ButtonMapping{Button: 1, Route: "/playlist/a"})

	_ = f.rec.KeyDown("1", "/", false)
	_ = f.rec.KeyUp("1")
	f.waitCall(t)
	_ = f.rec.KeyDown("2", "/playlist/b", false)

	f.rec.Close()

	if f.clock.Pending() != 0 {
		t.Errorf("Pending() = %d after Close", f.clock.Pending())
	}
	f.clock.Advance(5 * time.Second)
	if _, ok := f.settings.Mapping(2); ok {
		t.Error("hold completed after Close")
	}
	for _, e := range f.display.Events() {
		if e == "navigate /now-playing" || e == "hide-overlay" {
			t.Errorf("event %q after Close", e)
		}
	}
	if len(f.rec.Pending()) != 0 {
		t.Error("presses survived Close")
	}
}
