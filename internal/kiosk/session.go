// Package kiosk ties the kiosk's parts into one session: the button
// recorder, scene dispatch, lyrics, library pages and navigation state that
// the browser bridge and the terminal console both drive.
package kiosk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/buttons"
	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/scene"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/store"
	"github.com/tessro/nocturne/internal/tail"
)

// Viewport is the size the front-end reports for its screen.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Components are the parts a session coordinates.
type Components struct {
	Settings   *store.Settings
	Dispatcher *scene.Dispatcher
	Library    *library.Library
	Lyrics     *lyrics.Tracker
	Watcher    *tail.Watcher
	Player     core.Player
}

// Options are the session's fixed settings.
type Options struct {
	Viewport   Viewport
	Buttons    buttons.Timing
	LyricsPoll time.Duration
	Logger     *zap.Logger
	// RecorderOptions are passed to the button recorder.
	RecorderOptions []buttons.Option
}

// Session is the controller of one kiosk screen.
type Session struct {
	settings   *store.Settings
	dispatcher *scene.Dispatcher
	library    *library.Library
	lyrics     *lyrics.Tracker
	watcher    *tail.Watcher
	player     core.Player
	recorder   *buttons.Recorder
	displays   *Fanout
	logger     *zap.Logger
	want       Viewport
	lyricsPoll time.Duration

	mu       sync.RWMutex
	path     string
	drawer   bool
	section  library.Section
	viewport *Viewport
}

// New creates a session.
func New(c Components, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Buttons == (buttons.Timing{}) {
		opts.Buttons = buttons.DefaultTiming
	}
	if opts.LyricsPoll == 0 {
		opts.LyricsPoll = 100 * time.Millisecond
	}
	s := &Session{
		settings:   c.Settings,
		dispatcher: c.Dispatcher,
		library:    c.Library,
		lyrics:     c.Lyrics,
		watcher:    c.Watcher,
		player:     c.Player,
		displays:   NewFanout(),
		logger:     opts.Logger.Named("kiosk"),
		want:       opts.Viewport,
		lyricsPoll: opts.LyricsPoll,
		path:       "/",
		section:    library.SectionRecents,
	}

	recOpts := append([]buttons.Option{
		buttons.WithTiming(opts.Buttons),
		buttons.WithLogger(opts.Logger),
	}, opts.RecorderOptions...)
	s.recorder = buttons.NewRecorder(c.Settings, c.Dispatcher, s, recOpts...)

	if c.Lyrics != nil {
		c.Lyrics.OnChange = s.displays.LyricsChanged
	}
	if c.Dispatcher != nil && c.Watcher != nil {
		c.Dispatcher.OnState = func(state *core.PlaybackState) {
			s.handle(context.Background(), c.Watcher.Observe(state))
		}
	}
	return s
}

// Attach adds a display that receives every effect and event.
func (s *Session) Attach(d core.Display) (detach func()) {
	return s.displays.Add(d)
}

// Settings returns the session's settings.
func (s *Session) Settings() *store.Settings { return s.settings }

// Library returns the session's library.
func (s *Session) Library() *library.Library { return s.library }

// Lyrics returns the session's lyrics tracker.
func (s *Session) Lyrics() *lyrics.Tracker { return s.lyrics }

// Recorder returns the session's button recorder.
func (s *Session) Recorder() *buttons.Recorder { return s.recorder }

// Dispatcher returns the scene dispatcher.
func (s *Session) Dispatcher() *scene.Dispatcher { return s.dispatcher }

// State returns the last observed playback state.
func (s *Session) State() *core.PlaybackState {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Latest()
}

// Run follows playback and lyrics until ctx ends.
func (s *Session) Run(ctx context.Context) error {
	if s.watcher == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	var wg sync.WaitGroup
	if s.lyrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.lyrics.Follow(ctx, s.lyricsPoll, s.watcher.Latest)
		}()
	}

	go func() {
		for e := range s.watcher.Events() {
			s.handle(ctx, []tail.Event{e})
		}
	}()

	err := s.watcher.Run(ctx)
	wg.Wait()
	return err
}

func (s *Session) handle(ctx context.Context, events []tail.Event) {
	for _, e := range events {
		switch e.Type {
		case tail.EventTrackChange, tail.EventStopped:
			if s.lyrics != nil {
				s.lyrics.SetTrack(ctx, e.Current.Track)
			}
		}
		s.displays.PlaybackEvent(e)
	}
}

// Close cancels pending button timers and in-flight scenes, waits for temp
// playlist cleanups, and flushes the settings.
func (s *Session) Close() error {
	s.recorder.Close()
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	return s.settings.Store().Flush(context.Background())
}

// Path returns the route the kiosk is showing.
func (s *Session) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// SetPath records a route the front-end navigated to on its own.
func (s *Session) SetPath(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
}

// Section returns the active home section.
func (s *Session) Section() library.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.section
}

// SetSection activates a home section.
func (s *Session) SetSection(sec library.Section) {
	s.mu.Lock()
	s.section = sec
	s.mu.Unlock()
}

// DrawerOpen reports whether the navigation drawer is open.
func (s *Session) DrawerOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawer
}

// SetDrawer opens or closes the navigation drawer.
func (s *Session) SetDrawer(open bool) {
	s.mu.Lock()
	s.drawer = open
	s.mu.Unlock()
}

// Escape closes the drawer if it is open, otherwise returns home with the
// recents section active.
func (s *Session) Escape() {
	s.mu.Lock()
	if s.drawer {
		s.drawer = false
		s.mu.Unlock()
		return
	}
	s.section = library.SectionRecents
	s.mu.Unlock()
	s.Navigate("/")
}

// SetViewport records the front-end's screen size. Any size other than the
// kiosk's yields ErrInvalidResolution and blocks key handling until a valid
// size is reported.
func (s *Session) SetViewport(v Viewport) error {
	s.mu.Lock()
	s.viewport = &v
	s.mu.Unlock()
	if !s.resolutionOK() {
		return fmt.Errorf("%w: %dx%d, want %dx%d", nerrors.ErrInvalidResolution, v.Width, v.Height, s.want.Width, s.want.Height)
	}
	return nil
}

// resolutionOK reports whether the last reported viewport is allowed. A
// session that never received one, such as the terminal console, is
// allowed.
func (s *Session) resolutionOK() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.viewport == nil || s.want.Width == 0 {
		return true
	}
	return *s.viewport == s.want
}

// KeyDown forwards a preset key press at the current route.
func (s *Session) KeyDown(key string, repeat bool) error {
	if !s.resolutionOK() {
		return nerrors.ErrInvalidResolution
	}
	return s.recorder.KeyDown(key, s.Path(), repeat)
}

// KeyUp forwards a preset key release.
func (s *Session) KeyUp(key string) error {
	if !s.resolutionOK() {
		return nerrors.ErrInvalidResolution
	}
	return s.recorder.KeyUp(key)
}

// SyncShuffle stores the player's current shuffle state as the kiosk's
// shuffle preference.
func (s *Session) SyncShuffle(ctx context.Context) error {
	if s.player == nil {
		return nil
	}
	state, err := s.player.GetState(ctx)
	if err != nil {
		return err
	}
	if err := s.settings.SetShuffle(state.Shuffle); err != nil {
		return err
	}
	return s.settings.Store().Flush(ctx)
}

// OpenPlaylist shows a playlist page: it loads the first page of tracks,
// remembers the cover for button mapping and syncs shuffle.
func (s *Session) OpenPlaylist(ctx context.Context, id string) (*client.Playlist, *library.TrackPager, error) {
	p, pager, err := s.library.Playlist(ctx, id)
	if err != nil {
		s.ShowError(string(nerrors.CodeOf(err)), nerrors.Message(err))
		return nil, nil, err
	}
	s.SetPath("/playlist/" + id)
	s.pageOpened(ctx, core.PagePlaylist, client.FirstImageURL(p.Images))
	return p, pager, nil
}

// OpenMix shows a mix page.
func (s *Session) OpenMix(ctx context.Context, id string) (*library.Mix, error) {
	mix, err := s.library.Mix(ctx, id)
	if err != nil {
		s.ShowError(string(nerrors.CodeOf(err)), nerrors.Message(err))
		return nil, err
	}
	s.SetPath("/mix/" + id)
	s.pageOpened(ctx, core.PageMix, mix.ImageURL)
	return mix, nil
}

func (s *Session) pageOpened(ctx context.Context, kind core.PageKind, image string) {
	if err := s.settings.SetPageImage(kind, image); err != nil {
		s.logger.Warn("page image not stored", zap.Error(err))
	}
	if err := s.SyncShuffle(ctx); err != nil {
		s.logger.Debug("shuffle sync failed", zap.Error(err))
	}
}

// PlayPlaylist starts a playlist from its page.
func (s *Session) PlayPlaylist(ctx context.Context, id string, index *int) error {
	_, err := s.dispatcher.PlayPlaylist(ctx, id, index)
	return s.finish(err)
}

// PlayMix starts a mix from its page.
func (s *Session) PlayMix(ctx context.Context, mix *library.Mix, index *int) error {
	_, err := s.dispatcher.PlayMix(ctx, mix.ID, mix.URIs, index)
	return s.finish(err)
}

func (s *Session) finish(err error) error {
	if err != nil {
		s.ShowError(string(nerrors.CodeOf(err)), nerrors.Message(err))
		return err
	}
	s.Navigate(core.NowPlayingRoute)
	return nil
}

// ToggleLyrics opens or closes the lyrics panel. It does nothing while the
// lyrics menu is disabled.
func (s *Session) ToggleLyrics(ctx context.Context) bool {
	if s.lyrics == nil || !s.settings.LyricsMenuEnabled() {
		return false
	}
	if st := s.State(); st != nil {
		s.lyrics.SetTrack(ctx, st.Track)
	}
	return s.lyrics.Toggle(ctx)
}

// Transport runs a playback control: play, pause, toggle, next or prev.
func (s *Session) Transport(ctx context.Context, action string) error {
	if s.player == nil {
		return nerrors.ErrNoActiveDevice
	}
	switch action {
	case "play":
		return s.player.Play(ctx)
	case "pause":
		return s.player.Pause(ctx)
	case "toggle":
		if st := s.State(); st != nil && st.IsPlaying {
			return s.player.Pause(ctx)
		}
		return s.player.Play(ctx)
	case "next":
		return s.player.Next(ctx)
	case "prev":
		return s.player.Prev(ctx)
	default:
		return fmt.Errorf("unknown transport action %q", action)
	}
}

// The session is the recorder's display: it tracks navigation and forwards
// every effect to the attached displays.

func (s *Session) ShowToast(message string) {
	s.displays.ShowToast(message)
}

func (s *Session) HideToast() {
	s.displays.HideToast()
}

func (s *Session) ShowOverlay(b core.ButtonID) {
	s.displays.ShowOverlay(b)
}

func (s *Session) HideOverlay() {
	s.displays.HideOverlay()
}

func (s *Session) ShowError(code, message string) {
	s.logger.Warn("kiosk error", zap.String("code", code), zap.String("message", message))
	s.displays.ShowError(code, message)
}

// Navigate moves the kiosk to path.
func (s *Session) Navigate(path string) {
	s.SetPath(path)
	s.displays.Navigate(path)
}
