// Package buttons turns raw key events on the four preset buttons into
// mappings (long press) and scene activations (short press).
package buttons

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/store"
)

// Activator starts the scene a button is mapped to.
type Activator interface {
	Activate(ctx context.Context, m core.ButtonMapping) error
}

// Timing holds the recorder's delays.
type Timing struct {
	Hold    time.Duration
	Toast   time.Duration
	Overlay time.Duration
}

// DefaultTiming matches the kiosk defaults.
var DefaultTiming = Timing{
	Hold:    2 * time.Second,
	Toast:   2 * time.Second,
	Overlay: 2 * time.Second,
}

// PressEvent is an in-progress press of one button.
type PressEvent struct {
	Button core.ButtonID
	Start  time.Time
	Path   string
	held   bool
	timer  clock.Timer
}

// Recorder owns the per-button hold timers. All methods are safe for
// concurrent use.
type Recorder struct {
	settings  *store.Settings
	activator Activator
	display   core.Display
	clock     clock.Clock
	timing    Timing
	logger    *zap.Logger

	mu           sync.Mutex
	presses      map[core.ButtonID]*PressEvent
	toastTimer   clock.Timer
	overlayTimer clock.Timer
	cancelRun    context.CancelFunc
	ctx          context.Context
	cancel       context.CancelFunc
	closed       bool
	wg           sync.WaitGroup
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithTiming replaces the default delays.
func WithTiming(t Timing) Option {
	return func(r *Recorder) { r.timing = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a recorder writing mappings to settings and starting
// scenes through activator.
func NewRecorder(settings *store.Settings, activator Activator, display core.Display, opts ...Option) *Recorder {
	r := &Recorder{
		settings:  settings,
		activator: activator,
		display:   display,
		clock:     clock.New(),
		timing:    DefaultTiming,
		logger:    zap.NewNop(),
		presses:   make(map[core.ButtonID]*PressEvent),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("buttons")
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// KeyDown records the start of a press of key on the page at path. Auto-repeat
// key-downs are ignored; a fresh key-down restarts the hold timer.
func (r *Recorder) KeyDown(key, path string, repeat bool) error {
	b, ok := core.ParseButton(key)
	if !ok {
		return fmt.Errorf("key %q: %w", key, nerrors.ErrInvalidButton)
	}
	if repeat {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	if prev, ok := r.presses[b]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	p := &PressEvent{Button: b, Start: r.clock.Now(), Path: path}
	p.timer = r.clock.AfterFunc(r.timing.Hold, func() { r.holdElapsed(p) })
	r.presses[b] = p
	return nil
}

// KeyUp ends a press. Released before the hold delay, the press activates the
// button's scene unless the page it started on handles short presses itself.
func (r *Recorder) KeyUp(key string) error {
	b, ok := core.ParseButton(key)
	if !ok {
		return fmt.Errorf("key %q: %w", key, nerrors.ErrInvalidButton)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	p, ok := r.presses[b]
	if !ok {
		return nil
	}
	delete(r.presses, b)
	if p.held {
		return nil
	}
	p.timer.Stop()

	if core.SuppressesActivation(p.Path) {
		return nil
	}
	r.activateLocked(b)
	return nil
}

// holdElapsed runs when a press has lasted the full hold delay.
func (r *Recorder) holdElapsed(p *PressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.presses[p.Button] != p {
		return
	}
	p.held = true

	kind := core.ClassifyPage(p.Path)
	if kind == core.PageOther {
		return
	}

	route := p.Path
	if kind == core.PageLikedSongs {
		route = core.LikedSongsRoute
	}
	m := core.ButtonMapping{
		Button:   p.Button,
		Route:    route,
		ImageURL: r.settings.PageImage(kind),
	}
	if err := r.settings.SetMapping(m); err != nil {
		r.logger.Error("failed to store mapping", zap.Int("button", int(p.Button)), zap.Error(err))
		return
	}
	if err := r.settings.Store().Flush(r.ctx); err != nil {
		r.logger.Warn("failed to flush mapping", zap.Error(err))
	}
	r.logger.Info("button mapped", zap.Int("button", int(p.Button)), zap.String("route", route))

	r.showToastLocked(fmt.Sprintf("%s mapped to Button %d", kind, p.Button))
}

func (r *Recorder) showToastLocked(msg string) {
	if r.toastTimer != nil {
		r.toastTimer.Stop()
	}
	r.display.ShowToast(msg)
	r.toastTimer = r.clock.AfterFunc(r.timing.Toast, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.closed {
			r.display.HideToast()
		}
	})
}

func (r *Recorder) showOverlayLocked(b core.ButtonID) {
	if r.overlayTimer != nil {
		r.overlayTimer.Stop()
	}
	r.display.ShowOverlay(b)
	var t clock.Timer
	t = r.clock.AfterFunc(r.timing.Overlay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.closed && r.overlayTimer == t {
			r.display.HideOverlay()
		}
	})
	r.overlayTimer = t
}

// Activate starts the scene mapped to b as if it had been short-pressed.
func (r *Recorder) Activate(b core.ButtonID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed && b.Valid() {
		r.activateLocked(b)
	}
}

func (r *Recorder) activateLocked(b core.ButtonID) {
	if !r.settings.AnyMapping() {
		return
	}
	r.showOverlayLocked(b)

	m, ok := r.settings.Mapping(b)
	if !ok {
		return
	}

	// A newer activation supersedes the remaining steps of an older one.
	if r.cancelRun != nil {
		r.cancelRun()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancelRun = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.run(ctx, m)
	}()
}

func (r *Recorder) run(ctx context.Context, m core.ButtonMapping) {
	err := r.activator.Activate(ctx, m)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || ctx.Err() != nil {
		return
	}
	if err != nil {
		r.logger.Warn("scene failed", zap.Int("button", int(m.Button)), zap.String("route", m.Route), zap.Error(err))
		code := nerrors.CodeOf(err)
		if code == "" {
			code = nerrors.CodePlayRequest
		}
		r.display.ShowError(string(code), nerrors.Message(err))
		return
	}
	if r.overlayTimer != nil {
		r.overlayTimer.Stop()
	}
	r.display.HideOverlay()
	r.display.Navigate(core.NowPlayingRoute)
}

// Pending returns the buttons currently held down.
func (r *Recorder) Pending() []core.ButtonID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.ButtonID
	for _, b := range core.Buttons {
		if _, ok := r.presses[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Close cancels every pending timer and the remaining steps of any scene
// being started, then waits for in-flight requests to return.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for b, p := range r.presses {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(r.presses, b)
	}
	if r.toastTimer != nil {
		r.toastTimer.Stop()
	}
	if r.overlayTimer != nil {
		r.overlayTimer.Stop()
	}
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
}
