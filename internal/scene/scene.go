// Package scene starts playback of mapped routes, playlists and mixes as an
// explicit sequence of named steps against the Spotify Web API.
package scene

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/clock"
	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/spotify/player"
	"github.com/tessro/nocturne/internal/store"
)

// Step names, in pipeline order.
const (
	StepEnsureToken    = "ensure-token"
	StepLoadUser       = "load-user"
	StepCreatePlaylist = "create-playlist"
	StepRecordMix      = "record-mix"
	StepAddTracks      = "add-tracks"
	StepResolveDevice  = "resolve-device"
	StepTransfer       = "transfer-playback"
	StepLoadTracks     = "load-tracks"
	StepPickOffset     = "pick-offset"
	StepSetShuffle     = "set-shuffle"
	StepStartPlayback  = "start-playback"
	StepSetRepeat      = "set-repeat"
	StepSettle         = "settle"
	StepRefreshState   = "refresh-state"
)

// likedSongsLimit is how many saved tracks a Liked Songs scene queues.
const likedSongsLimit = 50

// Spotify is the subset of the Web API client the pipeline drives.
type Spotify interface {
	IsAuthenticated() bool
	HasRefreshToken() bool
	Refresh(ctx context.Context) error

	GetPlaybackState(ctx context.Context) (*client.PlaybackState, error)
	GetDevices(ctx context.Context) ([]client.Device, error)
	TransferPlayback(ctx context.Context, deviceID string, play bool) error

	GetSavedTracks(ctx context.Context, limit, offset int) (*client.Page[client.SavedTrack], error)
	GetPlaylist(ctx context.Context, id string) (*client.Playlist, error)

	SetShuffle(ctx context.Context, state bool, deviceID string) error
	SetRepeat(ctx context.Context, state string, deviceID string) error
	Play(ctx context.Context, deviceID string, opts *client.PlayOptions) error

	GetCurrentUser(ctx context.Context) (*client.User, error)
	CreatePlaylist(ctx context.Context, userID string, req client.CreatePlaylistRequest) (*client.Playlist, error)
	AddTracksToPlaylist(ctx context.Context, id string, uris []string) error
	UnfollowPlaylist(ctx context.Context, id string) error
}

// Timing holds the fixed delays of the pipeline.
type Timing struct {
	TokenGrace time.Duration
	Settle     time.Duration
	MixCleanup time.Duration
}

// DefaultTiming matches the kiosk defaults.
var DefaultTiming = Timing{
	TokenGrace: time.Second,
	Settle:     500 * time.Millisecond,
	MixCleanup: 200 * time.Millisecond,
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Err      error         `json:"-"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result describes one pipeline run.
type Result struct {
	ID       string              `json:"id"`
	Target   core.PlaybackTarget `json:"-"`
	DeviceID string              `json:"device_id"`
	Offset   *int                `json:"offset,omitempty"`
	Steps    []StepResult        `json:"steps"`
	State    *core.PlaybackState `json:"state,omitempty"`
}

// Failed returns the step that failed, if any.
func (r *Result) Failed() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s, true
		}
	}
	return StepResult{}, false
}

// Dispatcher runs scene pipelines. It is safe for concurrent use; each run
// works on its own state.
type Dispatcher struct {
	spotify       Spotify
	settings      *store.Settings
	clock         clock.Clock
	timing        Timing
	logger        *zap.Logger
	defaultDevice string

	// Rand returns a uniform integer in [0,n).
	Rand func(n int) int
	// Sleep waits for d unless ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnState receives the playback state refreshed after a scene starts.
	OnState func(*core.PlaybackState)

	cleanups sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithTiming replaces the default delays.
func WithTiming(t Timing) Option {
	return func(d *Dispatcher) { d.timing = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithDefaultDevice names the device (by id or name) used when nothing is
// playing anywhere.
func WithDefaultDevice(device string) Option {
	return func(d *Dispatcher) { d.defaultDevice = device }
}

// New creates a dispatcher.
func New(spotify Spotify, settings *store.Settings, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		spotify:  spotify,
		settings: settings,
		clock:    clock.New(),
		timing:   DefaultTiming,
		logger:   zap.NewNop(),
		Rand:     rand.IntN,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("scene")
	if d.Sleep == nil {
		d.Sleep = func(ctx context.Context, dur time.Duration) error {
			return clock.Sleep(ctx, d.clock, dur)
		}
	}
	return d
}

// run is the mutable state of one pipeline execution.
type run struct {
	ctx        context.Context
	result     *Result
	shuffle    bool
	repeat     core.RepeatMode
	device     *client.Device
	uris       []string
	contextURI string
	userID     string
	tempID     string
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

// execute runs steps in order. Cancellation of r.ctx stops the pipeline before
// the next step; requests already issued run to completion.
func (d *Dispatcher) execute(r *run, steps []step) error {
	for _, s := range steps {
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		start := d.clock.Now()
		err := s.fn(context.WithoutCancel(r.ctx), r)
		sr := StepResult{Name: s.name, Duration: d.clock.Now().Sub(start)}
		if err == errSkipped {
			sr.Skipped = true
			err = nil
		}
		sr.Err = err
		r.result.Steps = append(r.result.Steps, sr)
		if err != nil {
			d.logger.Debug("step failed", zap.String("run", r.result.ID), zap.String("step", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

var errSkipped = nerrors.New("skipped")

func (d *Dispatcher) newRun(ctx context.Context) *run {
	return &run{
		ctx:     ctx,
		result:  &Result{ID: uuid.NewString()},
		shuffle: d.settings.Shuffle(),
		repeat:  d.settings.Repeat(),
	}
}

// Activate starts the scene of a button mapping. It satisfies buttons.Activator.
func (d *Dispatcher) Activate(ctx context.Context, m core.ButtonMapping) error {
	_, err := d.Dispatch(ctx, m.Route)
	return err
}

// Dispatch starts the scene stored under route. Failures carry the
// PLAY_REQUEST_ERROR code.
func (d *Dispatcher) Dispatch(ctx context.Context, route string) (*Result, error) {
	target, err := core.TargetForRoute(route)
	if err != nil {
		return nil, nerrors.WithCode(nerrors.CodePlayRequest, fmt.Errorf("%w: %v", nerrors.ErrUnplayableRoute, err))
	}

	r := d.newRun(ctx)
	r.result.Target = target

	steps := []step{
		{StepEnsureToken, d.ensureToken},
		{StepResolveDevice, d.resolveDevice},
		{StepTransfer, d.transfer},
	}
	if target.Kind == core.TargetLikedSongs {
		steps = append(steps,
			step{StepLoadTracks, d.loadLikedTracks},
			step{StepSetShuffle, d.setShuffle},
			step{StepStartPlayback, d.startPlayback},
		)
	} else {
		r.contextURI = target.ContextURI()
		steps = append(steps,
			step{StepPickOffset, func(ctx context.Context, r *run) error { return d.pickPlaylistOffset(ctx, r, target.ID) }},
			step{StepSetShuffle, d.setShuffle},
			step{StepStartPlayback, d.startPlayback},
			step{StepSetRepeat, d.setRepeat},
		)
	}
	steps = append(steps,
		step{StepSettle, d.settle},
		step{StepRefreshState, d.refreshState},
	)

	d.logger.Info("dispatching scene", zap.String("run", r.result.ID), zap.String("route", route))
	if err := d.execute(r, steps); err != nil {
		return r.result, nerrors.WithCode(nerrors.CodePlayRequest, err)
	}
	return r.result, nil
}

func (d *Dispatcher) ensureToken(ctx context.Context, r *run) error {
	if d.spotify.IsAuthenticated() {
		return errSkipped
	}
	if !d.spotify.HasRefreshToken() {
		return nerrors.ErrNoRefreshToken
	}
	if err := d.spotify.Refresh(ctx); err != nil {
		return err
	}
	return d.Sleep(r.ctx, d.timing.TokenGrace)
}

// resolveDevice prefers the device in the current playback state, then the
// configured default, then an active device, then the first available one.
func (d *Dispatcher) resolveDevice(ctx context.Context, r *run) error {
	state, err := d.spotify.GetPlaybackState(ctx)
	if err != nil {
		return err
	}
	if state != nil && state.Device.ID != "" {
		dev := state.Device
		r.device = &dev
		r.result.DeviceID = dev.ID
		return nil
	}

	devices, err := d.spotify.GetDevices(ctx)
	if err != nil {
		return err
	}
	r.device = pickDevice(devices, d.defaultDevice)
	if r.device == nil {
		return nerrors.ErrNoPlaybackDevice
	}
	r.result.DeviceID = r.device.ID
	return nil
}

func pickDevice(devices []client.Device, preferred string) *client.Device {
	if len(devices) == 0 {
		return nil
	}
	if preferred != "" {
		for i := range devices {
			if devices[i].ID == preferred || devices[i].Name == preferred {
				return &devices[i]
			}
		}
	}
	for i := range devices {
		if devices[i].IsActive {
			return &devices[i]
		}
	}
	return &devices[0]
}

func (d *Dispatcher) transfer(ctx context.Context, r *run) error {
	if r.device.IsActive {
		return errSkipped
	}
	if err := d.spotify.TransferPlayback(ctx, r.device.ID, false); err != nil {
		return err
	}
	r.device.IsActive = true
	return d.Sleep(r.ctx, d.timing.Settle)
}

func (d *Dispatcher) loadLikedTracks(ctx context.Context, r *run) error {
	page, err := d.spotify.GetSavedTracks(ctx, likedSongsLimit, 0)
	if err != nil {
		return err
	}
	for _, item := range page.Items {
		if item.Track.URI != "" {
			r.uris = append(r.uris, item.Track.URI)
		}
	}
	if len(r.uris) == 0 {
		return fmt.Errorf("no liked songs to play")
	}
	offset := 0
	if r.shuffle {
		offset = d.Rand(len(r.uris))
	}
	r.result.Offset = &offset
	return nil
}

func (d *Dispatcher) pickPlaylistOffset(ctx context.Context, r *run, playlistID string) error {
	offset := 0
	if r.shuffle {
		playlist, err := d.spotify.GetPlaylist(ctx, playlistID)
		if err != nil {
			return err
		}
		if total := playlist.Tracks.Total; total > 0 {
			offset = d.Rand(total)
		}
	}
	r.result.Offset = &offset
	return nil
}

func (d *Dispatcher) setShuffle(ctx context.Context, r *run) error {
	return d.spotify.SetShuffle(ctx, r.shuffle, r.device.ID)
}

func (d *Dispatcher) startPlayback(ctx context.Context, r *run) error {
	opts := &client.PlayOptions{ContextURI: r.contextURI}
	if r.contextURI == "" {
		opts.URIs = r.uris
	}
	if r.result.Offset != nil {
		opts.Offset = &client.PlayOffset{Position: *r.result.Offset}
	}
	return d.spotify.Play(ctx, r.device.ID, opts)
}

func (d *Dispatcher) setRepeat(ctx context.Context, r *run) error {
	return d.spotify.SetRepeat(ctx, string(r.repeat), r.device.ID)
}

func (d *Dispatcher) settle(ctx context.Context, r *run) error {
	return d.Sleep(r.ctx, d.timing.Settle)
}

func (d *Dispatcher) refreshState(ctx context.Context, r *run) error {
	state, err := d.spotify.GetPlaybackState(ctx)
	if err != nil {
		return err
	}
	r.result.State = player.ConvertState(state, d.clock.Now())
	if d.OnState != nil {
		d.OnState(r.result.State)
	}
	return nil
}
