package scene

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/client"
)

// Steps specific to page-initiated playback.
const (
	StepUseIndex = "use-index"
)

// PlayPlaylist plays playlistID from the page itself. A nil trackIndex starts
// at a random track when shuffle is on, otherwise at the first. A failed
// transfer carries TRANSFER_PLAYBACK_ERROR; every other failure carries
// PLAY_REQUEST_ERROR.
func (d *Dispatcher) PlayPlaylist(ctx context.Context, playlistID string, trackIndex *int) (*Result, error) {
	if playlistID == "" {
		return nil, nerrors.WithCode(nerrors.CodePlayRequest, nerrors.ErrPlaylistNotFound)
	}

	r := d.newRun(ctx)
	r.result.Target = core.PlaybackTarget{Kind: core.TargetPlaylist, ID: playlistID}
	r.contextURI = r.result.Target.ContextURI()

	offsetStep := step{StepPickOffset, func(ctx context.Context, r *run) error { return d.pickPlaylistOffset(ctx, r, playlistID) }}
	if trackIndex != nil {
		offsetStep = step{StepUseIndex, useIndex(*trackIndex)}
	}

	steps := []step{
		{StepEnsureToken, d.ensureToken},
		{StepResolveDevice, d.resolveDevice},
		{StepTransfer, d.transfer},
		offsetStep,
		{StepSetShuffle, d.setShuffle},
		{StepStartPlayback, d.startPlayback},
		{StepSetRepeat, d.setRepeat},
		{StepSettle, d.settle},
		{StepRefreshState, d.refreshState},
	}

	d.logger.Info("playing playlist", zap.String("run", r.result.ID), zap.String("playlist", playlistID))
	if err := d.execute(r, steps); err != nil {
		if failed, ok := r.result.Failed(); ok && failed.Name == StepTransfer {
			return r.result, nerrors.WithCode(nerrors.CodeTransferPlayback, err)
		}
		return r.result, nerrors.WithCode(nerrors.CodePlayRequest, err)
	}
	return r.result, nil
}

// PlayTrack plays the playlist starting at the track at index.
func (d *Dispatcher) PlayTrack(ctx context.Context, playlistID string, index int) (*Result, error) {
	if index < 0 {
		return nil, nerrors.WithCode(nerrors.CodePlayRequest, fmt.Errorf("invalid track index %d", index))
	}
	return d.PlayPlaylist(ctx, playlistID, &index)
}

func useIndex(index int) func(context.Context, *run) error {
	return func(_ context.Context, r *run) error {
		r.result.Offset = &index
		return nil
	}
}

// TempMixName is the name of the temporary playlist a mix is played from.
func TempMixName(now time.Time) string {
	return "Temp Mix Playlist " + strconv.FormatInt(now.UnixMilli(), 10)
}

const tempMixDescription = "Temporary playlist for mix playback"

// PlayMix plays a Spotify-generated mix by copying its tracks into a private
// temporary playlist, playing that playlist and deleting it shortly after
// playback has started. Failures carry PLAY_MIX_ERROR and completed steps are
// not rolled back.
func (d *Dispatcher) PlayMix(ctx context.Context, mixID string, uris []string, trackIndex *int) (*Result, error) {
	if len(uris) == 0 {
		return nil, nerrors.WithCode(nerrors.CodePlayMix, fmt.Errorf("mix %s has no tracks", mixID))
	}

	r := d.newRun(ctx)
	r.uris = uris
	if trackIndex != nil {
		idx := *trackIndex
		r.result.Offset = &idx
	}

	steps := []step{
		{StepEnsureToken, d.ensureToken},
		{StepLoadUser, d.loadUser},
		{StepCreatePlaylist, d.createTempPlaylist},
		{StepRecordMix, func(_ context.Context, r *run) error { return d.recordMix(r, mixID) }},
		{StepAddTracks, d.addTracks},
		{StepResolveDevice, d.resolveDevice},
		{StepTransfer, d.transfer},
		{StepSetShuffle, d.setShuffle},
		{StepStartPlayback, d.startPlayback},
		{StepSetRepeat, d.setRepeat},
	}

	d.logger.Info("playing mix", zap.String("run", r.result.ID), zap.String("mix", mixID), zap.Int("tracks", len(uris)))
	if err := d.execute(r, steps); err != nil {
		return r.result, nerrors.WithCode(nerrors.CodePlayMix, err)
	}
	d.scheduleCleanup(r.tempID)

	if err := d.execute(r, []step{{StepSettle, d.settle}, {StepRefreshState, d.refreshState}}); err != nil {
		d.logger.Warn("mix state refresh failed", zap.String("run", r.result.ID), zap.Error(err))
	}
	return r.result, nil
}

func (d *Dispatcher) loadUser(ctx context.Context, r *run) error {
	user, err := d.spotify.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	r.userID = user.ID
	return nil
}

func (d *Dispatcher) createTempPlaylist(ctx context.Context, r *run) error {
	playlist, err := d.spotify.CreatePlaylist(ctx, r.userID, client.CreatePlaylistRequest{
		Name:        TempMixName(d.clock.Now()),
		Description: tempMixDescription,
		Public:      false,
	})
	if err != nil {
		return err
	}
	r.tempID = playlist.ID
	r.contextURI = "spotify:playlist:" + playlist.ID
	r.result.Target = core.PlaybackTarget{Kind: core.TargetPlaylist, ID: playlist.ID}
	return nil
}

func (d *Dispatcher) recordMix(r *run, mixID string) error {
	if err := d.settings.SetPlayingMix(mixID, r.contextURI); err != nil {
		return err
	}
	return d.settings.Store().Flush(r.ctx)
}

func (d *Dispatcher) addTracks(ctx context.Context, r *run) error {
	return d.spotify.AddTracksToPlaylist(ctx, r.tempID, r.uris)
}

// scheduleCleanup deletes the temporary playlist once Spotify has picked up
// the context. Errors are logged and otherwise ignored.
func (d *Dispatcher) scheduleCleanup(playlistID string) {
	d.cleanups.Add(1)
	d.clock.AfterFunc(d.timing.MixCleanup, func() {
		defer d.cleanups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.spotify.UnfollowPlaylist(ctx, playlistID); err != nil {
			d.logger.Warn("temp playlist cleanup failed", zap.String("playlist", playlistID), zap.Error(err))
			return
		}
		d.logger.Debug("temp playlist removed", zap.String("playlist", playlistID))
	})
}

// Wait blocks until every scheduled temp playlist cleanup has run.
func (d *Dispatcher) Wait() {
	d.cleanups.Wait()
}
