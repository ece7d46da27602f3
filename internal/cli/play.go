package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/kiosk"
)

var playTrack int

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a playlist, mix or Liked Songs",
	Long: `Start playback the way the kiosk pages do, honouring the persisted
shuffle and repeat settings.

Examples:
  nocturne play playlist 37i9dQZF1DXcBWIGoYBM5M
  nocturne play playlist 37i9dQZF1DXcBWIGoYBM5M --track 3
  nocturne play mix 37i9dQZF1E37jO8SiMT0yN
  nocturne play liked`,
}

var playPlaylistCmd = &cobra.Command{
	Use:   "playlist <id>",
	Short: "Play a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *kiosk.Session) error {
			return s.PlayPlaylist(ctx, args[0], trackIndex(cmd))
		})
	},
}

var playMixCmd = &cobra.Command{
	Use:   "mix <id>",
	Short: "Play a Spotify mix through a temporary playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *kiosk.Session) error {
			// Mixes are looked up in the radio section.
			if res := s.Library().Load(ctx); res.HasErrors() && len(res.Data.Radio) == 0 {
				return res.Err()
			}
			mix, err := s.OpenMix(ctx, args[0])
			if err != nil {
				return err
			}
			return s.PlayMix(ctx, mix, trackIndex(cmd))
		})
	},
}

var playLikedCmd = &cobra.Command{
	Use:   "liked",
	Short: "Play Liked Songs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *kiosk.Session) error {
			_, err := s.Dispatcher().Dispatch(ctx, core.LikedSongsRoute)
			return err
		})
	},
}

func init() {
	playPlaylistCmd.Flags().IntVar(&playTrack, "track", -1, "start at this track index")
	playMixCmd.Flags().IntVar(&playTrack, "track", -1, "start at this track index")
	playCmd.AddCommand(playPlaylistCmd)
	playCmd.AddCommand(playMixCmd)
	playCmd.AddCommand(playLikedCmd)
	rootCmd.AddCommand(playCmd)
}

func trackIndex(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("track") || playTrack < 0 {
		return nil
	}
	i := playTrack
	return &i
}

// withSession runs fn against a fresh kiosk session and reports what is
// playing afterwards.
func withSession(cmd *cobra.Command, fn func(context.Context, *kiosk.Session) error) error {
	ctx := cmd.Context()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	session, st, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		// Close waits for temporary mix playlists to be removed.
		if err := session.Close(); err != nil {
			logger.Warn("flush settings", zap.Error(err))
		}
		_ = st.Close()
	}()

	if err := fn(ctx, session); err != nil {
		return err
	}

	state := session.State()
	if JSONOutput() {
		return printJSON(map[string]any{"status": "playing", "state": state})
	}
	if state.HasTrack() {
		fmt.Printf("▶ %s — %s\n", state.Track.Artist, state.Track.Title)
	} else {
		fmt.Println("▶ Playing")
	}
	return nil
}
