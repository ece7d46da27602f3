package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/spotify/player"
)

var (
	lyricsArtist string
	lyricsTrack  string
	lyricsPlain  bool
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "Print synced lyrics for the current track",
	Long: `Look up synced lyrics on lrclib for the track playing now and print them,
marking the line being sung. Use --artist and --track to look up any track.
Use 'nocturne tail --lyrics' to follow lyrics as the track plays.`,
	RunE: runLyrics,
}

func init() {
	lyricsCmd.Flags().StringVar(&lyricsArtist, "artist", "", "artist name instead of the current track")
	lyricsCmd.Flags().StringVar(&lyricsTrack, "track", "", "track name instead of the current track")
	lyricsCmd.Flags().BoolVar(&lyricsPlain, "plain", false, "omit timestamps")
	rootCmd.AddCommand(lyricsCmd)
}

type lyricsView struct {
	Artist string        `json:"artist"`
	Track  string        `json:"track"`
	Status lyrics.Status `json:"status"`
	Index  int           `json:"index"`
	Lines  []lyrics.Line `json:"lines"`
}

func runLyrics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	view := lyricsView{Artist: lyricsArtist, Track: lyricsTrack, Index: -1}
	var state *core.PlaybackState
	if view.Artist == "" || view.Track == "" {
		c, err := newClient(logger)
		if err != nil {
			return err
		}
		state, err = player.New(c).GetState(ctx)
		if err != nil {
			return err
		}
		if !state.HasTrack() {
			if JSONOutput() {
				return printJSON(map[string]any{"playing": false})
			}
			fmt.Println("Nothing is playing")
			return nil
		}
		view.Artist, view.Track = state.Track.Artist, state.Track.Title
	}

	rec, err := lyrics.NewClient(cfg.Lyrics.BaseURL, nil, logger).Fetch(ctx, view.Artist, view.Track)
	switch {
	case errors.Is(err, nerrors.ErrLyricsNotFound), errors.Is(err, lyrics.ErrMalformed):
		view.Status = lyrics.StatusUnavailable
	case err != nil:
		return nerrors.WithCode(nerrors.CodeLyrics, err)
	default:
		view.Lines = lyrics.ParseLRC(rec.SyncedLyrics, time.Duration(cfg.Lyrics.LeadMS)*time.Millisecond)
		view.Status = lyrics.StatusSynced
		if len(view.Lines) == 0 {
			view.Status = lyrics.StatusUnavailable
		}
	}
	if state != nil {
		view.Index = lyrics.IndexAt(view.Lines, state.PositionAt(time.Now()))
	}

	if JSONOutput() {
		return printJSON(view)
	}

	fmt.Printf("%s — %s\n\n", view.Artist, view.Track)
	if view.Status != lyrics.StatusSynced {
		fmt.Println("No synced lyrics available")
		return nil
	}
	for i, line := range view.Lines {
		marker := "  "
		if i == view.Index {
			marker = "▸ "
		}
		if lyricsPlain {
			fmt.Printf("%s%s\n", marker, line.Text)
			continue
		}
		fmt.Printf("%s[%s] %s\n", marker, FormatDuration(line.Time), line.Text)
	}
	return nil
}
