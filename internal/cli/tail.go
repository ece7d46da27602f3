package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/spotify/player"
	"github.com/tessro/nocturne/internal/tail"
)

var (
	tailNoEmoji   bool
	tailTimestamp bool
	tailFormat    string
	tailInterval  time.Duration
	tailLyrics    bool
	tailHistory   int
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow playback changes in real-time",
	Long: `Watch for playback state changes and print them as they happen.

Events tracked:
  - Track changes
  - Pause/Resume and stops
  - Device changes
  - Shuffle and repeat changes
  - Lyric lines, with --lyrics

Templates see .Type .Emoji .Time .Title .Artist .Album .Device .Shuffle
.Repeat and .Lyric, for example:
  nocturne tail --format '{{.Time}} {{.Type}} {{.Artist}} - {{.Title}}{{.Lyric}}'`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailNoEmoji, "no-emoji", false, "disable emoji output")
	tailCmd.Flags().BoolVarP(&tailTimestamp, "timestamp", "t", false, "show timestamps")
	tailCmd.Flags().StringVarP(&tailFormat, "format", "f", "", "custom format template")
	tailCmd.Flags().DurationVarP(&tailInterval, "interval", "i", 0, "poll interval (default: tui.refresh_interval)")
	tailCmd.Flags().BoolVarP(&tailLyrics, "lyrics", "l", false, "follow synced lyrics")
	tailCmd.Flags().IntVar(&tailHistory, "history", 5, "recently played tracks to show first")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	withTemplate, err := tail.WithTemplate(tailFormat)
	if err != nil {
		return err
	}
	formatter := tail.NewFormatter(
		tail.WithEmoji(!tailNoEmoji && IsTerminal()),
		tail.WithTimestamp(tailTimestamp),
		withTemplate,
	)

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(logger)
	if err != nil {
		return err
	}
	p := player.New(c)

	showHistory(ctx, p, tailHistory, logger)

	interval := tailInterval
	if interval == 0 {
		interval = time.Duration(cfg.TUI.RefreshInterval) * time.Millisecond
	}
	watcher := tail.NewWatcher(p, interval, tail.WithLogger(logger))

	lyricCh := make(chan tail.Event, 16)
	var tracker *lyrics.Tracker
	if tailLyrics {
		tracker = lyrics.NewTracker(
			lyrics.NewClient(cfg.Lyrics.BaseURL, nil, logger),
			lyrics.WithLead(time.Duration(cfg.Lyrics.LeadMS)*time.Millisecond),
			lyrics.WithLogger(logger),
		)
		tracker.OnChange = lyricEmitter(lyricCh, watcher.Latest)
		go tracker.Follow(ctx, time.Duration(cfg.Lyrics.PollMS)*time.Millisecond, watcher.Latest)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Run(ctx)
	}()

	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			fmt.Println(formatter.Format(event))
			if tracker != nil && (event.Type == tail.EventTrackChange || event.Type == tail.EventStopped) {
				go followTrack(ctx, tracker, event.Current)
			}

		case event := <-lyricCh:
			fmt.Println(formatter.Format(event))

		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// followTrack points the tracker at the playing track and keeps the panel
// open across track changes.
func followTrack(ctx context.Context, tracker *lyrics.Tracker, state *core.PlaybackState) {
	if !state.HasTrack() {
		tracker.SetTrack(ctx, nil)
		return
	}
	tracker.SetTrack(ctx, state.Track)
	tracker.Open(ctx)
}

// lyricEmitter turns tracker changes into one lyric event per new line.
func lyricEmitter(out chan<- tail.Event, latest func() *core.PlaybackState) func(lyrics.Snapshot) {
	var (
		mu        sync.Mutex
		lastTrack string
		lastIndex = -1
	)
	return func(s lyrics.Snapshot) {
		if s.Status != lyrics.StatusSynced || s.Index < 0 || s.Index >= len(s.Lines) {
			return
		}
		mu.Lock()
		if s.TrackID == lastTrack && s.Index == lastIndex {
			mu.Unlock()
			return
		}
		lastTrack, lastIndex = s.TrackID, s.Index
		mu.Unlock()

		text := s.Lines[s.Index].Text
		if text == "" {
			text = "♪"
		}
		select {
		case out <- tail.Event{Type: tail.EventLyric, Timestamp: time.Now(), Current: latest(), Lyric: text}:
		default:
		}
	}
}

// showHistory prints recently played tracks, oldest first.
func showHistory(ctx context.Context, p core.Player, limit int, logger *zap.Logger) {
	if limit <= 0 {
		return
	}
	history, err := p.GetRecentlyPlayed(ctx, limit)
	if err != nil {
		logger.Debug("recently played unavailable", zap.Error(err))
		return
	}
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		if entry.Track == nil {
			continue
		}
		timestamp := ""
		if tailTimestamp {
			timestamp = entry.PlayedAt.Local().Format("15:04:05") + " "
		}
		emoji := ""
		if !tailNoEmoji && IsTerminal() {
			emoji = "⏪ "
		}
		fmt.Printf("%s%s%s — %s\n", timestamp, emoji, entry.Track.Artist, entry.Track.Title)
	}
}
