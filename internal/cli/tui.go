package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/tui"
)

var (
	tuiRefresh int
	tuiRelease int
)

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Run the kiosk in the terminal",
	Long: `Run the kiosk console in the terminal.

The console drives the same session as the browser front-end: hold a preset
key on a playlist, mix or Liked Songs page to map it, tap it elsewhere to
start the scene.

Keyboard shortcuts:
  1-4            Preset buttons
  Tab/Shift+Tab  Switch home section
  Enter          Open or play the selection
  /              Filter the section
  r              Reload the library
  j/k            Move
  L              Liked Songs
  N              Now playing
  l              Lyrics
  Space          Play/Pause
  n / b          Next / previous track
  P              Play the open page
  Esc            Back to home
  q, Ctrl+C      Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&tuiRefresh, "refresh", 0, "redraw interval in milliseconds (default: tui.refresh_interval)")
	tuiCmd.Flags().IntVar(&tuiRelease, "release", 0, "key release window in milliseconds (default: tui.release_ms)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The console owns the screen, so logs only go to the log file.
	logger, err := newLogger(nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	session, st, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("flush settings", zap.Error(err))
		}
		_ = st.Close()
	}()

	go func() {
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session stopped", zap.Error(err))
		}
	}()

	refresh := tuiRefresh
	if refresh == 0 {
		refresh = cfg.TUI.RefreshInterval
	}
	release := tuiRelease
	if release == 0 {
		release = cfg.TUI.ReleaseMS
	}

	return tui.Run(ctx, session, tui.Options{
		RefreshRate: time.Duration(refresh) * time.Millisecond,
		Release:     time.Duration(release) * time.Millisecond,
		Logger:      logger,
	})
}
