package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/spotify/player"
	"github.com/tessro/nocturne/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current playback and kiosk settings",
	Long: `Shows what is playing, on which device, and the kiosk's persisted
settings: shuffle, repeat, the lyrics menu and the mapped buttons.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type kioskSettings struct {
	Shuffle    bool                 `json:"shuffle"`
	Repeat     core.RepeatMode      `json:"repeat"`
	LyricsMenu bool                 `json:"lyrics_menu_enabled"`
	Buttons    []core.ButtonMapping `json:"buttons"`
}

type statusView struct {
	Playing  bool                `json:"playing"`
	State    *core.PlaybackState `json:"state,omitempty"`
	Progress float64             `json:"progress_percent"`
	Settings *kioskSettings      `json:"settings,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(logger)
	if err != nil {
		return err
	}

	state, err := player.New(c).GetState(ctx)
	if err != nil {
		return err
	}

	view := statusView{State: state}
	if state.HasTrack() {
		view.Playing = state.IsPlaying
		view.Progress = state.ProgressPercent()
	}

	if st, err := store.Open(ctx, cfg.Store, logger); err != nil {
		logger.Warn("settings unavailable", zap.Error(err))
	} else {
		settings := store.NewSettings(st)
		view.Settings = &kioskSettings{
			Shuffle:    settings.Shuffle(),
			Repeat:     settings.Repeat(),
			LyricsMenu: settings.LyricsMenuEnabled(),
			Buttons:    settings.Mappings(),
		}
		_ = st.Close()
	}

	if JSONOutput() {
		return printJSON(view)
	}
	printStatus(view)
	return nil
}

func printStatus(v statusView) {
	s := v.State
	if !s.HasTrack() {
		fmt.Println("No active playback")
	} else {
		playIcon := "▶"
		if !s.IsPlaying {
			playIcon = "⏸"
		}
		fmt.Printf("%s %s\n", playIcon, s.Track.Title)
		fmt.Printf("  %s — %s\n", s.Track.Artist, s.Track.Album)

		pos := s.PositionAt(time.Now())
		if IsTerminal() {
			fmt.Printf("  %s %s / %s\n",
				FormatProgress(pos, s.Track.Duration, 30),
				FormatDuration(pos),
				FormatDuration(s.Track.Duration))
		} else {
			fmt.Printf("  %s / %s\n", FormatDuration(pos), FormatDuration(s.Track.Duration))
		}

		if s.Device != nil {
			fmt.Printf("  Device: %s", s.Device.Name)
			if s.Volume > 0 {
				fmt.Printf(" (volume %d%%)", s.Volume)
			}
			fmt.Println()
		}
		fmt.Printf("  Shuffle: %s  Repeat: %s\n", onOff(s.Shuffle), s.Repeat)
	}

	if v.Settings == nil {
		return
	}
	fmt.Println()
	fmt.Println("Kiosk")
	fmt.Printf("  Shuffle: %s  Repeat: %s  Lyrics menu: %s\n",
		onOff(v.Settings.Shuffle), v.Settings.Repeat, onOff(v.Settings.LyricsMenu))
	if len(v.Settings.Buttons) == 0 {
		fmt.Println("  No buttons mapped")
		return
	}
	for _, m := range v.Settings.Buttons {
		fmt.Printf("  %s %d  %s  %s\n", StatusIcon(true), m.Button, routeKind(m.Route), m.Route)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
