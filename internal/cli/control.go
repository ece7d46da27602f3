package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/spotify/player"
)

// transport commands mirror the kiosk's play/pause and skip controls.
var transportCommands = []struct {
	use, short, done string
	run              func(p core.Player, cmd *cobra.Command) error
}{
	{"pause", "Pause playback", "⏸ Paused", func(p core.Player, cmd *cobra.Command) error { return p.Pause(cmd.Context()) }},
	{"resume", "Resume playback", "▶ Resumed", func(p core.Player, cmd *cobra.Command) error { return p.Play(cmd.Context()) }},
	{"next", "Skip to next track", "⏭ Next track", func(p core.Player, cmd *cobra.Command) error { return p.Next(cmd.Context()) }},
	{"prev", "Go to previous track", "⏮ Previous track", func(p core.Player, cmd *cobra.Command) error { return p.Prev(cmd.Context()) }},
}

func init() {
	for _, tc := range transportCommands {
		rootCmd.AddCommand(&cobra.Command{
			Use:   tc.use,
			Short: tc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTransport(cmd, tc.use, tc.done, tc.run)
			},
		})
	}
}

func runTransport(cmd *cobra.Command, action, done string, run func(core.Player, *cobra.Command) error) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(logger)
	if err != nil {
		return err
	}

	if err := run(player.New(c), cmd); err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": action})
	}
	fmt.Println(done)
	return nil
}
