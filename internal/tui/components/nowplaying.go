package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/tui/styles"
)

// NowPlaying displays the current track.
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel at the position reached by now.
func (n *NowPlaying) Render(state *core.PlaybackState, now time.Time, width, height int, focused bool) string {
	var content string
	if !state.HasTrack() {
		content = styles.Muted.Render("Nothing playing")
	} else {
		content = n.renderTrack(state, now, width-4)
	}

	return styles.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			styles.PanelTitle("Now Playing", focused),
			"",
			content,
		))
}

func (n *NowPlaying) renderTrack(state *core.PlaybackState, now time.Time, width int) string {
	track := state.Track

	title := styles.Title.Width(max(width-4, 1)).Render(track.Title)
	artist := styles.Subtitle.Render(track.Artist)
	album := styles.Dim.Render(track.Album)

	pos := state.PositionAt(now)
	percent := 0.0
	if track.Duration > 0 {
		percent = float64(pos) / float64(track.Duration) * 100
	}
	barWidth := max(width-14, 10)
	progress := fmt.Sprintf("%s %s %s",
		FormatDuration(pos),
		styles.ProgressBar(percent, barWidth),
		FormatDuration(track.Duration))

	device := ""
	if state.Device != nil {
		device = styles.Muted.Render(fmt.Sprintf("%s %s", styles.DeviceIcon(string(state.Device.Type)), state.Device.Name))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.StatusIcon(state.IsPlaying)+" "+title,
		"  "+artist,
		"  "+album,
		"",
		progress,
		"",
		device,
		n.renderModes(state),
	)
}

func (n *NowPlaying) renderModes(state *core.PlaybackState) string {
	shuffle := styles.Dim.Render("shuffle off")
	if state.Shuffle {
		shuffle = styles.Playing.Render("shuffle on")
	}
	repeat := styles.Dim.Render("repeat " + string(state.Repeat))
	if state.Repeat != core.RepeatOff && state.Repeat != "" {
		repeat = styles.Playing.Render("repeat " + string(state.Repeat))
	}
	return shuffle + "  " + repeat
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	d = max(d, 0).Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
