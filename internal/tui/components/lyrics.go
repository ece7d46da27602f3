package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/tui/styles"
)

// Lyrics shows synced lyrics with the current line kept in view.
type Lyrics struct {
	view viewport.Model
}

// NewLyrics creates an empty lyrics panel.
func NewLyrics() *Lyrics {
	return &Lyrics{view: viewport.New(0, 0)}
}

// Render renders snap in a panel of the given size.
func (l *Lyrics) Render(snap lyrics.Snapshot, width, height int) string {
	inner := max(height-4, 1)
	l.view.Width = max(width-4, 1)
	l.view.Height = inner

	var body string
	switch snap.Status {
	case lyrics.StatusLoading:
		body = styles.Muted.Render("Loading lyrics...")
	case lyrics.StatusUnavailable:
		body = styles.Muted.Render("No synced lyrics for this track")
	case lyrics.StatusSynced:
		l.view.SetContent(renderLines(snap))
		// Keep the current line in the middle of the panel.
		l.view.SetYOffset(max(snap.Index-inner/2, 0))
		body = l.view.View()
	default:
		body = styles.Muted.Render("Nothing playing")
	}

	return styles.Panel(true).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, styles.PanelTitle("Lyrics", true), "", body))
}

func renderLines(snap lyrics.Snapshot) string {
	lines := make([]string, len(snap.Lines))
	for i, line := range snap.Lines {
		text := line.Text
		if text == "" {
			text = "♪"
		}
		if i == snap.Index {
			lines[i] = styles.LyricActive.Render(text)
		} else {
			lines[i] = styles.Dim.Render(text)
		}
	}
	return strings.Join(lines, "\n")
}
