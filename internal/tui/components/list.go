package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/nocturne/internal/tui/styles"
)

// Row is one line of a List.
type Row struct {
	Title    string
	Subtitle string
	Active   bool
}

// List is a scrolling, selectable list.
type List struct {
	offset int
	cursor int
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// Cursor returns the selected index.
func (l *List) Cursor() int {
	return l.cursor
}

// Reset moves the selection to the top.
func (l *List) Reset() {
	l.offset = 0
	l.cursor = 0
}

// Down moves the selection down within n rows.
func (l *List) Down(n int) {
	if l.cursor < n-1 {
		l.cursor++
	}
}

// Up moves the selection up.
func (l *List) Up() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// NearEnd reports whether the selection is within margin rows of the end
// of n rows.
func (l *List) NearEnd(n, margin int) bool {
	return n > 0 && l.cursor >= n-1-margin
}

// Render renders rows in a panel of the given size.
func (l *List) Render(title string, rows []Row, footer string, width, height int, focused bool) string {
	var content string
	if len(rows) == 0 {
		content = styles.Muted.Render("Nothing here")
	} else {
		content = l.renderRows(rows, width-4, height-4)
	}
	if footer != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, styles.Dim.Render(footer))
	}

	return styles.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, styles.PanelTitle(title, focused), "", content))
}

func (l *List) renderRows(rows []Row, width, maxLines int) string {
	if l.cursor >= len(rows) {
		l.cursor = len(rows) - 1
	}

	visible := max(maxLines-1, 1)
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+visible {
		l.offset = l.cursor - visible + 1
	}

	end := min(l.offset+visible, len(rows))
	lines := make([]string, 0, end-l.offset+1)

	// "XX. " (4) + marker (2) + " — " (3)
	const overhead = 9

	for i := l.offset; i < end; i++ {
		row := rows[i]
		num := fmt.Sprintf("%2d.", i+1)

		available := width - overhead
		title, subtitle := row.Title, row.Subtitle
		if len(title)+len(subtitle) > available {
			subSpace := min(max(available/3, 10), len(subtitle))
			title = truncate(title, available-subSpace)
			subtitle = truncate(subtitle, subSpace)
		}

		text := title
		if subtitle != "" {
			text += " — " + styles.Muted.Render(subtitle)
		}

		marker := "  "
		if row.Active {
			marker = styles.Playing.Render("▶ ")
		}
		line := fmt.Sprintf("%s %s%s", styles.Dim.Render(num), marker, text)
		if i == l.cursor {
			line = styles.Selected.Render(line)
		}
		lines = append(lines, line)
	}

	if end < len(rows) {
		lines = append(lines, styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(rows)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
