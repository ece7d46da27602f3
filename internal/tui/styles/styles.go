package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Accent    = lipgloss.Color("#F59E0B") // Amber

	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")

	Surface   = lipgloss.Color("#374151")
	Border    = lipgloss.Color("#4B5563")
	Text      = lipgloss.Color("#F9FAFB")
	TextMuted = lipgloss.Color("#9CA3AF")
	TextDim   = lipgloss.Color("#6B7280")

	SpotifyGreen = lipgloss.Color("#1DB954")
)

// Text styles
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextMuted)

	Highlight = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Playing = lipgloss.NewStyle().
		Foreground(SpotifyGreen)

	Paused = lipgloss.NewStyle().
		Foreground(Warning)

	Selected = lipgloss.NewStyle().
			Background(Surface)

	ActiveTab = lipgloss.NewStyle().
			Padding(0, 1).
			Background(Primary).
			Foreground(Text)

	Tab = lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(TextDim)
)

// Kiosk banners
var (
	Toast = lipgloss.NewStyle().
		Padding(0, 2).
		Background(SpotifyGreen).
		Foreground(lipgloss.Color("#000000")).
		Bold(true)

	Overlay = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(Primary).
		Padding(1, 6).
		Bold(true)

	ErrorBanner = lipgloss.NewStyle().
			Padding(0, 2).
			Background(Error).
			Foreground(Text)

	LyricActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(SpotifyGreen)
)

// Border styles
var (
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border)

	FocusedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary)
)

// Panel returns a bordered panel style.
func Panel(focused bool) lipgloss.Style {
	if focused {
		return FocusedBorder.Padding(0, 1)
	}
	return BorderStyle.Padding(0, 1)
}

// PanelTitle creates a styled panel title
func PanelTitle(title string, focused bool) string {
	style := Dim
	if focused {
		style = Highlight
	}
	return style.Render(" " + title + " ")
}

// ProgressBar creates a progress bar string
func ProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))

	filledStyle := lipgloss.NewStyle().Foreground(Primary)
	emptyStyle := lipgloss.NewStyle().Foreground(Border)

	return filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("─", width-filled))
}

// StatusIcon returns an icon for playback status
func StatusIcon(playing bool) string {
	if playing {
		return Playing.Render("▶")
	}
	return Paused.Render("⏸")
}

// DeviceIcon returns an icon for device type
func DeviceIcon(deviceType string) string {
	switch strings.ToLower(deviceType) {
	case "computer":
		return "💻"
	case "phone", "smartphone":
		return "📱"
	case "speaker":
		return "🔊"
	case "automobile":
		return "🚗"
	default:
		return "🎧"
	}
}
