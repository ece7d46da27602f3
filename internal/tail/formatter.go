package tail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTemplate sets a custom format template. An invalid template is
// reported to the caller.
func WithTemplate(tmpl string) (FormatterOption, error) {
	if tmpl == "" {
		return func(*Formatter) {}, nil
	}
	t, err := template.New("format").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse format: %w", err)
	}
	return func(f *Formatter) { f.template = t }, nil
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{showEmoji: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

func (f *Formatter) formatLine(e Event) string {
	var parts []string
	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, f.eventDescription(e))
	return strings.Join(parts, " ")
}

func (f *Formatter) formatTemplate(e Event) string {
	data := templateData{
		Type:      eventTypeName(e.Type),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
		Lyric:     e.Lyric,
	}
	if c := e.Current; c != nil {
		if c.Track != nil {
			data.Title = c.Track.Title
			data.Artist = c.Track.Artist
			data.Album = c.Track.Album
		}
		if c.Device != nil {
			data.Device = c.Device.Name
		}
		data.Shuffle = c.Shuffle
		data.Repeat = string(c.Repeat)
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

type templateData struct {
	Type      string
	Emoji     string
	Timestamp time.Time
	Time      string
	Title     string
	Artist    string
	Album     string
	Device    string
	Shuffle   bool
	Repeat    string
	Lyric     string
}

func (f *Formatter) eventDescription(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if e.Current.HasTrack() {
			return fmt.Sprintf("Now playing: %s - %s", e.Current.Track.Artist, e.Current.Track.Title)
		}
		return "Track changed"
	case EventStopped:
		return "Nothing playing"
	case EventPause:
		return "Paused"
	case EventResume:
		return "Resumed"
	case EventDeviceChange:
		if e.Current != nil && e.Current.Device != nil {
			return fmt.Sprintf("Device: %s", e.Current.Device.Name)
		}
		return "Device changed"
	case EventShuffleChange:
		if e.Current != nil && e.Current.Shuffle {
			return "Shuffle on"
		}
		return "Shuffle off"
	case EventRepeatChange:
		if e.Current != nil {
			return fmt.Sprintf("Repeat: %s", e.Current.Repeat)
		}
		return "Repeat changed"
	case EventLyric:
		return e.Lyric
	default:
		return "Unknown event"
	}
}

func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventStopped:
		return "⏹️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventDeviceChange:
		return "📱"
	case EventShuffleChange:
		return "🔀"
	case EventRepeatChange:
		return "🔁"
	case EventLyric:
		return "🎤"
	default:
		return "❓"
	}
}

// EventTypeName returns the wire name of an event type.
func EventTypeName(t EventType) string {
	return eventTypeName(t)
}

func eventTypeName(t EventType) string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventStopped:
		return "stopped"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventDeviceChange:
		return "device_change"
	case EventShuffleChange:
		return "shuffle_change"
	case EventRepeatChange:
		return "repeat_change"
	case EventLyric:
		return "lyric"
	default:
		return "unknown"
	}
}
