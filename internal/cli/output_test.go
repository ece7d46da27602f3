package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{3*time.Minute + 7*time.Second, "3:07"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatProgress(t *testing.T) {
	if got := FormatProgress(time.Minute, 2*time.Minute, 10); got != "━━━━━─────" {
		t.Errorf("FormatProgress() = %q", got)
	}
	if got := FormatProgress(5*time.Minute, 2*time.Minute, 4); got != "━━━━" {
		t.Errorf("FormatProgress() overflow = %q", got)
	}
	if got := FormatProgress(0, 0, 3); got != "───" {
		t.Errorf("FormatProgress() no total = %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("Nightcall", 20); got != "Nightcall" {
		t.Errorf("TruncateString() = %q", got)
	}
	if got := TruncateString("Midnight City", 8); got != "Midni..." {
		t.Errorf("TruncateString() = %q", got)
	}
	if got := TruncateString("Café del Mar", 6); got != "Caf..." {
		t.Errorf("TruncateString() runes = %q", got)
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableWriter(&buf, "BUTTON", "ROUTE")
	tbl.Row("1", "/playlist/p1")
	tbl.Row("2", "liked-songs")
	tbl.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "1       /playlist/p1") {
		t.Errorf("row = %q", lines[1])
	}
}
