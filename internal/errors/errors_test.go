package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWithCode(t *testing.T) {
	err := WithCode(CodePlayRequest, fmt.Errorf("start-playback: %w", ErrNoPlaybackDevice))

	if got := CodeOf(err); got != CodePlayRequest {
		t.Errorf("CodeOf() = %q, want %q", got, CodePlayRequest)
	}
	if !errors.Is(err, ErrNoPlaybackDevice) {
		t.Error("errors.Is() = false, want wrapped sentinel to match")
	}
	if got := Message(err); got != "start-playback: no playback device" {
		t.Errorf("Message() = %q", got)
	}
	if !strings.HasPrefix(err.Error(), "PLAY_REQUEST_ERROR: ") {
		t.Errorf("Error() = %q, want code prefix", err.Error())
	}
}

func TestWithCodeNil(t *testing.T) {
	if err := WithCode(CodePlayMix, nil); err != nil {
		t.Errorf("WithCode(nil) = %v, want nil", err)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != "" {
		t.Errorf("CodeOf() = %q, want empty", got)
	}
}

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"refresh token", ErrNoRefreshToken, "Run 'nocturne auth login' to authenticate with Spotify"},
		{"no device", WithCode(CodePlayRequest, ErrNoPlaybackDevice), "Open Spotify on a device, or set kiosk.default_device with 'nocturne config set-device'"},
		{"button", ErrInvalidButton, "Buttons are numbered 1 to 4"},
		{"rate limit", errors.New("Spotify API error 429: rate limit"), "Too many requests. Wait a moment and try again"},
		{"explicit", WithSuggestion(errors.New("x"), "do y"), "do y"},
		{"unknown", errors.New("something odd"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetSuggestion(tt.err); got != tt.want {
				t.Errorf("GetSuggestion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	got := Format(ErrInvalidButton)
	want := "Error: invalid button\n\nSuggestion: Buttons are numbered 1 to 4"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
	if Format(nil) != "" {
		t.Error("Format(nil) should be empty")
	}
}

func TestPartialResult(t *testing.T) {
	var p PartialResult[[]string]
	if p.HasErrors() || p.Err() != nil || p.ErrorSummary() != "" {
		t.Fatal("empty PartialResult should report no errors")
	}

	p.AddError(nil)
	p.AddError(errors.New("library"))
	if p.ErrorSummary() != "library" {
		t.Errorf("ErrorSummary() = %q", p.ErrorSummary())
	}

	p.AddError(errors.New("artists"))
	if !strings.HasPrefix(p.ErrorSummary(), "2 errors occurred:") {
		t.Errorf("ErrorSummary() = %q", p.ErrorSummary())
	}
	if p.Err() == nil {
		t.Error("Err() = nil, want joined error")
	}
}
