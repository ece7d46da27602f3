package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNoRefreshToken    = errors.New("no refresh token available")
	ErrNoActiveDevice    = errors.New("no active device")
	ErrNoPlaybackDevice  = errors.New("no playback device")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrMixNotFound       = errors.New("mix not found")
	ErrUnplayableRoute   = errors.New("route does not name a playable scene")
	ErrLyricsNotFound    = errors.New("lyrics not found")
	ErrPremiumRequired   = errors.New("spotify premium required")
	ErrRateLimited       = errors.New("rate limited")
	ErrNetworkError      = errors.New("network error")
	ErrTimeout           = errors.New("request timeout")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidButton     = errors.New("invalid button")
	ErrInvalidResolution = errors.New("invalid resolution")
)

// Code identifies a class of user-facing failure. The kiosk front-end keys its
// alert text off these values.
type Code string

const (
	CodePlayRequest      Code = "PLAY_REQUEST_ERROR"
	CodePlayMix          Code = "PLAY_MIX_ERROR"
	CodeTransferPlayback Code = "TRANSFER_PLAYBACK_ERROR"
	CodeFetchMix         Code = "FETCH_MIX_ERROR"
	CodeFetchPlaylist    Code = "FETCH_PLAYLIST_ERROR"
	CodeFetchLibrary     Code = "FETCH_LIBRARY_ERROR"
	CodeLyrics           Code = "LYRICS_ERROR"
	CodeAuth             Code = "AUTH_ERROR"
)

// NocturneError wraps an error with a typed code and a user-friendly suggestion.
type NocturneError struct {
	Code       Code
	Err        error
	Suggestion string
}

func (e *NocturneError) Error() string {
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *NocturneError) Unwrap() error {
	return e.Err
}

// WithCode tags err with a failure code. A nil error stays nil.
func WithCode(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &NocturneError{Code: code, Err: err}
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &NocturneError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// CodeOf returns the failure code carried by err, or "" if there is none.
func CodeOf(err error) Code {
	var nerr *NocturneError
	if errors.As(err, &nerr) {
		return nerr.Code
	}
	return ""
}

// Message returns the innermost message of err without its code prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var nerr *NocturneError
	if errors.As(err, &nerr) && nerr.Err != nil {
		return nerr.Err.Error()
	}
	return err.Error()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var nerr *NocturneError
	if errors.As(err, &nerr) && nerr.Suggestion != "" {
		return nerr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrNoRefreshToken) ||
		strings.Contains(errStr, "invalid access token") || strings.Contains(errStr, "token expired") {
		return "Run 'nocturne auth login' to authenticate with Spotify"
	}

	if errors.Is(err, ErrNoPlaybackDevice) || errors.Is(err, ErrNoActiveDevice) {
		return "Open Spotify on a device, or set kiosk.default_device with 'nocturne config set-device'"
	}

	if errors.Is(err, ErrDeviceNotFound) {
		return "Run 'nocturne devices' to see available devices"
	}

	if errors.Is(err, ErrInvalidButton) {
		return "Buttons are numbered 1 to 4"
	}

	if errors.Is(err, ErrUnplayableRoute) {
		return "Hold a button for two seconds on a playlist, mix or Liked Songs page to map it"
	}

	if errors.Is(err, ErrPremiumRequired) || strings.Contains(errStr, "premium required") ||
		strings.Contains(errStr, "restricted device") {
		return "This feature requires Spotify Premium"
	}

	if errors.Is(err, ErrRateLimited) || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") {
		return "Too many requests. Wait a moment and try again"
	}

	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(errStr, "network") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check your internet connection and try again"
	}

	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) {
		return "Run 'nocturne config init' to create a configuration file"
	}

	if strings.Contains(errStr, "500") || strings.Contains(errStr, "server error") {
		return "Spotify is having issues. Try again in a moment"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// Err joins the collected errors, or returns nil.
func (p *PartialResult[T]) Err() error {
	return errors.Join(p.Errors...)
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(p.Errors)))
	for i, err := range p.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
