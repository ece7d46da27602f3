package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/tail"
)

// Kiosk effects delivered to the model.
type (
	toastMsg       string
	hideToastMsg   struct{}
	overlayMsg     core.ButtonID
	hideOverlayMsg struct{}
	navigateMsg    string
	kioskErrorMsg  struct{ code, message string }
	playbackMsg    tail.Event
	lyricsMsg      lyrics.Snapshot
)

// Display forwards session effects into a running program.
type Display struct {
	send func(tea.Msg)
}

// NewDisplay creates a display that delivers messages with send, usually
// (*tea.Program).Send.
func NewDisplay(send func(tea.Msg)) *Display {
	return &Display{send: send}
}

func (d *Display) ShowToast(message string)       { d.send(toastMsg(message)) }
func (d *Display) HideToast()                     { d.send(hideToastMsg{}) }
func (d *Display) ShowOverlay(b core.ButtonID)    { d.send(overlayMsg(b)) }
func (d *Display) HideOverlay()                   { d.send(hideOverlayMsg{}) }
func (d *Display) Navigate(path string)           { d.send(navigateMsg(path)) }
func (d *Display) ShowError(code, message string) { d.send(kioskErrorMsg{code, message}) }

func (d *Display) PlaybackEvent(e tail.Event)      { d.send(playbackMsg(e)) }
func (d *Display) LyricsChanged(s lyrics.Snapshot) { d.send(lyricsMsg(s)) }
