package core

// Display receives the transient UI effects of kiosk actions. The browser
// bridge and the terminal console both implement it.
type Display interface {
	ShowToast(message string)
	HideToast()
	ShowOverlay(b ButtonID)
	HideOverlay()
	Navigate(path string)
	// ShowError reports a failure under a stable code such as
	// PLAY_REQUEST_ERROR.
	ShowError(code, message string)
}

// NowPlayingRoute is where a successfully started scene lands.
const NowPlayingRoute = "/now-playing"
