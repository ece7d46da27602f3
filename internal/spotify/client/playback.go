package client

import (
	"context"
	"strconv"
)

// PlayOptions configures a play request.
type PlayOptions struct {
	ContextURI string      `json:"context_uri,omitempty"`
	URIs       []string    `json:"uris,omitempty"`
	Offset     *PlayOffset `json:"offset,omitempty"`
	PositionMS int         `json:"position_ms,omitempty"`
}

// PlayOffset specifies where to start playback in a context. Position zero
// is sent explicitly.
type PlayOffset struct {
	Position int `json:"position"`
}

func withDevice(path, deviceID string, params map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	if deviceID != "" {
		params["device_id"] = deviceID
	}
	return BuildURL(path, params)
}

// Play starts or resumes playback. A nil opts resumes the current context.
// An empty deviceID targets the active device.
func (c *Client) Play(ctx context.Context, deviceID string, opts *PlayOptions) error {
	body := opts
	if body == nil {
		body = &PlayOptions{}
	}
	return c.Put(ctx, withDevice("/me/player/play", deviceID, nil), body, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/pause", deviceID, nil), nil, nil)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, deviceID string) error {
	return c.Post(ctx, withDevice("/me/player/next", deviceID, nil), nil, nil)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context, deviceID string) error {
	return c.Post(ctx, withDevice("/me/player/previous", deviceID, nil), nil, nil)
}

// SetRepeat sets the repeat mode (off, track, context).
func (c *Client) SetRepeat(ctx context.Context, state string, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/repeat", deviceID, map[string]string{"state": state}), nil, nil)
}

// SetShuffle sets the shuffle mode.
func (c *Client) SetShuffle(ctx context.Context, state bool, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/shuffle", deviceID, map[string]string{"state": strconv.FormatBool(state)}), nil, nil)
}

// TransferPlayback moves playback to a device without necessarily starting it.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body := map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return c.Put(ctx, "/me/player", body, nil)
}
