package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GetCurrentUser returns the current user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDevices returns the user's available playback devices.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var resp DevicesResponse
	if err := c.Get(ctx, "/me/player/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// GetPlaybackState returns the current playback state, or nil when nothing
// is playing on any device.
func (c *Client) GetPlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state PlaybackState
	status, err := c.request(ctx, http.MethodGet, "/me/player", nil, &state)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &state, nil
}

// GetRecentlyPlayed returns the user's recently played tracks.
func (c *Client) GetRecentlyPlayed(ctx context.Context, limit int) (*RecentlyPlayedResponse, error) {
	params := make(map[string]string)
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	var resp RecentlyPlayedResponse
	if err := c.Get(ctx, BuildURL("/me/player/recently-played", params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSavedTracks returns a page of the user's Liked Songs.
func (c *Client) GetSavedTracks(ctx context.Context, limit, offset int) (*Page[SavedTrack], error) {
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if offset > 0 {
		params["offset"] = strconv.Itoa(offset)
	}

	var page Page[SavedTrack]
	if err := c.Get(ctx, BuildURL("/me/tracks", params), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPlaylist returns a playlist with its track total.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var playlist Playlist
	if err := c.Get(ctx, "/playlists/"+url.PathEscape(id), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// GetPlaylistTracks returns one page of a playlist's items.
func (c *Client) GetPlaylistTracks(ctx context.Context, id string, offset, limit int) (*Page[PlaylistItem], error) {
	params := map[string]string{
		"offset": strconv.Itoa(offset),
		"limit":  strconv.Itoa(limit),
	}

	var page Page[PlaylistItem]
	if err := c.Get(ctx, BuildURL("/playlists/"+url.PathEscape(id)+"/tracks", params), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMyPlaylists returns a page of the playlists the user owns or follows.
func (c *Client) GetMyPlaylists(ctx context.Context, limit, offset int) (*Page[Playlist], error) {
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if offset > 0 {
		params["offset"] = strconv.Itoa(offset)
	}

	var page Page[Playlist]
	if err := c.Get(ctx, BuildURL("/me/playlists", params), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetFollowedArtists returns up to limit followed artists.
func (c *Client) GetFollowedArtists(ctx context.Context, limit int) ([]Artist, error) {
	params := map[string]string{
		"type":  "artist",
		"limit": strconv.Itoa(limit),
	}

	var resp FollowedArtistsResponse
	if err := c.Get(ctx, BuildURL("/me/following", params), &resp); err != nil {
		return nil, err
	}
	return resp.Artists.Items, nil
}

// CreatePlaylistRequest is the body of a playlist creation.
type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// CreatePlaylist creates a playlist owned by userID.
func (c *Client) CreatePlaylist(ctx context.Context, userID string, req CreatePlaylistRequest) (*Playlist, error) {
	var playlist Playlist
	if err := c.Post(ctx, "/users/"+url.PathEscape(userID)+"/playlists", req, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		return nil, fmt.Errorf("create playlist: response has no id")
	}
	return &playlist, nil
}

// AddTracksToPlaylist appends track URIs to a playlist.
func (c *Client) AddTracksToPlaylist(ctx context.Context, id string, uris []string) error {
	body := map[string][]string{"uris": uris}
	var resp SnapshotResponse
	return c.Post(ctx, "/playlists/"+url.PathEscape(id)+"/tracks", body, &resp)
}

// UnfollowPlaylist removes a playlist from the user's library, which is how
// Spotify deletes playlists the user owns.
func (c *Client) UnfollowPlaylist(ctx context.Context, id string) error {
	return c.Delete(ctx, "/playlists/"+url.PathEscape(id)+"/followers")
}
