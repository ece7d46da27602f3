package client

// User represents a Spotify user profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Country     string    `json:"country"`
	Product     string    `json:"product"`
	URI         string    `json:"uri"`
	Images      []Image   `json:"images"`
	Followers   Followers `json:"followers"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Followers represents follower information.
type Followers struct {
	Total int `json:"total"`
}

// Device represents a Spotify playback device.
type Device struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	IsActive         bool   `json:"is_active"`
	IsRestricted     bool   `json:"is_restricted"`
	IsPrivateSession bool   `json:"is_private_session"`
	VolumePercent    *int   `json:"volume_percent"`
	SupportsVolume   bool   `json:"supports_volume"`
}

// DevicesResponse is the response from the devices endpoint.
type DevicesResponse struct {
	Devices []Device `json:"devices"`
}

// PlaybackState represents the current playback state.
type PlaybackState struct {
	Device               Device   `json:"device"`
	ShuffleState         bool     `json:"shuffle_state"`
	RepeatState          string   `json:"repeat_state"`
	Timestamp            int64    `json:"timestamp"`
	ProgressMS           int      `json:"progress_ms"`
	IsPlaying            bool     `json:"is_playing"`
	Item                 *Track   `json:"item"`
	CurrentlyPlayingType string   `json:"currently_playing_type"`
	Context              *Context `json:"context"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	IsLocal    bool     `json:"is_local"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// Artist represents a Spotify artist. Images and followers are only present
// on full artist objects.
type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
	Images    []Image   `json:"images"`
	Followers Followers `json:"followers"`
	Genres    []string  `json:"genres"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URI         string   `json:"uri"`
	AlbumType   string   `json:"album_type"`
	TotalTracks int      `json:"total_tracks"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images"`
	Artists     []Artist `json:"artists"`
}

// Context represents a playback context (album, artist, playlist).
type Context struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	URI           string  `json:"uri"`
	Description   string  `json:"description"`
	Public        bool    `json:"public"`
	Collaborative bool    `json:"collaborative"`
	Images        []Image `json:"images"`
	Owner         User    `json:"owner"`
	Tracks        struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// SavedTrack is an entry of the user's Liked Songs.
type SavedTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// PlaylistItem is an entry of a playlist. Track is nil for removed or
// unavailable items.
type PlaylistItem struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// Page is a Spotify offset-paged list.
type Page[T any] struct {
	Items  []T    `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Next   string `json:"next"`
}

// FollowedArtistsResponse wraps the cursor-paged followed artists list.
type FollowedArtistsResponse struct {
	Artists struct {
		Items   []Artist `json:"items"`
		Total   int      `json:"total"`
		Next    string   `json:"next"`
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
	} `json:"artists"`
}

// PlayHistory is a recently played entry.
type PlayHistory struct {
	Track    Track    `json:"track"`
	PlayedAt string   `json:"played_at"`
	Context  *Context `json:"context"`
}

// RecentlyPlayedResponse is the response from the recently played endpoint.
type RecentlyPlayedResponse struct {
	Items []PlayHistory `json:"items"`
	Next  string        `json:"next"`
}

// SnapshotResponse is returned by playlist mutations.
type SnapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// FirstImageURL returns the URL of the first image, or "".
func FirstImageURL(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
