package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ButtonID identifies one of the four physical preset buttons.
type ButtonID int

// Buttons lists every preset button in order.
var Buttons = []ButtonID{1, 2, 3, 4}

// ParseButton maps a key name ("1".."4") to a ButtonID.
func ParseButton(key string) (ButtonID, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, false
	}
	b := ButtonID(n)
	return b, b.Valid()
}

// Valid reports whether b names a physical button.
func (b ButtonID) Valid() bool {
	return b >= 1 && b <= 4
}

func (b ButtonID) String() string {
	return strconv.Itoa(int(b))
}

// ButtonMapping is the scene a button recalls.
type ButtonMapping struct {
	Button   ButtonID `json:"button"`
	Route    string   `json:"route"`
	ImageURL string   `json:"image_url,omitempty"`
}

// LikedSongsRoute is the sentinel route stored for the Liked Songs page.
const LikedSongsRoute = "liked-songs"

// PageKind classifies a kiosk route by what a long press would record.
type PageKind int

const (
	PageOther PageKind = iota
	PagePlaylist
	PageMix
	PageLikedSongs
)

func (k PageKind) String() string {
	switch k {
	case PagePlaylist:
		return "Playlist"
	case PageMix:
		return "Mix"
	case PageLikedSongs:
		return "Liked Songs"
	default:
		return "Page"
	}
}

// ClassifyPage returns the kind of page at path.
func ClassifyPage(path string) PageKind {
	switch {
	case strings.Contains(path, "/playlist/"):
		return PagePlaylist
	case strings.Contains(path, "/collection/"):
		return PageLikedSongs
	case strings.HasPrefix(path, "/mix/"):
		return PageMix
	default:
		return PageOther
	}
}

// SuppressesActivation reports whether a short press on path is left to the
// page itself instead of recalling a mapped scene.
func SuppressesActivation(path string) bool {
	return strings.Contains(path, "/playlist/") || strings.Contains(path, "/collection/")
}

// TargetKind distinguishes how a scene is started.
type TargetKind int

const (
	TargetPlaylist TargetKind = iota
	TargetLikedSongs
)

// PlaybackTarget is the thing a mapped route plays.
type PlaybackTarget struct {
	Kind TargetKind
	// ID is the playlist id for TargetPlaylist.
	ID string
}

// ContextURI returns the Spotify context URI of a playlist target.
func (t PlaybackTarget) ContextURI() string {
	return "spotify:playlist:" + t.ID
}

// TargetForRoute classifies a stored route. The liked-songs sentinel plays the
// user's saved tracks; any other route plays the playlist named by its last
// path segment.
func TargetForRoute(route string) (PlaybackTarget, error) {
	if route == LikedSongsRoute {
		return PlaybackTarget{Kind: TargetLikedSongs}, nil
	}
	trimmed := strings.TrimRight(route, "/")
	id := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if id == "" {
		return PlaybackTarget{}, fmt.Errorf("route %q has no playlist id", route)
	}
	return PlaybackTarget{Kind: TargetPlaylist, ID: id}, nil
}
