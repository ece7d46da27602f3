package library

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/deluan/sanitize"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/client"
)

// Section identifies a home screen section.
type Section string

const (
	SectionRecents  Section = "recents"
	SectionLibrary  Section = "library"
	SectionArtists  Section = "artists"
	SectionRadio    Section = "radio"
	SectionSettings Section = "settings"
)

// Sections lists the home sections in sidebar order.
var Sections = []Section{SectionRecents, SectionLibrary, SectionArtists, SectionRadio, SectionSettings}

// ParseSection returns the section named s.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// Item is one tile of a home section.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url,omitempty"`
	Route    string `json:"route"`
}

// Home holds the contents of every data-backed section.
type Home struct {
	Recents []Item `json:"recents"`
	Library []Item `json:"library"`
	Artists []Item `json:"artists"`
	Radio   []Item `json:"radio"`
}

// Section returns the items of sec.
func (h *Home) Section(sec Section) []Item {
	switch sec {
	case SectionRecents:
		return h.Recents
	case SectionLibrary:
		return h.Library
	case SectionArtists:
		return h.Artists
	case SectionRadio:
		return h.Radio
	default:
		return nil
	}
}

// API is the subset of the Spotify client the library reads.
type API interface {
	PlaylistTracks
	GetRecentlyPlayed(ctx context.Context, limit int) (*client.RecentlyPlayedResponse, error)
	GetMyPlaylists(ctx context.Context, limit, offset int) (*client.Page[client.Playlist], error)
	GetFollowedArtists(ctx context.Context, limit int) ([]client.Artist, error)
	GetPlaylist(ctx context.Context, id string) (*client.Playlist, error)
}

// mixOwner owns the generated mixes shown under radio.
const mixOwner = "spotify"

const (
	recentsLimit   = 50
	playlistsLimit = 50
	artistsLimit   = 50
)

// Library loads and caches home sections.
type Library struct {
	api    API
	logger *zap.Logger

	mu    sync.RWMutex
	home  Home
	mixes map[string]client.Playlist
}

// New creates a library backed by api.
func New(api API, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{api: api, logger: logger.Named("library"), mixes: map[string]client.Playlist{}}
}

// Load fetches every section. Sections that fail are left empty and their
// errors collected; the rest are still returned.
func (l *Library) Load(ctx context.Context) *nerrors.PartialResult[Home] {
	result := &nerrors.PartialResult[Home]{}

	recents, err := l.api.GetRecentlyPlayed(ctx, recentsLimit)
	if err != nil {
		result.AddError(fmt.Errorf("recents: %w", err))
	} else {
		result.Data.Recents = recentAlbums(recents.Items)
	}

	mixes := map[string]client.Playlist{}
	playlists, err := l.api.GetMyPlaylists(ctx, playlistsLimit, 0)
	if err != nil {
		result.AddError(nerrors.WithCode(nerrors.CodeFetchLibrary, fmt.Errorf("library: %w", err)))
	} else {
		for _, p := range playlists.Items {
			if p.Owner.ID == mixOwner {
				mixes[p.ID] = p
				result.Data.Radio = append(result.Data.Radio, Item{
					ID:       p.ID,
					Title:    p.Name,
					Subtitle: p.Description,
					ImageURL: client.FirstImageURL(p.Images),
					Route:    "/mix/" + p.ID,
				})
				continue
			}
			result.Data.Library = append(result.Data.Library, Item{
				ID:       p.ID,
				Title:    p.Name,
				Subtitle: CountLabel(p.Tracks.Total, "Song"),
				ImageURL: client.FirstImageURL(p.Images),
				Route:    "/playlist/" + p.ID,
			})
		}
	}

	artists, err := l.api.GetFollowedArtists(ctx, artistsLimit)
	if err != nil {
		result.AddError(fmt.Errorf("artists: %w", err))
	} else {
		for _, a := range artists {
			result.Data.Artists = append(result.Data.Artists, Item{
				ID:       a.ID,
				Title:    a.Name,
				Subtitle: CountLabel(a.Followers.Total, "Follower"),
				ImageURL: client.FirstImageURL(a.Images),
				Route:    "/artist/" + a.ID,
			})
		}
	}

	if result.HasErrors() {
		l.logger.Warn("home partially loaded", zap.String("errors", result.ErrorSummary()))
	}

	l.mu.Lock()
	l.home = result.Data
	if playlists != nil {
		l.mixes = mixes
	}
	l.mu.Unlock()

	return result
}

// Home returns the last loaded sections.
func (l *Library) Home() Home {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.home
}

// recentAlbums returns the albums of recently played tracks, most recent
// first, each album once.
func recentAlbums(history []client.PlayHistory) []Item {
	seen := map[string]bool{}
	var items []Item
	for _, h := range history {
		album := h.Track.Album
		if album.ID == "" || seen[album.ID] {
			continue
		}
		seen[album.ID] = true

		artists := album.Artists
		if len(artists) == 0 {
			artists = h.Track.Artists
		}
		names := make([]string, len(artists))
		for i, a := range artists {
			names[i] = a.Name
		}
		items = append(items, Item{
			ID:       album.ID,
			Title:    album.Name,
			Subtitle: strings.Join(names, ", "),
			ImageURL: client.FirstImageURL(album.Images),
			Route:    "/album/" + album.ID,
		})
	}
	return items
}

// CountLabel renders n with thousands separators and a pluralized noun.
func CountLabel(n int, noun string) string {
	if n != 1 {
		noun += "s"
	}
	return humanize.Comma(int64(n)) + " " + noun
}

// Mix is a generated mix with its tracks.
type Mix struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url,omitempty"`
	URIs     []string `json:"uris"`
}

// Mix returns the mix with id from the last loaded radio section together
// with all of its playable track URIs. An unknown id yields FETCH_MIX_ERROR.
func (l *Library) Mix(ctx context.Context, id string) (*Mix, error) {
	l.mu.RLock()
	p, ok := l.mixes[id]
	l.mu.RUnlock()
	if !ok {
		return nil, nerrors.WithCode(nerrors.CodeFetchMix, fmt.Errorf("Mix not found: %w", nerrors.ErrMixNotFound))
	}

	pager := NewTrackPager(l.api, id)
	for pager.HasMore() {
		n, err := pager.LoadMore(ctx)
		if err != nil {
			return nil, nerrors.WithCode(nerrors.CodeFetchMix, err)
		}
		if n == 0 {
			break
		}
	}

	mix := &Mix{ID: p.ID, Name: p.Name, ImageURL: client.FirstImageURL(p.Images)}
	for _, t := range pager.Items() {
		if t != nil && t.URI != "" {
			mix.URIs = append(mix.URIs, t.URI)
		}
	}
	return mix, nil
}

// Playlist fetches a playlist and its first page of tracks. The returned
// pager continues from there.
func (l *Library) Playlist(ctx context.Context, id string) (*client.Playlist, *TrackPager, error) {
	p, err := l.api.GetPlaylist(ctx, id)
	if err != nil {
		return nil, nil, nerrors.WithCode(nerrors.CodeFetchPlaylist, err)
	}
	pager := NewTrackPager(l.api, id)
	if _, err := pager.LoadMore(ctx); err != nil {
		return nil, nil, nerrors.WithCode(nerrors.CodeFetchPlaylist, err)
	}
	return p, pager, nil
}

// Filter returns the items whose title or subtitle contains every word of
// query, ignoring case and accents.
func Filter(items []Item, query string) []Item {
	terms := strings.Fields(strings.ToLower(sanitize.Accents(query)))
	if len(terms) == 0 {
		return items
	}
	var out []Item
	for _, it := range items {
		name := strings.ToLower(sanitize.Accents(it.Title + " " + it.Subtitle))
		if allTermsMatch(name, terms) {
			out = append(out, it)
		}
	}
	return out
}

func allTermsMatch(name string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(name, t) {
			return false
		}
	}
	return true
}
