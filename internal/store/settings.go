package store

import (
	"fmt"
	"strconv"

	"github.com/tessro/nocturne/internal/core"
)

// Keys shared with the browser front-end.
const (
	KeyShuffle           = "shuffleEnabled"
	KeyRepeat            = "repeatMode"
	KeyLyricsMenu        = "lyricsMenuEnabled"
	KeyMixPageImage      = "mixPageImage"
	KeyPlaylistPageImage = "playlistPageImage"
)

// ButtonMapKey is the key holding the route mapped to b.
func ButtonMapKey(b core.ButtonID) string {
	return fmt.Sprintf("button%dMap", b)
}

// ButtonImageKey is the key holding the cover shown for b.
func ButtonImageKey(b core.ButtonID) string {
	return fmt.Sprintf("button%dImage", b)
}

// PlayingMixKey is the key holding the temporary playlist URI of a mix.
func PlayingMixKey(mixID string) string {
	return "playingMix-" + mixID
}

// Defaults are written on first run for keys that are still absent.
type Defaults struct {
	Shuffle    bool
	Repeat     core.RepeatMode
	LyricsMenu bool
}

// Settings gives typed access to a Store.
type Settings struct {
	store Store
}

// NewSettings wraps s.
func NewSettings(s Store) *Settings {
	return &Settings{store: s}
}

// Store returns the underlying store.
func (s *Settings) Store() Store {
	return s.store
}

// Init writes d for every key that has no value yet.
func (s *Settings) Init(d Defaults) error {
	initial := map[string]string{
		KeyShuffle:    strconv.FormatBool(d.Shuffle),
		KeyRepeat:     string(d.Repeat),
		KeyLyricsMenu: strconv.FormatBool(d.LyricsMenu),
	}
	for k, v := range initial {
		if v == "" {
			continue
		}
		if _, ok := s.store.Get(k); !ok {
			if err := s.store.Set(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Settings) boolValue(key string, def bool) bool {
	v, ok := s.store.Get(key)
	if !ok {
		return def
	}
	return v == "true"
}

// Shuffle reports the persisted shuffle preference (default false).
func (s *Settings) Shuffle() bool {
	return s.boolValue(KeyShuffle, false)
}

// SetShuffle persists the shuffle preference.
func (s *Settings) SetShuffle(on bool) error {
	return s.store.Set(KeyShuffle, strconv.FormatBool(on))
}

// Repeat reports the persisted repeat mode (default off).
func (s *Settings) Repeat() core.RepeatMode {
	v, _ := s.store.Get(KeyRepeat)
	return core.ParseRepeatMode(v)
}

// SetRepeat persists the repeat mode.
func (s *Settings) SetRepeat(mode core.RepeatMode) error {
	return s.store.Set(KeyRepeat, string(core.ParseRepeatMode(string(mode))))
}

// LyricsMenuEnabled reports whether the lyrics panel may be opened.
func (s *Settings) LyricsMenuEnabled() bool {
	return s.boolValue(KeyLyricsMenu, true)
}

// SetLyricsMenuEnabled persists the lyrics menu setting.
func (s *Settings) SetLyricsMenuEnabled(on bool) error {
	return s.store.Set(KeyLyricsMenu, strconv.FormatBool(on))
}

func pageImageKey(kind core.PageKind) (string, bool) {
	switch kind {
	case core.PagePlaylist:
		return KeyPlaylistPageImage, true
	case core.PageMix:
		return KeyMixPageImage, true
	}
	return "", false
}

// PageImage returns the last cover recorded for pages of kind.
func (s *Settings) PageImage(kind core.PageKind) string {
	key, ok := pageImageKey(kind)
	if !ok {
		return ""
	}
	v, _ := s.store.Get(key)
	return v
}

// SetPageImage records the cover of the page being shown. Pages without a
// cover slot and empty URLs are ignored.
func (s *Settings) SetPageImage(kind core.PageKind, url string) error {
	key, ok := pageImageKey(kind)
	if !ok || url == "" {
		return nil
	}
	return s.store.Set(key, url)
}

// Mapping returns the mapping of b, if any.
func (s *Settings) Mapping(b core.ButtonID) (core.ButtonMapping, bool) {
	route, ok := s.store.Get(ButtonMapKey(b))
	if !ok || route == "" {
		return core.ButtonMapping{}, false
	}
	image, _ := s.store.Get(ButtonImageKey(b))
	return core.ButtonMapping{Button: b, Route: route, ImageURL: image}, true
}

// SetMapping stores m, replacing any previous mapping of the same button.
// An empty ImageURL leaves the stored image unchanged.
func (s *Settings) SetMapping(m core.ButtonMapping) error {
	if !m.Button.Valid() {
		return fmt.Errorf("button %d: out of range", m.Button)
	}
	if err := s.store.Set(ButtonMapKey(m.Button), m.Route); err != nil {
		return err
	}
	if m.ImageURL != "" {
		return s.store.Set(ButtonImageKey(m.Button), m.ImageURL)
	}
	return nil
}

// Mappings returns every stored mapping in button order.
func (s *Settings) Mappings() []core.ButtonMapping {
	var out []core.ButtonMapping
	for _, b := range core.Buttons {
		if m, ok := s.Mapping(b); ok {
			out = append(out, m)
		}
	}
	return out
}

// AnyMapping reports whether at least one button is mapped.
func (s *Settings) AnyMapping() bool {
	for _, b := range core.Buttons {
		if _, ok := s.Mapping(b); ok {
			return true
		}
	}
	return false
}

// PlayingMix returns the temporary playlist URI recorded for a mix.
func (s *Settings) PlayingMix(mixID string) (string, bool) {
	return s.store.Get(PlayingMixKey(mixID))
}

// SetPlayingMix records the temporary playlist URI of a mix.
func (s *Settings) SetPlayingMix(mixID, uri string) error {
	return s.store.Set(PlayingMixKey(mixID), uri)
}
