// Package library loads the kiosk's browsable collections: home sections,
// mixes and paged playlist tracks.
package library

import (
	"context"
	"sync"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/spotify/player"
)

// PageSize is the number of tracks requested per page.
const PageSize = 25

// FetchFunc loads up to limit items starting at offset and reports the
// total size of the collection.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) (items []T, total int, err error)

// Pager accumulates pages of a collection. At most one fetch is in flight
// at a time; the next page always starts at the number of items loaded.
type Pager[T any] struct {
	fetch FetchFunc[T]
	limit int

	mu      sync.Mutex
	items   []T
	total   int
	loading bool
	done    bool
}

// NewPager creates a pager requesting PageSize items per fetch.
func NewPager[T any](fetch FetchFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch, limit: PageSize, total: -1}
}

// Seed installs an already loaded first page.
func (p *Pager[T]) Seed(items []T, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append([]T(nil), items...)
	p.total = total
	p.done = len(items) >= total
}

// HasMore reports whether another page may exist.
func (p *Pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMoreLocked()
}

func (p *Pager[T]) hasMoreLocked() bool {
	if p.done {
		return false
	}
	return p.total < 0 || len(p.items) < p.total
}

// Loading reports whether a fetch is in flight.
func (p *Pager[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// LoadMore fetches the next page and returns how many items it added. It is
// a no-op while another fetch is in flight or once the collection is
// exhausted. Items are kept when a fetch fails.
func (p *Pager[T]) LoadMore(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.loading || !p.hasMoreLocked() {
		p.mu.Unlock()
		return 0, nil
	}
	p.loading = true
	offset := len(p.items)
	p.mu.Unlock()

	items, total, err := p.fetch(ctx, offset, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		return 0, err
	}
	p.total = total
	p.items = append(p.items, items...)
	if len(items) == 0 || len(p.items) >= total {
		p.done = true
	}
	return len(items), nil
}

// Items returns a copy of the loaded items.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.items...)
}

// Total returns the reported collection size, or -1 before the first fetch.
func (p *Pager[T]) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// PlaylistTracks is the subset of the client used to page playlist items.
type PlaylistTracks interface {
	GetPlaylistTracks(ctx context.Context, id string, offset, limit int) (*client.Page[client.PlaylistItem], error)
}

// TrackPager pages the items of one playlist. Removed or unavailable items
// count towards the offset but carry a nil track.
type TrackPager = Pager[*core.Track]

// NewTrackPager creates a pager over the tracks of playlistID.
func NewTrackPager(api PlaylistTracks, playlistID string) *TrackPager {
	return NewPager(func(ctx context.Context, offset, limit int) ([]*core.Track, int, error) {
		page, err := api.GetPlaylistTracks(ctx, playlistID, offset, limit)
		if err != nil {
			return nil, 0, err
		}
		tracks := make([]*core.Track, len(page.Items))
		for i, item := range page.Items {
			if item.Track != nil {
				tracks[i] = player.ConvertTrack(item.Track)
			}
		}
		return tracks, page.Total, nil
	})
}
