package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultRelease is how long a preset key may go unrepeated before it
// counts as released. It must exceed the terminal's auto-repeat delay.
const DefaultRelease = 600 * time.Millisecond

// Terminals report key presses but never releases. A held key arrives as a
// stream of auto-repeated presses, so a key is considered released once no
// press has arrived for the release window.
type keyTracker struct {
	release time.Duration
	seq     int
	held    map[string]*heldKey
}

type heldKey struct {
	seen time.Time
	gen  int
}

// releaseCheckMsg asks whether press gen of key has ended.
type releaseCheckMsg struct {
	key string
	gen int
}

func newKeyTracker(release time.Duration) *keyTracker {
	if release <= 0 {
		release = DefaultRelease
	}
	return &keyTracker{release: release, held: map[string]*heldKey{}}
}

// press records a press of key. It reports whether this starts a new hold
// and the hold's generation.
func (k *keyTracker) press(key string, now time.Time) (first bool, gen int) {
	if h, ok := k.held[key]; ok {
		h.seen = now
		return false, h.gen
	}
	k.seq++
	k.held[key] = &heldKey{seen: now, gen: k.seq}
	return true, k.seq
}

// check reports whether hold gen of key has been released by now. If not,
// it returns how long to wait before checking again.
func (k *keyTracker) check(key string, gen int, now time.Time) (released bool, wait time.Duration) {
	h, ok := k.held[key]
	if !ok || h.gen != gen {
		return false, 0
	}
	idle := now.Sub(h.seen)
	if idle >= k.release {
		delete(k.held, key)
		return true, 0
	}
	return false, k.release - idle
}

func (k *keyTracker) schedule(key string, gen int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return releaseCheckMsg{key: key, gen: gen}
	})
}
