// Package store holds the kiosk's persistent string settings: button
// mappings, playback preferences and page covers. A Store is opened once per
// session, mutated in memory, and written to its backing medium on Flush.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/config"
)

// Store is a string key/value settings store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Keys() []string
	// Flush writes pending changes to the backing medium.
	Flush(ctx context.Context) error
	// Close flushes and releases the backend.
	Close() error
}

// Open creates the store selected by cfg and loads its current contents.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("store")

	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "", "file":
		return OpenFile(cfg.Path, logger)
	case "redis":
		return OpenRedis(ctx, RedisOptions{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
			Key:  cfg.RedisKey,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// values is the in-memory map shared by every backend. It records which keys
// changed since the last flush so backends can write incrementally.
type values struct {
	mu      sync.RWMutex
	data    map[string]string
	dirty   map[string]struct{}
	deleted map[string]struct{}
}

func newValues(initial map[string]string) *values {
	if initial == nil {
		initial = map[string]string{}
	}
	return &values{
		data:    initial,
		dirty:   map[string]struct{}{},
		deleted: map[string]struct{}{},
	}
}

func (v *values) Get(key string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

func (v *values) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
	v.dirty[key] = struct{}{}
	delete(v.deleted, key)
	return nil
}

func (v *values) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.data, key)
	delete(v.dirty, key)
	v.deleted[key] = struct{}{}
	return nil
}

func (v *values) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.data))
	for k := range v.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pending is a snapshot of unflushed changes.
type pending struct {
	all     map[string]string
	set     map[string]string
	deleted []string
}

func (p pending) empty() bool {
	return len(p.set) == 0 && len(p.deleted) == 0
}

// snapshot captures the current contents and pending changes without
// clearing them; call markClean after a successful write.
func (v *values) snapshot() pending {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p := pending{
		all: make(map[string]string, len(v.data)),
		set: make(map[string]string, len(v.dirty)),
	}
	for k, val := range v.data {
		p.all[k] = val
	}
	for k := range v.dirty {
		p.set[k] = v.data[k]
	}
	for k := range v.deleted {
		p.deleted = append(p.deleted, k)
	}
	return p
}

// markClean forgets the changes in p that have not been overwritten since.
func (v *values) markClean(p pending) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range p.set {
		if cur, ok := v.data[k]; ok && cur == val {
			delete(v.dirty, k)
		}
	}
	for _, k := range p.deleted {
		if _, ok := v.data[k]; !ok {
			delete(v.deleted, k)
		}
	}
}

// merge replaces the contents with external values while keeping local
// changes that have not been flushed yet.
func (v *values) merge(external map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := make(map[string]string, len(external))
	for k, val := range external {
		if _, gone := v.deleted[k]; gone {
			continue
		}
		next[k] = val
	}
	for k := range v.dirty {
		next[k] = v.data[k]
	}
	v.data = next
}

// Memory is a Store with no backing medium.
type Memory struct {
	*values
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: newValues(nil)}
}

// Flush implements Store; there is nothing to write.
func (m *Memory) Flush(ctx context.Context) error {
	m.markClean(m.snapshot())
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
