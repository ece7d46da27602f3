package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// File keeps the settings in a JSON document on disk.
type File struct {
	*values
	path   string
	logger *zap.Logger

	// flushMu orders writers so an older snapshot never replaces a newer one.
	flushMu sync.Mutex
}

// OpenFile loads path, or starts empty when it does not exist yet.
func OpenFile(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return &File{values: newValues(data), path: path, logger: logger}, nil
}

func readDocument(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return data, nil
}

// Path returns the settings file location.
func (f *File) Path() string {
	return f.path
}

// Flush writes the whole document atomically when anything changed.
func (f *File) Flush(ctx context.Context) error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	p := f.snapshot()
	if p.empty() {
		return nil
	}

	raw, err := json.MarshalIndent(p.all, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(f.path, raw); err != nil {
		return err
	}

	f.markClean(p)
	f.logger.Debug("settings flushed", zap.String("path", f.path), zap.Int("keys", len(p.all)))
	return nil
}

// writeAtomic replaces path with data through a temp file in the same
// directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Close flushes pending changes.
func (f *File) Close() error {
	return f.Flush(context.Background())
}

// Reload merges the document on disk into memory, keeping unflushed edits.
func (f *File) Reload() error {
	data, err := readDocument(f.path)
	if err != nil {
		return err
	}
	f.merge(data)
	return nil
}

// Watch reloads the document whenever another process rewrites it, until ctx
// is done. onReload, if set, runs after each successful reload.
func (f *File) Watch(ctx context.Context, onReload func()) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched because Flush replaces the file by rename.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(f.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := f.Reload(); err != nil {
					f.logger.Warn("settings reload failed", zap.Error(err))
					continue
				}
				if onReload != nil {
					onReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("settings watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
