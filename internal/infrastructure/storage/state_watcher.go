package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/doeshing/phishnet-go/internal/ports"
)

// StateFileWatcher mirrors "<key>.json" files dropped into a directory by other
// contexts into the store, so store subscribers see them as storage changes.
type StateFileWatcher struct {
	dir     string
	store   ports.KeyValueStore
	logger  ports.Logger
	keys    map[string]struct{}
	watcher *fsnotify.Watcher
	running atomic.Bool
}

// NewStateFileWatcher watches dir for rewrites of the given keys.
func NewStateFileWatcher(dir string, store ports.KeyValueStore, logger ports.Logger, keys ...string) (*StateFileWatcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return &StateFileWatcher{dir: dir, store: store, logger: logger, keys: allowed}, nil
}

// Start begins watching until ctx is done.
func (w *StateFileWatcher) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("watcher already running")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.running.Store(false)
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.running.Store(false)
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		w.running.Store(false)
		return fmt.Errorf("watching directory: %w", err)
	}
	w.watcher = watcher
	go w.processEvents(ctx)
	return nil
}

func (w *StateFileWatcher) processEvents(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			key, ok := w.keyFor(event.Name)
			if !ok {
				continue
			}
			w.sync(ctx, key, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("state watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *StateFileWatcher) keyFor(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return "", false
	}
	key := strings.TrimSuffix(name, ".json")
	if _, ok := w.keys[key]; !ok {
		return "", false
	}
	return key, true
}

// sync copies the file into the store; partially written files are skipped
// and picked up by the next write event.
func (w *StateFileWatcher) sync(ctx context.Context, key, path string) {
	data, err := os.ReadFile(path)
	if err != nil || len(strings.TrimSpace(string(data))) == 0 {
		return
	}
	if err := w.store.Set(ctx, key, data); err != nil {
		w.logger.Error("mirror state file", err, map[string]interface{}{"key": key})
		return
	}
	w.logger.Debug("state file mirrored", map[string]interface{}{"key": key})
}
