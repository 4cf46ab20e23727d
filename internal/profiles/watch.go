package profiles

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// watchDebounce coalesces the burst of events an atomic rename produces.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the store whenever profiles.json changes on disk and
// sends on the returned channel after each successful reload. Sends never
// block; a pending notification is enough for a slow reader. The channel
// closes when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: rename-based writes replace the file inode.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	changed := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, changed)
	return changed, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changed chan<- struct{}) {
	defer close(changed)
	defer watcher.Close()

	name := filepath.Base(s.path)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			if err := s.Reload(); err != nil {
				tuilog.Log.Warn("Profile reload failed", "path", s.path, "error", err)
				continue
			}
			tuilog.Log.Debug("Profiles reloaded", "path", s.path)
			select {
			case changed <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			tuilog.Log.Warn("Profile watcher error", "error", err)
		}
	}
}
