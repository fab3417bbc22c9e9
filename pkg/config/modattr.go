package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchModAttrs watches the modified-attributes file and re-applies it
// whenever it changes. The restore runs under the activation mutex so
// it never interleaves with an activation. Returns once the watcher is
// installed; watching stops when ctx is cancelled.
func (e *Engine) WatchModAttrs(ctx context.Context) error {
	path := e.Settings.ModAttrPath
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return err
	}

	go e.processModAttrEvents(ctx, watcher)

	e.log.Infof("Watching modified-attributes file '%s'.", path)
	return nil
}

func (e *Engine) processModAttrEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	// Debounce bursts of write events
	var reloadTimer *time.Timer
	reloadDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			e.log.Debugf("Modified-attributes file '%s' changed.", event.Name)

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				e.activateMu.Lock()
				defer e.activateMu.Unlock()
				e.restoreModAttrs()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			e.log.WithError(err).Warn("Modified-attributes watcher error.")
		}
	}
}
