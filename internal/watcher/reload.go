package watcher

import (
	"context"
)

// ReloadFunc reloads whatever the watched files feed.
type ReloadFunc func(ctx context.Context) error

// OnChange calls reload for every EventChanged until ctx is done or the watcher is
// stopped. Removals are logged and otherwise ignored, so a catalog deleted mid-edit
// keeps serving the last index. Reload errors are logged, not returned.
func (w *Watcher) OnChange(ctx context.Context, reload ReloadFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case err := <-w.errors:
			w.logger.Warn("watch error", "error", err)
		case event := <-w.events:
			if event.Type == EventRemoved {
				w.logger.Warn("watched file removed, keeping current catalog", "path", event.Path)
				continue
			}

			w.logger.Info("watched file changed, reloading", "path", event.Path, "size", event.Size)
			if err := reload(ctx); err != nil {
				w.logger.Error("reload after file change failed", "path", event.Path, "error", err)
			}
		}
	}
}
