package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is rewritten. It runs until ctx is cancelled.
//
// A failed reload (invalid YAML, validation error) is logged and onChange is
// not called — the previous config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors that save atomically replace the file via rename, which
			// shows up as Create rather than Write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			reload(path, onChange)

			// The rename may have replaced the inode; re-add the watch.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// reload re-reads the file and hands the result to onChange. A file that no
// longer loads cleanly is logged and dropped.
func reload(path string, onChange func(*Config)) {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload failed, keeping previous config",
			"path", path, "err", err)
		return
	}
	slog.Info("config: reloaded", "path", path, "stores", len(cfg.Stores))
	onChange(cfg)
}
