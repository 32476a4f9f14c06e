package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Watch monitors path and calls onChange with the freshly loaded Config
// each time the file is written. A failed reload keeps the previous
// config active and is reported through obs. Watch blocks until ctx is
// cancelled.
func Watch(ctx context.Context, path string, obs ports.Observability, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	obs.LogInfo("watching config for changes", ports.Field{Key: "path", Value: path})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, which arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				obs.LogError("config reload failed, keeping previous config", err,
					ports.Field{Key: "path", Value: path})
				continue
			}

			obs.LogInfo("config reloaded", ports.Field{Key: "path", Value: path})
			onChange(cfg)

			// An atomic save replaces the inode, so re-add the path.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			obs.LogError("config watcher error", err)
		}
	}
}
