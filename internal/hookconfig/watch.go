package hookconfig

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a callback whenever one of a set of hook-configuration
// files changes on disk, for the optional hot-reload path
// (Manager.ReloadConfiguration).
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger
	done   chan struct{}
}

// WatchSources starts watching every source path's directory (fsnotify
// watches directories, not bare files, so renames-over-the-original-path
// are still observed) and calls onChange whenever one of the watched files
// is written or renamed. Returns nil, nil if sources is empty.
func WatchSources(sources []Source, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "hookconfig.watch")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := map[string]bool{}
	targets := map[string]bool{}
	for _, src := range sources {
		targets[src.Path] = true
	}
	for _, src := range sources {
		dir := dirOf(src.Path)
		if watched[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			logger.Warn("failed to watch hook config directory", "dir", dir, "error", err)
			continue
		}
		watched[dir] = true
	}

	w := &Watcher{fsw: fsw, logger: logger, done: make(chan struct{})}

	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !targets[event.Name] {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					logger.Info("hook configuration file changed, reloading", "file", event.Name)
					onChange()
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("hook config watcher error", "error", err)
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	close(w.done)
	return w.fsw.Close()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
