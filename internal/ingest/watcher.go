package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"plaques2gallery/internal/logging"
)

// Watch emits new or rewritten plaque images under root. Bursts of events
// are coalesced for debounce before being sent, sorted by ID. The channel
// closes when ctx ends.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger) (<-chan []PlaqueImage, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "watcher")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(w, root); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan []PlaqueImage, 4)
	go func() {
		defer close(out)
		defer w.Close()

		pending := make(map[string]struct{})
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		flush := func() {
			if len(pending) == 0 {
				return
			}
			batch := make([]PlaqueImage, 0, len(pending))
			for path := range pending {
				delete(pending, path)
				if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
					continue
				}
				image, err := NewPlaqueImage(root, path)
				if err != nil {
					logger.Warn("ignoring watched file", logging.String("path", path), logging.Error(err))
					continue
				}
				batch = append(batch, image)
			}
			if len(batch) == 0 {
				return
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })
			select {
			case out <- batch:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !collect(w, event, pending, logger) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				timerC = timer.C
			case <-timerC:
				timerC = nil
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error",
					logging.Error(err),
					logging.String(logging.FieldEventType, "watcher_error"),
				)
			}
		}
	}()
	return out, nil
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// collect records the plaque paths event touches into pending and reports
// whether anything was added.
func collect(w *fsnotify.Watcher, event fsnotify.Event, pending map[string]struct{}, logger *slog.Logger) bool {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if isHidden(info.Name()) {
				return false
			}
			if err := addTree(w, event.Name); err != nil {
				logger.Warn("failed to watch new directory", logging.String("path", event.Name), logging.Error(err))
			}
			// Files moved in with the directory produce no events of their own.
			scan, err := Scan(event.Name)
			if err != nil {
				return false
			}
			for _, image := range scan.Images {
				pending[image.Path] = struct{}{}
			}
			return len(scan.Images) > 0
		}
	}
	if isHidden(filepath.Base(event.Name)) || !IsSupported(event.Name) {
		return false
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}
