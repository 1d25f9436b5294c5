package catalogconfig

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval is fixed at 1 second per §4.1: the config path may live on a
// mount that never delivers inotify events, so polling mtime is the only
// mechanism guaranteed to notice a change.
const pollInterval = 1 * time.Second

// ChangeFunc is invoked with a newly loaded desired set whenever the digest
// changes. Returning an error does not stop the watcher.
type ChangeFunc func(DesiredSet, []string) error

// Watcher polls the loader's source file and invokes a callback on change.
// An fsnotify watcher on the containing directory is used only to wake the
// poll loop early on filesystems that do support notifications; the 1-second
// ticker remains the ground truth so behavior is identical on mounts that
// don't.
type Watcher struct {
	loader   *Loader
	onChange ChangeFunc
	lastSeen Digest
}

// NewWatcher creates a Watcher. Call Run to start polling.
func NewWatcher(loader *Loader, onChange ChangeFunc) *Watcher {
	return &Watcher{loader: loader, onChange: onChange}
}

// Run blocks, polling until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	nudge := make(chan struct{}, 1)
	if fsw, err := fsnotify.NewWatcher(); err == nil {
		defer fsw.Close()
		if err := fsw.Add(filepath.Dir(w.loader.Path)); err == nil {
			go func() {
				for {
					select {
					case _, ok := <-fsw.Events:
						if !ok {
							return
						}
						select {
						case nudge <- struct{}{}:
						default:
						}
					case <-fsw.Errors:
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	} else {
		log.Printf("WARN: config watcher: fsnotify unavailable, falling back to pure polling: %v", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Load once synchronously so the caller has an initial desired set
	// before the first tick.
	w.poll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll()
		case <-nudge:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	desired, digest, warnings, err := w.loader.Load()
	if err != nil {
		log.Printf("WARN: config reload failed, keeping previous desired set: %v", err)
		return
	}
	for _, warning := range warnings {
		log.Printf("WARN: config: %s", warning)
	}
	if digest == w.lastSeen {
		return
	}
	w.lastSeen = digest
	if err := w.onChange(desired, warnings); err != nil {
		log.Printf("WARN: config watcher callback failed: %v", err)
	}
}
