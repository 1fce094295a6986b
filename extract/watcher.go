package extract

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/caselight/caselight/errors"
)

// FileCallback is called with the path of a settled extraction file.
type FileCallback func(path string) error

// DirWatcher watches a directory for new extraction JSON files and hands
// each one to a callback once writes have settled. Extraction runs dump
// output incrementally, so events for the same file are debounced rather
// than acted on immediately.
type DirWatcher struct {
	dir            string
	watcher        *fsnotify.Watcher
	callback       FileCallback
	log            *zap.SugaredLogger
	debouncePeriod time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDirWatcher creates a watcher over dir. logger may be nil.
func NewDirWatcher(dir string, callback FileCallback, logger *zap.SugaredLogger) (*DirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch directory %s", dir)
	}

	return &DirWatcher{
		dir:            dir,
		watcher:        watcher,
		callback:       callback,
		log:            logger,
		debouncePeriod: 2 * time.Second,
		timers:         make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. Returns immediately; events are handled on a
// background goroutine until Stop is called.
func (w *DirWatcher) Start() {
	go w.watchLoop()
}

// Stop stops watching and releases the underlying watcher.
func (w *DirWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *DirWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isExtractionFile(event.Name) {
				continue
			}

			if w.log != nil {
				w.log.Debugw("Extraction file changed",
					"file", event.Name,
					"op", event.Op.String(),
				)
			}
			w.scheduleHandle(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warnw("Directory watcher error", "error", err)
			}
		}
	}
}

// scheduleHandle debounces rapid writes to the same file, then fires the
// callback once the file has settled.
func (w *DirWatcher) scheduleHandle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}

	w.timers[path] = time.AfterFunc(w.debouncePeriod, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if err := w.callback(path); err != nil && w.log != nil {
			w.log.Errorw("Failed to process extraction file",
				"file", path,
				"error", err,
			)
		}
	})
}

func isExtractionFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".json")
}
