package pool

import (
	"os"
	"path/filepath"
	"time"
)

// DirWatcher polls a directory's YAML files for modification-time changes
// and triggers a callback. Standard library only, same trade-off the rest
// of the loader makes: a few seconds of staleness is fine for pool config.
type DirWatcher struct {
	Dir      string
	Interval time.Duration
	onChange func() // called once per scan that found any change
	stopCh   chan struct{}

	lastMTime map[string]time.Time
}

// NewDirWatcher creates a watcher for the given directory and interval.
func NewDirWatcher(dir string, interval time.Duration, onChange func()) *DirWatcher {
	return &DirWatcher{
		Dir:       dir,
		Interval:  interval,
		onChange:  onChange,
		stopCh:    make(chan struct{}),
		lastMTime: make(map[string]time.Time),
	}
}

// Start begins polling in a goroutine.
func (w *DirWatcher) Start() {
	ticker := time.NewTicker(w.Interval)
	go func() {
		defer ticker.Stop()
		// prime cache so startup doesn't fire a spurious reload
		w.scan(true)
		for {
			select {
			case <-ticker.C:
				w.scan(false)
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher.
func (w *DirWatcher) Stop() {
	close(w.stopCh)
}

// scan compares mtimes against the last pass and fires onChange when any
// file is new or modified. Deleted files are noticed on the next change.
func (w *DirWatcher) scan(prime bool) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return
	}

	changed := false
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(w.Dir, e.Name())
		mt := fi.ModTime()
		last, seen := w.lastMTime[path]
		w.lastMTime[path] = mt
		if !seen || mt.After(last) {
			changed = true
		}
	}

	if changed && !prime && w.onChange != nil {
		w.onChange()
	}
}
