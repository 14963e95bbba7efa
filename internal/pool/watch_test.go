package pool

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirWatcherFiresOnChange(t *testing.T) {
	base := writePoolDir(t, map[string]string{
		"default.yaml":  defaultYAML,
		"standard.yaml": standardYAML,
	})
	dir := filepath.Join(base, "pools")

	fired := make(chan struct{}, 1)
	w := NewDirWatcher(dir, 10*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	// let the watcher prime its mtime cache
	time.Sleep(50 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("watcher fired without any change")
	default:
	}

	// bump the file's mtime into the future so the change is unambiguous
	path := filepath.Join(dir, "standard.yaml")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire after a file change")
	}
}
