package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "massing.geojson")
	if err := os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w := New(path, 10*time.Millisecond, nil)
	notified := make(chan Stat, 1)
	w.AddListener(func(s Stat) {
		select {
		case notified <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := w.Start(ctx)

	// Growing the file changes the size even when mtime granularity is coarse.
	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[null]}`), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	select {
	case s := <-notified:
		if !s.Exists || s.Size == 0 {
			t.Errorf("notified stat = %+v, want existing non-empty file", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no change notification within 2s")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent.geojson"), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}
