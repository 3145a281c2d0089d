package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWatcher_Reload(t *testing.T) {
	h := newTestHandle(t)
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("m:\n  gain: 4\n  count: oops\n"), 0o644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	var got []LoadResult
	var mu sync.Mutex
	w := NewWatcher(path, NewBridge(h), WatchConfig{
		Prefix: "m",
		Locker: &mu,
		OnLoad: func(r LoadResult) { got = append(got, r) },
	}, zerolog.Nop())

	res := w.Reload(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", res.Failures)
	}
	if h.GetScalar("gain") != 4 {
		t.Errorf("expected gain 4, got %v", h.GetScalar("gain"))
	}
	if len(got) != 1 {
		t.Errorf("expected one callback, got %d", len(got))
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if res := w.Reload(context.Background()); res.Err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestWatcher_FollowsWrites(t *testing.T) {
	h := newTestHandle(t)
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("gain: 1\n"), 0o644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	var mu sync.Mutex
	gain := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return h.GetScalar("gain")
	}

	loaded := make(chan LoadResult, 16)
	w := NewWatcher(path, NewBridge(h), WatchConfig{
		Delay:  20 * time.Millisecond,
		Locker: &mu,
		OnLoad: func(r LoadResult) { loaded <- r },
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("gain: 8\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for gain() != 8 {
		select {
		case <-loaded:
		case <-deadline:
			t.Fatalf("timed out waiting for reload, gain is %v", gain())
		}
	}
}
