package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func launchTOML(key string) []byte {
	return fmt.Appendf(nil, "source_url = \"https://example.com/live.m3u8\"\n"+
		"destination_url_prefix = \"rtmps://live.example.com/app/\"\n"+
		"stream_key = %q\n", key)
}

func newLaunchWatcher(t *testing.T, path string, debounce time.Duration, opts ...WatcherOption[LaunchConfig]) *Watcher[LaunchConfig] {
	t.Helper()
	opts = append([]WatcherOption[LaunchConfig]{WithDebounce[LaunchConfig](debounce)}, opts...)
	w := NewConfigWatcher(path, LoadLaunchFile, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Let the watch loop settle before mutating the file.
	time.Sleep(100 * time.Millisecond)
	return w
}

func writeLaunchFile(t *testing.T, key string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, launchTOML(key), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigWatcher_InPlaceWrite(t *testing.T) {
	path := writeLaunchFile(t, "initial")

	received := make(chan LaunchConfig, 1)
	w := NewConfigWatcher(path, LoadLaunchFile, newTestLogger(), WithDebounce[LaunchConfig](50*time.Millisecond))
	w.OnReload(func(cfg LaunchConfig) { received <- cfg })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, launchTOML("updated"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.StreamKey != "updated" {
			t.Errorf("StreamKey = %q, want updated", cfg.StreamKey)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_AtomicReplace(t *testing.T) {
	path := writeLaunchFile(t, "initial")

	received := make(chan LaunchConfig, 4)
	w := newLaunchWatcher(t, path, 50*time.Millisecond)
	w.OnReload(func(cfg LaunchConfig) { received <- cfg })

	file := NewLaunchFile(path)
	for _, key := range []string{"first", "second"} {
		cfg, err := file.Load(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		cfg.StreamKey = key
		if err := file.Save(cfg); err != nil {
			t.Fatal(err)
		}

		select {
		case got := <-received:
			if got.StreamKey != key {
				t.Errorf("StreamKey = %q, want %q", got.StreamKey, key)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for reload after replacing with %q", key)
		}
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	path := writeLaunchFile(t, "initial")

	var count atomic.Int32
	w := newLaunchWatcher(t, path, 50*time.Millisecond)
	w.OnReload(func(LaunchConfig) { count.Add(1) })

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(sibling, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 reloads for sibling file, got %d", got)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := writeLaunchFile(t, "k0")

	var count1, count2 atomic.Int32
	w := newLaunchWatcher(t, path, 50*time.Millisecond)
	w.OnReload(func(LaunchConfig) { count1.Add(1) })
	unsub := w.OnReload(func(LaunchConfig) { count2.Add(1) })

	if err := os.WriteFile(path, launchTOML("k1"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	unsub()

	if err := os.WriteFile(path, launchTOML("k2"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := writeLaunchFile(t, "valid")

	errorReceived := make(chan error, 1)
	configReceived := make(chan LaunchConfig, 1)
	w := newLaunchWatcher(t, path, 50*time.Millisecond,
		WithErrorHandler[LaunchConfig](func(err error) { errorReceived <- err }))
	w.OnReload(func(cfg LaunchConfig) { configReceived <- cfg })

	if err := os.WriteFile(path, []byte("invalid toml [[["), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errorReceived:
	case <-configReceived:
		t.Fatal("config handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := writeLaunchFile(t, "k0")

	var count atomic.Int32
	var last atomic.Value
	w := newLaunchWatcher(t, path, 200*time.Millisecond)
	w.OnReload(func(cfg LaunchConfig) {
		count.Add(1)
		last.Store(cfg.StreamKey)
	})

	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, launchTOML(fmt.Sprintf("k%d", i)), 0o600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got, _ := last.Load().(string); got != "k5" {
		t.Errorf("expected final key k5, got %q", got)
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := writeLaunchFile(t, "k0")

	var count atomic.Int32
	w := NewConfigWatcher(path, LoadLaunchFile, newTestLogger(), WithDebounce[LaunchConfig](50*time.Millisecond))
	w.OnReload(func(LaunchConfig) { count.Add(1) })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, launchTOML("after-stop"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestConfigWatcher_StopWithoutStart(t *testing.T) {
	w := NewConfigWatcher("stream.toml", LoadLaunchFile, newTestLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start returned %v", err)
	}
}
