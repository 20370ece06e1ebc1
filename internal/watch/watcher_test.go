package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestWatcherTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analog-output.conf.common")
	if err := os.WriteFile(path, []byte("[General]\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	changed := make(chan struct{}, 1)
	w := New([]string{path}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, testLogger(), WithDebounce(50*time.Millisecond))

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop()

	// Simulate a package upgrade replacing the file
	if err := os.WriteFile(path, []byte("[General]\npriority = 1\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite file: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("change callback not invoked")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analog-output.conf")
	if err := os.WriteFile(path, []byte("[Element Master]\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	changed := make(chan struct{}, 1)
	w := New([]string{path}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, testLogger(), WithDebounce(50*time.Millisecond))

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop()

	other := filepath.Join(dir, "unrelated.conf")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write unrelated file: %v", err)
	}

	select {
	case <-changed:
		t.Error("callback invoked for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analog-output.conf.common")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	calls := make(chan struct{}, 10)
	w := New([]string{path}, func() {
		calls <- struct{}{}
	}, testLogger(), WithDebounce(200*time.Millisecond))

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop()

	// A burst of writes within the debounce window
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("no callback after burst")
	}

	select {
	case <-calls:
		t.Error("burst produced more than one callback")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherStartFailsWithNothingToWatch(t *testing.T) {
	w := New(nil, func() {}, testLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("Start() should fail with no paths to watch")
	}
}

func TestWatcherCoversLateCreatedDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "wireplumber", "wireplumber.conf.d")
	path := filepath.Join(dir, "50-softvol-soft-mixer.conf")

	changed := make(chan struct{}, 1)
	w := New([]string{path}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, testLogger(), WithDebounce(50*time.Millisecond))

	// The conf.d directory does not exist yet; only base is watchable
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	// Give the watcher a moment to promote the new directory
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("monitor.alsa.rules = []\n"), 0o644); err != nil {
		t.Fatalf("failed to write snippet: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("change callback not invoked after late directory creation")
	}
}
