package wireplumber

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnippetContainsRule(t *testing.T) {
	content := Snippet("usb-Generic_USB_Audio")

	for _, want := range []string{
		"monitor.alsa.rules",
		"~alsa_output.usb-Generic_USB_Audio*",
		"api.alsa.soft-mixer = true",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("snippet missing %q:\n%s", want, content)
		}
	}
}

func TestInstallFirstWritableWins(t *testing.T) {
	global := filepath.Join(t.TempDir(), "wireplumber.conf.d")
	user := filepath.Join(t.TempDir(), ".config", "wireplumber", "wireplumber.conf.d")

	path, changed, err := Install([]string{global, user}, "usb-Card")
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if !changed {
		t.Error("Install() changed = false on first write")
	}
	if filepath.Dir(path) != global {
		t.Errorf("Install() used %s, want first candidate %s", path, global)
	}
	if _, statErr := os.Stat(filepath.Join(user, SnippetName)); statErr == nil {
		t.Error("second candidate should not have been written")
	}
}

func TestInstallIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wireplumber.conf.d")

	if _, _, err := Install([]string{dir}, "usb-Card"); err != nil {
		t.Fatalf("first Install() error: %v", err)
	}

	path, changed, err := Install([]string{dir}, "usb-Card")
	if err != nil {
		t.Fatalf("second Install() error: %v", err)
	}
	if changed {
		t.Error("second Install() changed = true, want false")
	}
	if path != filepath.Join(dir, SnippetName) {
		t.Errorf("second Install() path = %s", path)
	}
}

func TestInstallSkipsUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	blockedParent := t.TempDir()
	if err := os.Chmod(blockedParent, 0o555); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { os.Chmod(blockedParent, 0o755) })
	blocked := filepath.Join(blockedParent, "wireplumber.conf.d")

	writable := filepath.Join(t.TempDir(), "wireplumber.conf.d")

	path, changed, err := Install([]string{blocked, writable}, "usb-Card")
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if !changed {
		t.Error("Install() changed = false, want true")
	}
	if filepath.Dir(path) != writable {
		t.Errorf("Install() used %s, want fallback %s", path, writable)
	}
}

func TestInstallNoWritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	blockedParent := t.TempDir()
	if err := os.Chmod(blockedParent, 0o555); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { os.Chmod(blockedParent, 0o755) })

	_, _, err := Install([]string{filepath.Join(blockedParent, "conf.d")}, "usb-Card")
	if !errors.Is(err, ErrNoWritableDir) {
		t.Errorf("error = %v, want ErrNoWritableDir", err)
	}
}

func TestInstalled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wireplumber.conf.d")
	if Installed([]string{dir}) != "" {
		t.Error("Installed() should be empty before install")
	}

	path, _, err := Install([]string{dir}, "usb-Card")
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if got := Installed([]string{dir}); got != path {
		t.Errorf("Installed() = %s, want %s", got, path)
	}
}
