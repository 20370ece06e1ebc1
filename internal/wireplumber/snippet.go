// Package wireplumber writes the soft-mixer fallback configuration used
// when the mixer profile files cannot be patched directly. The snippet is
// a declarative WirePlumber rule forcing api.alsa.soft-mixer on the
// affected card, which moves all volume handling into software.
package wireplumber

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// SnippetName is the conf.d fragment installed by the fallback path.
const SnippetName = "50-softvol-soft-mixer.conf"

// ErrNoWritableDir reports that none of the candidate conf.d directories
// could be written.
var ErrNoWritableDir = errors.New("no writable wireplumber conf.d directory")

// Snippet renders the soft-mixer rule for nodes matching the given card
// pattern.
func Snippet(match string) string {
	return fmt.Sprintf(`# Installed by softvol. Do not edit; changes are overwritten on reapply.
#
# Forces software volume handling for cards whose hardware mixer does not
# apply Master volume changes.
monitor.alsa.rules = [
  {
    matches = [
      {
        node.name = "~alsa_output.%s*"
      }
    ]
    actions = {
      update-props = {
        api.alsa.soft-mixer = true
      }
    }
  }
]
`, match)
}

// Install writes the snippet into the first writable directory of dirs,
// creating the directory when needed. An identical existing snippet is
// left alone. Returns the path used and whether anything was written.
func Install(dirs []string, match string) (string, bool, error) {
	content := []byte(Snippet(match))

	var lastErr error
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, SnippetName)

		if existing, readErr := os.ReadFile(path); readErr == nil && string(existing) == string(content) {
			return path, false, nil
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			if isAccessError(err) {
				lastErr = err
				continue
			}
			return "", false, fmt.Errorf("failed to create %s: %w", dir, err)
		}

		if err := os.WriteFile(path, content, 0o644); err != nil {
			if isAccessError(err) {
				lastErr = err
				continue
			}
			return "", false, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, true, nil
	}

	if lastErr != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNoWritableDir, lastErr)
	}
	return "", false, ErrNoWritableDir
}

// Installed returns the path of an existing snippet among dirs, or "".
func Installed(dirs []string) string {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, SnippetName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func isAccessError(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EROFS) || errors.Is(err, syscall.EACCES)
}
