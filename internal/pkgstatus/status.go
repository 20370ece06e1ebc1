// Package pkgstatus tracks the versions of the packages whose upgrades
// overwrite the patched mixer files. The status file holds one
// "package version" line per tracked package so apply can tell whether a
// relevant upgrade happened since the last run.
package pkgstatus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load reads a status file into a package -> version map. A missing file
// yields an empty map; that just means the workaround never ran.
func Load(path string) (map[string]string, error) {
	versions := make(map[string]string)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return versions, nil
		}
		return nil, fmt.Errorf("failed to read status file %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed status line %q in %s", line, path)
		}
		versions[fields[0]] = fields[1]
	}
	return versions, nil
}

// Save writes versions as sorted "package version" lines, atomically.
func Save(path string, versions map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s\n", name, versions[name])
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create status temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.WriteString(b.String())
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("failed to write status file: %w", writeErr)
		}
		return fmt.Errorf("failed to write status file: %w", closeErr)
	}

	if chmodErr := os.Chmod(tmpName, 0o644); chmodErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod status file: %w", chmodErr)
	}

	if renameErr := os.Rename(tmpName, path); renameErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace status file: %w", renameErr)
	}
	return nil
}

// Changed reports whether current differs from recorded, including
// packages that appeared or disappeared.
func Changed(recorded, current map[string]string) bool {
	if len(recorded) != len(current) {
		return true
	}
	for name, version := range current {
		if recorded[name] != version {
			return true
		}
	}
	return false
}
