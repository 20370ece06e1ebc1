package mixer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// ErrNotWritable reports that a profile file cannot be modified on this
// system (read-only /usr, immutable image). Callers fall back to the
// soft-mixer snippet instead of failing.
var ErrNotWritable = errors.New("profile file not writable")

// PatchFunc transforms profile file content, reporting whether it changed.
type PatchFunc func(content string) (string, bool, error)

// CommonPatch ensures the canonical [Element Master] override exists in
// the common profile, inserted before marker when absent.
func CommonPatch(marker string) PatchFunc {
	return func(content string) (string, bool, error) {
		return EnsureMasterBlock(content, marker)
	}
}

// OutputPatch rewrites volume lines in an existing [Element Master] block
// of an output profile to the given value.
func OutputPatch(value string) PatchFunc {
	return func(content string) (string, bool, error) {
		return RewriteMasterVolume(content, value)
	}
}

// PatchFile applies patch to a working copy of the file at path and
// writes the result back only when it differs from the pre-edit original.
// The write is atomic (temp file plus rename) and preserves the original
// file mode. Returns whether the file changed on disk.
func PatchFile(path string, patch PatchFunc) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if isAccessError(err) {
			return false, fmt.Errorf("%w: %s", ErrNotWritable, path)
		}
		return false, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	patched, changed, err := patch(string(data))
	if err != nil {
		return false, fmt.Errorf("failed to patch profile %s: %w", path, err)
	}

	// Idempotence gate: an already-patched file produces no diff and
	// therefore no write.
	if !changed || patched == string(data) {
		return false, nil
	}

	mode := fs.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}

	if writeErr := writeFileAtomic(path, []byte(patched), mode); writeErr != nil {
		if isAccessError(writeErr) {
			return false, fmt.Errorf("%w: %s", ErrNotWritable, path)
		}
		return false, fmt.Errorf("failed to write profile %s: %w", path, writeErr)
	}
	return true, nil
}

// Applied reports whether the file at path already carries the patch
// (patching a working copy yields no diff). Missing files count as not
// applied.
func Applied(path string, patch PatchFunc) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	_, changed, err := patch(string(data))
	if err != nil {
		return false, err
	}
	return !changed, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return writeErr
		}
		return closeErr
	}

	if chmodErr := os.Chmod(tmpName, mode); chmodErr != nil {
		os.Remove(tmpName)
		return chmodErr
	}

	if renameErr := os.Rename(tmpName, path); renameErr != nil {
		os.Remove(tmpName)
		return renameErr
	}
	return nil
}

// isAccessError matches the failures produced by read-only or protected
// paths.
func isAccessError(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EROFS) || errors.Is(err, syscall.EACCES)
}
