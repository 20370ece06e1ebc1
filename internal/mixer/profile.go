// Package mixer edits ALSA mixer path profile files. The files are a
// sequence of [Section] blocks containing "key = value" lines; everything
// outside the edited block is preserved byte for byte.
package mixer

import (
	"fmt"
	"strings"
)

const (
	// MasterSection is the block controlling the hardware Master element.
	MasterSection = "[Element Master]"

	// DefaultMarkerSection is the block the Master override is inserted
	// in front of when the file has no Master block yet.
	DefaultMarkerSection = "[Element PCM]"

	// IgnoreValue routes volume handling away from the hardware element.
	IgnoreValue = "ignore"
)

// masterOverride is the block content installed into the common profile.
// "switch = mute" keeps the hardware mute toggle usable while
// "volume = ignore" forces the server to attenuate in software.
var masterOverride = []string{
	MasterSection,
	"switch = mute",
	"volume = " + IgnoreValue,
	"",
}

// EnsureMasterBlock returns content with a canonical [Element Master]
// block present. An existing block is rewritten in place when its content
// differs; otherwise the block is inserted immediately before the marker
// section, or appended when the marker is absent. The returned bool
// reports whether content was modified.
func EnsureMasterBlock(content string, marker string) (string, bool, error) {
	if marker == "" {
		marker = DefaultMarkerSection
	}

	lines := splitLines(content)

	starts := sectionStarts(lines, MasterSection)
	if len(starts) > 1 {
		return "", false, fmt.Errorf("found %d %s blocks, expected at most one", len(starts), MasterSection)
	}

	if len(starts) == 1 {
		start := starts[0]
		end := sectionEnd(lines, start)
		block := canonicalBlock(lines[start:end])
		want := canonicalBlock(masterOverride)
		if block == want {
			return content, false, nil
		}

		replaced := make([]string, 0, len(lines))
		replaced = append(replaced, lines[:start]...)
		replaced = append(replaced, masterOverride...)
		replaced = append(replaced, lines[end:]...)
		return joinLines(replaced), true, nil
	}

	markerStarts := sectionStarts(lines, marker)
	var out []string
	if len(markerStarts) == 0 {
		// No marker section; append the block at the end of the file.
		out = append(out, lines...)
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, masterOverride...)
	} else {
		at := markerStarts[0]
		out = append(out, lines[:at]...)
		out = append(out, masterOverride...)
		out = append(out, lines[at:]...)
	}
	return joinLines(out), true, nil
}

// RewriteMasterVolume rewrites every "volume =" line inside an existing
// [Element Master] block to the given value. Files without a Master block
// are left untouched. The returned bool reports whether content changed.
func RewriteMasterVolume(content string, value string) (string, bool, error) {
	if value == "" {
		value = IgnoreValue
	}

	lines := splitLines(content)

	starts := sectionStarts(lines, MasterSection)
	if len(starts) > 1 {
		return "", false, fmt.Errorf("found %d %s blocks, expected at most one", len(starts), MasterSection)
	}
	if len(starts) == 0 {
		return content, false, nil
	}

	start := starts[0]
	end := sectionEnd(lines, start)

	changed := false
	for i := start + 1; i < end; i++ {
		key, _, ok := splitKeyValue(lines[i])
		if !ok || key != "volume" {
			continue
		}
		rewritten := "volume = " + value
		if lines[i] != rewritten {
			lines[i] = rewritten
			changed = true
		}
	}
	if !changed {
		return content, false, nil
	}
	return joinLines(lines), true, nil
}

// sectionStarts returns the indices of lines opening the named section.
func sectionStarts(lines []string, section string) []int {
	var starts []int
	for i, line := range lines {
		if strings.TrimSpace(line) == section {
			starts = append(starts, i)
		}
	}
	return starts
}

// sectionEnd returns the index one past the last line of the section
// starting at start (exclusive of the next section header).
func sectionEnd(lines []string, start int) int {
	for i := start + 1; i < len(lines); i++ {
		if isSectionHeader(lines[i]) {
			return i
		}
	}
	return len(lines)
}

func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")
}

// splitKeyValue parses a "key = value" line, ignoring comments and blanks.
func splitKeyValue(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	idx := strings.Index(trimmed, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:]), true
}

// canonicalBlock normalizes a block for comparison: trimmed non-empty
// lines joined with newlines, so whitespace differences do not trigger
// rewrites of an already-patched file.
func canonicalBlock(lines []string) string {
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
