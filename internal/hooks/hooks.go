// Package hooks registers package-manager post-transaction hooks that
// rerun the workaround after upgrades overwrite the patched files.
package hooks

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Manager identifies the package manager hook format in use.
type Manager string

const (
	Pacman Manager = "pacman"
	Apt    Manager = "apt"
	None   Manager = ""
)

// Default install locations.
const (
	DefaultPacmanHookDir = "/usr/share/libalpm/hooks"
	DefaultAptConfDir    = "/etc/apt/apt.conf.d"
)

// Config describes the hooks to install.
type Config struct {
	PacmanHookDir string
	AptConfDir    string

	// Exec is the command the hooks run, normally the installed softvol
	// binary plus the apply subcommand.
	Exec string

	// MixerPackages own the mixer profile files; ServerPackages own the
	// audio server whose restart reapplies the soft-mixer rule.
	MixerPackages  []string
	ServerPackages []string
}

// Hook is a single hook file to be written.
type Hook struct {
	Path    string
	Content string
}

// Detect identifies the package manager on this system.
func Detect() Manager {
	if _, err := exec.LookPath("pacman"); err == nil {
		return Pacman
	}
	if _, err := exec.LookPath("apt-get"); err == nil {
		return Apt
	}
	return None
}

// For builds the hook files for the given package manager. pacman gets
// two PostTransaction hooks (one per package group); apt gets a single
// Post-Invoke snippet since dpkg has no per-package trigger equivalent.
func For(mgr Manager, cfg Config) ([]Hook, error) {
	pacmanDir := cfg.PacmanHookDir
	if pacmanDir == "" {
		pacmanDir = DefaultPacmanHookDir
	}
	aptDir := cfg.AptConfDir
	if aptDir == "" {
		aptDir = DefaultAptConfDir
	}

	switch mgr {
	case Pacman:
		return []Hook{
			{
				Path: filepath.Join(pacmanDir, "softvol-mixer-paths.hook"),
				Content: pacmanHook(
					"Reapplying software volume workaround to mixer paths...",
					cfg.MixerPackages, cfg.Exec),
			},
			{
				Path: filepath.Join(pacmanDir, "softvol-soft-mixer.hook"),
				Content: pacmanHook(
					"Reapplying software volume workaround after audio server upgrade...",
					cfg.ServerPackages, cfg.Exec),
			},
		}, nil
	case Apt:
		return []Hook{
			{
				Path:    filepath.Join(aptDir, "90softvol"),
				Content: aptSnippet(cfg.Exec),
			},
		}, nil
	default:
		return nil, fmt.Errorf("no supported package manager found")
	}
}

// Install writes each hook that is missing or differs. Existing identical
// files are left alone. Returns the paths that were written.
func Install(hooks []Hook) ([]string, error) {
	var changed []string
	for _, hook := range hooks {
		existing, err := os.ReadFile(hook.Path)
		if err == nil && string(existing) == hook.Content {
			continue
		}

		if mkErr := os.MkdirAll(filepath.Dir(hook.Path), 0o755); mkErr != nil {
			return changed, fmt.Errorf("failed to create hook directory: %w", mkErr)
		}
		if writeErr := os.WriteFile(hook.Path, []byte(hook.Content), 0o644); writeErr != nil {
			return changed, fmt.Errorf("failed to write hook %s: %w", hook.Path, writeErr)
		}
		changed = append(changed, hook.Path)
	}
	return changed, nil
}

// Registered reports which of the hooks are present with current content.
func Registered(hooks []Hook) map[string]bool {
	state := make(map[string]bool, len(hooks))
	for _, hook := range hooks {
		existing, err := os.ReadFile(hook.Path)
		state[hook.Path] = err == nil && string(existing) == hook.Content
	}
	return state
}

// pacmanHook renders a libalpm PostTransaction hook stanza.
func pacmanHook(description string, targets []string, execLine string) string {
	var b strings.Builder
	b.WriteString("[Trigger]\n")
	b.WriteString("Operation = Install\n")
	b.WriteString("Operation = Upgrade\n")
	b.WriteString("Type = Package\n")
	for _, target := range targets {
		fmt.Fprintf(&b, "Target = %s\n", target)
	}
	b.WriteString("\n[Action]\n")
	fmt.Fprintf(&b, "Description = %s\n", description)
	b.WriteString("When = PostTransaction\n")
	fmt.Fprintf(&b, "Exec = %s\n", execLine)
	return b.String()
}

// aptSnippet renders a DPkg::Post-Invoke fragment. The command must not
// fail the whole transaction, hence the trailing "|| true".
func aptSnippet(execLine string) string {
	return fmt.Sprintf("DPkg::Post-Invoke { \"%s || true\"; };\n", execLine)
}
