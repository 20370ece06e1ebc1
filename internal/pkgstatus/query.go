package pkgstatus

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Querier reports installed package versions.
type Querier interface {
	// Version returns the installed version of pkg, or "" when the
	// package is not installed.
	Version(ctx context.Context, pkg string) (string, error)
}

// DetectQuerier picks the package manager present on this system.
// Returns nil when neither pacman nor dpkg is available.
func DetectQuerier() Querier {
	if _, err := exec.LookPath("pacman"); err == nil {
		return &pacmanQuerier{}
	}
	if _, err := exec.LookPath("dpkg-query"); err == nil {
		return &dpkgQuerier{}
	}
	return nil
}

// Current queries the versions of all tracked packages. Packages that are
// not installed are omitted from the result.
func Current(ctx context.Context, q Querier, packages []string) (map[string]string, error) {
	versions := make(map[string]string)
	for _, pkg := range packages {
		version, err := q.Version(ctx, pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", pkg, err)
		}
		if version == "" {
			continue
		}
		versions[pkg] = version
	}
	return versions, nil
}

type pacmanQuerier struct{}

// Version runs "pacman -Q pkg", which prints "pkg version".
func (p *pacmanQuerier) Version(ctx context.Context, pkg string) (string, error) {
	out, err := exec.CommandContext(ctx, "pacman", "-Q", pkg).Output()
	if err != nil {
		// pacman exits 1 for packages that are not installed
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return parsePacmanOutput(string(out), pkg)
}

func parsePacmanOutput(out, pkg string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 || fields[0] != pkg {
		return "", fmt.Errorf("unexpected pacman output %q for %s", strings.TrimSpace(out), pkg)
	}
	return fields[1], nil
}

type dpkgQuerier struct{}

// Version runs "dpkg-query -W -f ${Version} pkg".
func (d *dpkgQuerier) Version(ctx context.Context, pkg string) (string, error) {
	out, err := exec.CommandContext(ctx, "dpkg-query", "-W", "-f", "${Version}", pkg).Output()
	if err != nil {
		// dpkg-query exits 1 for packages that are not installed
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
