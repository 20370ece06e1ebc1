package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smazurov/softvol/internal/apply"
	"github.com/smazurov/softvol/internal/config"
	"github.com/smazurov/softvol/internal/hooks"
	"github.com/smazurov/softvol/internal/logging"
	"github.com/smazurov/softvol/internal/mixer"
	"github.com/smazurov/softvol/internal/pkgstatus"
	"github.com/smazurov/softvol/internal/systemd"
	"github.com/smazurov/softvol/internal/wireplumber"
)

// CreateStatusCmd creates the status command.
func CreateStatusCmd() *cobra.Command {
	settings := &Settings{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report workaround state",
		Long: `Shows whether the mixer profiles are patched, whether the ` +
			`soft-mixer fallback snippet is installed, which package versions ` +
			`were last seen, and which package-manager hooks are registered.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := config.LoadConfig(settings, cmd); err != nil {
				logging.GetLogger("status").Warn("Failed to load config", "error", err)
			}
			logging.Initialize(config.LoadLoggingConfig(settings.Config))

			opts := settings.ApplyOptions()
			exitCode := 0

			fmt.Println("Mixer profiles:")
			profiles := []struct {
				path  string
				patch mixer.PatchFunc
			}{
				{opts.CommonProfile, mixer.CommonPatch(opts.Marker)},
				{opts.OutputProfile, mixer.OutputPatch(opts.VolumeValue)},
			}
			if opts.CommonProfile == "" {
				profiles[0].path = apply.DefaultCommonProfile
			}
			if opts.OutputProfile == "" {
				profiles[1].path = apply.DefaultOutputProfile
			}
			for _, p := range profiles {
				applied, err := mixer.Applied(p.path, p.patch)
				switch {
				case err != nil:
					fmt.Printf("  %s: unreadable (%v)\n", p.path, err)
					exitCode = 1
				case applied:
					fmt.Printf("  %s: patched\n", p.path)
				default:
					fmt.Printf("  %s: not patched\n", p.path)
				}
			}

			fmt.Println("Soft-mixer snippet:")
			if path := wireplumber.Installed(snippetDirs(opts.GlobalConfDir)); path != "" {
				fmt.Printf("  installed at %s\n", path)
			} else {
				fmt.Println("  not installed")
			}

			fmt.Println("Audio service:")
			unit, state, stateErr := queryServiceState(cmd.Context(), opts.Unit)
			fmt.Println(serviceStateLine(unit, state, stateErr))

			fmt.Println("Tracked packages:")
			printPackageStatus(cmd.Context(), opts.StatusFile, opts.Packages)

			fmt.Println("Package-manager hooks:")
			printHookStatus(settings)

			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}

	cmd.Flags().StringVarP(&settings.Config, "config", "c", "/etc/softvol/config.toml", "Path to configuration file")

	return cmd
}

// queryServiceState asks the invoking user's session bus for the unit's
// ActiveState.
func queryServiceState(ctx context.Context, unit string) (string, string, error) {
	if unit == "" {
		unit = apply.DefaultUnit
	}
	manager, err := systemd.NewUserManager(ctx)
	if err != nil {
		return unit, "", err
	}
	defer manager.Close()

	state, err := manager.GetServiceStatus(ctx, unit)
	return unit, state, err
}

func serviceStateLine(unit, state string, err error) string {
	if err != nil {
		return fmt.Sprintf("  %s: state unavailable (%v)", unit, err)
	}
	return fmt.Sprintf("  %s: %s", unit, state)
}

// snippetDirs lists the global conf.d plus the invoking user's own.
func snippetDirs(global string) []string {
	if global == "" {
		global = apply.DefaultGlobalConfDir
	}
	dirs := []string{global}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "wireplumber", "wireplumber.conf.d"))
	}
	return dirs
}

func printPackageStatus(ctx context.Context, statusFile string, packages []string) {
	if statusFile == "" {
		statusFile = apply.DefaultStatusFile
	}

	recorded, err := pkgstatus.Load(statusFile)
	if err != nil {
		fmt.Printf("  status file unreadable: %v\n", err)
		return
	}
	if len(recorded) == 0 {
		fmt.Println("  no versions recorded yet")
	}

	querier := pkgstatus.DetectQuerier()
	if querier == nil {
		for pkg, version := range recorded {
			fmt.Printf("  %s: last seen %s\n", pkg, version)
		}
		return
	}

	if len(packages) == 0 {
		packages = apply.DefaultPackages
	}
	current, err := pkgstatus.Current(ctx, querier, packages)
	if err != nil {
		fmt.Printf("  package query failed: %v\n", err)
		return
	}
	for _, pkg := range packages {
		version, installed := current[pkg]
		last := recorded[pkg]
		switch {
		case !installed:
			fmt.Printf("  %s: not installed\n", pkg)
		case last == "":
			fmt.Printf("  %s: %s (never recorded)\n", pkg, version)
		case last == version:
			fmt.Printf("  %s: %s\n", pkg, version)
		default:
			fmt.Printf("  %s: %s (recorded %s, reapply pending)\n", pkg, version, last)
		}
	}
}

func printHookStatus(settings *Settings) {
	mgr := hooks.Detect()
	if mgr == hooks.None {
		fmt.Println("  no supported package manager found")
		return
	}

	hookFiles, err := hooks.For(mgr, settings.HooksConfig())
	if err != nil {
		fmt.Printf("  %v\n", err)
		return
	}
	for path, registered := range hooks.Registered(hookFiles) {
		if registered {
			fmt.Printf("  %s: registered\n", path)
		} else {
			fmt.Printf("  %s: missing or stale\n", path)
		}
	}
}
