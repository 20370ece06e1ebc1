package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/softvol/internal/config"
	"github.com/smazurov/softvol/internal/hooks"
	"github.com/smazurov/softvol/internal/logging"
)

// CreateInstallHooksCmd creates the install-hooks command.
func CreateInstallHooksCmd() *cobra.Command {
	settings := &Settings{}

	cmd := &cobra.Command{
		Use:   "install-hooks",
		Short: "Register package-manager hooks",
		Long: `Registers post-transaction hooks with the system package manager ` +
			`so the workaround is reapplied automatically after upgrades of the ` +
			`packages that overwrite the patched files. Supports pacman (libalpm ` +
			`hooks) and apt (DPkg::Post-Invoke).`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := config.LoadConfig(settings, cmd); err != nil {
				logging.GetLogger("hooks").Warn("Failed to load config", "error", err)
			}
			logging.Initialize(config.LoadLoggingConfig(settings.Config))
			logger := logging.GetLogger("hooks")

			if os.Geteuid() != 0 {
				logger.Error("install-hooks must run as root")
				os.Exit(1)
			}

			mgr := hooks.Detect()
			if mgr == hooks.None {
				logger.Error("No supported package manager found")
				os.Exit(1)
			}

			hookFiles, err := hooks.For(mgr, settings.HooksConfig())
			if err != nil {
				logger.Error("Failed to build hooks", "error", err)
				os.Exit(1)
			}

			changed, err := hooks.Install(hookFiles)
			if err != nil {
				logger.Error("Failed to install hooks", "error", err)
				os.Exit(1)
			}

			if len(changed) == 0 {
				logger.Info("Hooks already registered", "manager", string(mgr))
				return
			}
			logger.Info("Hooks registered", "manager", string(mgr), "written", changed)
		},
	}

	cmd.Flags().StringVarP(&settings.Config, "config", "c", "/etc/softvol/config.toml", "Path to configuration file")
	cmd.Flags().StringVar(&settings.HookExec, "hook-exec", "", "Command the hooks run (default \"/usr/bin/softvol apply --quiet\")")

	return cmd
}
