package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/softvol/internal/apply"
	"github.com/smazurov/softvol/internal/config"
	"github.com/smazurov/softvol/internal/logging"
)

// CreateApplyCmd creates the apply command.
func CreateApplyCmd() *cobra.Command {
	settings := &Settings{}
	var quiet bool
	var logJSON bool
	var skipRestart bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the software volume workaround",
		Long: `Patches the mixer profile files so the card's volume is handled ` +
			`in software, falling back to a WirePlumber soft-mixer rule when the ` +
			`profiles are not writable, and restarts the audio service for every ` +
			`logged-in user when anything changed. Reapplying to an already ` +
			`patched system is a no-op.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := config.LoadConfig(settings, cmd); err != nil {
				logging.GetLogger("apply").Warn("Failed to load config", "error", err)
			}

			loggingConfig := config.LoadLoggingConfig(settings.Config)
			if quiet {
				loggingConfig.Level = "warn"
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("apply")

			if os.Geteuid() != 0 {
				logger.Warn("Not running as root, system paths will likely be unwritable")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := settings.ApplyOptions()
			opts.SkipRestart = skipRestart

			runner := apply.NewRunner(opts, nil, logger)
			result, err := runner.Run(ctx)
			if err != nil {
				os.Exit(1)
			}

			switch {
			case !result.CardPresent:
				logger.Info("Card not present, nothing applied")
			case !result.Changed:
				logger.Info("Workaround already in place, nothing to do")
			case result.UsedFallback:
				logger.Info("Workaround applied via soft-mixer fallback",
					"snippet", result.FallbackPath, "restarted_users", result.RestartedUsers)
			default:
				logger.Info("Workaround applied",
					"patched", result.PatchedFiles, "restarted_users", result.RestartedUsers)
			}
		},
	}

	cmd.Flags().StringVarP(&settings.Config, "config", "c", "/etc/softvol/config.toml", "Path to configuration file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.Flags().BoolVar(&logJSON, "json-log", false, "Log in JSON format")
	cmd.Flags().BoolVar(&skipRestart, "skip-restart", false, "Patch files but do not restart audio services")
	cmd.Flags().StringVar(&settings.CardMatch, "card-match", "", "Only apply when a card matching this string is present")
	cmd.Flags().StringVar(&settings.Unit, "unit", "", "User unit to restart (default wireplumber.service)")

	return cmd
}
