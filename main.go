package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/softvol/cmd"
	"github.com/smazurov/softvol/internal/apply"
	"github.com/smazurov/softvol/internal/config"
	"github.com/smazurov/softvol/internal/events"
	"github.com/smazurov/softvol/internal/logging"
	"github.com/smazurov/softvol/internal/metrics"
	"github.com/smazurov/softvol/internal/watch"
	"github.com/smazurov/softvol/internal/wireplumber"
)

// Options for the CLI - flat structure with toml mapping. The root
// command runs the watch daemon; one-shot operations live in cmd/.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"/etc/softvol/config.toml"`

	// Mixer profile patching
	MixerCommonProfile string `help:"Common mixer profile to patch" default:"" toml:"mixer.common_profile" env:"MIXER_COMMON_PROFILE"`
	MixerOutputProfile string `help:"Output mixer profile to patch" default:"" toml:"mixer.output_profile" env:"MIXER_OUTPUT_PROFILE"`
	MixerMarkerSection string `help:"Section the Master block is inserted before" default:"" toml:"mixer.marker_section" env:"MIXER_MARKER_SECTION"`
	MixerVolumeValue   string `help:"Value written to volume lines" default:"" toml:"mixer.volume_value" env:"MIXER_VOLUME_VALUE"`

	// Soft-mixer fallback
	FallbackConfDir   string `help:"Global wireplumber conf.d directory" default:"" toml:"fallback.conf_dir" env:"FALLBACK_CONF_DIR"`
	FallbackNodeMatch string `help:"Node name pattern for the soft-mixer rule" default:"" toml:"fallback.node_match" env:"FALLBACK_NODE_MATCH"`

	// Card and service
	CardMatch   string `help:"Only apply when a card matching this string is present" default:"USB Audio" toml:"card.match" env:"CARD_MATCH"`
	ServiceUnit string `help:"User unit restarted after changes" default:"wireplumber.service" toml:"service.unit" env:"SERVICE_UNIT"`

	// Package tracking
	StatusFile string `help:"Status file of last-seen package versions" default:"" toml:"status.file" env:"STATUS_FILE"`

	// Watch daemon settings
	WatchDebounceMs int    `help:"Debounce for file change bursts in milliseconds" default:"2000" toml:"watch.debounce_ms" env:"WATCH_DEBOUNCE_MS"`
	MetricsAddr     string `help:"Prometheus metrics listen address, empty to disable" default:"" toml:"watch.metrics_addr" env:"WATCH_METRICS_ADDR"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingMixer  string `help:"Mixer patching logging level" default:"info" toml:"logging.mixer" env:"LOGGING_MIXER"`
	LoggingWatch  string `help:"Watch daemon logging level" default:"info" toml:"logging.watch" env:"LOGGING_WATCH"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"mixer": opts.LoggingMixer,
				"watch": opts.LoggingWatch,
			},
		})

		logger := logging.GetLogger("watch")

		applyOpts := apply.Options{
			CommonProfile: opts.MixerCommonProfile,
			OutputProfile: opts.MixerOutputProfile,
			Marker:        opts.MixerMarkerSection,
			VolumeValue:   opts.MixerVolumeValue,
			GlobalConfDir: opts.FallbackConfDir,
			NodeMatch:     opts.FallbackNodeMatch,
			CardMatch:     opts.CardMatch,
			Unit:          opts.ServiceUnit,
			StatusFile:    opts.StatusFile,
		}

		// Event bus connects apply runs to the metrics recorder
		eventBus := events.New()
		runner := apply.NewRunner(applyOpts, eventBus, logging.GetLogger("mixer"))

		recorder := metrics.NewRecorder()
		recorder.Bind(eventBus)

		var metricsServer *http.Server
		if opts.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", recorder.Handler())
			metricsServer = &http.Server{
				Addr:              opts.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
		}

		reapply := func() {
			if _, err := runner.Run(context.Background()); err != nil {
				logger.Error("Reapply failed", "error", err)
			}
		}

		// Watch the files that package upgrades overwrite. Defaults are
		// resolved here so the watcher and the runner agree on paths.
		watchPaths := []string{
			valueOr(opts.MixerCommonProfile, apply.DefaultCommonProfile),
			valueOr(opts.MixerOutputProfile, apply.DefaultOutputProfile),
			filepath.Join(valueOr(opts.FallbackConfDir, apply.DefaultGlobalConfDir), wireplumber.SnippetName),
		}
		watcher := watch.New(watchPaths, reapply, logger,
			watch.WithDebounce(time.Duration(opts.WatchDebounceMs)*time.Millisecond))

		hooks.OnStart(func() {
			// Bring the system into the desired state before watching
			logger.Info("Applying workaround on startup")
			reapply()

			if startErr := watcher.Start(); startErr != nil {
				logger.Error("Failed to start file watcher", "error", startErr)
			}

			if metricsServer != nil {
				logger.Info("Starting metrics server", "addr", opts.MetricsAddr)
				if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
					logger.Error("Metrics server failed", "error", serveErr)
				}
			} else {
				// Keep the daemon alive; the watcher runs on its own goroutine
				select {}
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down watch daemon")
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping file watcher", "error", stopErr)
			}
			if metricsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
					logger.Error("Error stopping metrics server", "error", shutdownErr)
				}
			}
			recorder.Unbind()
		})
	})

	// One-shot commands
	cli.Root().Use = "softvol"
	cli.Root().Short = "Software volume workaround for cards with a broken hardware mixer"
	cli.Root().AddCommand(cmd.CreateApplyCmd())
	cli.Root().AddCommand(cmd.CreateStatusCmd())
	cli.Root().AddCommand(cmd.CreateInstallHooksCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
