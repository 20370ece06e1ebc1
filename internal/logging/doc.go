// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stderr when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// stderr is the primary sink so that package-manager hooks capture failures
// in their transaction output.
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"mixer":   "debug",  // Per-module overrides
//			"session": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("mixer")
//	logger.Info("Patched profile", "path", path)
//	logger.Warn("Falling back", "error", err)
//
// # Viewing Logs
//
// When running from a pacman/apt hook or on a system with journald:
//
//	journalctl -t softvol              # All softvol logs
//	journalctl -t softvol -f           # Follow live
//	journalctl -t softvol -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t softvol MODULE=mixer
//
// # Configuration
//
// Log levels can be set globally or per-module. Module-specific levels
// override the global level for that module only.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	mixer = "debug"
//	session = "warn"
package logging
