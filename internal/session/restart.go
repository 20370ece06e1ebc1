package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smazurov/softvol/internal/systemd"
)

// ServiceRestarter restarts one user unit on a single user's session bus.
// Implemented by the systemd manager; a function type keeps the per-user
// loop testable without a running bus.
type ServiceRestarter func(ctx context.Context, user User, unit string) error

// RestartViaBus restarts unit on the session bus of the given user.
func RestartViaBus(ctx context.Context, user User, unit string) error {
	manager, err := systemd.NewManagerForUID(ctx, user.UID)
	if err != nil {
		return err
	}
	defer manager.Close()
	return manager.RestartService(ctx, unit)
}

// RestartAll restarts unit for every user, logging per-user failures and
// continuing. It returns how many restarts succeeded and errors only when
// every restart failed, so one broken session does not fail a
// package-manager hook for everyone else.
func RestartAll(ctx context.Context, users []User, unit string, restart ServiceRestarter, logger *slog.Logger) (int, error) {
	if restart == nil {
		restart = RestartViaBus
	}

	restarted := 0
	for _, user := range users {
		if err := restart(ctx, user, unit); err != nil {
			logger.Warn("Failed to restart audio service for user",
				"user", user.Name, "uid", user.UID, "unit", unit, "error", err)
			continue
		}
		restarted++
		logger.Info("Restarted audio service", "user", user.Name, "unit", unit)
	}

	if restarted == 0 && len(users) > 0 {
		return 0, fmt.Errorf("failed to restart %s for all %d logged-in users", unit, len(users))
	}
	return restarted, nil
}
