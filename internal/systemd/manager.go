// Package systemd wraps the D-Bus connections used to drive user-session
// service lifecycle operations.
package systemd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
)

// Manager handles systemd service lifecycle operations via D-Bus.
type Manager struct {
	conn *dbus.Conn
}

// NewUserManager connects to the calling user's session bus.
func NewUserManager(ctx context.Context) (*Manager, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{conn: conn}, nil
}

// NewManagerForUID connects to the session bus of another logged-in user.
// This lets a root process restart user units without impersonating the
// user; the bus socket lives under the user's runtime directory.
func NewManagerForUID(ctx context.Context, uid uint32) (*Manager, error) {
	conn, err := dbus.NewConnection(func() (*godbus.Conn, error) {
		return dialUserBus(ctx, uid)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus of uid %d: %w", uid, err)
	}
	return &Manager{conn: conn}, nil
}

// dialUserBus opens and authenticates a connection to the given user's
// session bus socket.
func dialUserBus(ctx context.Context, uid uint32) (*godbus.Conn, error) {
	address := fmt.Sprintf("unix:path=/run/user/%d/bus", uid)
	conn, err := godbus.Dial(address, godbus.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	methods := []godbus.Auth{godbus.AuthExternal(strconv.Itoa(os.Getuid()))}
	if err = conn.Auth(methods); err != nil {
		conn.Close()
		return nil, err
	}
	if err = conn.Hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// GetServiceStatus retrieves the ActiveState property of a systemd service.
func (m *Manager) GetServiceStatus(ctx context.Context, serviceName string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, serviceName, "ActiveState")
	if err != nil {
		return "", err
	}
	if state, ok := prop.Value.Value().(string); ok {
		return state, nil
	}
	return prop.Value.String(), nil
}

// RestartService restarts a systemd service using the replace mode.
func (m *Manager) RestartService(ctx context.Context, serviceName string) error {
	_, err := m.conn.RestartUnitContext(ctx, serviceName, "replace", nil)
	return err
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
