// Package session enumerates the login sessions whose audio service has
// to be restarted after the workaround changes configuration.
package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/login1"
)

// Regular account UID range; anything outside is a system or reserved
// account and never gets its session touched.
const (
	uidMin = 1000
	uidMax = 60000
)

const (
	passwdPath = "/etc/passwd"
	shadowPath = "/etc/shadow"
)

// User is a logged-in account eligible for a service restart.
type User struct {
	UID  uint32
	Name string
	Home string
}

// Lister enumerates logged-in users via the logind D-Bus API.
type Lister struct {
	conn *login1.Conn
}

// NewLister connects to logind on the system bus.
func NewLister() (*Lister, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to logind: %w", err)
	}
	return &Lister{conn: conn}, nil
}

// Close releases the logind connection.
func (l *Lister) Close() {
	if l.conn != nil {
		l.conn.Close()
	}
}

// LoggedIn returns the logged-in users that are regular, unlocked
// accounts. System users, reserved UIDs, and accounts with a locked
// password or a nologin shell are filtered out.
func (l *Lister) LoggedIn() ([]User, error) {
	logindUsers, err := l.conn.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list logind users: %w", err)
	}

	accounts, err := loadAccounts()
	if err != nil {
		return nil, err
	}

	var users []User
	for _, lu := range logindUsers {
		account, ok := accounts[lu.Name]
		if !ok || lu.UID != account.uid {
			continue
		}
		if !account.eligible() {
			continue
		}
		users = append(users, User{UID: lu.UID, Name: lu.Name, Home: account.home})
	}
	return users, nil
}

// account is the merged passwd/shadow view of one entry.
type account struct {
	uid    uint32
	home   string
	shell  string
	locked bool
}

// eligible applies the non-system, non-locked rules.
func (a account) eligible() bool {
	if a.uid < uidMin || a.uid > uidMax {
		return false
	}
	if a.locked {
		return false
	}
	switch {
	case strings.HasSuffix(a.shell, "/nologin"), strings.HasSuffix(a.shell, "/false"):
		return false
	}
	return true
}

// loadAccounts reads /etc/passwd and, when readable, /etc/shadow.
// A missing shadow file (non-root invocation) treats accounts as unlocked.
func loadAccounts() (map[string]account, error) {
	passwdFile, err := os.Open(passwdPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", passwdPath, err)
	}
	defer passwdFile.Close()

	accounts, err := parsePasswd(passwdFile)
	if err != nil {
		return nil, err
	}

	shadowFile, err := os.Open(shadowPath)
	if err != nil {
		return accounts, nil
	}
	defer shadowFile.Close()

	locked := parseShadowLocked(shadowFile)
	for name := range accounts {
		if locked[name] {
			entry := accounts[name]
			entry.locked = true
			accounts[name] = entry
		}
	}
	return accounts, nil
}

// parsePasswd reads passwd(5) content into account entries.
func parsePasswd(r io.Reader) (map[string]account, error) {
	accounts := make(map[string]account)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 7 {
			continue
		}
		uid, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			continue
		}
		accounts[fields[0]] = account{
			uid:   uint32(uid),
			home:  fields[5],
			shell: fields[6],
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse passwd: %w", err)
	}
	return accounts, nil
}

// parseShadowLocked reads shadow(5) content and reports accounts whose
// password field marks them locked ("!" or "*" prefix).
func parseShadowLocked(r io.Reader) map[string]bool {
	locked := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			continue
		}
		hash := fields[1]
		if strings.HasPrefix(hash, "!") || strings.HasPrefix(hash, "*") {
			locked[fields[0]] = true
		}
	}
	return locked
}
