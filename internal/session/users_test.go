package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

const passwdFixture = `root:x:0:0::/root:/bin/bash
dbus:x:81:81:System Message Bus:/:/usr/bin/nologin
alice:x:1000:1000:Alice:/home/alice:/bin/zsh
bob:x:1001:1001::/home/bob:/bin/bash
backup:x:1002:1002::/home/backup:/usr/sbin/nologin
nobody:x:65534:65534:Kernel Overflow User:/:/usr/bin/nologin
`

const shadowFixture = `root:$6$hash:19000:0:99999:7:::
alice:$y$hash:19000:0:99999:7:::
bob:!$y$hash:19000:0:99999:7:::
backup:*:19000:0:99999:7:::
`

func TestParsePasswd(t *testing.T) {
	accounts, err := parsePasswd(strings.NewReader(passwdFixture))
	if err != nil {
		t.Fatalf("parsePasswd() error: %v", err)
	}

	alice, ok := accounts["alice"]
	if !ok {
		t.Fatal("alice missing from parsed accounts")
	}
	if alice.uid != 1000 || alice.home != "/home/alice" || alice.shell != "/bin/zsh" {
		t.Errorf("alice = %+v", alice)
	}

	if _, ok := accounts["root"]; !ok {
		t.Error("root missing from parsed accounts")
	}
}

func TestParseShadowLocked(t *testing.T) {
	locked := parseShadowLocked(strings.NewReader(shadowFixture))

	if locked["alice"] {
		t.Error("alice should not be locked")
	}
	if !locked["bob"] {
		t.Error("bob should be locked (! prefix)")
	}
	if !locked["backup"] {
		t.Error("backup should be locked (* password)")
	}
}

func TestAccountEligible(t *testing.T) {
	tests := []struct {
		name    string
		account account
		want    bool
	}{
		{"regular user", account{uid: 1000, shell: "/bin/bash"}, true},
		{"system user", account{uid: 81, shell: "/bin/bash"}, false},
		{"nobody", account{uid: 65534, shell: "/bin/bash"}, false},
		{"locked", account{uid: 1000, shell: "/bin/bash", locked: true}, false},
		{"nologin shell", account{uid: 1000, shell: "/usr/sbin/nologin"}, false},
		{"false shell", account{uid: 1000, shell: "/usr/bin/false"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.eligible(); got != tt.want {
				t.Errorf("eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestRestartAllContinuesPastFailures(t *testing.T) {
	users := []User{
		{UID: 1000, Name: "alice"},
		{UID: 1001, Name: "bob"},
	}

	var restarted []string
	restart := func(_ context.Context, user User, _ string) error {
		if user.Name == "alice" {
			return errors.New("no session bus")
		}
		restarted = append(restarted, user.Name)
		return nil
	}

	count, err := RestartAll(context.Background(), users, "wireplumber.service", restart, testLogger())
	if err != nil {
		t.Errorf("RestartAll() error: %v, want nil for partial failure", err)
	}
	if count != 1 {
		t.Errorf("RestartAll() count = %d, want 1 when only bob succeeded", count)
	}
	if len(restarted) != 1 || restarted[0] != "bob" {
		t.Errorf("restarted = %v, want [bob]", restarted)
	}
}

func TestRestartAllErrorsWhenAllFail(t *testing.T) {
	users := []User{{UID: 1000, Name: "alice"}}

	restart := func(context.Context, User, string) error {
		return errors.New("no session bus")
	}

	count, err := RestartAll(context.Background(), users, "wireplumber.service", restart, testLogger())
	if err == nil {
		t.Error("RestartAll() error = nil, want error when every restart fails")
	}
	if count != 0 {
		t.Errorf("RestartAll() count = %d, want 0", count)
	}
}

func TestRestartAllNoUsers(t *testing.T) {
	count, err := RestartAll(context.Background(), nil, "wireplumber.service", nil, testLogger())
	if err != nil {
		t.Errorf("RestartAll() error: %v, want nil for no users", err)
	}
	if count != 0 {
		t.Errorf("RestartAll() count = %d, want 0", count)
	}
}
