package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != Version {
		t.Errorf("Version = %s, want %s", info.Version, Version)
	}
	if info.BuildID != BuildID {
		t.Errorf("BuildID = %s, want %s", info.BuildID, BuildID)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Platform = %s, want os/arch", info.Platform)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}
