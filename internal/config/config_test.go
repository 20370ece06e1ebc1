package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestConfig represents a test configuration structure.
type TestConfig struct {
	Config string `help:"Config file path"`

	// Basic types
	StringField string   `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField   bool     `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField    int      `toml:"test.int_field" env:"INT_FIELD"`
	SliceField  []string `toml:"test.slice_field" env:"SLICE_FIELD"`

	// Nested config
	NestedString string `toml:"nested.value" env:"NESTED_VALUE"`
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "softvol.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
slice_field = ["item1", "item2", "item3"]

[nested]
value = "nested value"
`)

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "hello world" {
		t.Errorf("StringField = %q, want %q", config.StringField, "hello world")
	}
	if !config.BoolField {
		t.Error("BoolField = false, want true")
	}
	if config.IntField != 42 {
		t.Errorf("IntField = %d, want 42", config.IntField)
	}
	if len(config.SliceField) != 3 || config.SliceField[0] != "item1" {
		t.Errorf("SliceField = %v", config.SliceField)
	}
	if config.NestedString != "nested value" {
		t.Errorf("NestedString = %q", config.NestedString)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
string_field = "from toml"
int_field = 1
`)

	t.Setenv(EnvPrefix+"STRING_FIELD", "from env")
	t.Setenv(EnvPrefix+"INT_FIELD", "7")
	t.Setenv(EnvPrefix+"SLICE_FIELD", "a, b")

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "from env" {
		t.Errorf("StringField = %q, want env override", config.StringField)
	}
	if config.IntField != 7 {
		t.Errorf("IntField = %d, want 7", config.IntField)
	}
	if len(config.SliceField) != 2 || config.SliceField[1] != "b" {
		t.Errorf("SliceField = %v", config.SliceField)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := &TestConfig{Config: filepath.Join(t.TempDir(), "nope.toml")}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig should ignore missing file: %v", err)
	}
}

func TestLoadConfigMalformedTOML(t *testing.T) {
	path := writeTOML(t, "not [valid toml")
	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Unit", "unit"},
		{"LoggingLevel", "logging-level"},
		{"StatusFile", "status-file"},
	}
	for _, tt := range tests {
		if got := fieldNameToFlag(tt.in); got != tt.want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeTOML(t, `
[logging]
level = "debug"
format = "json"
mixer = "warn"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Modules["mixer"] != "warn" {
		t.Errorf("Modules = %v", cfg.Modules)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}
