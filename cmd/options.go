package cmd

import (
	"github.com/smazurov/softvol/internal/apply"
	"github.com/smazurov/softvol/internal/hooks"
)

// Settings is the shared configuration surface for the subcommands, with
// toml mapping for the config file and SOFTVOL_-prefixed env overrides.
type Settings struct {
	Config string `help:"Path to configuration file"`

	// Mixer profile patching
	CommonProfile string `toml:"mixer.common_profile" env:"MIXER_COMMON_PROFILE"`
	OutputProfile string `toml:"mixer.output_profile" env:"MIXER_OUTPUT_PROFILE"`
	MarkerSection string `toml:"mixer.marker_section" env:"MIXER_MARKER_SECTION"`
	VolumeValue   string `toml:"mixer.volume_value" env:"MIXER_VOLUME_VALUE"`

	// Soft-mixer fallback
	FallbackConfDir string `toml:"fallback.conf_dir" env:"FALLBACK_CONF_DIR"`
	NodeMatch       string `toml:"fallback.node_match" env:"FALLBACK_NODE_MATCH"`

	// Card and service
	CardMatch string `toml:"card.match" env:"CARD_MATCH"`
	Unit      string `toml:"service.unit" env:"SERVICE_UNIT"`

	// Package tracking
	StatusFile string   `toml:"status.file" env:"STATUS_FILE"`
	Packages   []string `toml:"status.packages" env:"STATUS_PACKAGES"`

	// Hook registration
	HookExec      string `toml:"hooks.exec" env:"HOOKS_EXEC"`
	PacmanHookDir string `toml:"hooks.pacman_dir" env:"HOOKS_PACMAN_DIR"`
	AptConfDir    string `toml:"hooks.apt_dir" env:"HOOKS_APT_DIR"`
}

// ApplyOptions converts settings into apply options; empty fields keep
// the apply package defaults.
func (s *Settings) ApplyOptions() apply.Options {
	return apply.Options{
		CommonProfile: s.CommonProfile,
		OutputProfile: s.OutputProfile,
		Marker:        s.MarkerSection,
		VolumeValue:   s.VolumeValue,
		GlobalConfDir: s.FallbackConfDir,
		NodeMatch:     s.NodeMatch,
		CardMatch:     cardMatchOrDefault(s.CardMatch),
		Unit:          s.Unit,
		StatusFile:    s.StatusFile,
		Packages:      s.Packages,
	}
}

// HooksConfig converts settings into a hook configuration. The mixer
// packages own the profile files, the server packages own the audio
// server whose upgrade can drop the soft-mixer rule.
func (s *Settings) HooksConfig() hooks.Config {
	execLine := s.HookExec
	if execLine == "" {
		execLine = "/usr/bin/softvol apply --quiet"
	}
	packages := s.Packages
	if len(packages) == 0 {
		packages = apply.DefaultPackages
	}

	var mixerPkgs, serverPkgs []string
	for _, pkg := range packages {
		switch pkg {
		case "wireplumber", "pipewire", "pipewire-pulse", "pulseaudio":
			serverPkgs = append(serverPkgs, pkg)
		default:
			mixerPkgs = append(mixerPkgs, pkg)
		}
	}

	return hooks.Config{
		PacmanHookDir:  s.PacmanHookDir,
		AptConfDir:     s.AptConfDir,
		Exec:           execLine,
		MixerPackages:  mixerPkgs,
		ServerPackages: serverPkgs,
	}
}

func cardMatchOrDefault(match string) string {
	if match != "" {
		return match
	}
	return apply.DefaultCardMatch
}
