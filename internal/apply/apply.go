// Package apply orchestrates one run of the workaround: patch the mixer
// profile files, fall back to the soft-mixer snippet when they are not
// writable, restart the audio service for affected sessions, and refresh
// the package status file.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/smazurov/softvol/internal/alsa"
	"github.com/smazurov/softvol/internal/events"
	"github.com/smazurov/softvol/internal/mixer"
	"github.com/smazurov/softvol/internal/pkgstatus"
	"github.com/smazurov/softvol/internal/session"
	"github.com/smazurov/softvol/internal/wireplumber"
)

// Default locations and values.
const (
	DefaultCommonProfile = "/usr/share/alsa-card-profile/mixer/paths/analog-output.conf.common"
	DefaultOutputProfile = "/usr/share/alsa-card-profile/mixer/paths/analog-output.conf"
	DefaultGlobalConfDir = "/etc/wireplumber/wireplumber.conf.d"
	DefaultStatusFile    = "/var/lib/softvol/packages.status"
	DefaultUnit          = "wireplumber.service"
	DefaultCardMatch     = "USB Audio"
	DefaultNodeMatch     = "usb-"
)

// DefaultPackages are the packages whose upgrades overwrite the patch.
var DefaultPackages = []string{"alsa-card-profiles", "pulseaudio-alsa", "wireplumber", "pipewire"}

// Options configures a run.
type Options struct {
	CommonProfile string
	OutputProfile string
	Marker        string
	VolumeValue   string

	GlobalConfDir string
	NodeMatch     string

	CardMatch string
	Unit      string

	StatusFile string
	Packages   []string

	// SkipRestart suppresses the service restart pass; used by watch
	// mode dry runs and by tests.
	SkipRestart bool
}

// Result summarizes what a run did.
type Result struct {
	CardPresent    bool
	PatchedFiles   []string
	FallbackPath   string
	UsedFallback   bool
	RestartedUsers int
	Changed        bool
}

// Runner executes apply runs. The collaborators are injectable so the
// sequencing is testable without root, ALSA, or a session bus.
type Runner struct {
	opts   Options
	bus    *events.Bus
	logger *slog.Logger

	detector  alsa.Detector
	querier   pkgstatus.Querier
	listUsers func() ([]session.User, error)
	restart   session.ServiceRestarter
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithDetector overrides card detection.
func WithDetector(d alsa.Detector) RunnerOption {
	return func(r *Runner) { r.detector = d }
}

// WithQuerier overrides package version queries.
func WithQuerier(q pkgstatus.Querier) RunnerOption {
	return func(r *Runner) { r.querier = q }
}

// WithUserLister overrides logged-in user enumeration.
func WithUserLister(list func() ([]session.User, error)) RunnerOption {
	return func(r *Runner) { r.listUsers = list }
}

// WithRestarter overrides the per-user service restart.
func WithRestarter(restart session.ServiceRestarter) RunnerOption {
	return func(r *Runner) { r.restart = restart }
}

// NewRunner creates a Runner with production collaborators.
func NewRunner(opts Options, bus *events.Bus, logger *slog.Logger, runnerOpts ...RunnerOption) *Runner {
	applyDefaults(&opts)

	r := &Runner{
		opts:     opts,
		bus:      bus,
		logger:   logger,
		detector: alsa.New(),
		querier:  pkgstatus.DetectQuerier(),
		restart:  session.RestartViaBus,
	}
	r.listUsers = listLoggedIn

	for _, opt := range runnerOpts {
		opt(r)
	}
	return r
}

func applyDefaults(opts *Options) {
	if opts.CommonProfile == "" {
		opts.CommonProfile = DefaultCommonProfile
	}
	if opts.OutputProfile == "" {
		opts.OutputProfile = DefaultOutputProfile
	}
	if opts.GlobalConfDir == "" {
		opts.GlobalConfDir = DefaultGlobalConfDir
	}
	if opts.StatusFile == "" {
		opts.StatusFile = DefaultStatusFile
	}
	if opts.Unit == "" {
		opts.Unit = DefaultUnit
	}
	if opts.NodeMatch == "" {
		opts.NodeMatch = DefaultNodeMatch
	}
	if len(opts.Packages) == 0 {
		opts.Packages = DefaultPackages
	}
}

func listLoggedIn() ([]session.User, error) {
	lister, err := session.NewLister()
	if err != nil {
		return nil, err
	}
	defer lister.Close()
	return lister.LoggedIn()
}

// Run executes one apply pass.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{CardPresent: true}

	if present, err := r.cardPresent(); err != nil {
		// Detection failure is not fatal: proceed as if present.
		r.logger.Warn("Could not verify card presence, applying anyway", "error", err)
	} else if !present {
		r.logger.Info("Target card not present, nothing to do", "match", r.opts.CardMatch)
		result.CardPresent = false
		return result, nil
	}

	users, usersErr := r.listUsers()
	if usersErr != nil {
		r.logger.Warn("Could not enumerate logged-in users", "error", usersErr)
	}

	fallbackNeeded, err := r.patchProfiles(result)
	if err != nil {
		r.fail("patch", err)
		return nil, err
	}

	if fallbackNeeded {
		if err := r.installFallback(result, users); err != nil {
			r.fail("fallback", err)
			return nil, err
		}
	}

	if result.Changed && !r.opts.SkipRestart {
		if err := r.restartSessions(ctx, result, users); err != nil {
			r.fail("restart", err)
			return nil, err
		}
	}

	if err := r.refreshStatus(ctx); err != nil {
		// Status tracking is advisory; the workaround itself succeeded.
		r.logger.Warn("Failed to refresh package status", "error", err)
	}

	return result, nil
}

// cardPresent checks whether the configured card is installed. An empty
// match disables the check.
func (r *Runner) cardPresent() (bool, error) {
	if r.opts.CardMatch == "" || r.detector == nil {
		return true, nil
	}
	cards, err := r.detector.ListCards()
	if err != nil {
		return false, err
	}
	_, found := alsa.FindCard(cards, r.opts.CardMatch)
	return found, nil
}

// patchProfiles patches both profile files, reporting whether any of
// them was unwritable and the fallback is needed.
func (r *Runner) patchProfiles(result *Result) (bool, error) {
	patches := []struct {
		path  string
		patch mixer.PatchFunc
	}{
		{r.opts.CommonProfile, mixer.CommonPatch(r.opts.Marker)},
		{r.opts.OutputProfile, mixer.OutputPatch(r.opts.VolumeValue)},
	}

	fallbackNeeded := false
	for _, p := range patches {
		changed, err := mixer.PatchFile(p.path, p.patch)
		if err != nil {
			if errors.Is(err, mixer.ErrNotWritable) {
				r.logger.Info("Profile not writable, will use soft-mixer fallback", "path", p.path)
				fallbackNeeded = true
				continue
			}
			return false, err
		}
		if changed {
			r.logger.Info("Patched mixer profile", "path", p.path)
			result.PatchedFiles = append(result.PatchedFiles, p.path)
			result.Changed = true
			r.publish(events.PatchAppliedEvent{Path: p.path, Timestamp: timestamp()})
		} else {
			r.logger.Debug("Mixer profile already patched", "path", p.path)
		}
	}
	return fallbackNeeded, nil
}

// installFallback writes the soft-mixer snippet to the first writable
// candidate directory: global conf.d first, then each user's own.
func (r *Runner) installFallback(result *Result, users []session.User) error {
	dirs := []string{r.opts.GlobalConfDir}
	for _, user := range users {
		if user.Home == "" {
			continue
		}
		dirs = append(dirs, filepath.Join(user.Home, ".config", "wireplumber", "wireplumber.conf.d"))
	}

	path, changed, err := wireplumber.Install(dirs, r.opts.NodeMatch)
	if err != nil {
		return fmt.Errorf("soft-mixer fallback failed: %w", err)
	}

	result.UsedFallback = true
	result.FallbackPath = path
	if changed {
		result.Changed = true
		r.logger.Info("Installed soft-mixer snippet", "path", path)
		r.publish(events.FallbackAppliedEvent{Path: path, Timestamp: timestamp()})
	} else {
		r.logger.Debug("Soft-mixer snippet already installed", "path", path)
	}
	return nil
}

// restartSessions restarts the audio unit for every eligible user.
func (r *Runner) restartSessions(ctx context.Context, result *Result, users []session.User) error {
	if len(users) == 0 {
		r.logger.Info("No logged-in users, skipping service restart")
		return nil
	}

	restarted, err := session.RestartAll(ctx, users, r.opts.Unit, r.restart, r.logger)
	if err != nil {
		return err
	}
	result.RestartedUsers = restarted
	r.publish(events.ServiceRestartedEvent{Unit: r.opts.Unit, Users: restarted, Timestamp: timestamp()})
	return nil
}

// refreshStatus records the current versions of the tracked packages.
func (r *Runner) refreshStatus(ctx context.Context) error {
	if r.querier == nil {
		return nil
	}

	recorded, err := pkgstatus.Load(r.opts.StatusFile)
	if err != nil {
		return err
	}
	current, err := pkgstatus.Current(ctx, r.querier, r.opts.Packages)
	if err != nil {
		return err
	}
	if !pkgstatus.Changed(recorded, current) {
		return nil
	}
	r.logger.Info("Tracked package versions changed, updating status file", "path", r.opts.StatusFile)
	return pkgstatus.Save(r.opts.StatusFile, current)
}

func (r *Runner) fail(stage string, err error) {
	r.logger.Error("Apply run failed", "stage", stage, "error", err)
	r.publish(events.ApplyFailedEvent{Stage: stage, Error: err.Error(), Timestamp: timestamp()})
}

func (r *Runner) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
