package events

// Event type constants for kelindar/event.
const (
	TypePatchApplied uint32 = iota + 1
	TypeFallbackApplied
	TypeServiceRestarted
	TypeApplyFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PatchAppliedEvent fires when a mixer profile file was modified.
type PatchAppliedEvent struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for PatchAppliedEvent.
func (e PatchAppliedEvent) Type() uint32 { return TypePatchApplied }

// FallbackAppliedEvent fires when the soft-mixer snippet was written
// because a profile file was not writable.
type FallbackAppliedEvent struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for FallbackAppliedEvent.
func (e FallbackAppliedEvent) Type() uint32 { return TypeFallbackApplied }

// ServiceRestartedEvent fires after the audio service restart pass.
type ServiceRestartedEvent struct {
	Unit      string `json:"unit"`
	Users     int    `json:"users"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ServiceRestartedEvent.
func (e ServiceRestartedEvent) Type() uint32 { return TypeServiceRestarted }

// ApplyFailedEvent fires when an apply run errored.
type ApplyFailedEvent struct {
	Stage     string `json:"stage"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ApplyFailedEvent.
func (e ApplyFailedEvent) Type() uint32 { return TypeApplyFailed }
