package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PatchAppliedEvent, 1)

	unsub := bus.Subscribe(func(e PatchAppliedEvent) {
		received <- e
	})
	defer unsub()

	want := PatchAppliedEvent{
		Path:      "/usr/share/alsa-card-profile/mixer/paths/analog-output.conf.common",
		Timestamp: "2026-01-27T10:30:00Z",
	}
	bus.Publish(want)

	select {
	case got := <-received:
		if got.Path != want.Path {
			t.Errorf("path = %s, want %s", got.Path, want.Path)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := New()
	restarts := make(chan ServiceRestartedEvent, 1)

	unsub := bus.Subscribe(func(e ServiceRestartedEvent) {
		restarts <- e
	})
	defer unsub()

	bus.Publish(PatchAppliedEvent{Path: "/tmp/x"})

	select {
	case e := <-restarts:
		t.Errorf("restart handler received unrelated event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_UnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	unsub()
}
