package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/softvol/internal/events"
)

func TestRecorderCountsEvents(t *testing.T) {
	bus := events.New()
	recorder := NewRecorder()
	recorder.Bind(bus)
	defer recorder.Unbind()

	bus.Publish(events.PatchAppliedEvent{Path: "/tmp/a"})
	bus.Publish(events.PatchAppliedEvent{Path: "/tmp/b"})
	bus.Publish(events.FallbackAppliedEvent{Path: "/tmp/c"})
	bus.Publish(events.ServiceRestartedEvent{Unit: "wireplumber.service", Users: 1})
	bus.Publish(events.ApplyFailedEvent{Stage: "patch", Error: "boom"})

	// kelindar/event delivers asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(recorder.patches) == 2 &&
			testutil.ToFloat64(recorder.fallbacks) == 1 &&
			testutil.ToFloat64(recorder.restarts) == 1 &&
			testutil.ToFloat64(recorder.failures) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := testutil.ToFloat64(recorder.patches); got != 2 {
		t.Errorf("patches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(recorder.fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recorder.restarts); got != 1 {
		t.Errorf("restarts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recorder.failures); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
}

func TestRecorderHandlerServesMetrics(t *testing.T) {
	recorder := NewRecorder()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "softvol_patches_applied_total") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
