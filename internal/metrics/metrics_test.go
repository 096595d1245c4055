package metrics

import (
	"testing"
	"time"
)

func TestRecorder_NoPanics(t *testing.T) {
	r := NewRecorder()

	r.RecordPlan(true, true)
	r.RecordPlan(false, false)
	r.RecordDeskRow("reprice")
	r.RecordDeskRow("hold")
	r.RecordCalibration(true)
	r.RecordCalibration(false)
	r.RecordUpstreamRequest("orders", nil)
	r.RecordCacheHit(true)
	r.RecordCacheHit(false)
	r.RecordBreakerState(true)
	r.RecordBreakerState(false)
	r.RecordError("persistence")
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)

	if timer.Elapsed() < 5*time.Millisecond {
		t.Errorf("Elapsed() = %v, expected >= 5ms", timer.Elapsed())
	}

	timer.ObservePlan()
	timer.ObserveDesk()
	timer.ObserveUpstream()
}
