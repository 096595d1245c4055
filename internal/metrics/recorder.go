package metrics

import (
	"time"
)

// Recorder provides methods for recording metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordPlan records an execution plan, labeled by side and whether the
// requested quantity was fully covered by book depth.
func (r *Recorder) RecordPlan(isBuy, canFill bool) {
	side := "sell"
	if isBuy {
		side = "buy"
	}
	outcome := "partial"
	if canFill {
		outcome = "filled"
	}
	PlansComputed.WithLabelValues(side, outcome).Inc()
}

// RecordDeskRow records a desk row by its recommendation.
func (r *Recorder) RecordDeskRow(recommendation string) {
	DeskRows.WithLabelValues(recommendation).Inc()
}

// RecordCalibration records an impact calibration outcome.
func (r *Recorder) RecordCalibration(hasParams bool) {
	outcome := "insufficient_data"
	if hasParams {
		outcome = "ok"
	}
	CalibrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordUpstreamRequest records an upstream market data request.
func (r *Recorder) RecordUpstreamRequest(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordCacheHit records a history cache hit or miss.
func (r *Recorder) RecordCacheHit(hit bool) {
	if hit {
		HistoryCacheHits.Inc()
	} else {
		HistoryCacheMisses.Inc()
	}
}

// RecordBreakerState records whether the upstream circuit breaker is open.
func (r *Recorder) RecordBreakerState(open bool) {
	if open {
		UpstreamBreakerOpen.Set(1)
	} else {
		UpstreamBreakerOpen.Set(0)
	}
}

// RecordError records an error.
func (r *Recorder) RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ObservePlan observes the elapsed time as plan latency.
func (t *Timer) ObservePlan() {
	PlanLatency.Observe(t.Elapsed().Seconds())
}

// ObserveDesk observes the elapsed time as desk review latency.
func (t *Timer) ObserveDesk() {
	DeskLatency.Observe(t.Elapsed().Seconds())
}

// ObserveUpstream observes the elapsed time as upstream request latency.
func (t *Timer) ObserveUpstream() {
	UpstreamLatency.Observe(t.Elapsed().Seconds())
}
