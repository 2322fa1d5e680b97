package metrics

import "time"

// Outcome labels for build counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder defines observability hooks for build metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for
// nil receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObservePassDuration(d time.Duration)
	IncBuildOutcome(outcome string)
	IncTrigger(trigger string) // trigger: cli|watch|schedule
	SetLastBuildTimestamp(t time.Time)
	SetLastBuildPages(pages int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) ObservePassDuration(time.Duration)  {}
func (NoopRecorder) IncBuildOutcome(string)             {}
func (NoopRecorder) IncTrigger(string)                  {}
func (NoopRecorder) SetLastBuildTimestamp(time.Time)    {}
func (NoopRecorder) SetLastBuildPages(int)              {}
