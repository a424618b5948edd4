// Package metrics instruments the show-control console with Prometheus
// metrics: operation counts, durations, and errors recorded behind a
// small Recorder interface so callers don't depend on the concrete
// Prometheus types directly.
package metrics

// Recorder is the metrics surface every instrumented component depends
// on. Production code gets a *ConsoleMetrics; tests can substitute a
// TestRecorder or NoOpRecorder without touching a real registry.
type Recorder interface {
	RecordOperation(operation, status string)
	RecordDuration(operation string, seconds float64)
	RecordError(operation, errorType string)
}

// NoOpRecorder discards every call. Used when metrics are disabled so
// instrumented code never has to nil-check its Recorder.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(string, string)   {}
func (NoOpRecorder) RecordDuration(string, float64)   {}
func (NoOpRecorder) RecordError(string, string)       {}

var _ Recorder = NoOpRecorder{}
