package metrics

import "time"

// OutcomeLabel enumerates build and run outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeFailed  OutcomeLabel = "failed"
)

// OutcomeFor maps an error to its outcome label.
func OutcomeFor(err error) OutcomeLabel {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}

// Recorder defines observability hooks for an assembly run. All methods must
// be safe to call on the NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveBuildDuration(builder string, d time.Duration, outcome OutcomeLabel)
	IncBuildOutcome(builder string, outcome OutcomeLabel)
	ObserveFlushDuration(d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	ObserveRunDuration(d time.Duration)
	SetRoutes(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration, OutcomeLabel) {}
func (NoopRecorder) IncBuildOutcome(string, OutcomeLabel)                     {}
func (NoopRecorder) ObserveFlushDuration(time.Duration)                       {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                               {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                         {}
func (NoopRecorder) SetRoutes(int)                                            {}
