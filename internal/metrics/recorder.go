package metrics

import "time"

// SkipReason enumerates why a task candidate was not dispatched.
type SkipReason string

const (
	// SkipNoHosts marks a task skipped because its board had no available hosts.
	SkipNoHosts SkipReason = "no_hosts"
	// SkipHostless marks a task that declares host availability irrelevant.
	SkipHostless SkipReason = "hostless"
	// SkipDedup marks a suite run suppressed by the dedup ledger.
	SkipDedup SkipReason = "dedup"
)

// Recorder defines observability hooks for event handling, dispatch and build
// lookups. Implementations may forward to Prometheus, OpenTelemetry, etc. All
// methods must be safe for nil receivers when using the NoopRecorder
// (allowing optional injection).
type Recorder interface {
	IncEventHandled(event string)
	IncTaskDispatched(event string)
	IncTaskSkipped(event string, reason SkipReason)
	IncTaskRemoved(event string)
	IncRunError(event string)
	ObserveHandleDuration(event string, d time.Duration)
	SetTasksInSet(event string, n int)
	IncDevserverPick(server string)
	IncLookupError(server string)
	IncDedupHit(suite string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncEventHandled(string)            {}
func (NoopRecorder) IncTaskDispatched(string)          {}
func (NoopRecorder) IncTaskSkipped(string, SkipReason) {}
func (NoopRecorder) IncTaskRemoved(string)             {}
func (NoopRecorder) IncRunError(string)                {}
func (NoopRecorder) ObserveHandleDuration(string, time.Duration) {}
func (NoopRecorder) SetTasksInSet(string, int)         {}
func (NoopRecorder) IncDevserverPick(string)           {}
func (NoopRecorder) IncLookupError(string)             {}
func (NoopRecorder) IncDedupHit(string)                {}
