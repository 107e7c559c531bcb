package event

import "context"

// Trigger is the full contract a concrete event variant satisfies. *Event
// supplies construction, the task set, merging and the dispatch loop;
// variants add the due-ness bookkeeping and build resolution the base cannot
// know. A variant missing a method does not compile, so an incomplete
// subtype fails at build time rather than when first polled.
type Trigger interface {
	Keyword() string

	// Prepare performs one-time setup before the first ShouldHandle.
	Prepare(ctx context.Context) error

	ShouldHandle() bool

	// UpdateCriteria refreshes the state ShouldHandle consults. Call it
	// after handling so the next poll sees a fresh decision. Backend
	// failures propagate; there are no retries at this layer.
	UpdateCriteria(ctx context.Context) error

	FilterTasks() []Task
	SetTasks(tasks []Task)
	Tasks() []Task

	// BranchBuildsForBoard returns builds per branch that appeared since the
	// event's last check.
	BranchBuildsForBoard(ctx context.Context, board string) (BranchBuilds, error)

	// LaunchControlBuildsForBoard returns launch-control builds for board
	// since the event's last check.
	LaunchControlBuildsForBoard(ctx context.Context, board string) ([]string, error)

	Handle(ctx context.Context, s Scheduler, builds BranchBuilds, board string,
		force bool, launchControlBuilds []string) error

	// Merge adopts the mutable state of a freshly built trigger sharing the
	// same keyword, keeping the receiver's identity valid for callers that
	// hold it.
	Merge(other Trigger) error
}
