package event

import "context"

// BranchBuilds maps a branch identifier (e.g. "R18", "factory") to the
// ordered build names to install for that branch.
type BranchBuilds map[string][]string

// SuiteRequest describes one suite-on-one-build run handed to the external
// scheduler. Event is the keyword of the triggering event, recorded for
// provenance only; it never influences scheduling decisions.
type SuiteRequest struct {
	Event       string
	Suite       string
	Board       string
	Build       string
	Pool        string
	Num         int
	Priority    int
	TimeoutMins int
	Force       bool
}

// Scheduler is the external suite scheduler tasks run against. Events never
// call it directly; it is passed through to each task's Run.
type Scheduler interface {
	// ScheduleSuite books the described run. It reports false when the run
	// was suppressed as a duplicate.
	ScheduleSuite(ctx context.Context, req SuiteRequest) (bool, error)
	CheckHostsExist(ctx context.Context, board string) (bool, error)
}

// Discovery supplies per-branch builds newer than a checkpoint. The "since
// last check" state belongs to the backend, not to events.
type Discovery interface {
	BranchBuildsForBoard(ctx context.Context, board string) (BranchBuilds, error)
}

// Task is one test-suite dispatch rule, owned outside this package.
//
// Fingerprint is the logical-equality contract: two tasks with equal
// fingerprints describe the same work and collapse to a single entry in a
// task set. Implementations derive it from the identifying fields of the
// task (suite, boards, branch spec and so on), never from object identity.
type Task interface {
	Name() string
	Fingerprint() string

	// LaunchControlBranches and LaunchControlTargets declare where the task
	// applies in the launch-control build system. Every declared target is
	// considered on every declared branch.
	LaunchControlBranches() []string
	LaunchControlTargets() []string

	// AvailableHosts reports whether board has hosts this task can use.
	AvailableHosts(ctx context.Context, s Scheduler, board string) (bool, error)

	// ShouldHaveAvailableHosts reports whether a lack of hosts deserves a
	// diagnostic. Tasks that run hostless return false.
	ShouldHaveAvailableHosts() bool

	// Run schedules the task's suite against the given builds. keep=false
	// marks the task one-shot: it must not fire again and is removed from
	// its event's task set.
	Run(ctx context.Context, s Scheduler, builds BranchBuilds, board string,
		force bool, d Discovery, launchControlBuilds []string) (keep bool, err error)
}

// BuildResolver translates a latest-build key into a concrete artifact id.
type BuildResolver interface {
	ResolveLatest(ctx context.Context, key string) (string, error)
}

// ServerPicker yields one metadata server per call. Implementations must
// spread picks across the pool over repeated calls; no server is primary.
type ServerPicker interface {
	Pick() BuildResolver
}

// PickerFunc adapts a function to the ServerPicker interface.
type PickerFunc func() BuildResolver

func (f PickerFunc) Pick() BuildResolver { return f() }
