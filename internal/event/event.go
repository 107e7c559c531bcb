// Package event implements the scheduler's triggering core: events built
// from declarative configuration, de-duplicated task sets, the decision of
// whether an event is due, per-board build resolution, and the dispatch loop
// that runs eligible tasks while tolerating missing hosts.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/suitescheduler/internal/config"
	"git.home.luguber.info/inful/suitescheduler/internal/logfields"
	"git.home.luguber.info/inful/suitescheduler/internal/metrics"
)

// TaskFilter narrows a task snapshot to those eligible right now. Filters
// must be pure: they receive a snapshot and never mutate the set.
type TaskFilter func([]Task) []Task

// Options are the per-event settings recognized in an event's config section.
type Options struct {
	AlwaysHandle bool
}

// ParseConfig reads the section named SectionName(keyword) and returns the
// recognized options. A missing section or a malformed always_handle value
// is a configuration error and propagates to the caller. An absent
// always_handle is tolerated and defaults to false.
func ParseConfig(cfg *config.Config, keyword string) (Options, error) {
	always, err := cfg.GetBoolean(SectionName(keyword), "always_handle")
	if err != nil && !errors.Is(err, config.ErrMissing) {
		return Options{}, err
	}
	return Options{AlwaysHandle: always}, nil
}

// Event is a named trigger that dispatches a task set when due. The keyword
// is immutable; tasks, discovery backend and the always-handle flag change
// together on Merge when configuration reloads. Concrete trigger variants
// embed *Event and implement the Trigger interface on top of it.
type Event struct {
	keyword string

	mu           sync.Mutex
	tasks        *TaskSet
	discovery    Discovery
	alwaysHandle bool
	filter       TaskFilter
	picker       ServerPicker
	aliases      map[string]string

	rec metrics.Recorder
}

type Option func(*Event)

// WithTaskFilter restricts which tasks are candidates outside forced
// handling.
func WithTaskFilter(f TaskFilter) Option {
	return func(e *Event) { e.filter = f }
}

// WithLaunchControl wires the metadata server pool and the board alias table
// used for latest-build lookups. Boards absent from the alias table pass
// through unchanged.
func WithLaunchControl(p ServerPicker, aliases map[string]string) Option {
	return func(e *Event) {
		e.picker = p
		e.aliases = aliases
	}
}

// WithRecorder sets the metrics recorder. Defaults to a no-op.
func WithRecorder(rec metrics.Recorder) Option {
	return func(e *Event) {
		if rec != nil {
			e.rec = rec
		}
	}
}

// New constructs an event with an empty task set.
func New(keyword string, d Discovery, alwaysHandle bool, opts ...Option) *Event {
	e := &Event{
		keyword:      keyword,
		tasks:        NewTaskSet(),
		discovery:    d,
		alwaysHandle: alwaysHandle,
		rec:          metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Keyword never changes after construction.
func (e *Event) Keyword() string { return e.keyword }

func (e *Event) AlwaysHandle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alwaysHandle
}

// Discovery returns the build-discovery backend currently attached.
func (e *Event) Discovery() Discovery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discovery
}

func (e *Event) taskSet() *TaskSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks
}

// SetTasks replaces the event's task set, collapsing logically identical
// tasks.
func (e *Event) SetTasks(tasks []Task) {
	set := e.taskSet()
	set.Set(tasks)
	e.rec.SetTasksInSet(e.keyword, set.Len())
}

// Tasks returns a snapshot of the current task set.
func (e *Event) Tasks() []Task {
	return e.taskSet().Tasks()
}

// LaunchControlBranchTargets is the task set's branch → targets view used
// for latest-build lookups.
func (e *Event) LaunchControlBranchTargets() map[string][]string {
	return e.taskSet().BranchTargets()
}

// Merge adopts other's task set, discovery backend and always-handle flag.
// The keyword is preserved so references to e stay valid across config
// reloads. Merge is write-exclusive against concurrent dispatch; an
// in-flight Handle keeps draining the snapshot it already took.
func (e *Event) Merge(other *Event) error {
	if e.keyword != other.keyword {
		return fmt.Errorf("merging %q into %q: %w", other.keyword, e.keyword, ErrKeywordMismatch)
	}
	tasks := other.Tasks()
	d := other.Discovery()
	always := other.AlwaysHandle()

	e.mu.Lock()
	e.tasks.Set(tasks)
	e.discovery = d
	e.alwaysHandle = always
	n := e.tasks.Len()
	e.mu.Unlock()

	e.rec.SetTasksInSet(e.keyword, n)
	return nil
}

// ShouldHandle reports whether the event is due. The base behavior is the
// always-handle override; trigger variants OR in their own due-ness check.
func (e *Event) ShouldHandle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alwaysHandle
}

// FilterTasks returns the tasks eligible to run right now. Without a
// configured filter every task qualifies.
func (e *Event) FilterTasks() []Task {
	e.mu.Lock()
	set, filter := e.tasks, e.filter
	e.mu.Unlock()

	tasks := set.Tasks()
	if filter == nil {
		return tasks
	}
	return filter(tasks)
}

// Handle dispatches eligible tasks for board. force widens the candidates to
// the whole set, bypassing the task filter, and is passed through to each
// task. A run reporting keep=false marks a one-shot task: it is removed from
// the set. Candidates whose board lacks hosts are skipped with a warning
// when the task expects hosts, and with a debug note when it does not.
//
// A host-check or run error aborts the call: remaining candidates stay
// undispatched and the error propagates as a *RunError.
func (e *Event) Handle(ctx context.Context, s Scheduler, builds BranchBuilds, board string, force bool, launchControlBuilds []string) error {
	start := time.Now()
	slog.Info("Handling event", logfields.Event(e.keyword), logfields.Board(board))

	e.mu.Lock()
	set, d, filter := e.tasks, e.discovery, e.filter
	e.mu.Unlock()

	candidates := set.Tasks()
	if !force && filter != nil {
		candidates = filter(candidates)
	}

	for _, task := range candidates {
		ok, err := task.AvailableHosts(ctx, s, board)
		if err != nil {
			e.rec.IncRunError(e.keyword)
			return &RunError{Op: "host check", Event: e.keyword, Task: task.Name(), Board: board, Err: err}
		}
		switch {
		case ok:
			e.rec.IncTaskDispatched(e.keyword)
			keep, err := task.Run(ctx, s, builds, board, force, d, launchControlBuilds)
			if err != nil {
				e.rec.IncRunError(e.keyword)
				return &RunError{Op: "run", Event: e.keyword, Task: task.Name(), Board: board, Err: err}
			}
			if !keep {
				set.Remove(task)
				e.rec.IncTaskRemoved(e.keyword)
				e.rec.SetTasksInSet(e.keyword, set.Len())
				slog.Info("Removed one-shot task after run",
					logfields.Event(e.keyword), logfields.Task(task.Name()))
			}
		case task.ShouldHaveAvailableHosts():
			slog.Warn("Skipping task, no available hosts",
				logfields.Event(e.keyword), logfields.Task(task.Name()), logfields.Board(board))
			e.rec.IncTaskSkipped(e.keyword, metrics.SkipNoHosts)
		default:
			slog.Debug("Task needs no hosts, nothing to dispatch",
				logfields.Event(e.keyword), logfields.Task(task.Name()), logfields.Board(board))
			e.rec.IncTaskSkipped(e.keyword, metrics.SkipHostless)
		}
	}

	e.rec.IncEventHandled(e.keyword)
	e.rec.ObserveHandleDuration(e.keyword, time.Since(start))
	return nil
}
