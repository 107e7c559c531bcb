package event

import (
	"sort"
	"sync"
)

// TaskSet holds an event's tasks, keyed by Task.Fingerprint so logically
// identical tasks collapse to one entry. All methods are safe for concurrent
// use; Tasks returns a point-in-time snapshot so callers never iterate the
// live map while removals happen.
type TaskSet struct {
	mu    sync.Mutex
	tasks map[string]Task
}

func NewTaskSet() *TaskSet {
	return &TaskSet{tasks: make(map[string]Task)}
}

// Set replaces the members of the set, collapsing duplicates.
func (s *TaskSet) Set(tasks []Task) {
	next := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		next[t.Fingerprint()] = t
	}
	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()
}

// Tasks returns a snapshot of the current members, ordered by name for
// stable logs. Callers must not rely on dispatch order.
func (s *TaskSet) Tasks() []Task {
	s.mu.Lock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].Fingerprint() < out[j].Fingerprint()
	})
	return out
}

func (s *TaskSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Remove deletes the task sharing t's fingerprint, if present.
func (s *TaskSet) Remove(t Task) {
	s.mu.Lock()
	delete(s.tasks, t.Fingerprint())
	s.mu.Unlock()
}

// BranchTargets aggregates every task's launch-control declaration into a
// branch → accumulated target list view. Each task contributes its full
// target list under every branch it declares. Targets are concatenated, not
// de-duplicated; consumers must tolerate repeats.
func (s *TaskSet) BranchTargets() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	branches := make(map[string][]string)
	for _, t := range s.tasks {
		targets := t.LaunchControlTargets()
		for _, branch := range t.LaunchControlBranches() {
			branches[branch] = append(branches[branch], targets...)
		}
	}
	return branches
}
