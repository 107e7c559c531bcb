package event

import (
	"context"
	"strings"
	"sync"

	"git.home.luguber.info/inful/suitescheduler/internal/metrics"
)

// fakeTask implements Task with scriptable behavior for dispatch tests.
type fakeTask struct {
	name        string
	fingerprint string
	branches    []string
	targets     []string

	hostsAvailable bool
	hostsErr       error
	needsHosts     bool

	keep   bool
	runErr error

	mu      sync.Mutex
	runs    int
	lastRun runArgs
}

type runArgs struct {
	s        Scheduler
	builds   BranchBuilds
	board    string
	force    bool
	d        Discovery
	lcBuilds []string
}

func newFakeTask(name string) *fakeTask {
	return &fakeTask{
		name:           name,
		fingerprint:    name,
		hostsAvailable: true,
		needsHosts:     true,
		keep:           true,
	}
}

func (f *fakeTask) Name() string                    { return f.name }
func (f *fakeTask) Fingerprint() string             { return f.fingerprint }
func (f *fakeTask) LaunchControlBranches() []string { return f.branches }
func (f *fakeTask) LaunchControlTargets() []string  { return f.targets }

func (f *fakeTask) AvailableHosts(_ context.Context, _ Scheduler, _ string) (bool, error) {
	return f.hostsAvailable, f.hostsErr
}

func (f *fakeTask) ShouldHaveAvailableHosts() bool { return f.needsHosts }

func (f *fakeTask) Run(_ context.Context, s Scheduler, builds BranchBuilds, board string,
	force bool, d Discovery, lcBuilds []string) (bool, error) {
	f.mu.Lock()
	f.runs++
	f.lastRun = runArgs{s: s, builds: builds, board: board, force: force, d: d, lcBuilds: lcBuilds}
	f.mu.Unlock()
	if f.runErr != nil {
		return false, f.runErr
	}
	return f.keep, nil
}

func (f *fakeTask) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func (f *fakeTask) last() runArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRun
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []SuiteRequest
}

func (f *fakeScheduler) ScheduleSuite(_ context.Context, req SuiteRequest) (bool, error) {
	f.mu.Lock()
	f.scheduled = append(f.scheduled, req)
	f.mu.Unlock()
	return true, nil
}

func (f *fakeScheduler) CheckHostsExist(context.Context, string) (bool, error) {
	return true, nil
}

type fakeDiscovery struct {
	builds BranchBuilds
	err    error
}

func (f *fakeDiscovery) BranchBuildsForBoard(context.Context, string) (BranchBuilds, error) {
	return f.builds, f.err
}

// fakeWatcher implements BuildWatcher for new-build trigger tests.
type fakeWatcher struct {
	fakeDiscovery
	hasNew      bool
	refreshErr  error
	refreshes   int
	checkpoints int
}

func (f *fakeWatcher) Refresh(context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeWatcher) HasNewBuilds() bool { return f.hasNew }

func (f *fakeWatcher) Checkpoint(context.Context) error {
	f.checkpoints++
	return nil
}

// fakeResolver records every resolved key and answers with a deterministic
// artifact id derived from the key.
type fakeResolver struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeResolver) ResolveLatest(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return strings.TrimSuffix(key, "LATEST") + "123", nil
}

func (f *fakeResolver) resolved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type countingPicker struct {
	mu       sync.Mutex
	picks    int
	resolver BuildResolver
}

func (p *countingPicker) Pick() BuildResolver {
	p.mu.Lock()
	p.picks++
	p.mu.Unlock()
	return p.resolver
}

// countingRecorder captures the dispatch metrics Handle emits.
type countingRecorder struct {
	metrics.NoopRecorder
	mu         sync.Mutex
	dispatched int
	removed    int
	runErrors  int
	skipped    map[metrics.SkipReason]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{skipped: make(map[metrics.SkipReason]int)}
}

func (r *countingRecorder) IncTaskDispatched(string) {
	r.mu.Lock()
	r.dispatched++
	r.mu.Unlock()
}

func (r *countingRecorder) IncTaskRemoved(string) {
	r.mu.Lock()
	r.removed++
	r.mu.Unlock()
}

func (r *countingRecorder) IncRunError(string) {
	r.mu.Lock()
	r.runErrors++
	r.mu.Unlock()
}

func (r *countingRecorder) IncTaskSkipped(_ string, reason metrics.SkipReason) {
	r.mu.Lock()
	r.skipped[reason]++
	r.mu.Unlock()
}

func (r *countingRecorder) skips(reason metrics.SkipReason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped[reason]
}
