package event

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/suitescheduler/internal/config"
)

// KeywordNewBuild names the build-driven trigger.
const KeywordNewBuild = "new_build"

// BuildWatcher extends Discovery with the change tracking the new-build
// trigger consults: whether fresh builds appeared since the last checkpoint,
// and advancing that checkpoint once they are handled.
type BuildWatcher interface {
	Discovery

	// Refresh fetches the backend's latest build metadata.
	Refresh(ctx context.Context) error

	// HasNewBuilds reports whether builds appeared since the last
	// checkpoint, as of the last Refresh.
	HasNewBuilds() bool

	// Checkpoint marks everything seen so far as handled.
	Checkpoint(ctx context.Context) error
}

// NewBuild fires whenever the discovery backend reports builds that appeared
// since its checkpoint.
type NewBuild struct {
	*Event
	watcher BuildWatcher
}

var _ Trigger = (*NewBuild)(nil)

// NewBuildEvent constructs the new-build trigger.
func NewBuildEvent(w BuildWatcher, o Options, opts ...Option) *NewBuild {
	return &NewBuild{
		Event:   New(KeywordNewBuild, w, o.AlwaysHandle, opts...),
		watcher: w,
	}
}

// NewBuildFromConfig constructs the trigger with options read from its
// config section. Configuration errors propagate.
func NewBuildFromConfig(cfg *config.Config, w BuildWatcher, opts ...Option) (*NewBuild, error) {
	o, err := ParseConfig(cfg, KeywordNewBuild)
	if err != nil {
		return nil, err
	}
	return NewBuildEvent(w, o, opts...), nil
}

func (n *NewBuild) watch() BuildWatcher {
	n.Event.mu.Lock()
	defer n.Event.mu.Unlock()
	return n.watcher
}

// Prepare aligns the checkpoint with the backend's current state so the
// first poll only reacts to builds that appear after startup.
func (n *NewBuild) Prepare(ctx context.Context) error {
	w := n.watch()
	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("preparing %s: %w", n.Keyword(), err)
	}
	return w.Checkpoint(ctx)
}

// ShouldHandle extends the always-handle override with the backend's
// new-build signal.
func (n *NewBuild) ShouldHandle() bool {
	return n.Event.ShouldHandle() || n.watch().HasNewBuilds()
}

// UpdateCriteria advances the checkpoint past the builds just handled.
func (n *NewBuild) UpdateCriteria(ctx context.Context) error {
	return n.watch().Checkpoint(ctx)
}

func (n *NewBuild) BranchBuildsForBoard(ctx context.Context, board string) (BranchBuilds, error) {
	return n.watch().BranchBuildsForBoard(ctx, board)
}

// LaunchControlBuildsForBoard resolves the newest artifact per declared
// target; for a build-driven trigger the latest build is the one to test.
func (n *NewBuild) LaunchControlBuildsForBoard(ctx context.Context, board string) ([]string, error) {
	return n.LatestLaunchControlBuilds(ctx, board)
}

// Merge adopts the other trigger's watcher along with the base event state.
func (n *NewBuild) Merge(other Trigger) error {
	o, ok := other.(*NewBuild)
	if !ok {
		return fmt.Errorf("merging %q into %q: %w", other.Keyword(), n.Keyword(), ErrKeywordMismatch)
	}
	if err := n.Event.Merge(o.Event); err != nil {
		return err
	}
	n.Event.mu.Lock()
	n.watcher = o.watcher
	n.Event.mu.Unlock()
	return nil
}
