package event

import (
	"context"
	"fmt"
)

// LatestLaunchControlBuilds resolves the newest launch-control artifact for
// every declared target matching board.
//
// The board name is first translated through the alias table (some boards
// are addressed under a different target name in launch control). One
// metadata server is picked from the pool per call to spread lookup load;
// every call picks independently. For each branch in the task set's
// aggregated branch → targets view, targets whose board component matches
// the translated board are resolved via the key "<branch>/<target>/LATEST".
//
// The result may contain duplicates when tasks declare overlapping targets;
// callers tolerate repeats. A failed lookup is returned as is, without
// internal retries.
func (e *Event) LatestLaunchControlBuilds(ctx context.Context, board string) ([]string, error) {
	e.mu.Lock()
	set, picker, aliases := e.tasks, e.picker, e.aliases
	e.mu.Unlock()

	if picker == nil {
		return nil, ErrLaunchControlUnconfigured
	}
	if alias, ok := aliases[board]; ok {
		board = alias
	}

	server := picker.Pick()
	var builds []string
	for branch, targets := range set.BranchTargets() {
		for _, target := range targets {
			if TargetBoard(target) != board {
				continue
			}
			build, err := server.ResolveLatest(ctx, LaunchControlKey(branch, target))
			if err != nil {
				return nil, fmt.Errorf("resolving latest build for %s/%s: %w", branch, target, err)
			}
			builds = append(builds, build)
		}
	}
	return builds, nil
}
