package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func launchControlEvent(resolver *fakeResolver, aliases map[string]string, tasks ...Task) (*Event, *countingPicker) {
	picker := &countingPicker{resolver: resolver}
	e := New("new_build", &fakeDiscovery{}, false, WithLaunchControl(picker, aliases))
	e.SetTasks(tasks)
	return e, picker
}

func TestLatestLaunchControlBuilds_TwoTargets_ExactlyTwoQueries(t *testing.T) {
	a := newFakeTask("bvt")
	a.branches = []string{"git_mnc_release"}
	a.targets = []string{"shamu-eng"}
	b := newFakeTask("regression")
	b.branches = []string{"git_mnc_release"}
	b.targets = []string{"shamu-userdebug"}

	resolver := &fakeResolver{}
	e, _ := launchControlEvent(resolver, map[string]string{"shamu": "shamu"}, a, b)

	builds, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.NoError(t, err)

	require.Len(t, builds, 2)
	require.ElementsMatch(t, []string{
		"git_mnc_release/shamu-eng/LATEST",
		"git_mnc_release/shamu-userdebug/LATEST",
	}, resolver.resolved(), "one query per surviving target, never more, never fewer")
	require.ElementsMatch(t, []string{
		"git_mnc_release/shamu-eng/123",
		"git_mnc_release/shamu-userdebug/123",
	}, builds)
}

func TestLatestLaunchControlBuilds_TranslatesBoardAlias(t *testing.T) {
	task := newFakeTask("bvt")
	task.branches = []string{"git_mnc_release"}
	task.targets = []string{"razor-userdebug"}

	resolver := &fakeResolver{}
	e, _ := launchControlEvent(resolver, map[string]string{"flo": "razor"}, task)

	builds, err := e.LatestLaunchControlBuilds(context.Background(), "flo")
	require.NoError(t, err)
	require.Len(t, builds, 1)
	require.Equal(t, []string{"git_mnc_release/razor-userdebug/LATEST"}, resolver.resolved())
}

func TestLatestLaunchControlBuilds_UnmappedBoardPassesThrough(t *testing.T) {
	task := newFakeTask("bvt")
	task.branches = []string{"git_mnc_release"}
	task.targets = []string{"shamu-eng"}

	resolver := &fakeResolver{}
	e, _ := launchControlEvent(resolver, nil, task)

	builds, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.NoError(t, err)
	require.Len(t, builds, 1)
}

func TestLatestLaunchControlBuilds_FiltersForeignTargets(t *testing.T) {
	task := newFakeTask("bvt")
	task.branches = []string{"git_mnc_release"}
	task.targets = []string{"shamu-eng", "hammerhead-userdebug"}

	resolver := &fakeResolver{}
	e, _ := launchControlEvent(resolver, nil, task)

	builds, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.NoError(t, err)
	require.Len(t, builds, 1)
	require.Equal(t, []string{"git_mnc_release/shamu-eng/LATEST"}, resolver.resolved())
}

func TestLatestLaunchControlBuilds_PreservesDuplicates(t *testing.T) {
	a := newFakeTask("bvt")
	a.branches = []string{"git_mnc_release"}
	a.targets = []string{"shamu-eng"}
	b := newFakeTask("regression")
	b.branches = []string{"git_mnc_release"}
	b.targets = []string{"shamu-eng"}

	resolver := &fakeResolver{}
	e, _ := launchControlEvent(resolver, nil, a, b)

	builds, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.NoError(t, err)
	require.Len(t, builds, 2, "overlapping targets resolve twice; callers tolerate repeats")
	require.Equal(t, builds[0], builds[1])
}

func TestLatestLaunchControlBuilds_OnePickPerCall(t *testing.T) {
	task := newFakeTask("bvt")
	task.branches = []string{"git_mnc_release", "git_nyc_release"}
	task.targets = []string{"shamu-eng", "shamu-userdebug"}

	resolver := &fakeResolver{}
	e, picker := launchControlEvent(resolver, nil, task)

	_, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.NoError(t, err)
	require.Equal(t, 1, picker.picks, "a call selects one server for all its lookups")
	require.Len(t, resolver.resolved(), 4)

	_, err = e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.NoError(t, err)
	require.Equal(t, 2, picker.picks, "every call picks independently")
}

func TestLatestLaunchControlBuilds_LookupErrorPropagates(t *testing.T) {
	task := newFakeTask("bvt")
	task.branches = []string{"git_mnc_release"}
	task.targets = []string{"shamu-eng"}

	cause := errors.New("server unreachable")
	resolver := &fakeResolver{err: cause}
	e, _ := launchControlEvent(resolver, nil, task)

	_, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.Error(t, err)
	require.True(t, errors.Is(err, cause), "lookups are not retried here")
}

func TestLatestLaunchControlBuilds_Unconfigured_Fails(t *testing.T) {
	e := New("new_build", &fakeDiscovery{}, false)
	e.SetTasks([]Task{newFakeTask("bvt")})

	_, err := e.LatestLaunchControlBuilds(context.Background(), "shamu")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLaunchControlUnconfigured))
}

func TestNewBuild_LaunchControlBuildsForBoard_UsesLatestLookup(t *testing.T) {
	task := newFakeTask("bvt")
	task.branches = []string{"git_mnc_release"}
	task.targets = []string{"shamu-eng"}

	resolver := &fakeResolver{}
	picker := &countingPicker{resolver: resolver}
	nb := NewBuildEvent(&fakeWatcher{}, Options{}, WithLaunchControl(picker, nil))
	nb.SetTasks([]Task{task})

	builds, err := nb.LaunchControlBuildsForBoard(context.Background(), "shamu")
	require.NoError(t, err)
	require.Equal(t, []string{"git_mnc_release/shamu-eng/123"}, builds)
}
