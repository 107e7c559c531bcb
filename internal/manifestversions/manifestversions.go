// Package manifestversions implements build discovery against a local
// checkout of the manifest-versions repository. Passed builds are recorded
// as files laid out as
//
//	build-name/<board>-<type>/pass/<milestone>/<manifest>.xml
//
// and every commit appends new manifests. The watcher tracks a checkpoint
// commit; queries report only manifests that appeared after it, grouped by
// branch ("R<milestone>" for release builds, the build type for factory and
// firmware builds).
package manifestversions

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"git.home.luguber.info/inful/suitescheduler/internal/event"
	"git.home.luguber.info/inful/suitescheduler/internal/logfields"
)

// Name of the file holding the checkpoint commit hash inside the checkout.
const checkpointFile = ".sched-checkpoint"

var manifestPathRe = regexp.MustCompile(
	`^build-name/(.+)-(release|factory|firmware)/pass/(\d+)/([\d.]+)\.xml$`)

// ManifestVersions is a git-backed event.BuildWatcher. All methods are safe
// for concurrent use; board queries serialize against fetches.
type ManifestVersions struct {
	url string
	dir string

	mu         sync.Mutex
	repo       *git.Repository
	head       plumbing.Hash
	checkpoint plumbing.Hash
}

var _ event.BuildWatcher = (*ManifestVersions)(nil)

// New creates a watcher for the manifest-versions repo at url, checked out
// under dir. Call Prepare before anything else.
func New(url, dir string) *ManifestVersions {
	return &ManifestVersions{url: url, dir: dir}
}

// Prepare clones the repository, or opens an existing checkout, and restores
// the persisted checkpoint.
func (m *ManifestVersions) Prepare(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		repo *git.Repository
		err  error
	)
	if _, statErr := os.Stat(filepath.Join(m.dir, ".git")); statErr == nil {
		repo, err = git.PlainOpen(m.dir)
		if err != nil {
			return &QueryError{Op: "open", Err: err}
		}
		slog.Debug("Opened manifest-versions checkout", slog.String("dir", m.dir))
	} else {
		slog.Info("Cloning manifest-versions repository",
			slog.String("url", m.url), slog.String("dir", m.dir))
		repo, err = git.PlainCloneContext(ctx, m.dir, false, &git.CloneOptions{URL: m.url})
		if err != nil {
			return &QueryError{Op: "clone", Err: err}
		}
	}
	m.repo = repo

	ref, err := repo.Head()
	if err != nil {
		return &QueryError{Op: "head", Err: err}
	}
	m.head = ref.Hash()
	m.checkpoint = m.loadCheckpoint()
	return nil
}

// Refresh pulls the latest manifests from origin.
func (m *ManifestVersions) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotPrepared
	}
	wt, err := m.repo.Worktree()
	if err != nil {
		return &QueryError{Op: "worktree", Err: err}
	}
	if err := wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"}); err != nil &&
		err != git.NoErrAlreadyUpToDate {
		return &QueryError{Op: "pull", Err: err}
	}

	ref, err := m.repo.Head()
	if err != nil {
		return &QueryError{Op: "head", Err: err}
	}
	if ref.Hash() != m.head {
		slog.Info("Manifest-versions advanced",
			slog.String("commit", ref.Hash().String()[:8]))
	}
	m.head = ref.Hash()
	return nil
}

// HasNewBuilds reports whether commits appeared after the checkpoint, as of
// the last Refresh.
func (m *ManifestVersions) HasNewBuilds() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.head.IsZero() && m.head != m.checkpoint
}

// Checkpoint marks the current head as handled and persists it so restarts
// do not replay old builds.
func (m *ManifestVersions) Checkpoint(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotPrepared
	}
	m.checkpoint = m.head
	path := filepath.Join(m.dir, checkpointFile)
	if err := os.WriteFile(path, []byte(m.head.String()+"\n"), 0644); err != nil {
		return &QueryError{Op: "checkpoint", Err: err}
	}
	return nil
}

// BranchBuildsForBoard returns the builds for board that appeared after the
// checkpoint, grouped by branch and ordered oldest first within a branch.
func (m *ManifestVersions) BranchBuildsForBoard(_ context.Context, board string) (event.BranchBuilds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotPrepared
	}
	if m.head.IsZero() {
		return event.BranchBuilds{}, nil
	}

	paths, err := m.newManifestPaths()
	if err != nil {
		return nil, err
	}

	type manifestRef struct {
		milestone string
		manifest  string
		build     string
	}
	byBranch := make(map[string][]manifestRef)
	for _, p := range paths {
		parts := manifestPathRe.FindStringSubmatch(p)
		if parts == nil || parts[1] != board {
			continue
		}
		buildType, milestone, manifest := parts[2], parts[3], parts[4]
		branch := buildType
		if buildType == "release" {
			branch = "R" + milestone
		}
		byBranch[branch] = append(byBranch[branch], manifestRef{
			milestone: milestone,
			manifest:  manifest,
			build:     event.BuildName(board, buildType, milestone, manifest),
		})
	}

	builds := make(event.BranchBuilds, len(byBranch))
	for branch, refs := range byBranch {
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].milestone != refs[j].milestone {
				return compareVersions(refs[i].milestone, refs[j].milestone) < 0
			}
			return compareVersions(refs[i].manifest, refs[j].manifest) < 0
		})
		names := make([]string, 0, len(refs))
		for _, r := range refs {
			names = append(names, r.build)
		}
		builds[branch] = names
	}

	slog.Debug("Resolved branch builds",
		logfields.Board(board), slog.Int("branches", len(builds)))
	return builds, nil
}

// newManifestPaths lists manifest files added between the checkpoint and the
// head commit. Without a checkpoint the whole head tree counts as new.
func (m *ManifestVersions) newManifestPaths() ([]string, error) {
	headTree, err := m.treeAt(m.head)
	if err != nil {
		return nil, err
	}

	if m.checkpoint.IsZero() {
		var paths []string
		err := headTree.Files().ForEach(func(f *object.File) error {
			paths = append(paths, f.Name)
			return nil
		})
		if err != nil {
			return nil, &QueryError{Op: "walk", Err: err}
		}
		return paths, nil
	}

	baseTree, err := m.treeAt(m.checkpoint)
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, &QueryError{Op: "diff", Err: err}
	}

	var paths []string
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, &QueryError{Op: "diff", Err: err}
		}
		if action != merkletrie.Insert {
			continue
		}
		paths = append(paths, ch.To.Name)
	}
	return paths, nil
}

func (m *ManifestVersions) treeAt(h plumbing.Hash) (*object.Tree, error) {
	commit, err := m.repo.CommitObject(h)
	if err != nil {
		return nil, &QueryError{Op: "commit", Err: err}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, &QueryError{Op: "tree", Err: err}
	}
	return tree, nil
}

func (m *ManifestVersions) loadCheckpoint() plumbing.Hash {
	data, err := os.ReadFile(filepath.Join(m.dir, checkpointFile))
	if err != nil {
		return plumbing.ZeroHash
	}
	raw := strings.TrimSpace(string(data))
	if !plumbing.IsHash(raw) {
		slog.Warn("Ignoring malformed checkpoint file", slog.String("dir", m.dir))
		return plumbing.ZeroHash
	}
	return plumbing.NewHash(raw)
}

// compareVersions compares dotted numeric strings such as "2015.0.0".
// Non-numeric segments fall back to string comparison.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil {
			if as[i] != bs[i] {
				return strings.Compare(as[i], bs[i])
			}
			continue
		}
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}
