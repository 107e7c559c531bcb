// Package suite hands suite runs to the lab while suppressing duplicates.
//
// DedupingScheduler decorates a Runner (the lab RPC boundary) with a
// SQLite-backed ledger: a (suite, board, build, pool) combination that was
// already dispatched is not dispatched again unless the request is forced.
package suite

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/suitescheduler/internal/event"
	"git.home.luguber.info/inful/suitescheduler/internal/logfields"
	"git.home.luguber.info/inful/suitescheduler/internal/metrics"
	"git.home.luguber.info/inful/suitescheduler/internal/notify"
)

const (
	// DefaultPriority is the lab's default scheduling priority band.
	DefaultPriority = 40

	// DefaultTimeout bounds the lifetime of a dispatched suite run.
	DefaultTimeout = 24 * time.Hour
)

// Runner submits suite runs to the lab. Implementations live outside this
// repository; tests use fakes.
type Runner interface {
	// RunSuite submits one run and returns once the lab has accepted it.
	RunSuite(ctx context.Context, req event.SuiteRequest, runID string) error

	// HostsAvailable reports whether any usable host exists for board.
	HostsAvailable(ctx context.Context, board string) (bool, error)
}

// DedupingScheduler implements event.Scheduler on top of a Runner.
type DedupingScheduler struct {
	runner Runner
	ledger *Ledger
	pub    notify.Publisher
	rec    metrics.Recorder
}

// Option configures a DedupingScheduler.
type Option func(*DedupingScheduler)

// WithPublisher emits a dispatch record after each accepted run.
func WithPublisher(p notify.Publisher) Option {
	return func(s *DedupingScheduler) { s.pub = p }
}

// WithRecorder wires dispatch metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *DedupingScheduler) { s.rec = r }
}

// NewDedupingScheduler wraps runner with dedup bookkeeping in ledger.
func NewDedupingScheduler(runner Runner, ledger *Ledger, opts ...Option) *DedupingScheduler {
	s := &DedupingScheduler{
		runner: runner,
		ledger: ledger,
		pub:    notify.NewNoop(),
		rec:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleSuite books the run described by req unless the ledger shows the
// same combination was already dispatched. Forced requests skip the check
// but are still recorded. It reports false when the run was suppressed.
func (s *DedupingScheduler) ScheduleSuite(ctx context.Context, req event.SuiteRequest) (bool, error) {
	if req.Num < 0 {
		return false, &ScheduleError{Suite: req.Suite, Board: req.Board, Build: req.Build, Err: ErrInvalidNum}
	}
	if req.Priority == 0 {
		req.Priority = DefaultPriority
	}
	if req.TimeoutMins == 0 {
		req.TimeoutMins = int(DefaultTimeout.Minutes())
	}

	if !req.Force {
		seen, err := s.ledger.Seen(ctx, req.Suite, req.Board, req.Build, req.Pool)
		if err != nil {
			return false, &ScheduleError{Suite: req.Suite, Board: req.Board, Build: req.Build, Err: err}
		}
		if seen {
			s.rec.IncDedupHit(req.Suite)
			slog.Info("Suite already scheduled, skipping",
				logfields.Suite(req.Suite),
				logfields.Board(req.Board),
				logfields.Build(req.Build))
			return false, nil
		}
	}

	runID := uuid.NewString()
	if err := s.runner.RunSuite(ctx, req, runID); err != nil {
		return false, &ScheduleError{Suite: req.Suite, Board: req.Board, Build: req.Build, Err: err}
	}

	d := Dispatch{
		RunID:  runID,
		Event:  req.Event,
		Suite:  req.Suite,
		Board:  req.Board,
		Build:  req.Build,
		Pool:   req.Pool,
		Forced: req.Force,
	}
	if err := s.ledger.Record(ctx, d); err != nil {
		// The run is in the lab but not in the ledger; the next pass would
		// dispatch it again. Surface the error so the caller aborts.
		return false, &ScheduleError{Suite: req.Suite, Board: req.Board, Build: req.Build, Err: err}
	}

	if err := s.pub.Publish(ctx, notify.Record{
		RunID:  runID,
		Event:  req.Event,
		Suite:  req.Suite,
		Board:  req.Board,
		Build:  req.Build,
		Pool:   req.Pool,
		Forced: req.Force,
	}); err != nil {
		slog.Warn("Failed to publish dispatch record",
			logfields.RunID(runID), logfields.Error(err))
	}

	slog.Info("Scheduled suite",
		logfields.Suite(req.Suite),
		logfields.Board(req.Board),
		logfields.Build(req.Build),
		logfields.RunID(runID))

	return true, nil
}

// CheckHostsExist delegates to the lab's host inventory.
func (s *DedupingScheduler) CheckHostsExist(ctx context.Context, board string) (bool, error) {
	return s.runner.HostsAvailable(ctx, board)
}

var _ event.Scheduler = (*DedupingScheduler)(nil)
