// Package driver runs the polling loop: it owns the event table, refreshes
// the discovery backend on a fixed tick, fans dispatching out across boards
// and keeps the live events in sync with the config file.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/suitescheduler/internal/config"
	"git.home.luguber.info/inful/suitescheduler/internal/event"
	"git.home.luguber.info/inful/suitescheduler/internal/logfields"
	"git.home.luguber.info/inful/suitescheduler/internal/metrics"
	"git.home.luguber.info/inful/suitescheduler/internal/suite"
)

// TaskSource yields the tasks configured for one event keyword. The driver
// calls it on startup and after every config reload.
type TaskSource func(cfg *config.Config, keyword string) ([]event.Task, error)

// TriggerFactory builds a fresh trigger for one keyword from config.
type TriggerFactory func(cfg *config.Config, w event.BuildWatcher, opts ...event.Option) (event.Trigger, error)

// Driver owns the live triggers and the periodic dispatch loop.
type Driver struct {
	cfgPath string
	watcher event.BuildWatcher
	sched   event.Scheduler
	source  TaskSource

	mu        sync.RWMutex
	cfg       *config.Config
	boards    []string
	events    map[string]event.Trigger
	factories map[string]TriggerFactory

	eventOpts []event.Option
	rec       metrics.Recorder
	ledger    *suite.Ledger
	metricsH  http.Handler

	cron      gocron.Scheduler
	tickJob   gocron.Job
	admin     *http.Server
	cfgWatch  *ConfigWatcher
	startedAt time.Time

	tickMu      sync.Mutex
	lastTick    time.Time
	lastTickErr error
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder wires dispatch metrics into the driver and every trigger it
// builds.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Driver) { d.rec = r }
}

// WithEventOptions appends options applied to every trigger the driver
// builds, such as launch-control wiring.
func WithEventOptions(opts ...event.Option) Option {
	return func(d *Driver) { d.eventOpts = append(d.eventOpts, opts...) }
}

// WithLedger exposes recent dispatches on the status endpoint.
func WithLedger(l *suite.Ledger) Option {
	return func(d *Driver) { d.ledger = l }
}

// WithMetricsHandler serves h on /metrics of the admin server.
func WithMetricsHandler(h http.Handler) Option {
	return func(d *Driver) { d.metricsH = h }
}

// WithTriggerFactory registers (or overrides) the factory for one keyword.
func WithTriggerFactory(keyword string, f TriggerFactory) Option {
	return func(d *Driver) { d.factories[keyword] = f }
}

// New assembles a driver from parsed config. The trigger table starts with
// the build-driven event; timed variants register via WithTriggerFactory.
func New(cfgPath string, cfg *config.Config, watcher event.BuildWatcher, sched event.Scheduler, source TaskSource, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("driver: config is required")
	}
	if watcher == nil {
		return nil, errors.New("driver: discovery backend is required")
	}
	if sched == nil {
		return nil, errors.New("driver: suite scheduler is required")
	}

	d := &Driver{
		cfgPath: cfgPath,
		watcher: watcher,
		sched:   sched,
		source:  source,
		cfg:     cfg,
		boards:  cfg.Boards,
		events:  make(map[string]event.Trigger),
		factories: map[string]TriggerFactory{
			event.KeywordNewBuild: func(cfg *config.Config, w event.BuildWatcher, opts ...event.Option) (event.Trigger, error) {
				return event.NewBuildFromConfig(cfg, w, opts...)
			},
		},
		rec: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.SetUpEventsAndTasks(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// SetUpEventsAndTasks builds triggers for every honored config section and
// folds them into the live table. Existing triggers are merged in place so
// references held elsewhere stay valid.
func (d *Driver) SetUpEventsAndTasks(cfg *config.Config) error {
	fresh := make(map[string]event.Trigger)

	for _, section := range cfg.Sections() {
		if !event.HonoredSection(section) {
			continue
		}
		keyword := strings.TrimSuffix(section, "_params")

		factory, ok := d.factories[keyword]
		if !ok {
			slog.Warn("No trigger registered for config section, skipping",
				logfields.Section(section))
			continue
		}

		opts := append([]event.Option{event.WithRecorder(d.rec)}, d.eventOpts...)
		t, err := factory(cfg, d.watcher, opts...)
		if err != nil {
			return fmt.Errorf("building %s trigger: %w", keyword, err)
		}

		if d.source != nil {
			tasks, err := d.source(cfg, keyword)
			if err != nil {
				return fmt.Errorf("loading tasks for %s: %w", keyword, err)
			}
			t.SetTasks(tasks)
		}

		fresh[keyword] = t
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for keyword, t := range fresh {
		if live, ok := d.events[keyword]; ok {
			if err := live.Merge(t); err != nil {
				return fmt.Errorf("merging %s trigger: %w", keyword, err)
			}
			continue
		}
		d.events[keyword] = t
	}
	d.cfg = cfg
	d.boards = cfg.Boards

	slog.Info("Event table ready",
		slog.Int("events", len(d.events)),
		slog.Int("boards", len(d.boards)))
	return nil
}

// Start prepares every trigger, then launches the tick loop, the config
// watcher and the admin server.
func (d *Driver) Start(ctx context.Context) error {
	d.startedAt = time.Now()

	for _, t := range d.triggers() {
		if err := t.Prepare(ctx); err != nil {
			return fmt.Errorf("preparing %s: %w", t.Keyword(), err)
		}
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	d.cron = cron

	interval := d.config().Driver.Tick()
	job, err := cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.runTick),
		gocron.WithName("event-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick job: %w", err)
	}
	d.tickJob = job

	if d.cfgPath != "" {
		watch, err := NewConfigWatcher(d.cfgPath, d)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		if err := watch.Start(ctx); err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
		d.cfgWatch = watch
	}

	if err := d.startAdmin(); err != nil {
		return err
	}

	cron.Start()
	slog.Info("Driver started", slog.Duration("tick_interval", interval))
	return nil
}

// Stop shuts everything down, waiting for an in-flight tick to finish.
func (d *Driver) Stop(ctx context.Context) error {
	slog.Info("Stopping driver")

	var firstErr error
	if d.cron != nil {
		if err := d.cron.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.cfgWatch != nil {
		if err := d.cfgWatch.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.admin != nil {
		if err := d.admin.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Reload applies a changed config: tasks and flags merge into the live
// triggers, the board list and tick interval update in place. Launch-control
// wiring is fixed at construction; alias or devserver changes need a restart.
func (d *Driver) Reload(ctx context.Context, cfg *config.Config) error {
	oldTick := d.config().Driver.Tick()

	if err := d.SetUpEventsAndTasks(cfg); err != nil {
		return err
	}

	newTick := cfg.Driver.Tick()
	if d.cron != nil && d.tickJob != nil && newTick != oldTick {
		job, err := d.cron.Update(
			d.tickJob.ID(),
			gocron.DurationJob(newTick),
			gocron.NewTask(d.runTick),
			gocron.WithName("event-tick"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("rescheduling tick job: %w", err)
		}
		d.tickJob = job
		slog.Info("Tick interval updated", slog.Duration("tick_interval", newTick))
	}
	return nil
}

// runTick is the gocron task body.
func (d *Driver) runTick() {
	err := d.Tick(context.Background())

	d.tickMu.Lock()
	d.lastTick = time.Now()
	d.lastTickErr = err
	d.tickMu.Unlock()

	if err != nil {
		slog.Error("Tick failed", logfields.Error(err))
	}
}

// Tick runs one full pass: refresh discovery, then let every due trigger
// handle every board.
func (d *Driver) Tick(ctx context.Context) error {
	if err := d.watcher.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing discovery backend: %w", err)
	}

	for _, t := range d.triggers() {
		if !t.ShouldHandle() {
			slog.Debug("Event not due", logfields.Event(t.Keyword()))
			continue
		}
		d.handleTrigger(ctx, t, false)
	}
	return nil
}

// TriggerEvent runs a single event once, outside the tick schedule.
func (d *Driver) TriggerEvent(ctx context.Context, keyword string, force bool) error {
	d.mu.RLock()
	t, ok := d.events[keyword]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no such event: %s", keyword)
	}

	if err := d.watcher.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing discovery backend: %w", err)
	}
	if !force && !t.ShouldHandle() {
		slog.Info("Event not due, nothing to do", logfields.Event(keyword))
		return nil
	}
	d.handleTrigger(ctx, t, force)
	return nil
}

// handleTrigger dispatches one due trigger across all boards, bounded by the
// configured concurrency. Board failures are logged and isolated; the
// trigger's criteria advance once afterwards regardless.
func (d *Driver) handleTrigger(ctx context.Context, t event.Trigger, force bool) {
	cfg := d.config()
	boards := d.boardList()

	var g errgroup.Group
	g.SetLimit(cfg.Driver.BoardConcurrency)

	for _, board := range boards {
		g.Go(func() error {
			d.handleBoard(ctx, t, board, force)
			return nil
		})
	}
	_ = g.Wait()

	if err := t.UpdateCriteria(ctx); err != nil {
		slog.Error("Failed to update event criteria",
			logfields.Event(t.Keyword()), logfields.Error(err))
	}
}

func (d *Driver) handleBoard(ctx context.Context, t event.Trigger, board string, force bool) {
	keyword := t.Keyword()

	builds, err := t.BranchBuildsForBoard(ctx, board)
	if err != nil {
		d.rec.IncLookupError("discovery")
		slog.Warn("Failed to resolve branch builds, skipping board",
			logfields.Event(keyword), logfields.Board(board), logfields.Error(err))
		return
	}

	lcBuilds, err := t.LaunchControlBuildsForBoard(ctx, board)
	if err != nil {
		if errors.Is(err, event.ErrLaunchControlUnconfigured) {
			slog.Debug("Launch control not configured, continuing without",
				logfields.Event(keyword), logfields.Board(board))
		} else {
			d.rec.IncLookupError("launch-control")
			slog.Warn("Failed to resolve launch-control builds, skipping board",
				logfields.Event(keyword), logfields.Board(board), logfields.Error(err))
			return
		}
	}

	if len(builds) == 0 && len(lcBuilds) == 0 {
		slog.Debug("No new builds for board",
			logfields.Event(keyword), logfields.Board(board))
		return
	}

	if err := t.Handle(ctx, d.sched, builds, board, force, lcBuilds); err != nil {
		slog.Error("Event handling aborted",
			logfields.Event(keyword), logfields.Board(board), logfields.Error(err))
	}
}

func (d *Driver) triggers() []event.Trigger {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keywords := make([]string, 0, len(d.events))
	for k := range d.events {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	out := make([]event.Trigger, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, d.events[k])
	}
	return out
}

func (d *Driver) config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Driver) boardList() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.boards
}

func (d *Driver) lastTickInfo() (time.Time, error) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	return d.lastTick, d.lastTickErr
}
