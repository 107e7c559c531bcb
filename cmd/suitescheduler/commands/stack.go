package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/suitescheduler/internal/config"
	"git.home.luguber.info/inful/suitescheduler/internal/devserver"
	"git.home.luguber.info/inful/suitescheduler/internal/driver"
	"git.home.luguber.info/inful/suitescheduler/internal/event"
	"git.home.luguber.info/inful/suitescheduler/internal/logfields"
	"git.home.luguber.info/inful/suitescheduler/internal/manifestversions"
	"git.home.luguber.info/inful/suitescheduler/internal/metrics"
	"git.home.luguber.info/inful/suitescheduler/internal/notify"
	"git.home.luguber.info/inful/suitescheduler/internal/suite"
)

// logRunner stands in for the lab RPC client; a real deployment replaces it
// with one. It accepts every run and reports every board as populated.
type logRunner struct{}

func (logRunner) RunSuite(_ context.Context, req event.SuiteRequest, runID string) error {
	slog.Info("Suite run accepted",
		logfields.Suite(req.Suite),
		logfields.Board(req.Board),
		logfields.Build(req.Build),
		logfields.RunID(runID))
	return nil
}

func (logRunner) HostsAvailable(context.Context, string) (bool, error) { return true, nil }

// stack bundles everything a running scheduler needs.
type stack struct {
	cfg    *config.Config
	mv     *manifestversions.ManifestVersions
	ledger *suite.Ledger
	pub    notify.Publisher
	drv    *driver.Driver
}

// buildStack wires config, discovery, dedup ledger, notifications, metrics
// and the driver together. The manifest-versions checkout is cloned (or
// reopened) before the driver is built.
func buildStack(ctx context.Context, cfgPath string) (*stack, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Boards) == 0 {
		return nil, fmt.Errorf("no boards configured")
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	reg := metrics.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	mv := manifestversions.New(cfg.ManifestVersions.URL, cfg.ManifestVersions.Dir)
	if err := mv.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("prepare manifest-versions checkout: %w", err)
	}

	ledger, err := suite.NewLedger(filepath.Join(cfg.Storage.DataDir, "ledger.db"))
	if err != nil {
		return nil, fmt.Errorf("open dispatch ledger: %w", err)
	}

	pub, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		_ = ledger.Close()
		return nil, fmt.Errorf("set up notifications: %w", err)
	}

	sched := suite.NewDedupingScheduler(logRunner{}, ledger,
		suite.WithPublisher(pub),
		suite.WithRecorder(rec))

	driverOpts := []driver.Option{
		driver.WithRecorder(rec),
		driver.WithLedger(ledger),
		driver.WithMetricsHandler(metrics.HTTPHandler(reg)),
	}

	if len(cfg.Devservers) > 0 {
		pool, err := devserver.NewPool(cfg.Devservers, nil, rec)
		if err != nil {
			_ = ledger.Close()
			_ = pub.Close()
			return nil, fmt.Errorf("build devserver pool: %w", err)
		}
		picker := event.PickerFunc(func() event.BuildResolver { return pool.Pick() })
		driverOpts = append(driverOpts,
			driver.WithEventOptions(event.WithLaunchControl(picker, cfg.BoardAliases)))
	} else {
		slog.Warn("No devservers configured, launch-control lookups disabled")
	}

	drv, err := driver.New(cfgPath, cfg, mv, sched, nil, driverOpts...)
	if err != nil {
		_ = ledger.Close()
		_ = pub.Close()
		return nil, fmt.Errorf("build driver: %w", err)
	}

	return &stack{cfg: cfg, mv: mv, ledger: ledger, pub: pub, drv: drv}, nil
}

func (s *stack) Close() {
	if err := s.pub.Close(); err != nil {
		slog.Warn("Failed to close publisher", logfields.Error(err))
	}
	if err := s.ledger.Close(); err != nil {
		slog.Warn("Failed to close ledger", logfields.Error(err))
	}
}
