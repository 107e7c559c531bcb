package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// RunCmd implements the 'run' command.
type RunCmd struct{}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := buildStack(ctx, root.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.drv.Start(ctx); err != nil {
		return fmt.Errorf("start driver: %w", err)
	}

	slog.Info("Scheduler running, waiting for shutdown signal...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := s.drv.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop driver: %w", err)
	}

	slog.Info("Scheduler stopped successfully")
	return nil
}
