package commands

import (
	"context"
	"os/signal"
	"syscall"
)

// TriggerCmd implements the 'trigger' command: fire one event once.
type TriggerCmd struct {
	Event string `arg:"" help:"Event keyword to fire (e.g. new_build)"`
	Force bool   `short:"f" help:"Dispatch every task regardless of due-ness and filters"`
}

func (t *TriggerCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := buildStack(ctx, root.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.drv.TriggerEvent(ctx, t.Event, t.Force)
}
