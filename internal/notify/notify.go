// Package notify publishes dispatch records to interested downstream
// consumers (dashboards, paging bridges) over NATS JetStream. Publishing is
// best-effort: the scheduler never blocks a suite run on a slow broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/suitescheduler/internal/config"
)

const publishTimeout = 5 * time.Second

// Record describes one suite run handed to the lab.
type Record struct {
	RunID       string    `json:"run_id"`
	Event       string    `json:"event"`
	Suite       string    `json:"suite"`
	Board       string    `json:"board"`
	Build       string    `json:"build"`
	Pool        string    `json:"pool,omitempty"`
	Forced      bool      `json:"forced,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Publisher delivers dispatch records. Implementations must tolerate
// concurrent calls.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// Noop discards every record. Used when notifications are disabled.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Publish(context.Context, Record) error { return nil }

func (*Noop) Close() error { return nil }

// NATSPublisher publishes records to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to the broker named in cfg.
func NewNATSPublisher(cfg config.NotifyConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("notifications are disabled")
	}

	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS publisher initialized",
		"url", cfg.NATSURL,
		"subject", cfg.Subject)

	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Publish sends rec to the configured subject.
func (p *NATSPublisher) Publish(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if rec.ScheduledAt.IsZero() {
		rec.ScheduledAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}

	slog.Debug("Published dispatch record",
		"run_id", rec.RunID,
		"suite", rec.Suite,
		"build", rec.Build)

	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// FromConfig returns a NATS publisher when notifications are enabled and a
// Noop otherwise.
func FromConfig(cfg config.NotifyConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	return NewNATSPublisher(cfg)
}
