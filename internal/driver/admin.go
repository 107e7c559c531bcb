package driver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/suitescheduler/internal/logfields"
	"git.home.luguber.info/inful/suitescheduler/internal/suite"
	"git.home.luguber.info/inful/suitescheduler/internal/version"
)

type eventStatus struct {
	Keyword string `json:"keyword"`
	Tasks   int    `json:"tasks"`
	Due     bool   `json:"due"`
}

type statusPayload struct {
	Status           string           `json:"status"`
	Version          string           `json:"version"`
	StartedAt        time.Time        `json:"started_at"`
	Uptime           string           `json:"uptime"`
	Boards           []string         `json:"boards"`
	Events           []eventStatus    `json:"events"`
	LastTick         *time.Time       `json:"last_tick,omitempty"`
	LastTickError    string           `json:"last_tick_error,omitempty"`
	RecentDispatches []suite.Dispatch `json:"recent_dispatches,omitempty"`
}

// startAdmin serves health, status and metrics on the configured port.
// Port 0 disables the server.
func (d *Driver) startAdmin() error {
	port := d.config().Driver.AdminPort
	if port == 0 {
		slog.Debug("Admin server disabled")
		return nil
	}

	d.admin = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      d.adminMux(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		err := d.admin.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server error", logfields.Error(err))
		}
	}()

	slog.Info("Admin server listening", slog.Int("port", port))
	return nil
}

func (d *Driver) adminMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/status", d.handleStatus)
	if d.metricsH != nil {
		mux.Handle("/metrics", d.metricsH)
	}
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (d *Driver) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := statusPayload{
		Status:    "ok",
		Version:   version.Version,
		StartedAt: d.startedAt,
		Uptime:    time.Since(d.startedAt).Round(time.Second).String(),
		Boards:    d.boardList(),
		Events:    d.eventStatuses(),
	}

	if last, err := d.lastTickInfo(); !last.IsZero() {
		payload.LastTick = &last
		if err != nil {
			payload.LastTickError = err.Error()
		}
	}

	if d.ledger != nil {
		recent, err := d.ledger.Recent(r.Context(), 20)
		if err != nil {
			slog.Warn("Failed to read recent dispatches", logfields.Error(err))
		} else {
			payload.RecentDispatches = recent
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode status", logfields.Error(err))
	}
}

func (d *Driver) eventStatuses() []eventStatus {
	var out []eventStatus
	for _, t := range d.triggers() {
		out = append(out, eventStatus{
			Keyword: t.Keyword(),
			Tasks:   len(t.Tasks()),
			Due:     t.ShouldHandle(),
		})
	}
	return out
}
