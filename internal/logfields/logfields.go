package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyEvent      = "event"
	KeyBoard      = "board"
	KeyTask       = "task"
	KeySuite      = "suite"
	KeyBuild      = "build"
	KeyBranch     = "branch"
	KeyTarget     = "target"
	KeyServer     = "server"
	KeyRunID      = "run_id"
	KeySection    = "section"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Event(keyword string) slog.Attr  { return slog.String(KeyEvent, keyword) }
func Board(b string) slog.Attr        { return slog.String(KeyBoard, b) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Suite(s string) slog.Attr        { return slog.String(KeySuite, s) }
func Build(b string) slog.Attr        { return slog.String(KeyBuild, b) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Server(url string) slog.Attr     { return slog.String(KeyServer, url) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Section(s string) slog.Attr      { return slog.String(KeySection, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
