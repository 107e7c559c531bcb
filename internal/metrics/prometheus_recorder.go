package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	eventsHandled   *prom.CounterVec
	tasksDispatched *prom.CounterVec
	tasksSkipped    *prom.CounterVec
	tasksRemoved    *prom.CounterVec
	runErrors       *prom.CounterVec
	handleDuration  *prom.HistogramVec
	tasksInSet      *prom.GaugeVec
	devserverPicks  *prom.CounterVec
	lookupErrors    *prom.CounterVec
	dedupHits       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.eventsHandled = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "events_handled_total",
			Help:      "Completed Handle calls per event keyword",
		}, []string{"event"})
		pr.tasksDispatched = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "tasks_dispatched_total",
			Help:      "Task run invocations per event keyword",
		}, []string{"event"})
		pr.tasksSkipped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "tasks_skipped_total",
			Help:      "Task candidates skipped, by reason",
		}, []string{"event", "reason"})
		pr.tasksRemoved = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "tasks_removed_total",
			Help:      "One-shot tasks evicted after a successful run",
		}, []string{"event"})
		pr.runErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "run_errors_total",
			Help:      "Task run failures that aborted a Handle call",
		}, []string{"event"})
		pr.handleDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "suitescheduler",
			Name:      "handle_duration_seconds",
			Help:      "Duration of Handle calls",
			Buckets:   prom.DefBuckets,
		}, []string{"event"})
		pr.tasksInSet = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "suitescheduler",
			Name:      "tasks_in_set",
			Help:      "Current task set size per event keyword",
		}, []string{"event"})
		pr.devserverPicks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "devserver_picks_total",
			Help:      "Metadata server selections, by server",
		}, []string{"server"})
		pr.lookupErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "lookup_errors_total",
			Help:      "Failed latest-build lookups, by server",
		}, []string{"server"})
		pr.dedupHits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "suitescheduler",
			Name:      "dedup_hits_total",
			Help:      "Suite runs suppressed by the dedup ledger",
		}, []string{"suite"})
		reg.MustRegister(pr.eventsHandled, pr.tasksDispatched, pr.tasksSkipped,
			pr.tasksRemoved, pr.runErrors, pr.handleDuration, pr.tasksInSet,
			pr.devserverPicks, pr.lookupErrors, pr.dedupHits)
	})
	return pr
}

func (p *PrometheusRecorder) IncEventHandled(event string) {
	if p == nil || p.eventsHandled == nil {
		return
	}
	p.eventsHandled.WithLabelValues(event).Inc()
}

func (p *PrometheusRecorder) IncTaskDispatched(event string) {
	if p == nil || p.tasksDispatched == nil {
		return
	}
	p.tasksDispatched.WithLabelValues(event).Inc()
}

func (p *PrometheusRecorder) IncTaskSkipped(event string, reason SkipReason) {
	if p == nil || p.tasksSkipped == nil {
		return
	}
	p.tasksSkipped.WithLabelValues(event, string(reason)).Inc()
}

func (p *PrometheusRecorder) IncTaskRemoved(event string) {
	if p == nil || p.tasksRemoved == nil {
		return
	}
	p.tasksRemoved.WithLabelValues(event).Inc()
}

func (p *PrometheusRecorder) IncRunError(event string) {
	if p == nil || p.runErrors == nil {
		return
	}
	p.runErrors.WithLabelValues(event).Inc()
}

func (p *PrometheusRecorder) ObserveHandleDuration(event string, d time.Duration) {
	if p == nil || p.handleDuration == nil {
		return
	}
	p.handleDuration.WithLabelValues(event).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetTasksInSet(event string, n int) {
	if p == nil || p.tasksInSet == nil {
		return
	}
	p.tasksInSet.WithLabelValues(event).Set(float64(n))
}

func (p *PrometheusRecorder) IncDevserverPick(server string) {
	if p == nil || p.devserverPicks == nil {
		return
	}
	p.devserverPicks.WithLabelValues(server).Inc()
}

func (p *PrometheusRecorder) IncLookupError(server string) {
	if p == nil || p.lookupErrors == nil {
		return
	}
	p.lookupErrors.WithLabelValues(server).Inc()
}

func (p *PrometheusRecorder) IncDedupHit(suite string) {
	if p == nil || p.dedupHits == nil {
		return
	}
	p.dedupHits.WithLabelValues(suite).Inc()
}
