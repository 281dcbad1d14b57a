package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics counts sync outcomes and scheduled reminders. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	syncTotal      *prometheus.CounterVec
	scheduledTotal *prometheus.CounterVec
}

// NewMetrics registers the reminder counters on reg. Pass a fresh registry
// in tests; nil uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		syncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "actionplus_reminder_sync_total",
			Help: "Reminder sync runs by category and outcome",
		}, []string{"category", "outcome"}),
		scheduledTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "actionplus_reminder_scheduled_total",
			Help: "Reminders handed to the delivery backend by category",
		}, []string{"category"}),
	}
}

func (m *Metrics) observeSync(category Category, kind OutcomeKind) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(string(category), string(kind)).Inc()
}

func (m *Metrics) observeScheduled(category Category, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scheduledTotal.WithLabelValues(string(category)).Add(float64(n))
}

// SyncCount returns the counter value for one label pair.
func (m *Metrics) SyncCount(category Category, kind OutcomeKind) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.syncTotal.WithLabelValues(string(category), string(kind)))
}

func (m *Metrics) ScheduledCount(category Category) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.scheduledTotal.WithLabelValues(string(category)))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
