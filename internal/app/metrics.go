package app

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/consumable/internal/events"
)

// Metrics exports per-queue and per-round counters to Prometheus.
type Metrics struct {
	rounds        prometheus.Counter
	roundDuration prometheus.Histogram
	sent          *prometheus.CounterVec
	consumed      *prometheus.CounterVec
	cleared       *prometheus.CounterVec
	depth         *prometheus.GaugeVec
	systemErrors  *prometheus.CounterVec

	mu   sync.Mutex
	last map[string]events.Stats
}

// NewMetrics registers the host metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rounds: f.NewCounter(prometheus.CounterOpts{
			Name: "consumable_rounds_total",
			Help: "The total number of completed rounds",
		}),
		roundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "consumable_round_duration_seconds",
			Help:    "Wall time of a single round",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		sent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consumable_events_sent_total",
			Help: "The total number of events appended to a queue",
		}, []string{"queue"}),
		consumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consumable_events_consumed_total",
			Help: "The total number of events marked consumed",
		}, []string{"queue"}),
		cleared: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consumable_events_cleared_total",
			Help: "The total number of records removed by clears",
		}, []string{"queue", "reason"}),
		depth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consumable_queue_depth",
			Help: "Records held by a queue at the end of the last round",
		}, []string{"queue", "state"}),
		systemErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consumable_system_errors_total",
			Help: "The total number of failed system executions",
		}, []string{"system"}),
		last: make(map[string]events.Stats),
	}
}

// observeRound records one finished round. Sent and consumed counters grow
// by the difference against the previous snapshot.
func (m *Metrics) observeRound(d time.Duration, snapshot map[string]events.Stats) {
	m.rounds.Inc()
	m.roundDuration.Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	for name, st := range snapshot {
		prev := m.last[name]
		if st.Sent > prev.Sent {
			m.sent.WithLabelValues(name).Add(float64(st.Sent - prev.Sent))
		}
		if st.Consumed > prev.Consumed {
			m.consumed.WithLabelValues(name).Add(float64(st.Consumed - prev.Consumed))
		}
		m.depth.WithLabelValues(name, "unconsumed").Set(float64(st.Unconsumed))
		m.depth.WithLabelValues(name, "consumed").Set(float64(st.Len - st.Unconsumed))
		m.last[name] = st
	}
}

func (m *Metrics) observeClear(queue, reason string, removed int) {
	if removed > 0 {
		m.cleared.WithLabelValues(queue, reason).Add(float64(removed))
	}
}

func (m *Metrics) observeSystemError(system string) {
	m.systemErrors.WithLabelValues(system).Inc()
}
