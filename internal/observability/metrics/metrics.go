package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking and slot flows.
// A nil receiver is valid and records nothing.
type SchedulingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
	slotQuery      *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicore",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicore",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Detected booking conflicts by party",
		}, []string{"type"}),
		slotQuery: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicore",
			Subsystem: "scheduling",
			Name:      "slot_query_seconds",
			Help:      "Latency of free-slot computations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.slotQuery)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveConflict(conflictType string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(conflictType).Inc()
}

func (m *SchedulingMetrics) ObserveSlotQuery(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.slotQuery.WithLabelValues(kind).Observe(seconds)
}
