package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	m := NewSchedulingMetrics(prometheus.NewRegistry())
	m.ObserveBooking("booked")
	m.ObserveBooking("conflict")
	m.ObserveConflict("doctor")
	m.ObserveSlotQuery("free_slots", 0.02)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveBooking("booked")
	m.ObserveConflict("patient")
	m.ObserveSlotQuery("next_slot", 0.5)
}
