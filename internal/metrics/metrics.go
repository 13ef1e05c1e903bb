// Package metrics holds the Prometheus collectors exported by the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventreg"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups the engine's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registrations  *prometheus.CounterVec
	stockReserved  *prometheus.CounterVec
	teams          *prometheus.CounterVec
	attendance     *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	notifyInFlight prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by event type and result code.",
		}, []string{"event_type", "code"}),
		stockReserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reserved_units_total",
			Help:      "Merchandise units reserved, by size and color.",
		}, []string{"size", "color"}),
		teams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_operations_total",
			Help:      "Team operations by kind and result code.",
		}, []string{"op", "code"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "Attendance marking attempts by result code.",
		}, []string{"code"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_transitions_total",
			Help:      "Successful event status transitions by target status.",
		}, []string{"to"}),
		notifyInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_in_flight",
			Help:      "Notification deliveries currently running.",
		}),
	}
	reg.MustRegister(
		m.registrations,
		m.stockReserved,
		m.teams,
		m.attendance,
		m.notifications,
		m.transitions,
		m.notifyInFlight,
	)
	return m
}

// Registration records a registration attempt. code is "ok" on success.
func (m *Metrics) Registration(eventType, code string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(eventType, code).Inc()
}

// StockReserved records reserved merchandise units.
func (m *Metrics) StockReserved(size, color string, qty int) {
	if m == nil {
		return
	}
	m.stockReserved.WithLabelValues(size, color).Add(float64(qty))
}

// Team records a team operation ("create", "join", "complete").
func (m *Metrics) Team(op, code string) {
	if m == nil {
		return
	}
	m.teams.WithLabelValues(op, code).Inc()
}

// Attendance records an attendance marking attempt.
func (m *Metrics) Attendance(code string) {
	if m == nil {
		return
	}
	m.attendance.WithLabelValues(code).Inc()
}

// Notification records the final outcome of one notification.
func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

// Transition records a committed status transition.
func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// NotifyStarted and NotifyFinished track deliveries in flight.
func (m *Metrics) NotifyStarted() {
	if m == nil {
		return
	}
	m.notifyInFlight.Inc()
}

func (m *Metrics) NotifyFinished() {
	if m == nil {
		return
	}
	m.notifyInFlight.Dec()
}
