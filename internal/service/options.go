// Package service implements the registration engine: the event registry,
// the inventory manager, the registration ledger and team formation.
package service

import (
	"log/slog"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/clock"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/metrics"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/notify"
)

// Notifier receives fire-and-forget notifications once state is committed.
type Notifier interface {
	Notify(kind notify.Kind, payload notify.Payload)
}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Kind, notify.Payload) {}

type deps struct {
	clock        clock.Clock
	log          *slog.Logger
	notifier     Notifier
	metrics      *metrics.Metrics
	joinAttempts int
}

// Option configures a service.
type Option func(*deps)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(d *deps) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *deps) {
		if log != nil {
			d.log = log
		}
	}
}

// WithNotifier sets the notification dispatcher.
func WithNotifier(n Notifier) Option {
	return func(d *deps) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

// WithJoinAttempts bounds optimistic retries of a team join.
func WithJoinAttempts(n int) Option {
	return func(d *deps) {
		if n > 0 {
			d.joinAttempts = n
		}
	}
}

func newDeps(opts []Option) deps {
	d := deps{
		clock:        clock.NewSystem(),
		log:          slog.Default(),
		notifier:     nopNotifier{},
		joinAttempts: 3,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
