// Package notify dispatches fire-and-forget notifications after the
// registration engine has committed its state. Delivery failures are logged
// and counted; they never reach the caller of the triggering operation.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/metrics"
)

// Kind names a notification.
type Kind string

const (
	KindEventPublished  Kind = "event.published"
	KindTicketConfirmed Kind = "ticket.confirmed"
)

// Payload is the notification body handed to the sender.
type Payload map[string]any

// Sender delivers one notification. Implementations wrap a transport
// (mail, chat, webhook) owned by another service.
type Sender interface {
	Send(ctx context.Context, kind Kind, payload Payload) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, kind Kind, payload Payload) error

func (f SenderFunc) Send(ctx context.Context, kind Kind, payload Payload) error {
	return f(ctx, kind, payload)
}

// LogSender returns a Sender that writes notifications to log. It is the
// default transport.
func LogSender(log *slog.Logger) Sender {
	return SenderFunc(func(_ context.Context, kind Kind, payload Payload) error {
		log.Info("notification", "kind", kind, "payload", payload)
		return nil
	})
}

const (
	defaultConcurrency = 8
	defaultMaxAttempts = 3
	defaultTimeout     = 5 * time.Second
)

// Dispatcher runs deliveries asynchronously with bounded concurrency and a
// retry policy of its own.
type Dispatcher struct {
	sender      Sender
	log         *slog.Logger
	metrics     *metrics.Metrics
	sem         *semaphore.Weighted
	maxAttempts uint
	timeout     time.Duration
	newBackOff  func() backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for delivery failures.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithConcurrency bounds the number of deliveries running at once.
func WithConcurrency(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithMaxAttempts bounds delivery attempts per notification.
func WithMaxAttempts(n uint) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithBackOff overrides the wait policy between attempts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newBackOff = fn
		}
	}
}

// NewDispatcher constructs a Dispatcher delivering through sender.
func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender:      sender,
		log:         slog.Default(),
		sem:         semaphore.NewWeighted(defaultConcurrency),
		maxAttempts: defaultMaxAttempts,
		timeout:     defaultTimeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify schedules a delivery and returns immediately.
func (d *Dispatcher) Notify(kind Kind, payload Payload) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("notify.dropped", "kind", kind, "reason", "dispatcher closed")
		d.metrics.Notification(string(kind), metrics.OutcomeFailure)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.deliver(kind, payload)
}

func (d *Dispatcher) deliver(kind Kind, payload Payload) {
	defer d.wg.Done()

	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		d.log.Warn("notify.dropped", "kind", kind, "err", err)
		d.metrics.Notification(string(kind), metrics.OutcomeFailure)
		return
	}
	defer d.sem.Release(1)

	d.metrics.NotifyStarted()
	defer d.metrics.NotifyFinished()

	attempt := 0
	_, err := backoff.Retry(d.ctx, func() (struct{}, error) {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()
		return struct{}{}, d.sender.Send(ctx, kind, payload)
	},
		backoff.WithBackOff(d.newBackOff()),
		backoff.WithMaxTries(d.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.log.Debug("notify.retry", "kind", kind, "attempt", attempt, "wait", wait, "err", err)
		}),
	)
	if err != nil {
		d.log.Error("notify.failed", "kind", kind, "attempts", attempt, "err", err)
		d.metrics.Notification(string(kind), metrics.OutcomeFailure)
		return
	}
	d.metrics.Notification(string(kind), metrics.OutcomeSuccess)
}

// Close stops accepting notifications and waits for in-flight deliveries.
// If ctx expires first, pending deliveries are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
