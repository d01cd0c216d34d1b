// Package notify fans domain events out to delivery sinks: the realtime hub,
// SMS and the Kafka event log. Delivery is asynchronous so the engine never
// waits on a slow provider.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"santua/pkg/metrics"
)

type Sink interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

const (
	DefaultQueueSize  = 256
	DefaultMaxRetries = 3
	DefaultBackoff    = 2 * time.Second
	sendTimeout       = 15 * time.Second
)

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithRetry sets attempts per sink and the base backoff; attempt n waits
// n*backoff before the next try.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxRetries > 0 {
			d.maxRetries = maxRetries
		}
		d.backoff = backoff
	}
}

type Dispatcher struct {
	sinks      []Sink
	queue      chan Event
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewDispatcher(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sinks:      sinks,
		queue:      make(chan Event, DefaultQueueSize),
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		log:        zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the delivery loop until ctx ends or Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case ev := <-d.queue:
				d.deliver(ctx, ev)
			case <-ctx.Done():
				return
			case <-d.done:
				d.drain(ctx)
				return
			}
		}
	}()
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

// Publish enqueues ev without blocking. A full queue drops the event.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.queue <- ev:
	default:
		metrics.NotificationsAttemptedTotal.WithLabelValues("queue", "dropped").Inc()
		d.log.Warn("notification queue full, dropping event",
			zap.String("type", ev.Type),
			zap.String("key", ev.Key),
		)
	}
}

// Close stops accepting work and waits for queued events to be delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		if err := d.sendWithRetry(ctx, s, ev); err != nil {
			d.log.Error("notification failed",
				zap.String("sink", s.Name()),
				zap.String("type", ev.Type),
				zap.String("key", ev.Key),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, s Sink, ev Event) error {
	var err error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err = s.Notify(sendCtx, ev)
		cancel()
		if err == nil {
			metrics.NotificationsAttemptedTotal.WithLabelValues(s.Name(), "success").Inc()
			return nil
		}
		metrics.NotificationsAttemptedTotal.WithLabelValues(s.Name(), "failure").Inc()

		if attempt == d.maxRetries {
			break
		}
		wait := time.Duration(attempt) * d.backoff
		d.log.Warn("notification attempt failed, will retry",
			zap.String("sink", s.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", d.maxRetries, err)
}
