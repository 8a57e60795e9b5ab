// Package sink holds the delivery endpoints payloads are pushed into.
package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"courier/errors"
)

// Outbox is the buffered outbound queue of one connection. The relay and
// the presence broadcaster deliver into it; the connection's write pump
// drains it. Delivery is best effort: a full queue drops the payload after
// the delivery timeout instead of stalling the producer.
type Outbox struct {
	log     *slog.Logger
	queue   chan any
	timeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func NewOutbox(log *slog.Logger, size int, timeout time.Duration) *Outbox {
	return &Outbox{
		log:     log,
		queue:   make(chan any, size),
		timeout: timeout,
		closed:  make(chan struct{}),
	}
}

// Deliver enqueues one payload for the connection.
func (o *Outbox) Deliver(ctx context.Context, payload any) error {
	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case <-o.closed:
		return errors.ErrOutboxClosed
	default:
	}

	select {
	case o.queue <- payload:
		return nil
	case <-o.closed:
		return errors.ErrOutboxClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		o.log.Warn("Outbox full, payload dropped")
		return errors.ErrOutboxFull
	}
}

// Queue is drained by the connection's write pump.
func (o *Outbox) Queue() <-chan any {
	return o.queue
}

// Close releases pending and future producers. Idempotent.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

// Done reports closure to the write pump.
func (o *Outbox) Done() <-chan struct{} {
	return o.closed
}
