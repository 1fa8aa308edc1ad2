// Package queue is the background work channel the Ingestion
// Coordinator hands deferred (async) ingestions to. It is deliberately a
// thin, in-process channel rather than coupling the core to any specific
// queue technology (spec.md §9): swapping the channel for a Kafka/SQS/etc
// backed Enqueuer only requires a new implementation of this package's
// Enqueuer interface.
package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when the background channel's buffer is
// saturated; callers should surface this as a retryable 500.
var ErrQueueFull = errors.New("background ingestion queue is full")

// Job is one deferred ingestion awaiting background processing.
type Job struct {
	RawIngestionID uuid.UUID
	UserID         uuid.UUID
}

// Enqueuer is the one-method seam the Coordinator depends on, so it
// never imports a concrete queue technology directly.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Channel is an in-process, bounded Enqueuer backed by a buffered
// channel. cmd/vitalpipe starts a fixed pool of workers draining it.
type Channel struct {
	jobs chan Job
}

func NewChannel(capacity int) *Channel {
	return &Channel{jobs: make(chan Job, capacity)}
}

// Enqueue submits a job without blocking: a full queue is backpressure
// the caller should treat as failure rather than stalling the request.
func (c *Channel) Enqueue(ctx context.Context, job Job) error {
	select {
	case c.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Jobs exposes the receive side for worker goroutines.
func (c *Channel) Jobs() <-chan Job {
	return c.jobs
}

// Close signals no further jobs will be enqueued. Workers drain
// remaining buffered jobs before observing the channel close.
func (c *Channel) Close() {
	close(c.jobs)
}
