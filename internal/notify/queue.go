package notify

import (
	"context"
	"sync"

	"github.com/okian/ech0client/pkg/logger"
	"github.com/okian/ech0client/pkg/metrics"
)

const defaultCapacity = 64

// Queue is a bounded in-memory toast queue. Notify never blocks: when the
// queue is full or closed the toast is dropped and counted.
type Queue struct {
	toasts   chan Toast
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewQueue creates a queue with the given options.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.toasts = make(chan Toast, q.capacity)

	metrics.UpdateNotifyQueue(0, q.capacity)
	return q
}

// Notify enqueues t.
func (q *Queue) Notify(ctx context.Context, t Toast) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordNotification(metrics.NotificationDropped)
		return
	}

	select {
	case q.toasts <- t:
		metrics.RecordNotification(metrics.NotificationQueued)
		metrics.UpdateNotifyQueue(len(q.toasts), q.capacity)
	case <-ctx.Done():
		metrics.RecordNotification(metrics.NotificationDropped)
	default:
		metrics.RecordNotification(metrics.NotificationDropped)
	}
}

// Dequeue returns a channel of pending toasts. It is closed once the queue
// is closed and drained, or when ctx ends.
func (q *Queue) Dequeue(ctx context.Context) <-chan Toast {
	out := make(chan Toast)
	go func() {
		defer close(out)
		for {
			var t Toast
			select {
			case next, open := <-q.toasts:
				if !open {
					return
				}
				t = next
			case <-ctx.Done():
				return
			}
			select {
			case out <- t:
				metrics.RecordNotification(metrics.NotificationDelivered)
				metrics.UpdateNotifyQueue(len(q.toasts), q.capacity)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending toasts.
func (q *Queue) Len() int {
	return len(q.toasts)
}

// Close stops accepting toasts. Pending ones can still be dequeued.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.toasts)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Drain logs every toast from q at warn level until the queue is closed or
// ctx ends. It is the display surface for headless callers.
func Drain(ctx context.Context, q *Queue, log logger.Logger) {
	for t := range q.Dequeue(ctx) {
		log.Warn(ctx, t.Title,
			logger.String("description", t.Description),
			logger.String("color", t.Color),
			logger.Duration("timeout", t.Timeout))
	}
}
