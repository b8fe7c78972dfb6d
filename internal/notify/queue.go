// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one deferred delivery. As is the identity impersonated while
// running it, captured when the delivery was prepared.
type Task struct {
	ID   uuid.UUID
	Name string
	As   Identity
	Run  func(ctx context.Context, as Identity) error
}

// Queue runs notification deliveries after the transaction that prepared
// them has committed. Deliveries are best-effort: each task is isolated,
// failures are logged and never propagate back to the request that
// published them.
type Queue struct {
	tasks   chan Task
	wg      sync.WaitGroup
	timeout time.Duration

	closeOnce sync.Once
}

// NewQueue creates a delivery queue and starts its worker.
func NewQueue(buffer int) *Queue {
	q := &Queue{
		tasks:   make(chan Task, buffer),
		timeout: 30 * time.Second,
	}
	q.wg.Add(1)
	go q.work()
	return q
}

// Publish schedules a delivery. Call only after the preparing transaction
// has committed.
func (q *Queue) Publish(t Task) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	q.tasks <- t
}

// Close stops accepting tasks and waits for in-flight deliveries to
// drain.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.tasks) })
	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(t)
	}
}

// run executes a single task with panic isolation and its own timeout.
func (q *Queue) run(t Task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("notification delivery panicked",
				"task", t.Name,
				"task_id", t.ID,
				"panic", rec,
			)
		}
	}()

	if err := t.Run(ctx, t.As); err != nil {
		slog.Error("notification delivery failed",
			"task", t.Name,
			"task_id", t.ID,
			"as_user_id", t.As.UserID,
			"error", err,
		)
		return
	}
	slog.Debug("notification delivered", "task", t.Name, "task_id", t.ID)
}
