package scheduler

import (
	"errors"
	"sync"

	"orchd/internal/schedule"
)

// ErrEmpty is returned by Pop when no job is waiting.
var ErrEmpty = errors.New("scheduler: queue empty")

// Queue is the in-memory FIFO between the polling loop and the dispatcher.
// Not persisted: a restart starts with an empty queue.
type Queue struct {
	mu    sync.Mutex
	items []schedule.Job
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(j schedule.Job) {
	q.mu.Lock()
	q.items = append(q.items, j)
	q.mu.Unlock()
}

func (q *Queue) Pop() (schedule.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return schedule.Job{}, ErrEmpty
	}
	j := q.items[0]
	q.items = q.items[1:]
	return j, nil
}

func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the pending jobs in queue order.
func (q *Queue) Snapshot() []schedule.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]schedule.Job, len(q.items))
	copy(out, q.items)
	return out
}
