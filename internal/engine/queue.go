package engine

import "sync"

// Queue hands work from any goroutine to the render thread. Tasks run in the
// order they were posted, one at a time, on whichever goroutine calls Drain.
// There is no cancellation: a posted task runs on a later Drain.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
	ready chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post appends task to the queue. It never blocks on the render thread.
func (q *Queue) Post(task func()) {
	if task == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after Post. A receive means work may be pending; Drain
// decides.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Len reports the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs pending tasks until the queue is empty, including tasks posted
// while draining, and returns how many ran. It must only be called from the
// render thread.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, task := range batch {
			task()
			n++
		}
	}
}
