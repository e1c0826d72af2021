package conversation

import "context"

// MemoryQueue is a jobQueue backed by a buffered channel. The whole assistant
// runs in one process, so the dispatch queue does too; a channel receive is
// consume-once, which is what gives each job exactly one worker.
type MemoryQueue struct {
	ch chan conversationJob
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch: make(chan conversationJob, buffer),
	}
}

// Enqueue adds a job, blocking while the buffer is full until ctx is done.
func (q *MemoryQueue) Enqueue(ctx context.Context, job conversationJob) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (conversationJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case job := <-q.ch:
		return job, nil
	case <-ctx.Done():
		return conversationJob{}, ctx.Err()
	}
}
