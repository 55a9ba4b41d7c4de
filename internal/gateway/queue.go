package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/agendabot/internal/types"
)

// Processor handles one dequeued run.
type Processor func(ctx context.Context, run *Run) error

// Queue manages per-sender lanes with a global concurrency semaphore.
// Each sender gets its own FIFO channel (lane) so that messages from one
// person are handled in order, while the semaphore limits the total number
// of concurrent processors across all senders.
type Queue struct {
	lanes     map[types.SenderKey]chan *Run
	semaphore *semaphore.Weighted
	processor Processor
	active    atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

// laneSize bounds how many messages one sender may have waiting.
const laneSize = 100

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all sender lanes.
func NewQueue(maxConcurrent int64) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue{
		lanes:     make(map[types.SenderKey]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
// Runs keep ctx's values but not its cancellation: once accepted, a message
// is processed even while the process shuts down.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	q.stopped = false
}

// Stop refuses new runs, closes all lanes and waits until every queued run
// has been processed. The processors' context is cancelled only afterwards.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	for key, lane := range q.lanes {
		close(lane)
		delete(q.lanes, key)
	}
	q.mu.Unlock()
	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
}

// Enqueue adds a Run to its sender's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil || q.stopped {
		return fmt.Errorf("queue not running")
	}

	key := run.Message.Sender
	lane, exists := q.lanes[key]
	if !exists {
		lane = make(chan *Run, laneSize)
		q.lanes[key] = lane
		q.wg.Add(1)
		go q.processLane(key, lane)
	}

	select {
	case lane <- run:
		return nil
	default:
		return fmt.Errorf("queue full for sender %s", key)
	}
}

// processLane drains a single sender lane until it is closed, acquiring a
// semaphore slot before running the processor synchronously.
func (q *Queue) processLane(key types.SenderKey, lane chan *Run) {
	defer q.wg.Done()
	for run := range lane {
		if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
			slog.Warn("run dropped", "run_id", string(run.ID), "sender", string(key), "error", err)
			continue
		}
		q.run(run)
		q.semaphore.Release(1)
	}
}

func (q *Queue) run(run *Run) {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()
	if processor == nil {
		return
	}

	q.active.Add(1)
	defer q.active.Add(-1)

	run.start()
	err := processor(q.ctx, run)
	run.finish(err)
	if err != nil {
		slog.Error("run failed", "run_id", string(run.ID), "sender", string(run.Message.Sender), "error", err)
		return
	}
	slog.Debug("run complete", "run_id", string(run.ID), "sender", string(run.Message.Sender),
		"took", run.EndedAt.Sub(*run.StartedAt))
}

// WaitIdle blocks until no runs are actively being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn Processor) {
	q.mu.Lock()
	q.processor = fn
	q.mu.Unlock()
}
