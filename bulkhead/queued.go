package bulkhead

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/latchbreaker/latchbreaker/config"
	"github.com/latchbreaker/latchbreaker/corelog"
)

// DefaultQueueLength matches spec.md §4.4's stated default for Variant B.
const DefaultQueueLength = 10

// Queued is Variant B: a fixed worker count plus a bounded queue. TrySubmit
// hands a task off to a worker if one is free or the queue has room; if
// the queue is full it returns false immediately without blocking.
//
// Grounded on other_examples' NethServer collect-service
// ScalableManager/BackpressureManager: a worker-goroutine pool reading
// off a bounded channel, rejecting new work once the channel is full,
// adapted here from HTTP-collection backpressure to command-body
// dispatch.
type Queued struct {
	key      string
	provider config.Provider
	logger   corelog.Logger

	mu   sync.Mutex
	pool *workerPool
}

type workerPool struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
	queued atomic.Int64
	cap    int64
}

// NewQueued builds a queued bulkhead for key with workers worker
// goroutines and a queue of depth queueLength. Either falls back to the
// spec.md defaults (10 and 10) if non-positive.
func NewQueued(key string, workers, queueLength int, provider config.Provider, logger corelog.Logger) *Queued {
	if workers <= 0 {
		workers = DefaultMaxConcurrent
	}
	if queueLength <= 0 {
		queueLength = DefaultQueueLength
	}
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	q := &Queued{key: key, provider: provider, logger: logger}
	q.pool = newWorkerPool(workers, queueLength)
	return q
}

func newWorkerPool(workers, queueLength int) *workerPool {
	p := &workerPool{
		tasks: make(chan func(), queueLength),
		done:  make(chan struct{}),
		cap:   int64(queueLength),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *workerPool) run() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.queued.Add(-1)
			task()
		case <-p.done:
			return
		}
	}
}

// TrySubmit enqueues fn if the queue has room, returning true
// immediately. If the queue is full it returns false without running
// fn. fn runs on a worker goroutine, not the caller's.
func (q *Queued) TrySubmit(fn func()) bool {
	q.mu.Lock()
	pool := q.pool
	q.mu.Unlock()

	for {
		current := pool.queued.Load()
		if current >= pool.cap {
			return false
		}
		if pool.queued.CompareAndSwap(current, current+1) {
			select {
			case pool.tasks <- fn:
				return true
			default:
				pool.queued.Add(-1)
				return false
			}
		}
	}
}

// QueueLength reports the current queue depth, for diagnostics.
func (q *Queued) QueueLength() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pool.queued.Load()
}

// Reconfigure replaces the underlying worker pool with one sized to
// workers/queueLength. In-flight tasks on the old pool drain naturally
// (its workers keep running until its channel is closed and empty); new
// submissions go to the new pool immediately, per spec.md §4.4.
func (q *Queued) Reconfigure(workers, queueLength int) {
	if workers <= 0 {
		workers = DefaultMaxConcurrent
	}
	if queueLength <= 0 {
		queueLength = DefaultQueueLength
	}
	next := newWorkerPool(workers, queueLength)

	q.mu.Lock()
	old := q.pool
	q.pool = next
	q.mu.Unlock()

	go func() {
		close(old.tasks)
		old.wg.Wait()
	}()
}

func (q *Queued) configKey(suffix string) string {
	return fmt.Sprintf("mjolnir.pools.%s.%s", q.key, suffix)
}

// ReloadFromProvider re-reads mjolnir.pools.<key>.threadCount and
// .queueLength from the configured Provider and calls Reconfigure with
// them. It does not compare against the current sizes: every call
// replaces the worker pool, even when neither value changed. Callers
// wire this to Provider.OnChange for hot reload.
func (q *Queued) ReloadFromProvider() {
	if q.provider == nil {
		return
	}
	workers := q.provider.Int(q.configKey("threadCount"), DefaultMaxConcurrent)
	queueLength := q.provider.Int(q.configKey("queueLength"), DefaultQueueLength)
	q.Reconfigure(workers, queueLength)
}
