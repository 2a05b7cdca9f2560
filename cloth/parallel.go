package cloth

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// ErrPoolClosed is returned by RunPhase when the pool was shut down while
// the phase was in flight. The phase's tasks still complete (caller-runs),
// but the result must be treated as a cancellation.
var ErrPoolClosed = errors.New("cloth: worker pool closed")

// Pool is a fixed-size worker pool driven with an explicit per-phase
// barrier. Saturation policy: when the task queue is full the submitting
// goroutine executes the task itself, providing backpressure without
// blocking the simulation loop. Workers do not keep the process alive past
// Close.
type Pool struct {
	tasks  chan func()
	closed chan struct{}

	workers   int
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts a pool with the given worker count (0 = GOMAXPROCS) and
// task queue depth.
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueDepth < 1 {
		queueDepth = workers
	}
	p := &Pool{
		tasks:   make(chan func(), queueDepth),
		closed:  make(chan struct{}),
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the pool's worker count.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			// Drain whatever is still queued so no phase barrier stalls.
			for {
				select {
				case t := <-p.tasks:
					t()
				default:
					return
				}
			}
		case t := <-p.tasks:
			t()
		}
	}
}

// submit enqueues t, or runs it on the calling goroutine if the queue is
// full or the pool is closed. t always executes exactly once.
func (p *Pool) submit(t func()) {
	select {
	case <-p.closed:
		t()
		return
	default:
	}
	select {
	case p.tasks <- t:
	case <-p.closed:
		t()
	default:
		t()
	}
}

// RunPhase fans n tasks out over the pool and blocks until every task has
// signalled completion. A panicking task releases the barrier regardless;
// the first observed panic per phase is captured and returned as an error.
// Returns ErrPoolClosed if the pool was shut down during the phase.
func (p *Pool) RunPhase(n int, task func(i int)) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		p.submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("cloth: task %d panicked: %v", i, r)
					}
					mu.Unlock()
				}
			}()
			task(i)
		})
	}
	wg.Wait()

	select {
	case <-p.closed:
		if firstErr == nil {
			firstErr = ErrPoolClosed
		}
	default:
	}
	return firstErr
}

// Close stops accepting new work, drains queued tasks and waits up to
// timeout for workers to exit.
func (p *Pool) Close(timeout time.Duration) error {
	p.closeOnce.Do(func() { close(p.closed) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("cloth: worker pool did not drain within %s", timeout)
	}
}

// chunkRanges splits [0,n) into at most batches contiguous ranges of near
// equal size. Returns nil when n is zero.
func chunkRanges(n, batches int) [][2]int {
	if n <= 0 {
		return nil
	}
	if batches < 1 {
		batches = 1
	}
	size := n / batches
	if size < 1 {
		size = 1
	}
	var ranges [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
