package simloop

import (
	"sync"
	"time"
)

// Scheduler runs a callback after the next frame. Implementations decide
// what "next frame" means: a display refresh, a ticker, or a manual drain.
type Scheduler interface {
	Schedule(fn func())
}

// FrameQueue holds callbacks until the host drains them, typically once per
// iteration of a render loop. Safe for concurrent Schedule calls.
type FrameQueue struct {
	mu      sync.Mutex
	pending []func()
}

func (q *FrameQueue) Schedule(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// RunNext runs the oldest pending callback. It reports false if none was
// pending.
func (q *FrameQueue) RunNext() bool {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return false
	}
	fn := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.mu.Unlock()

	fn()
	return true
}

// Pending returns the number of queued callbacks.
func (q *FrameQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// TickerScheduler runs callbacks serially on its own goroutine, at most one
// per tick.
type TickerScheduler struct {
	ticker *time.Ticker
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewTickerScheduler starts a scheduler ticking every interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	s := &TickerScheduler{
		ticker: time.NewTicker(interval),
		queue:  make(chan func(), 16),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *TickerScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
		}
		select {
		case fn := <-s.queue:
			fn()
		case <-s.done:
			return
		default:
		}
	}
}

// Schedule queues fn for the next tick. Callbacks scheduled after Close are
// discarded.
func (s *TickerScheduler) Schedule(fn func()) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queue <- fn:
	case <-s.done:
	}
}

// Close stops the ticker and waits for a running callback to return.
// It must not be called from inside a scheduled callback.
func (s *TickerScheduler) Close() {
	s.once.Do(func() {
		close(s.done)
		s.ticker.Stop()
	})
	s.wg.Wait()
}
