// Package eventloop provides a single-goroutine serial executor. Tasks
// posted to a Loop run one at a time in submission order, which gives
// callback-driven code the ordering guarantees of a browser event loop
// without locks in the callbacks themselves.
package eventloop

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when posting to a closed loop.
var ErrClosed = errors.New("event loop is closed")

// Loop runs posted tasks serially on a dedicated goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool

	wg sync.WaitGroup
}

// New creates a running loop.
func New() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		for len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			l.mu.Lock()
		}
		task := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
	}
}

// Post enqueues a task. Tasks run in post order, never concurrently.
func (l *Loop) Post(task func()) error {
	if task == nil {
		return nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// PostAfter enqueues a task after the given delay. The returned stop
// function cancels the timer if it has not fired; a task already posted
// still runs.
func (l *Loop) PostAfter(d time.Duration, task func()) (stop func() bool) {
	if d <= 0 {
		_ = l.Post(task)
		return func() bool { return false }
	}
	timer := time.AfterFunc(d, func() {
		_ = l.Post(task)
	})
	return timer.Stop
}

// Close stops the loop after draining already-posted tasks and waits for
// the loop goroutine to exit. Posting after Close returns ErrClosed.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.wg.Wait()
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	l.wg.Wait()
}
