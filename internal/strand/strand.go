// Package strand runs closures one at a time, in the order they were posted,
// on a single goroutine.
//
// A gateway session posts every state transition, timer fire and inbound
// frame to its strand, so session state needs no locks.
package strand

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

var ErrStopped = errors.New("strand is stopped")

type Strand struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   *queue.Queue
	stopped bool

	done chan struct{}
}

// New starts a strand. Stop must be called to release its goroutine.
func New() *Strand {
	s := &Strand{
		tasks: queue.New(),
		done:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.run()

	return s
}

// Post queues fn. It returns false when the strand has been stopped, in which
// case fn never runs.
func (s *Strand) Post(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.tasks.Add(fn)
	s.cond.Signal()

	return true
}

// Do runs fn on the strand and waits for it to return.
//
// Calling Do from a closure that is already running on the strand deadlocks.
func (s *Strand) Do(fn func()) error {
	finished := make(chan struct{})

	if !s.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		// Stopped after fn was queued, it either ran during the drain or
		// never will
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stop rejects further posts, runs what is already queued and waits for the
// strand's goroutine to exit. It is safe to call more than once but not from
// the strand itself.
func (s *Strand) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Signal()
	s.mu.Unlock()

	<-s.done
}

// Done is closed once the strand's goroutine has exited.
func (s *Strand) Done() <-chan struct{} {
	return s.done
}

func (s *Strand) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for s.tasks.Length() == 0 && !s.stopped {
			s.cond.Wait()
		}

		if s.tasks.Length() == 0 {
			s.mu.Unlock()
			return
		}

		fn := s.tasks.Remove().(func())
		s.mu.Unlock()

		fn()
	}
}
