// Package queue runs jobs one at a time, in submission order, on a single
// worker goroutine.
package queue

import (
	"sync"

	"github.com/grovetools/editorbridge/errors"
)

// DefaultSize is the job buffer used when New is given a non-positive size.
const DefaultSize = 256

// Queue is an ordered single-worker job queue. Jobs never run concurrently
// with each other, so they may share state that is not goroutine-safe.
type Queue struct {
	name      string
	jobs      chan func()
	done      chan struct{}
	stopped   chan struct{}
	cleanup   func()
	closeOnce sync.Once
}

// New starts a queue. The name appears in TRANSPORT_CLOSED errors.
func New(name string, size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	q := &Queue{
		name: name,
		jobs:    make(chan func(), size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer func() {
		if q.cleanup != nil {
			q.cleanup()
		}
		close(q.stopped)
	}()
	for {
		select {
		case <-q.done:
			return
		case job := <-q.jobs:
			select {
			case <-q.done:
				return
			default:
			}
			job()
		}
	}
}

// Submit enqueues a job, blocking while the buffer is full. It fails once
// the queue is closed.
func (q *Queue) Submit(job func()) error {
	select {
	case <-q.done:
		return errors.TransportClosed(q.name)
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return errors.TransportClosed(q.name)
	}
}

// Done is closed when the queue stops. Jobs still buffered at that point never run.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Stop tells the worker to exit and returns without waiting, so a job may
// stop its own queue. cleanup, when not nil, runs on the worker after the
// job in flight returns. Only the first call's cleanup is kept.
func (q *Queue) Stop(cleanup func()) {
	q.closeOnce.Do(func() {
		q.cleanup = cleanup
		close(q.done)
	})
}

// Stopped is closed once the worker has exited and its cleanup has run.
func (q *Queue) Stopped() <-chan struct{} { return q.stopped }

// Close stops the worker and waits for the running job to finish. Inside a
// job use Stop instead.
func (q *Queue) Close() {
	q.Stop(nil)
	<-q.stopped
}
