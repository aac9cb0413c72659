// Package executor hosts one long-lived goroutine per catalog transform.
//
// An Executor owns a single descriptor, accepts requests through an
// unbounded mailbox so senders never block, and writes each finished
// result to the result channel it was built with. Executors share no
// mutable state; a panicking transform is recovered, logged and counted,
// and the executor keeps serving later requests.
package executor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"deep-fryer/internal/algorithms"
	"deep-fryer/internal/pixel"
)

var (
	ErrClosed         = errors.New("executor closed")
	ErrWrongTransform = errors.New("request addressed to another transform")
)

// Request asks one executor to run its transform.
type Request struct {
	Seq       uint64
	Buffer    *pixel.Buffer
	Threshold int
	Name      algorithms.Name
}

// Result is the output of exactly one Request.
type Result struct {
	Seq     uint64
	Buffer  *pixel.Buffer
	Source  *pixel.Buffer
	Origin  algorithms.Name
	Elapsed time.Duration
}

// Stats is a point-in-time snapshot of an executor's counters.
type Stats struct {
	Completed    uint64
	Failed       uint64
	Pending      int
	LastDuration time.Duration
}

// Executor runs one transform on its own goroutine.
type Executor struct {
	desc   algorithms.Descriptor
	out    chan<- Result
	logger logrus.FieldLogger

	mu      sync.Mutex
	mailbox []Request

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	completed atomic.Uint64
	failed    atomic.Uint64
	lastNanos atomic.Int64
}

// New starts an executor for desc. Every result is written to out, which
// stays the executor's only sink for its lifetime.
func New(desc algorithms.Descriptor, out chan<- Result, logger logrus.FieldLogger) *Executor {
	e := &Executor{
		desc:    desc,
		out:     out,
		logger:  logger.WithField("transform", desc.Name.String()),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

// Name returns the transform this executor hosts.
func (e *Executor) Name() algorithms.Name {
	return e.desc.Name
}

// Send queues req and returns immediately.
func (e *Executor) Send(req Request) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if req.Name != e.desc.Name {
		return fmt.Errorf("%w: %s sent to %s", ErrWrongTransform, req.Name, e.desc.Name)
	}
	if req.Buffer == nil {
		return fmt.Errorf("request %d for %s has no buffer", req.Seq, req.Name)
	}

	e.mu.Lock()
	e.mailbox = append(e.mailbox, req)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the executor once the in-flight transform, if any, returns.
// Queued requests are discarded. Calling Close multiple times is safe.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
	<-e.stopped
}

// Stats returns the executor's counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	pending := len(e.mailbox)
	e.mu.Unlock()

	return Stats{
		Completed:    e.completed.Load(),
		Failed:       e.failed.Load(),
		Pending:      pending,
		LastDuration: time.Duration(e.lastNanos.Load()),
	}
}

func (e *Executor) run() {
	defer close(e.stopped)

	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}

		for {
			req, ok := e.next()
			if !ok {
				break
			}
			if e.closed.Load() {
				return
			}

			res, ok := e.execute(req)
			if !ok {
				continue
			}

			select {
			case e.out <- res:
			case <-e.done:
				return
			}
		}
	}
}

func (e *Executor) next() (Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.mailbox) == 0 {
		return Request{}, false
	}
	req := e.mailbox[0]
	e.mailbox[0] = Request{}
	e.mailbox = e.mailbox[1:]
	return req, true
}

func (e *Executor) execute(req Request) (res Result, ok bool) {
	start := time.Now()
	log := e.logger.WithFields(logrus.Fields{
		"seq":       req.Seq,
		"threshold": req.Threshold,
	})

	defer func() {
		if r := recover(); r != nil {
			e.failed.Add(1)
			log.WithField("panic", r).Error("EXECUTOR: Transform panicked, result dropped")
			ok = false
		}
	}()

	out := e.desc.Func(req.Buffer, req.Threshold)
	elapsed := time.Since(start)
	e.lastNanos.Store(int64(elapsed))

	if err := out.Validate(); err != nil || !out.SameSize(req.Buffer) {
		e.failed.Add(1)
		log.WithError(err).Error("EXECUTOR: Transform returned an unusable buffer")
		return Result{}, false
	}

	e.completed.Add(1)
	log.WithField("duration_ms", elapsed.Milliseconds()).Debug("EXECUTOR: Transform completed")

	return Result{
		Seq:     req.Seq,
		Buffer:  out,
		Source:  req.Buffer,
		Origin:  e.desc.Name,
		Elapsed: elapsed,
	}, true
}
