package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"deep-fryer/internal/algorithms"
	"deep-fryer/internal/pixel"
)

// Pool holds one Executor per descriptor, all writing to a shared result
// channel. It is created once and reused for the process lifetime.
type Pool struct {
	executors []*Executor
	byName    map[algorithms.Name]*Executor
	results   chan Result
	logger    logrus.FieldLogger
	closeOnce sync.Once
}

// NewPool starts an executor for every descriptor. resultBuffer sizes the
// shared result channel; values below the executor count are raised to it.
func NewPool(descriptors []algorithms.Descriptor, resultBuffer int, logger logrus.FieldLogger) (*Pool, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("executor pool needs at least one transform")
	}
	if resultBuffer < len(descriptors) {
		resultBuffer = len(descriptors)
	}

	p := &Pool{
		byName:  make(map[algorithms.Name]*Executor, len(descriptors)),
		results: make(chan Result, resultBuffer),
		logger:  logger,
	}

	for _, desc := range descriptors {
		if _, dup := p.byName[desc.Name]; dup {
			p.Close()
			return nil, fmt.Errorf("duplicate transform %s", desc.Name)
		}
		if desc.Func == nil {
			p.Close()
			return nil, fmt.Errorf("transform %s has no function", desc.Name)
		}
		e := New(desc, p.results, logger)
		p.executors = append(p.executors, e)
		p.byName[desc.Name] = e
	}

	logger.WithField("executors", len(p.executors)).Info("EXECUTOR: Pool started")
	return p, nil
}

// Results is the single channel every executor writes to. It is closed by Close.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Size returns the number of executors.
func (p *Pool) Size() int {
	return len(p.executors)
}

// Broadcast sends one request per executor, all sharing buf and threshold.
// It never waits for a result.
func (p *Pool) Broadcast(seq uint64, buf *pixel.Buffer, threshold int) error {
	var errs []error
	for _, e := range p.executors {
		err := e.Send(Request{
			Seq:       seq,
			Buffer:    buf,
			Threshold: threshold,
			Name:      e.Name(),
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot for every executor.
func (p *Pool) Stats() map[algorithms.Name]Stats {
	out := make(map[algorithms.Name]Stats, len(p.executors))
	for _, e := range p.executors {
		out[e.Name()] = e.Stats()
	}
	return out
}

// Close stops all executors and then closes the result channel.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		for _, e := range p.executors {
			e.Close()
		}
		close(p.results)
		p.logger.Info("EXECUTOR: Pool closed")
	})
}
