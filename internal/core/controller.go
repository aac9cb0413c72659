// Dispatch/aggregation controller feeding every transform executor
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"deep-fryer/internal/algorithms"
	"deep-fryer/internal/executor"
	"deep-fryer/internal/metrics"
	"deep-fryer/internal/pixel"
)

// DefaultDebounce is the window that collapses rapid threshold changes.
const DefaultDebounce = 100 * time.Millisecond

// recentEvents is how much of the debugger history Stop logs.
const recentEvents = 16

// DefaultThreshold matches the slider's initial position.
const DefaultThreshold = 150

var ErrStopped = errors.New("controller stopped")

// Dispatcher fans a buffer out to every executor and exposes their results.
// *executor.Pool satisfies it.
type Dispatcher interface {
	Broadcast(seq uint64, buf *pixel.Buffer, threshold int) error
	Results() <-chan executor.Result
	Close()
}

type statsReporter interface {
	Stats() map[algorithms.Name]executor.Stats
}

// Surface displays a buffer, resizing itself to the buffer's dimensions.
type Surface interface {
	Paint(buf *pixel.Buffer)
}

// Annotator is implemented by surfaces that also show per-result details.
type Annotator interface {
	Annotate(values map[string]float64, elapsed time.Duration)
}

// Options configures a Controller.
type Options struct {
	Threshold int
	Debounce  time.Duration
	// DropStale discards results older than the latest dispatch instead of
	// painting them whenever they arrive.
	DropStale bool
	// Evaluator, when set, computes metrics for every routed result.
	Evaluator *metrics.Evaluator
}

// Stats counts controller activity.
type Stats struct {
	Dispatches uint64
	Routed     uint64
	Dropped    uint64
}

// Controller owns the current image and threshold. It broadcasts a request
// to every executor when either changes and routes each result to the
// surface registered for its origin.
type Controller struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	logger     logrus.FieldLogger
	debugger   *Debugger
	opts       Options

	buffer              *pixel.Buffer
	threshold           int
	dispatchedThreshold int
	seq                 uint64

	debounceTimer *time.Timer
	debounceGen   uint64

	surfMu   sync.RWMutex
	surfaces map[algorithms.Name]Surface

	stats   Stats
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// NewController wraps a dispatcher. The dispatcher is owned by the
// controller from here on and closed by Stop.
func NewController(d Dispatcher, opts Options, logger logrus.FieldLogger) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	opts.Threshold = algorithms.ClampThreshold(opts.Threshold)

	return &Controller{
		dispatcher:          d,
		logger:              logger,
		debugger:            NewDebugger(logger),
		opts:                opts,
		threshold:           opts.Threshold,
		dispatchedThreshold: opts.Threshold,
		surfaces:            make(map[algorithms.Name]Surface),
	}
}

// Debugger returns the controller's event recorder.
func (c *Controller) Debugger() *Debugger {
	return c.debugger
}

// Start launches the routing goroutine. It returns when ctx is cancelled,
// Stop is called, or the dispatcher's result channel closes.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return fmt.Errorf("controller already started")
	}
	c.started = true

	c.wg.Add(1)
	go c.route(ctx, c.dispatcher.Results())

	c.logger.WithFields(logrus.Fields{
		"threshold":   c.threshold,
		"debounce_ms": c.opts.Debounce.Milliseconds(),
		"drop_stale":  c.opts.DropStale,
	}).Info("CONTROLLER: Started")
	return nil
}

// Stop cancels a pending debounce, closes the dispatcher and waits for the
// routing goroutine. In-flight transforms are not interrupted.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.cancelDebounceLocked()
	c.mu.Unlock()

	if r, ok := c.dispatcher.(statsReporter); ok {
		for name, s := range r.Stats() {
			c.logger.WithFields(logrus.Fields{
				"transform": name.String(),
				"completed": s.Completed,
				"failed":    s.Failed,
				"pending":   s.Pending,
				"last_ms":   s.LastDuration.Milliseconds(),
			}).Debug("CONTROLLER: Executor summary")
		}
	}

	c.dispatcher.Close()
	c.wg.Wait()

	events := c.debugger.Events()
	for _, evt := range events[max(0, len(events)-recentEvents):] {
		c.logger.WithFields(logrus.Fields{
			"event":  evt.Kind,
			"seq":    evt.Seq,
			"detail": evt.Detail,
			"at":     evt.Timestamp.Format("15:04:05.000"),
		}).Debug("CONTROLLER: Recent event")
	}

	stats := c.Stats()
	c.logger.WithFields(logrus.Fields{
		"dispatches": stats.Dispatches,
		"routed":     stats.Routed,
		"dropped":    stats.Dropped,
	}).Info("CONTROLLER: Stopped")
}

// SetImage replaces the current image and dispatches immediately.
// A pending threshold debounce is folded into this dispatch.
func (c *Controller) SetImage(buf *pixel.Buffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("set image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}

	c.cancelDebounceLocked()
	c.buffer = buf
	c.debugger.Record(EventImage, 0, fmt.Sprintf("%dx%d", buf.Width, buf.Height))
	return c.dispatchLocked("image_changed")
}

// SetThreshold clamps v to [0, 255] and schedules a debounced dispatch.
func (c *Controller) SetThreshold(v int) {
	v = algorithms.ClampThreshold(v)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.threshold = v
	c.cancelDebounceLocked()
	gen := c.debounceGen

	c.debugger.Record(EventThreshold, 0, fmt.Sprintf("%d", v))
	c.debounceTimer = time.AfterFunc(c.opts.Debounce, func() {
		c.fireDebounce(gen)
	})
}

// Threshold returns the latest (possibly not yet dispatched) threshold.
func (c *Controller) Threshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// Image returns the current image, or nil before the first SetImage.
func (c *Controller) Image() *pixel.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// Register makes s the display target for results from name.
func (c *Controller) Register(name algorithms.Name, s Surface) {
	c.surfMu.Lock()
	defer c.surfMu.Unlock()
	c.surfaces[name] = s
}

// Unregister removes the display target for name. Later results are dropped.
func (c *Controller) Unregister(name algorithms.Name) {
	c.surfMu.Lock()
	defer c.surfMu.Unlock()
	delete(c.surfaces, name)
}

// Stats returns the controller's counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) cancelDebounceLocked() {
	c.debounceGen++
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}

func (c *Controller) fireDebounce(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.debounceGen || c.stopped {
		return
	}
	c.debounceTimer = nil

	if c.buffer == nil {
		c.logger.Debug("CONTROLLER: No image loaded, threshold stored only")
		return
	}
	if c.threshold == c.dispatchedThreshold {
		c.logger.WithField("threshold", c.threshold).Debug("CONTROLLER: Threshold unchanged, skipping dispatch")
		return
	}
	if err := c.dispatchLocked("threshold_changed"); err != nil {
		c.logger.WithError(err).Error("CONTROLLER: Debounced dispatch failed")
	}
}

func (c *Controller) dispatchLocked(reason string) error {
	c.seq++
	c.stats.Dispatches++
	c.dispatchedThreshold = c.threshold

	log := c.logger.WithFields(logrus.Fields{
		"seq":       c.seq,
		"reason":    reason,
		"threshold": c.threshold,
		"size":      fmt.Sprintf("%dx%d", c.buffer.Width, c.buffer.Height),
	})

	c.debugger.Record(EventDispatch, c.seq, reason)
	if err := c.dispatcher.Broadcast(c.seq, c.buffer, c.threshold); err != nil {
		log.WithError(err).Error("CONTROLLER: Broadcast incomplete")
		return fmt.Errorf("dispatch %d: %w", c.seq, err)
	}

	log.Debug("CONTROLLER: Dispatched to all executors")
	return nil
}

func (c *Controller) route(ctx context.Context, results <-chan executor.Result) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("CONTROLLER: Routing stopped by context")
			return
		case res, ok := <-results:
			if !ok {
				c.logger.Debug("CONTROLLER: Result channel closed")
				return
			}
			c.deliver(res)
		}
	}
}

func (c *Controller) deliver(res executor.Result) {
	log := c.logger.WithFields(logrus.Fields{
		"seq":       res.Seq,
		"transform": res.Origin.String(),
	})

	c.mu.Lock()
	latest := c.seq
	c.mu.Unlock()

	if c.opts.DropStale && res.Seq < latest {
		c.drop(res, "stale")
		log.WithField("latest", latest).Debug("CONTROLLER: Dropped stale result")
		return
	}

	c.surfMu.RLock()
	surface := c.surfaces[res.Origin]
	c.surfMu.RUnlock()

	if surface == nil {
		c.drop(res, "no_surface")
		log.Debug("CONTROLLER: No surface registered, result dropped")
		return
	}

	if a, ok := surface.(Annotator); ok && c.opts.Evaluator != nil {
		a.Annotate(c.opts.Evaluator.CalculateAll(res.Source, res.Buffer), res.Elapsed)
	}
	surface.Paint(res.Buffer)

	c.mu.Lock()
	c.stats.Routed++
	c.mu.Unlock()
	c.debugger.Record(EventRoute, res.Seq, res.Origin.String())

	log.WithField("duration_ms", res.Elapsed.Milliseconds()).Debug("CONTROLLER: Result painted")
}

func (c *Controller) drop(res executor.Result, reason string) {
	c.mu.Lock()
	c.stats.Dropped++
	c.mu.Unlock()
	c.debugger.Record(EventDrop, res.Seq, res.Origin.String()+": "+reason)
}
