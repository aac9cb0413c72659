package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deep-fryer/internal/algorithms"
	"deep-fryer/internal/executor"
	"deep-fryer/internal/metrics"
	"deep-fryer/internal/pixel"
)

type broadcast struct {
	seq       uint64
	buf       *pixel.Buffer
	threshold int
	at        time.Time
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []broadcast
	results chan executor.Result
	closed  bool
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{results: make(chan executor.Result, 16)}
}

func (f *fakeDispatcher) Broadcast(seq uint64, buf *pixel.Buffer, threshold int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcast{seq: seq, buf: buf, threshold: threshold, at: time.Now()})
	return nil
}

func (f *fakeDispatcher) Results() <-chan executor.Result { return f.results }

func (f *fakeDispatcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.results)
	}
}

func (f *fakeDispatcher) broadcasts() []broadcast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broadcast(nil), f.calls...)
}

type recordingSurface struct {
	mu      sync.Mutex
	painted []*pixel.Buffer
	values  map[string]float64
}

func (s *recordingSurface) Paint(buf *pixel.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.painted = append(s.painted, buf)
}

func (s *recordingSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.painted)
}

func (s *recordingSurface) last() *pixel.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.painted) == 0 {
		return nil
	}
	return s.painted[len(s.painted)-1]
}

type annotatingSurface struct {
	recordingSurface
}

func (s *annotatingSurface) Annotate(values map[string]float64, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = values
}

func gray(t *testing.T, w, h int, v uint8) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.New(w, h)
	require.NoError(t, err)
	for i := 0; i < len(buf.Pix); i += pixel.Channels {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = v, v, v, 255
	}
	return buf
}

func newTestController(t *testing.T, opts Options) (*Controller, *fakeDispatcher) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	d := newFakeDispatcher()
	c := NewController(d, opts, logger)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)
	return c, d
}

// =============================================================================
// Dispatch
// =============================================================================

func TestController_ImageDispatchesImmediately(t *testing.T) {
	c, d := newTestController(t, Options{Threshold: 42})

	buf := gray(t, 3, 3, 10)
	require.NoError(t, c.SetImage(buf))

	calls := d.broadcasts()
	require.Len(t, calls, 1)
	assert.Same(t, buf, calls[0].buf)
	assert.Equal(t, 42, calls[0].threshold)
	assert.Equal(t, uint64(1), calls[0].seq)
	assert.Same(t, buf, c.Image())
}

func TestController_RejectsInvalidImage(t *testing.T) {
	c, d := newTestController(t, Options{})

	assert.ErrorIs(t, c.SetImage(nil), pixel.ErrInvalidDimensions)
	assert.Empty(t, d.broadcasts())
}

func TestController_ThresholdWithoutImageDoesNotDispatch(t *testing.T) {
	c, d := newTestController(t, Options{Debounce: 10 * time.Millisecond})

	c.SetThreshold(12)
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, d.broadcasts())
	assert.Equal(t, 12, c.Threshold())
}

func TestController_ThresholdIsClamped(t *testing.T) {
	c, _ := newTestController(t, Options{Threshold: 900})
	assert.Equal(t, 255, c.Threshold())

	c.SetThreshold(-4)
	assert.Equal(t, 0, c.Threshold())
}

func TestController_DebounceCollapsesBurst(t *testing.T) {
	const window = 100 * time.Millisecond
	c, d := newTestController(t, Options{Debounce: window})
	require.NoError(t, c.SetImage(gray(t, 2, 2, 0)))

	var last time.Time
	for _, v := range []int{10, 20, 30, 40} {
		last = time.Now()
		c.SetThreshold(v)
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(d.broadcasts()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(2 * window)

	calls := d.broadcasts()
	require.Len(t, calls, 2, "one image dispatch plus exactly one threshold dispatch")
	assert.Equal(t, 40, calls[1].threshold)
	assert.GreaterOrEqual(t, calls[1].at.Sub(last), window)
	assert.Equal(t, uint64(2), calls[1].seq)
}

func TestController_UnchangedThresholdSkipsDispatch(t *testing.T) {
	c, d := newTestController(t, Options{Threshold: 80, Debounce: 10 * time.Millisecond})
	require.NoError(t, c.SetImage(gray(t, 1, 1, 0)))

	c.SetThreshold(90)
	c.SetThreshold(80)
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, d.broadcasts(), 1)
}

func TestController_ImageChangeCancelsPendingDebounce(t *testing.T) {
	c, d := newTestController(t, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, c.SetImage(gray(t, 1, 1, 0)))

	c.SetThreshold(33)
	next := gray(t, 2, 1, 9)
	require.NoError(t, c.SetImage(next))
	time.Sleep(150 * time.Millisecond)

	calls := d.broadcasts()
	require.Len(t, calls, 2)
	assert.Same(t, next, calls[1].buf)
	assert.Equal(t, 33, calls[1].threshold)
}

// =============================================================================
// Routing
// =============================================================================

func TestController_RoutesToRegisteredSurface(t *testing.T) {
	c, d := newTestController(t, Options{})
	s := &recordingSurface{}
	c.Register(algorithms.Clamp, s)

	out := gray(t, 1, 1, 50)
	d.results <- executor.Result{Seq: 0, Buffer: out, Source: out, Origin: algorithms.Clamp}

	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Same(t, out, s.last())
	assert.Equal(t, uint64(1), c.Stats().Routed)
}

func TestController_DropsResultWithoutSurface(t *testing.T) {
	c, d := newTestController(t, Options{})
	s := &recordingSurface{}
	c.Register(algorithms.Invert, s)
	c.Unregister(algorithms.Invert)

	out := gray(t, 1, 1, 50)
	d.results <- executor.Result{Buffer: out, Source: out, Origin: algorithms.Invert}

	require.Eventually(t, func() bool { return c.Stats().Dropped == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, s.count())
	assert.Equal(t, 1, c.Debugger().Count(EventDrop))
}

func TestController_StaleResultsPaintByDefault(t *testing.T) {
	c, d := newTestController(t, Options{})
	s := &recordingSurface{}
	c.Register(algorithms.Bayer, s)

	require.NoError(t, c.SetImage(gray(t, 1, 1, 0)))
	require.NoError(t, c.SetImage(gray(t, 1, 1, 1)))

	old := gray(t, 1, 1, 0)
	d.results <- executor.Result{Seq: 1, Buffer: old, Source: old, Origin: algorithms.Bayer}
	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestController_DropStaleDiscardsOlderResults(t *testing.T) {
	c, d := newTestController(t, Options{DropStale: true})
	s := &recordingSurface{}
	c.Register(algorithms.Bayer, s)

	require.NoError(t, c.SetImage(gray(t, 1, 1, 0)))
	require.NoError(t, c.SetImage(gray(t, 1, 1, 1)))

	old := gray(t, 1, 1, 0)
	fresh := gray(t, 1, 1, 1)
	d.results <- executor.Result{Seq: 1, Buffer: old, Source: old, Origin: algorithms.Bayer}
	d.results <- executor.Result{Seq: 2, Buffer: fresh, Source: fresh, Origin: algorithms.Bayer}

	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Same(t, fresh, s.last())
	assert.Equal(t, uint64(1), c.Stats().Dropped)
}

func TestController_AnnotatesWithMetrics(t *testing.T) {
	c, d := newTestController(t, Options{Evaluator: metrics.NewEvaluator()})
	s := &annotatingSurface{}
	c.Register(algorithms.Grayscale, s)

	src := gray(t, 2, 2, 100)
	out := gray(t, 2, 2, 255)
	d.results <- executor.Result{Buffer: out, Source: src, Origin: algorithms.Grayscale}

	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 5*time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.InDelta(t, 1.0, s.values["white_ratio"], 1e-9)
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestController_StopClosesDispatcher(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	d := newFakeDispatcher()
	c := NewController(d, Options{}, logger)
	require.NoError(t, c.Start(context.Background()))
	assert.Error(t, c.Start(context.Background()))

	c.Stop()
	c.Stop()

	d.mu.Lock()
	assert.True(t, d.closed)
	d.mu.Unlock()
	assert.ErrorIs(t, c.SetImage(gray(t, 1, 1, 0)), ErrStopped)
	assert.ErrorIs(t, c.Start(context.Background()), ErrStopped)
}

func TestController_StopLogsRecentEvents(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := NewController(newFakeDispatcher(), Options{}, logger)
	require.NoError(t, c.Start(context.Background()))

	for range recentEvents {
		require.NoError(t, c.SetImage(gray(t, 1, 1, 0)))
	}
	require.Greater(t, len(c.Debugger().Events()), recentEvents)
	c.Stop()

	var kinds []EventKind
	for _, entry := range hook.AllEntries() {
		if entry.Message == "CONTROLLER: Recent event" {
			kinds = append(kinds, entry.Data["event"].(EventKind))
		}
	}
	require.Len(t, kinds, recentEvents)
	assert.Equal(t, EventDispatch, kinds[len(kinds)-1])
}

func TestController_ContextEndsRouting(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	d := newFakeDispatcher()
	c := NewController(d, Options{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("routing goroutine ignored context cancellation")
	}
	c.Stop()
}

// =============================================================================
// With real executors
// =============================================================================

func newPoolController(t *testing.T, threshold int) (*Controller, map[algorithms.Name]*recordingSurface) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	pool, err := executor.NewPool(algorithms.Catalog(), 0, logger)
	require.NoError(t, err)

	c := NewController(pool, Options{Threshold: threshold}, logger)
	surfaces := make(map[algorithms.Name]*recordingSurface)
	for _, name := range algorithms.Names() {
		s := &recordingSurface{}
		surfaces[name] = s
		c.Register(name, s)
	}
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)
	return c, surfaces
}

func TestController_FanOutReachesEverySurfaceOnce(t *testing.T) {
	c, surfaces := newPoolController(t, 100)
	require.NoError(t, c.SetImage(gray(t, 2, 2, 128)))

	for name, s := range surfaces {
		require.Eventually(t, func() bool { return s.count() == 1 }, 2*time.Second, 5*time.Millisecond, name.String())
	}
	time.Sleep(50 * time.Millisecond)
	for name, s := range surfaces {
		assert.Equal(t, 1, s.count(), name.String())
	}
	assert.Equal(t, uint64(len(surfaces)), c.Stats().Routed)
}

func TestController_EndToEndMidGray(t *testing.T) {
	c, surfaces := newPoolController(t, 100)
	require.NoError(t, c.SetImage(gray(t, 2, 2, 128)))

	for _, name := range []algorithms.Name{algorithms.Grayscale, algorithms.Invert} {
		s := surfaces[name]
		require.Eventually(t, func() bool { return s.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	}

	want := map[algorithms.Name][]uint8{
		algorithms.Grayscale: {255, 255, 255, 255},
		algorithms.Invert:    {128, 128, 128, 255},
	}
	for name, px := range want {
		out := surfaces[name].last()
		for i := 0; i < len(out.Pix); i += pixel.Channels {
			assert.Equal(t, px, out.Pix[i:i+4], name.String())
		}
	}
}
