// Quality metrics comparing a transform result with its source buffer
package metrics

import (
	"fmt"
	"sort"
	"sync"

	"deep-fryer/internal/pixel"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric value
	Calculate(original, processed *pixel.Buffer) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate better quality
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	mu      sync.RWMutex
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator with the default metrics registered
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("mse", NewMSE())
	e.Register("psnr", NewPSNR())
	e.Register("white_ratio", NewWhiteRatio())
}

// Register registers a metric, replacing any metric with the same name
func (e *Evaluator) Register(name string, metric Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed *pixel.Buffer) (float64, error) {
	e.mu.RLock()
	metric, exists := e.metrics[name]
	e.mu.RUnlock()

	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(original, processed)
}

// CalculateAll calculates all registered metrics, skipping the ones that fail
func (e *Evaluator) CalculateAll(original, processed *pixel.Buffer) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make(map[string]float64, len(e.metrics))
	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}
	return results
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	info := make(map[string]MetricInfo, len(e.metrics))
	for name, metric := range e.metrics {
		lo, hi := metric.GetRange()
		info[name] = MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{lo, hi},
			HigherBetter: metric.IsHigherBetter(),
		}
	}
	return info
}

func checkPair(original, processed *pixel.Buffer) error {
	if err := original.Validate(); err != nil {
		return fmt.Errorf("original: %w", err)
	}
	if err := processed.Validate(); err != nil {
		return fmt.Errorf("processed: %w", err)
	}
	if !original.SameSize(processed) {
		return fmt.Errorf("image dimensions mismatch")
	}
	return nil
}
