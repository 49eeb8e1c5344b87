// Package infer implements the inference engine: a registry of
// classifiers plus a single atomically-swapped "active" pointer. setActive
// and infer may race across goroutines; the active reference is read once
// per frame iteration via an atomic load.
package infer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gesturesrv/internal/classify"
	"gesturesrv/internal/extract"
)

// Engine holds the classifier registry and drives the active classifier
// against each extraction result.
type Engine struct {
	registry *classify.Registry

	active atomic.Pointer[classify.Classifier]

	mu      sync.Mutex
	latencies []float64
}

// New creates an Engine backed by the given registry.
func New(registry *classify.Registry) *Engine {
	return &Engine{registry: registry}
}

// Register adds a classifier to the engine's registry.
func (e *Engine) Register(c classify.Classifier) {
	e.registry.Register(c)
}

// Unregister removes a classifier. Disallowed if it is currently active;
// callers must switch the active classifier away first.
func (e *Engine) Unregister(name string) error {
	if active := e.active.Load(); active != nil && (*active).Name() == name {
		return fmt.Errorf("infer: cannot unregister active classifier %q", name)
	}
	e.registry.Unregister(name)
	return nil
}

// SetActive atomically swaps the active classifier to the named one,
// calling Reset on it before the swap is visible to infer, so reset
// happens-before the first classification with the new classifier.
func (e *Engine) SetActive(name string) error {
	c, ok := e.registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", classify.ErrNotFound, name)
	}
	c.Reset()
	e.active.Store(&c)
	return nil
}

// ClearActive deactivates the engine without selecting a replacement.
func (e *Engine) ClearActive() {
	e.active.Store(nil)
}

// ActiveName returns the name of the active classifier, or "" if none.
func (e *Engine) ActiveName() string {
	c := e.active.Load()
	if c == nil {
		return ""
	}
	return (*c).Name()
}

// Infer routes the extraction result to the active classifier. Returns an
// empty result if no classifier is active.
func (e *Engine) Infer(in *extract.Result) (*classify.Result, error) {
	active := e.active.Load()
	if active == nil {
		return classify.Empty(), nil
	}

	start := time.Now()
	res, err := (*active).Classify(in)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	e.mu.Lock()
	e.latencies = append(e.latencies, latencyMs)
	if len(e.latencies) > 100 {
		e.latencies = e.latencies[len(e.latencies)-100:]
	}
	e.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("infer: classify failed: %w", err)
	}
	res.LatencyMs = latencyMs
	return res, nil
}

// AvgLatencyMs returns the rolling average inference latency over the
// last 100 samples.
func (e *Engine) AvgLatencyMs() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.latencies) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range e.latencies {
		sum += l
	}
	return sum / float64(len(e.latencies))
}
