// Package classify defines the classifier plug-in contract shared by
// finger-count, volume-control, and virtual-mouse classifiers, plus the
// registry used by the inference engine.
package classify

import (
	"fmt"
	"sync"

	"gesturesrv/internal/extract"
)

// GestureTag is the stable wire enum. The wire vocabulary is fixed;
// classifiers only ever emit a subset of it.
type GestureTag string

const (
	None       GestureTag = "none"
	FingerCount GestureTag = "finger_count"
	Pinch      GestureTag = "pinch"
	SwipeLeft  GestureTag = "swipe_left"
	SwipeRight GestureTag = "swipe_right"
	SwipeUp    GestureTag = "swipe_up"
	SwipeDown  GestureTag = "swipe_down"
	ThumbsUp   GestureTag = "thumbs_up"
	ThumbsDown GestureTag = "thumbs_down"
	Fist       GestureTag = "fist"
	OpenPalm   GestureTag = "open_palm"
	Peace      GestureTag = "peace"
	OKSign     GestureTag = "ok_sign"
	Pointing   GestureTag = "pointing"
)

// FingerStates is the five-boolean up/down vector for a single hand.
type FingerStates struct {
	Thumb, Index, Middle, Ring, Pinky bool
}

// Count returns the popcount of the finger states.
func (f FingerStates) Count() int {
	n := 0
	for _, up := range []bool{f.Thumb, f.Index, f.Middle, f.Ring, f.Pinky} {
		if up {
			n++
		}
	}
	return n
}

// CursorTarget is the mapped, filtered pointer position a virtual-mouse
// classifier emits.
type CursorTarget struct {
	X, Y float64
}

// Result is the Inference Result: bounded to a single frame iteration.
type Result struct {
	GestureType   GestureTag
	Confidence    float64
	LatencyMs     float64
	FingerCount   int
	FingerStates  []FingerStates
	PinchDistance float64
	Cursor        *CursorTarget
	Aux           map[string]any
}

// Empty builds the canonical zero-hand result: gesture_type=none,
// finger_count=0, confidence=0.
func Empty() *Result {
	return &Result{GestureType: None, Confidence: 0, FingerCount: 0, Aux: map[string]any{}}
}

// Classifier is the capability interface every plug-in implements: a
// unique name, the gesture tags it can emit, a per-frame classify step,
// and a reset that clears all temporal state. Implementations must be
// deterministic given their temporal state and input sequence.
type Classifier interface {
	Name() string
	Supported() []GestureTag
	Classify(in *extract.Result) (*Result, error)
	Reset()
}

// Registry is a name-keyed set of classifiers (map + RWMutex).
type Registry struct {
	mu         sync.RWMutex
	classifiers map[string]Classifier
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classifiers: make(map[string]Classifier)}
}

// Register adds a classifier under its own name. Re-registering the same
// name replaces the existing entry.
func (r *Registry) Register(c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifiers[c.Name()] = c
}

// Unregister removes a classifier by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.classifiers, name)
}

// Get returns the named classifier, or false if it is not registered.
func (r *Registry) Get(name string) (Classifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classifiers[name]
	return c, ok
}

// Names returns all registered classifier names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classifiers))
	for n := range r.classifiers {
		names = append(names, n)
	}
	return names
}

// ErrNotFound is returned when a name has no registered classifier.
var ErrNotFound = fmt.Errorf("classifier not found")
