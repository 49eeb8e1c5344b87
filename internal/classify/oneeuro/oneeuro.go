// Package oneeuro implements the One-Euro adaptive low-pass filter for
// smoothing noisy, jittery signals like cursor position.
package oneeuro

import "math"

// lowPass is a simple exponential low-pass filter with a remembered last
// output value.
type lowPass struct {
	hasLast bool
	last    float64
}

func (f *lowPass) filter(value, alpha float64) float64 {
	var result float64
	if f.hasLast {
		result = alpha*value + (1-alpha)*f.last
	} else {
		result = value
	}
	f.hasLast = true
	f.last = result
	return result
}

func (f *lowPass) reset() {
	f.hasLast = false
	f.last = 0
}

// Filter is the 1-D One-Euro filter.
type Filter struct {
	freq      float64
	minCutoff float64
	beta      float64
	dCutoff   float64

	x  lowPass
	dx lowPass

	hasPrevX bool
	prevX    float64
	hasPrevT bool
	prevT    float64
}

// Params configures a Filter. Freq is the nominal sampling frequency used
// for the very first sample, before a real dt is observable.
type Params struct {
	Freq      float64
	MinCutoff float64
	Beta      float64
	DCutoff   float64
}

// New creates a 1-D One-Euro filter.
func New(p Params) *Filter {
	if p.Freq <= 0 {
		p.Freq = 30
	}
	if p.MinCutoff <= 0 {
		p.MinCutoff = 1.0
	}
	if p.DCutoff <= 0 {
		p.DCutoff = 1.0
	}
	return &Filter{freq: p.Freq, minCutoff: p.MinCutoff, beta: p.Beta, dCutoff: p.DCutoff}
}

func alpha(cutoff, freq float64) float64 {
	te := 1.0 / freq
	tau := 1.0 / (2 * math.Pi * cutoff)
	return 1.0 / (1.0 + tau/te)
}

// Filter applies the filter to a new sample x taken at timestamp
// (seconds). Returns the smoothed value.
func (f *Filter) Filter(x, timestamp float64) float64 {
	freq := f.freq
	if f.hasPrevT {
		dt := timestamp - f.prevT
		if dt > 0 {
			freq = 1.0 / dt
		}
	}
	f.prevT = timestamp
	f.hasPrevT = true

	prevX := x
	if f.hasPrevX {
		prevX = f.prevX
	}

	dx := (x - prevX) * freq
	edx := f.dx.filter(dx, alpha(f.dCutoff, freq))

	cutoff := f.minCutoff + f.beta*math.Abs(edx)

	result := f.x.filter(x, alpha(cutoff, freq))

	f.prevX = x
	f.hasPrevX = true

	return result
}

// Reset clears all internal state.
func (f *Filter) Reset() {
	f.x.reset()
	f.dx.reset()
	f.hasPrevX = false
	f.prevX = 0
	f.hasPrevT = false
	f.prevT = 0
}

// Filter2D applies two independent Filter instances to x and y, sharing
// the same timestamp per sample.
type Filter2D struct {
	fx *Filter
	fy *Filter
}

// New2D creates a 2-D One-Euro filter.
func New2D(p Params) *Filter2D {
	return &Filter2D{fx: New(p), fy: New(p)}
}

// Filter applies the filter to a new (x,y) sample.
func (f *Filter2D) Filter(x, y, timestamp float64) (float64, float64) {
	return f.fx.Filter(x, timestamp), f.fy.Filter(y, timestamp)
}

// Reset clears all internal state on both axes.
func (f *Filter2D) Reset() {
	f.fx.Reset()
	f.fy.Reset()
}
