package orchestrator

import (
	"sync"
	"time"
)

const windowSize = 100

// latencyWindow is a single-writer rolling window of the last windowSize
// samples; record and avg both hold its mutex, so a read never overlaps
// a write.
type latencyWindow struct {
	mu      sync.Mutex
	samples []float64
}

func (w *latencyWindow) record(ms float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, ms)
	if len(w.samples) > windowSize {
		w.samples = w.samples[len(w.samples)-windowSize:]
	}
}

func (w *latencyWindow) avg() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s
	}
	return sum / float64(len(w.samples))
}

// Metrics holds the Orchestrator's rolling latency windows, error and
// frame counters, and a sliding-window FPS estimate.
type Metrics struct {
	preprocessing latencyWindow
	extraction    latencyWindow
	inference     latencyWindow
	output        latencyWindow
	total         latencyWindow

	mu              sync.Mutex
	framesProcessed uint64
	framesDropped   uint64
	errorsCount     uint64
	frameTimes      []time.Time
	fps             float64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordStage(preMs, extMs, infMs, outMs, totalMs float64) {
	m.preprocessing.record(preMs)
	m.extraction.record(extMs)
	m.inference.record(infMs)
	m.output.record(outMs)
	m.total.record(totalMs)

	m.mu.Lock()
	m.framesProcessed++
	m.mu.Unlock()
}

func (m *Metrics) recordError() {
	m.mu.Lock()
	m.errorsCount++
	m.mu.Unlock()
}

func (m *Metrics) recordDropped() {
	m.mu.Lock()
	m.framesDropped++
	m.mu.Unlock()
}

// updateFPS keeps a sliding 1-second window of frame completion times and
// recomputes fps as the count of samples within that window.
func (m *Metrics) updateFPS(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frameTimes = append(m.frameTimes, now)
	cutoff := now.Add(-1 * time.Second)
	i := 0
	for i < len(m.frameTimes) && m.frameTimes[i].Before(cutoff) {
		i++
	}
	m.frameTimes = m.frameTimes[i:]
	if len(m.frameTimes) >= 2 {
		m.fps = float64(len(m.frameTimes))
	}
}

// Snapshot is a point-in-time, rounded view of the metrics.
type Snapshot struct {
	PreprocessingLatencyMs float64
	ExtractionLatencyMs    float64
	InferenceLatencyMs     float64
	OutputLatencyMs        float64
	TotalLatencyMs         float64
	FramesProcessed        uint64
	FramesDropped          uint64
	ErrorsCount            uint64
	FPS                    float64
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// Snapshot returns a rounded snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	fps := m.fps
	processed := m.framesProcessed
	dropped := m.framesDropped
	errs := m.errorsCount
	m.mu.Unlock()

	return Snapshot{
		PreprocessingLatencyMs: round2(m.preprocessing.avg()),
		ExtractionLatencyMs:    round2(m.extraction.avg()),
		InferenceLatencyMs:     round2(m.inference.avg()),
		OutputLatencyMs:        round2(m.output.avg()),
		TotalLatencyMs:         round2(m.total.avg()),
		FramesProcessed:        processed,
		FramesDropped:          dropped,
		ErrorsCount:            errs,
		FPS:                    round1(fps),
	}
}
