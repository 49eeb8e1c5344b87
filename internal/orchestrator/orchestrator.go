// Package orchestrator implements the pipeline state machine coordinating
// start/stop/switch/pause, the per-frame stage-chain loop, and the
// error-recovery policy.
package orchestrator

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gesturesrv/internal/capture"
	"gesturesrv/internal/classify"
	"gesturesrv/internal/dispatch"
	"gesturesrv/internal/extract"
	"gesturesrv/internal/infer"
	"gesturesrv/internal/preprocess"
)

// State is the Orchestrator's lifecycle state.
type State string

const (
	Idle         State = "idle"
	Initializing State = "initializing"
	Running      State = "running"
	Paused       State = "paused"
	Stopping     State = "stopping"
	Stopped      State = "stopped"
	Error        State = "error"
)

// Config holds the orchestrator's pacing and error-policy knobs.
type Config struct {
	TargetFPS            int
	MaxConsecutiveErrors int
	ErrorCooldown        time.Duration
	FrameTimeout         time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TargetFPS:            30,
		MaxConsecutiveErrors: 10,
		ErrorCooldown:        time.Second,
		FrameTimeout:         100 * time.Millisecond,
	}
}

// Orchestrator wires the full stage chain and owns the per-frame loop.
// Only a single goroutine ever runs the loop at a time, so classifier
// state under the Inference Engine needs no locking beyond its own
// atomic active-pointer swap.
type Orchestrator struct {
	cfg    Config
	logger *log.Logger

	source       *capture.Source
	buffer       *capture.Buffer
	preprocessor *preprocess.Preprocessor
	extractor    extract.Extractor
	engine       *infer.Engine
	dispatcher   *dispatch.Dispatcher
	actuators    *dispatch.ActuatorSet

	metrics *Metrics

	mu                sync.RWMutex
	state             State
	currentProject    string
	consecutiveErrors int
	lastDropped       uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// Deps bundles the collaborators an Orchestrator is constructed from,
// avoiding process-global singletons: callers build a context and
// inject it.
type Deps struct {
	Source       *capture.Source
	Buffer       *capture.Buffer
	Preprocessor *preprocess.Preprocessor
	Extractor    extract.Extractor
	Engine       *infer.Engine
	Dispatcher   *dispatch.Dispatcher
	Actuators    *dispatch.ActuatorSet
}

// New creates an Orchestrator in the Idle state.
func New(cfg Config, deps Deps, logger *log.Logger) *Orchestrator {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 10
	}
	if cfg.ErrorCooldown <= 0 {
		cfg.ErrorCooldown = time.Second
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = 100 * time.Millisecond
	}

	return &Orchestrator{
		cfg:          cfg,
		logger:       logger,
		source:       deps.Source,
		buffer:       deps.Buffer,
		preprocessor: deps.Preprocessor,
		extractor:    deps.Extractor,
		engine:       deps.Engine,
		dispatcher:   deps.Dispatcher,
		actuators:    deps.Actuators,
		metrics:      newMetrics(),
		state:        Idle,
	}
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// CurrentProject returns the active project id, or "" if none.
func (o *Orchestrator) CurrentProject() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.currentProject
}

// Metrics returns a snapshot of the rolling pipeline metrics.
func (o *Orchestrator) Metrics() Snapshot {
	return o.metrics.Snapshot()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// SelectProject switches the active classifier while Running, as an
// atomic swap plus reset, without leaving the Running state.
// Implements hub.Controller.
func (o *Orchestrator) SelectProject(project string) error {
	if err := o.engine.SetActive(project); err != nil {
		return fmt.Errorf("select project %q: %w", project, err)
	}
	o.mu.Lock()
	o.currentProject = project
	o.mu.Unlock()
	return nil
}

// StartProject starts the pipeline against the given project. Implements
// hub.Controller.
func (o *Orchestrator) StartProject(project string) error {
	return o.Start(project)
}

// StopProject stops the pipeline. Implements hub.Controller.
func (o *Orchestrator) StopProject(project string) error {
	return o.Stop()
}

// Start transitions Idle →(start)→ Initializing →(capture ok & active
// classifier ok)→ Running, and spawns the per-frame loop goroutine.
func (o *Orchestrator) Start(project string) error {
	o.setState(Initializing)

	if err := o.engine.SetActive(project); err != nil {
		o.setState(Error)
		return fmt.Errorf("start: %w", err)
	}
	o.mu.Lock()
	o.currentProject = project
	o.consecutiveErrors = 0
	o.mu.Unlock()

	if err := o.source.Start(); err != nil {
		o.setState(Error)
		return fmt.Errorf("start: capture source: %w", err)
	}

	o.mu.Lock()
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	o.mu.Unlock()

	o.setState(Running)
	go o.loop()

	return nil
}

// Pause transitions Running →(pause)→ Paused.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	if o.state == Running {
		o.state = Paused
	}
	o.mu.Unlock()
}

// Resume transitions Paused →(resume)→ Running.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	if o.state == Paused {
		o.state = Running
	}
	o.mu.Unlock()
}

// Stop transitions any state →(stop)→ Stopping →(joined & cleaned)→
// Stopped. In-flight frames are discarded, not drained.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.state == Stopped || o.state == Idle {
		o.mu.Unlock()
		return nil
	}
	o.state = Stopping
	stopCh := o.stopCh
	doneCh := o.doneCh
	o.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if doneCh != nil {
		<-doneCh
	}

	if err := o.source.Stop(); err != nil {
		o.logger.Printf("[Orchestrator] capture stop error: %v", err)
	}
	o.actuators.Run(dispatch.Event{Type: "pipeline_stopped"}) // allow actuators to coalesce/cleanup

	o.setState(Stopped)
	return nil
}

func (o *Orchestrator) loop() {
	defer close(o.doneCh)

	frameInterval := time.Second / time.Duration(o.cfg.TargetFPS)

	for {
		select {
		case <-o.stopCh:
			return
		default:
		}

		if o.State() == Paused {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		iterStart := time.Now()

		o.syncDroppedMetric()

		frame, ok := o.buffer.Pop(o.cfg.FrameTimeout)
		if !ok {
			continue
		}

		if err := o.processFrame(frame); err != nil {
			o.handleError(err)
			if o.State() == Error {
				return
			}
			continue
		}

		o.mu.Lock()
		o.consecutiveErrors = 0
		o.mu.Unlock()

		elapsed := time.Since(iterStart)
		if remaining := frameInterval - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}
		o.metrics.updateFPS(time.Now())
	}
}

func (o *Orchestrator) processFrame(frame *capture.Frame) error {
	start := time.Now()

	preStart := time.Now()
	pre, err := o.preprocessor.Process(frame)
	preMs := msSince(preStart)
	if err != nil {
		o.metrics.recordError()
		return NewError("preprocessing_error", err.Error(), SeverityLow, nil)
	}

	extStart := time.Now()
	extracted, err := o.extractor.Extract(pre)
	extMs := msSince(extStart)
	if err != nil {
		o.metrics.recordError()
		return NewError("extraction_error", err.Error(), SeverityMedium, nil)
	}

	infStart := time.Now()
	result, err := o.engine.Infer(extracted)
	infMs := msSince(infStart)
	if err != nil {
		o.metrics.recordError()
		return NewError("inference_error", err.Error(), SeverityLow, nil)
	}

	outStart := time.Now()
	o.output(result)
	outMs := msSince(outStart)

	totalMs := msSince(start)
	o.metrics.recordStage(preMs, extMs, infMs, outMs, totalMs)

	return nil
}

// syncDroppedMetric reads the capture buffer's cumulative drop counter
// and folds the delta since the last call into the rolling metrics, so
// Snapshot().FramesDropped reflects frames the buffer discarded on
// overflow rather than staying permanently zero.
func (o *Orchestrator) syncDroppedMetric() {
	dropped := o.buffer.Stats().Dropped

	o.mu.Lock()
	delta := dropped - o.lastDropped
	o.lastDropped = dropped
	o.mu.Unlock()

	for i := uint64(0); i < delta; i++ {
		o.metrics.recordDropped()
	}
}

func (o *Orchestrator) output(result *classify.Result) {
	project := o.CurrentProject()
	data := map[string]any{
		"gesture_type": string(result.GestureType),
		"confidence":   result.Confidence,
	}
	for k, v := range result.Aux {
		data[k] = v
	}

	ev := dispatch.Event{
		Type:      "gesture_data",
		Project:   project,
		Timestamp: time.Now(),
		Data:      data,
	}
	o.dispatcher.Dispatch(ev)
	o.actuators.Run(ev)
}

// handleError increments the consecutive-error counter; once it reaches
// MaxConsecutiveErrors, it transitions to Error and stops capture,
// otherwise it sleeps ErrorCooldown and continues.
func (o *Orchestrator) handleError(err error) {
	o.metrics.recordError()

	o.mu.Lock()
	o.consecutiveErrors++
	exceeded := o.consecutiveErrors >= o.cfg.MaxConsecutiveErrors
	o.mu.Unlock()

	o.logger.Printf("[Orchestrator] frame error: %v", err)

	if exceeded {
		o.setState(Error)
		if stopErr := o.source.Stop(); stopErr != nil {
			o.logger.Printf("[Orchestrator] capture stop error after Error transition: %v", stopErr)
		}
		return
	}

	time.Sleep(o.cfg.ErrorCooldown)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
