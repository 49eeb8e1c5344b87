package orchestrator

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturesrv/internal/capture"
	"gesturesrv/internal/classify"
	"gesturesrv/internal/dispatch"
	"gesturesrv/internal/extract"
	"gesturesrv/internal/infer"
	"gesturesrv/internal/preprocess"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type failingExtractor struct{ fail bool }

func (f *failingExtractor) Extract(frame *preprocess.Result) (*extract.Result, error) {
	if f.fail {
		return nil, errors.New("extraction blew up")
	}
	return &extract.Result{}, nil
}
func (f *failingExtractor) Close() error { return nil }

type nopClassifier struct{}

func (nopClassifier) Name() string                    { return "nop" }
func (nopClassifier) Supported() []classify.GestureTag { return []classify.GestureTag{classify.None} }
func (nopClassifier) Reset()                           {}
func (nopClassifier) Classify(in *extract.Result) (*classify.Result, error) {
	return classify.Empty(), nil
}

func newTestOrchestrator(t *testing.T, ext extract.Extractor) (*Orchestrator, *capture.Buffer) {
	t.Helper()
	buf := capture.NewBuffer(5)
	reg := classify.NewRegistry()
	reg.Register(nopClassifier{})
	engine := infer.New(reg)
	require.NoError(t, engine.SetActive("nop"))

	deps := Deps{
		Source:       capture.New(capture.Config{Device: "/dev/null", FPS: 1}, buf, testLogger()),
		Buffer:       buf,
		Preprocessor: preprocess.New(preprocess.Options{TargetWidth: 4, TargetHeight: 4}),
		Extractor:    ext,
		Engine:       engine,
		Dispatcher:   dispatch.New(testLogger(), 0),
		Actuators:    dispatch.NewActuatorSet(testLogger()),
	}

	cfg := DefaultConfig()
	cfg.TargetFPS = 1000
	cfg.MaxConsecutiveErrors = 3
	cfg.ErrorCooldown = time.Millisecond
	cfg.FrameTimeout = 20 * time.Millisecond

	return New(cfg, deps, testLogger()), buf
}

func TestOrchestrator_ProcessesFrameAndTracksMetrics(t *testing.T) {
	orch, buf := newTestOrchestrator(t, &failingExtractor{fail: false})
	orch.currentProject = "nop"

	buf.Push(&capture.Frame{Width: 4, Height: 4, Channels: 3, Pixels: make([]byte, 4*4*3)})
	require.NoError(t, orch.processFrame(mustPop(t, buf)))

	snap := orch.Metrics()
	assert.Equal(t, uint64(1), snap.FramesProcessed)
	assert.GreaterOrEqual(t, snap.TotalLatencyMs, 0.0)
}

func TestOrchestrator_ErrorThresholdTransitionsToError(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &failingExtractor{fail: true})
	orch.setState(Running)

	for i := 0; i < 2; i++ {
		orch.handleError(errors.New("boom"))
		assert.Equal(t, Running, orch.State(), "one fewer than threshold must still be Running")
	}
	orch.handleError(errors.New("boom"))
	assert.Equal(t, Error, orch.State())
}

func TestOrchestrator_SyncDroppedMetricReflectsBufferOverflow(t *testing.T) {
	orch, buf := newTestOrchestrator(t, &failingExtractor{fail: false})

	for i := 0; i < 8; i++ {
		buf.Push(&capture.Frame{Width: 4, Height: 4, Channels: 3, Pixels: make([]byte, 4*4*3)})
	}
	require.Greater(t, buf.Stats().Dropped, uint64(0), "pushing past capacity must drop frames")

	orch.syncDroppedMetric()
	assert.Equal(t, buf.Stats().Dropped, orch.Metrics().FramesDropped)

	orch.syncDroppedMetric()
	assert.Equal(t, buf.Stats().Dropped, orch.Metrics().FramesDropped, "repeated sync must not double-count")
}

func mustPop(t *testing.T, buf *capture.Buffer) *capture.Frame {
	t.Helper()
	f, ok := buf.Pop(time.Second)
	require.True(t, ok)
	return f
}
