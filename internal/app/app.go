// Package app wires every collaborator into a single runnable context,
// avoiding process-global state: the caller builds one App per process
// and everything downstream is constructed from it and injected
// explicitly.
package app

import (
	"log"
	"net/http"
	"time"

	"gesturesrv/internal/auth"
	"gesturesrv/internal/capture"
	"gesturesrv/internal/classify"
	"gesturesrv/internal/classify/fingercount"
	"gesturesrv/internal/classify/mouse"
	"gesturesrv/internal/classify/volume"
	"gesturesrv/internal/config"
	"gesturesrv/internal/control"
	"gesturesrv/internal/dispatch"
	"gesturesrv/internal/extract"
	"gesturesrv/internal/hub"
	"gesturesrv/internal/infer"
	"gesturesrv/internal/orchestrator"
	"gesturesrv/internal/preprocess"
	"gesturesrv/internal/projectstore"
)

// App bundles every top-level component of a running gesturesrv process.
type App struct {
	Config       config.Config
	Logger       *log.Logger
	Store        *projectstore.Store
	Orchestrator *orchestrator.Orchestrator
	Hub          *hub.Hub
	Control      *control.Router
}

// Options are the external dependencies an App needs beyond the
// configuration: a logger, a database path, and the extractor
// implementation (the real hand-landmark model, or extract.NewNop for
// environments without one).
type Options struct {
	Logger      *log.Logger
	DBPath      string
	CameraDevice string
	Extractor   extract.Extractor
}

// New constructs and wires a complete App: capture, preprocess, extract,
// classify registry, inference engine, dispatcher, hub, orchestrator,
// project store, and control router. No component here reaches for
// process-global state; everything is passed down from this function.
func New(cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	store, err := projectstore.New(opts.DBPath)
	if err != nil {
		return nil, err
	}

	if err := seedDefaultProjects(store); err != nil {
		store.Close()
		return nil, err
	}

	buf := capture.NewBuffer(cfg.PipelineBufferSize)
	source := capture.New(capture.Config{
		Device: opts.CameraDevice,
		Width:  cfg.CameraWidth,
		Height: cfg.CameraHeight,
		FPS:    cfg.TargetFPS,
	}, buf, logger)

	pre := preprocess.New(preprocess.Options{
		TargetWidth:  cfg.CameraWidth,
		TargetHeight: cfg.CameraHeight,
		Normalize:    true,
	})

	extractor := opts.Extractor
	if extractor == nil {
		extractor = extract.NewNop(cfg.MaxHands)
	}

	registry := classify.NewRegistry()
	registry.Register(fingercount.New(fingercount.DefaultConfig()))
	registry.Register(volume.New(volume.DefaultConfig()))
	registry.Register(mouse.New(mouse.DefaultConfig()))

	engine := infer.New(registry)

	disp := dispatch.New(logger, durationFromSeconds(cfg.GestureUpdateInterval))
	actuators := dispatch.NewActuatorSet(logger)

	orch := orchestrator.New(orchestrator.DefaultConfig(), orchestrator.Deps{
		Source:       source,
		Buffer:       buf,
		Preprocessor: pre,
		Extractor:    extractor,
		Engine:       engine,
		Dispatcher:   disp,
		Actuators:    actuators,
	}, logger)

	h := hub.New(logger, cfg.MaxWebSocketConnections, orch)
	disp.SubscribeGlobalAsync(func(ev dispatch.Event) {
		h.OnGestureEvent(ev.Project, ev.Timestamp, ev.Data)
	})

	authenticator := auth.NewAuthenticator(logger)
	ctrl := control.New(logger, store, orch, authenticator)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Orchestrator: orch,
		Hub:          h,
		Control:      ctrl,
	}, nil
}

// Close releases the App's owned resources. It does not stop the
// orchestrator; callers should Stop() it first if running.
func (a *App) Close() error {
	return a.Store.Close()
}

// Handler returns the combined HTTP handler: the control API plus the
// websocket endpoint at /ws.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", a.Control.Handler())
	mux.HandleFunc("/ws", a.Hub.ServeHTTP)
	return mux
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func seedDefaultProjects(store *projectstore.Store) error {
	defaults := []struct {
		id, name string
	}{
		{"finger_count", "Finger Count"},
		{"volume_control", "Volume Control"},
		{"virtual_mouse", "Virtual Mouse"},
	}
	for _, d := range defaults {
		if _, err := store.GetProject(d.id); err == nil {
			continue
		}
		if err := store.SaveProject(&projectstore.ProjectRecord{
			ID:        d.id,
			Name:      d.name,
			Settings:  "{}",
			Enabled:   true,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
	}
	return nil
}
