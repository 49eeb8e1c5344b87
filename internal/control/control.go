// Package control implements the HTTP control surface: health probes,
// project registry CRUD, and pipeline start/stop/metrics, routed with
// go-chi/chi and guarded on mutating routes by JWT bearer auth.
package control

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gesturesrv/internal/auth"
	authmw "gesturesrv/internal/middleware"
	"gesturesrv/internal/orchestrator"
	"gesturesrv/internal/projectstore"
)

// Controller is the subset of orchestrator.Orchestrator the control
// surface drives directly, kept as an interface to ease testing.
type Controller interface {
	SelectProject(project string) error
	StartProject(project string) error
	StopProject(project string) error
	State() orchestrator.State
	CurrentProject() string
	Metrics() orchestrator.Snapshot
}

// Router builds the chi router backing the control API.
type Router struct {
	logger        *log.Logger
	store         *projectstore.Store
	orch          Controller
	authenticator *auth.Authenticator
	startedAt     time.Time
}

// New constructs a Router. authenticator may have auth disabled, in which
// case AuthMiddleware is a no-op passthrough.
func New(logger *log.Logger, store *projectstore.Store, orch Controller, authenticator *auth.Authenticator) *Router {
	return &Router{
		logger:        logger,
		store:         store,
		orch:          orch,
		authenticator: authenticator,
		startedAt:     time.Now(),
	}
}

// Handler assembles the full chi.Mux for the control API.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", rt.handleHealthz)
	r.Get("/readyz", rt.handleReadyz)
	r.Get("/livez", rt.handleLivez)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", rt.handleListProjects)
		r.Get("/{id}", rt.handleGetProject)
		r.Get("/{id}/metrics", rt.handleProjectMetrics)

		r.Group(func(r chi.Router) {
			r.Use(authmw.AuthMiddleware(rt.authenticator))
			r.Put("/{id}/settings", rt.handleUpdateSettings)
			r.Post("/{id}/start", rt.handleStartProject)
			r.Post("/{id}/stop", rt.handleStopProject)
		})
	})

	return r
}

func (rt *Router) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(rt.startedAt).Seconds(),
	})
}

// handleReadyz reports ready whenever the orchestrator isn't in the
// terminal Error state; whether a project is selected is not checked.
func (rt *Router) handleReadyz(w http.ResponseWriter, r *http.Request) {
	state := rt.orch.State()
	if state == orchestrator.Error {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "state": state})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "state": state})
}

func (rt *Router) handleLivez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

func (rt *Router) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := rt.store.ListProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (rt *Router) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := rt.store.GetProject(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rt *Router) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var settings map[string]any
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := rt.store.UpdateProjectSettings(id, settings); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if rt.orch.CurrentProject() == id {
		if err := rt.orch.SelectProject(id); err != nil {
			rt.logger.Printf("[control] re-select after settings update failed: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (rt *Router) handleStartProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := rt.store.GetProject(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := rt.orch.StartProject(id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "started", "project": id})
}

func (rt *Router) handleStopProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := rt.orch.StopProject(id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped", "project": id})
}

func (rt *Router) handleProjectMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if rt.orch.CurrentProject() != id {
		writeJSON(w, http.StatusOK, orchestrator.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, rt.orch.Metrics())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
