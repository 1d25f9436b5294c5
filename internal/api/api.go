// Package api is the net/http management surface the core exposes per
// SPEC_FULL §12: status, OpenAPI endpoint listing, per-server health,
// start/stop/restart/reload, and secret management. The HTML dashboard and
// auth/rate-limit/CORS middleware remain out of scope (spec §1) — this
// package only guarantees the routes and response shapes exist.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/secretstore"
	"github.com/mcp-supervisor/mcp-supervisor/internal/supervisor"
)

// DesiredSource supplies the current desired set, e.g. the config loader's
// last-seen value kept fresh by the watcher.
type DesiredSource func() catalogconfig.DesiredSet

// Server wires the supervisor and secret store behind the §6.3 routes. It
// is a thin dispatcher: every handler validates the request shape and
// delegates straight to the supervisor or store.
type Server struct {
	Supervisor *supervisor.Supervisor
	Secrets    *secretstore.Store
	Desired    DesiredSource
	Reload     func()
}

// Handler builds the http.Handler serving every route in §12. Routing uses
// the stdlib 1.22+ http.ServeMux method+wildcard patterns, matching the
// teacher's own preference for stdlib over a router dependency for a
// handful of REST routes (DESIGN.md has the justification).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/openapi-endpoints", s.handleOpenAPIEndpoints)
	mux.HandleFunc("GET /api/health/{serverId}", s.handleHealth)

	mux.HandleFunc("POST /api/servers/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/servers/{id}/stop", s.handleStop)
	mux.HandleFunc("POST /api/servers/{id}/restart", s.handleRestart)

	mux.HandleFunc("POST /api/reload", s.handleReload)

	mux.HandleFunc("GET /api/secrets/{id}", s.handleSecretSummary)
	mux.HandleFunc("PUT /api/secrets/{id}/{key}", s.handleSecretSet)
	mux.HandleFunc("DELETE /api/secrets/{id}/{key}", s.handleSecretUnset)
	mux.HandleFunc("DELETE /api/secrets/{id}", s.handleSecretDeleteAll)

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.Supervisor.Status(s.Desired())
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleOpenAPIEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints := s.Supervisor.OpenAPIEndpoints(s.Desired())
	writeJSON(w, http.StatusOK, endpoints)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("serverId")
	metrics, ok := s.Supervisor.HealthMetrics(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no health history for "+id)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) specOrNotFound(w http.ResponseWriter, id string) (catalogconfig.ServerSpec, bool) {
	desired := s.Desired()
	spec, ok := desired[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown server "+id)
		return catalogconfig.ServerSpec{}, false
	}
	return spec, true
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.specOrNotFound(w, r.PathValue("id"))
	if !ok {
		return
	}
	proc := s.Supervisor.StartServer(r.Context(), spec)
	writeJSON(w, http.StatusOK, proc)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Supervisor.StopServer(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.specOrNotFound(w, r.PathValue("id"))
	if !ok {
		return
	}
	proc := s.Supervisor.Restart(r.Context(), spec)
	writeJSON(w, http.StatusOK, proc)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.Reload != nil {
		s.Reload()
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSecretSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	summary, err := s.Secrets.Summary(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type setSecretRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSecretSet(w http.ResponseWriter, r *http.Request) {
	id, key := r.PathValue("id"), r.PathValue("key")

	var body setSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	vars, err := s.Secrets.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if vars == nil {
		vars = map[string]string{}
	}
	vars[key] = body.Value

	if err := s.Secrets.Save(id, vars); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSecretUnset(w http.ResponseWriter, r *http.Request) {
	id, key := r.PathValue("id"), r.PathValue("key")

	vars, err := s.Secrets.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	delete(vars, key)

	if err := s.Secrets.Save(id, vars); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSecretDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Secrets.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
