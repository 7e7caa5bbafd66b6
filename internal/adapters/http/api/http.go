// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/statline/internal/adapters/repository"
	service "github.com/okian/statline/internal/app"
	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
)

// Shapes shared with the service layer.
type (
	SessionRequest = service.SessionRequest
	SessionView    = service.SessionView
	MoveResult     = service.MoveResult
	Stats          = service.Stats
)

// SessionDependencies is what the session routes need from the service.
type SessionDependencies interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionView, error)
	Initialize(ctx context.Context, id string, values []int) (bool, SessionView, error)
	Move(ctx context.Context, id string, position int, slot attribute.Slot) (MoveResult, error)
	Fill(ctx context.Context, id string) (int, SessionView, error)
	Reset(ctx context.Context, id string) (SessionView, error)
	State(ctx context.Context, id string) (SessionView, error)
	DeleteSession(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (<-chan engine.State, func(), error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	slotsHandler    *SlotsHandler
	sessionsHandler *SessionsHandler
	streamHandler   *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		slotsHandler:    NewSlotsHandler(),
		sessionsHandler: NewSessionsHandler(deps),
		streamHandler:   NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. Session routes carry their method
// in the pattern, so the mux answers 405 for the others.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/slots", MetricsMiddleware(s.slotsHandler.HandleGetSlots, "slots"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))

	mux.HandleFunc("GET /sessions/{id}", sessionRoute(s.sessionsHandler.HandleGet, "item"))
	mux.HandleFunc("DELETE /sessions/{id}", sessionRoute(s.sessionsHandler.HandleDelete, "item"))
	mux.HandleFunc("POST /sessions/{id}/initialize", sessionRoute(s.sessionsHandler.HandleInitialize, "initialize"))
	mux.HandleFunc("POST /sessions/{id}/moves", sessionRoute(s.sessionsHandler.HandleMove, "moves"))
	mux.HandleFunc("POST /sessions/{id}/fill", sessionRoute(s.sessionsHandler.HandleFill, "fill"))
	mux.HandleFunc("POST /sessions/{id}/reset", sessionRoute(s.sessionsHandler.HandleReset, "reset"))
	mux.HandleFunc("GET /sessions/{id}/stream", sessionRoute(s.streamHandler.HandleStream, "stream"))
}

// sessionRoute hands the {id} path value to h and labels metrics by action.
func sessionRoute(h func(http.ResponseWriter, *http.Request, string), action string) http.HandlerFunc {
	return MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, r.PathValue("id"))
	}, "sessions_"+action)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream error kinds to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, repository.ErrExists):
		writeError(w, http.StatusConflict, "conflict", WrapKind(op, ErrConflict, err))
	case errors.Is(err, engine.ErrPoolSize), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}
