package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/statline/internal/domain/attribute"
)

const maxBodyBytes = 1 << 16

// SessionsHandler handles the session resource and its actions.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// decodeBody reads an optional JSON body into v. An empty body leaves v as is.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req SessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.CreateSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.deps.State(r.Context(), id)
	if err != nil {
		writeServiceError(w, "api.get_session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.deps.DeleteSession(r.Context(), id); err != nil {
		writeServiceError(w, "api.delete_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type initializeRequest struct {
	Values []int `json:"values"`
}

type initializeResponse struct {
	Initialized bool        `json:"initialized"`
	Session     SessionView `json:"session"`
}

// HandleInitialize handles POST /sessions/{id}/initialize.
func (h *SessionsHandler) HandleInitialize(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.initialize"
	var req initializeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	applied, view, err := h.deps.Initialize(r.Context(), id, req.Values)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, initializeResponse{Initialized: applied, Session: view})
}

// moveRequest names a move either directly or by drag-and-drop element ids.
type moveRequest struct {
	Position *int   `json:"position,omitempty"`
	Slot     string `json:"slot,omitempty"`
	Source   string `json:"source,omitempty"`
	Target   string `json:"target,omitempty"`
}

func (m moveRequest) resolve() (int, attribute.Slot, error) {
	if m.Source != "" || m.Target != "" {
		if m.Position != nil || m.Slot != "" {
			return 0, "", errors.New("use either position/slot or source/target")
		}
		pos, err := ParseSourceID(m.Source)
		if err != nil {
			return 0, "", err
		}
		slot, err := ParseTargetID(m.Target)
		if err != nil {
			return 0, "", err
		}
		return pos, slot, nil
	}
	switch {
	case m.Position == nil:
		return 0, "", errors.New("missing position")
	case strings.TrimSpace(m.Slot) == "":
		return 0, "", errors.New("missing slot")
	}
	return *m.Position, slotOf(strings.TrimSpace(m.Slot)), nil
}

// HandleMove handles POST /sessions/{id}/moves. Rejected moves answer 200
// with applied=false and the outcome.
func (h *SessionsHandler) HandleMove(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.move"
	var req moveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	pos, slot, err := req.resolve()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Move(r.Context(), id, pos, slot)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type fillResponse struct {
	Applied int         `json:"applied"`
	Session SessionView `json:"session"`
}

// HandleFill handles POST /sessions/{id}/fill.
func (h *SessionsHandler) HandleFill(w http.ResponseWriter, r *http.Request, id string) {
	n, view, err := h.deps.Fill(r.Context(), id)
	if err != nil {
		writeServiceError(w, "api.fill", err)
		return
	}
	writeJSON(w, http.StatusOK, fillResponse{Applied: n, Session: view})
}

// HandleReset handles POST /sessions/{id}/reset.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.deps.Reset(r.Context(), id)
	if err != nil {
		writeServiceError(w, "api.reset", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SlotsHandler lists the attribute catalogue.
type SlotsHandler struct{}

// NewSlotsHandler creates a new slots handler.
func NewSlotsHandler() *SlotsHandler { return &SlotsHandler{} }

type slotResponse struct {
	Slot   attribute.Slot `json:"slot"`
	Name   string         `json:"name"`
	Index  int            `json:"index"`
	Target string         `json:"target"`
	Label  string         `json:"label"`
}

// HandleGetSlots handles GET /slots.
func (h *SlotsHandler) HandleGetSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	slots := attribute.All()
	out := make([]slotResponse, len(slots))
	for i, s := range slots {
		out[i] = slotResponse{
			Slot:   s,
			Name:   s.Name(),
			Index:  s.Index(),
			Target: TargetID(s),
			Label:  fmt.Sprintf("%s (%s)", s.Name(), s),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
