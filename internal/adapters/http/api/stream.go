package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/statline/internal/domain/engine"
)

const streamHeartbeatInterval = 15 * time.Second

// StreamDependencies is what the live stream needs from the service.
type StreamDependencies interface {
	Subscribe(ctx context.Context, id string) (<-chan engine.State, func(), error)
}

// StreamHandler serves a session's state as Server-Sent Events.
type StreamHandler struct {
	deps      StreamDependencies
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps, heartbeat: streamHeartbeatInterval}
}

// HandleStream handles GET /sessions/{id}/stream. Each state is sent as a
// "state" event whose id is the epoch; a comment line keeps idle connections
// open. The stream ends when the client leaves or the session is removed.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.stream"
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
		return
	}

	ctx := r.Context()
	states, cancel, err := h.deps.Subscribe(ctx, id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	defer cancel()

	// the server's write timeout would otherwise cut long-lived streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case st, ok := <-states:
			if !ok {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: state\nid: %d\ndata: %s\n\n", st.Epoch, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
