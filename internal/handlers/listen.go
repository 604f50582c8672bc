package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/radiocast/backend/internal/broadcast"
	"github.com/radiocast/backend/internal/middleware"
	"github.com/radiocast/backend/internal/models"
	"github.com/radiocast/backend/internal/presence"
)

// ListenHandler serves the live listener stream. Each open stream registers a
// connection with the presence tracker under its origin identity, so several
// tabs or overlapping reconnects from one client count as a single listener.
type ListenHandler struct {
	tracker *presence.Tracker
	hub     *broadcast.Hub
}

// NewListenHandler creates a ListenHandler.
func NewListenHandler(tracker *presence.Tracker, hub *broadcast.Hub) *ListenHandler {
	return &ListenHandler{tracker: tracker, hub: hub}
}

// Events opens an SSE connection. It sends an initial "connected" event with
// the current listener count, then pushes "listeners_changed" events as the
// count transitions. A heartbeat comment is sent every 30 seconds to keep the
// connection alive through proxies.
func (h *ListenHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	origin := middleware.OriginID(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before registering so this connection's own 0→1 transition
	// (if it is the origin's first) is delivered to it as well.
	ch := h.hub.Subscribe(broadcast.TopicListeners)
	defer h.hub.Unsubscribe(broadcast.TopicListeners, ch)

	first := h.tracker.Register(origin)
	defer h.tracker.Unregister(origin)

	slog.Debug("listener stream opened",
		slog.String("origin", origin),
		slog.Bool("first_for_origin", first))

	fmt.Fprintf(w, "event: connected\ndata: {\"count\":%d}\n\n", h.tracker.Listeners())
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch:
			fmt.Fprintf(w, "event: listeners_changed\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// Count handles GET /api/listeners with a snapshot of the global count.
func (h *ListenHandler) Count(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ListenerCountResponse{Count: h.tracker.Listeners()})
}
