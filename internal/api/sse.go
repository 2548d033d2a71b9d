package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fangio/fangio/internal/schema"
)

// subscriberBuffer bounds the per-connection event queue. A consumer that
// falls this far behind starts losing events rather than blocking emission.
const subscriberBuffer = 256

const keepAliveInterval = 30 * time.Second

// handleEvents streams a plan's events over SSE: first a backfill of all
// currently-known events, then live events until the client disconnects.
// Backfill is drained before subscribing, so the bus never redelivers
// events the backfill already covered.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	planID := r.URL.Query().Get("planId")
	if planID == "" {
		writeError(w, http.StatusBadRequest, "planId query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, evt := range s.store.Events(planID) {
		writeSSE(w, evt)
	}
	flusher.Flush()

	// Bridge bus callbacks onto a channel owned by this handler goroutine.
	// The bus dispatches synchronously; a full buffer drops the event for
	// this subscriber instead of stalling the emitting run.
	live := make(chan schema.AuditEvent, subscriberBuffer)
	subID := s.store.Bus().Subscribe(planID, func(evt schema.AuditEvent) {
		select {
		case live <- evt:
		default:
			s.log.Warn("dropping event for slow subscriber", "plan_id", planID)
		}
	})
	defer s.store.Bus().Unsubscribe(subID)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-live:
			writeSSE(w, evt)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, evt schema.AuditEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
}
