// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package api

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/trustlens/internal/events"
	"github.com/tomtom215/trustlens/internal/logging"
	"github.com/tomtom215/trustlens/internal/metrics"
)

// streamBuffer bounds the per-client event queue. A client that cannot
// keep up loses events rather than stalling the bus; the replay cursor
// lets it recover on reconnect.
const streamBuffer = 64

// StreamEvents serves the realtime event stream over SSE. A client that
// reconnects with Last-Event-ID gets the missed history replayed before
// live events resume.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	metrics.SSEConnections.Inc()
	defer metrics.SSEConnections.Dec()

	// Subscribe before replaying: events published during the replay land
	// in the buffer and are delivered afterwards, nothing is lost. The
	// replay may then overlap the live queue; duplicates are acceptable,
	// gaps are not.
	queue := make(chan events.Event, streamBuffer)
	unsubscribe := h.bus.Subscribe(func(event events.Event) {
		select {
		case queue <- event:
		default:
		}
	})
	defer unsubscribe()

	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" {
		for _, event := range h.bus.EventsSince(lastID) {
			if err := writeSSE(w, event); err != nil {
				return
			}
		}
	}
	flusher.Flush()

	keepAlive := h.cfg.Events.KeepAliveInterval
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	logging.Ctx(r.Context()).Debug().Msg("event stream opened")
	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-queue:
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
	return err
}
