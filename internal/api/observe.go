// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/trustlens/internal/anomaly"
	"github.com/tomtom215/trustlens/internal/events"
	"github.com/tomtom215/trustlens/internal/logging"
	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
)

type observationKeyType struct{}

var observationKey observationKeyType

// requestObservation accumulates per-request facts the handlers learn
// mid-flight: which domain was checked and with what verdict. It rides
// the request context as a pointer so handler writes are visible to the
// middleware afterwards.
type requestObservation struct {
	Domain    string
	Score     *int
	RiskLevel string
}

func observationFromContext(ctx context.Context) *requestObservation {
	obs, _ := ctx.Value(observationKey).(*requestObservation)
	return obs
}

// statusWriter captures the response status code for the observer.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Flush lets the SSE stream write through the capture.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// observe is the traffic self-observation middleware. Every API request
// becomes a request log row, a LOG_CREATED event and an anomaly engine
// observation. The log is written before the event is published so a
// subscriber reacting to LOG_CREATED always finds the row.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/metrics" || strings.HasPrefix(path, "/api/v1/health") ||
			strings.HasSuffix(path, "/stream") {
			next.ServeHTTP(w, r)
			return
		}

		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		obs := &requestObservation{}
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), observationKey, obs)))

		duration := time.Since(start)
		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, path, strconv.Itoa(status), duration)

		ip := clientIP(r)
		correlationID := logging.CorrelationIDFromContext(r.Context())
		log, err := h.stores.Logs.Create(r.Context(), models.RequestLog{
			APIKeyID:      r.Header.Get("X-API-Key"),
			UserID:        r.Header.Get("X-User-ID"),
			Endpoint:      path,
			Method:        r.Method,
			Domain:        obs.Domain,
			IPAddress:     ip,
			UserAgent:     r.UserAgent(),
			StatusCode:    status,
			DurationMs:    duration.Milliseconds(),
			RiskLevel:     obs.RiskLevel,
			Score:         obs.Score,
			CorrelationID: correlationID,
		})
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("record request log failed")
		} else {
			h.bus.Publish(events.TypeLogCreated, map[string]any{
				"log_id":      log.ID.String(),
				"endpoint":    log.Endpoint,
				"method":      log.Method,
				"domain":      log.Domain,
				"ip_address":  log.IPAddress,
				"status_code": log.StatusCode,
			}, correlationID)
		}

		h.anomaly.Ingest(anomaly.Observation{
			Time:       start,
			APIKeyID:   r.Header.Get("X-API-Key"),
			IPAddress:  ip,
			Endpoint:   path,
			Domain:     obs.Domain,
			StatusCode: status,
			Duration:   duration,
		})
	})
}

// clientIP returns the remote address without the port. RealIP runs
// earlier in the chain, so proxied requests already carry the real client.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 && !strings.HasSuffix(addr, "]") {
		host := addr[:i]
		return strings.Trim(host, "[]")
	}
	return addr
}
