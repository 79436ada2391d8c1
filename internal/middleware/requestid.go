// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package middleware provides HTTP middleware shared by the API surface:
// request ID propagation and response compression.
package middleware

import (
	"net/http"

	"github.com/tomtom215/trustlens/internal/logging"
)

// RequestID assigns every request a unique ID, honoring one supplied by
// an upstream proxy. The ID is echoed in the X-Request-ID response
// header and stored in the request context for logging. A fresh
// correlation ID is minted alongside it so follow-on events and flags
// can be traced back to the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
