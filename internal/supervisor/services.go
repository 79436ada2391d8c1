// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/trustlens/internal/logging"
)

// HTTPServer runs an http.Server as a suture service: it serves until
// the context is cancelled, then shuts down gracefully within the
// timeout.
type HTTPServer struct {
	addr            string
	handler         http.Handler
	readTimeout     time.Duration
	shutdownTimeout time.Duration
}

// NewHTTPServer wraps the handler for supervision.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, shutdownTimeout time.Duration) *HTTPServer {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServer{
		addr:            addr,
		handler:         handler,
		readTimeout:     readTimeout,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
func (s *HTTPServer) Serve(ctx context.Context) error {
	// WriteTimeout stays 0: the SSE stream holds its connection open
	// indefinitely. Slow-client protection comes from the read timeouts.
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger := logging.With().Str("component", "http").Logger()
	logger.Info().
		Str("addr", s.addr).
		Msg("http server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (s *HTTPServer) String() string {
	return "http-server"
}

// ServiceFunc adapts a run function to suture.Service with a stable name.
type ServiceFunc struct {
	Name string
	Run  func(ctx context.Context) error
}

// Serve implements suture.Service.
func (s ServiceFunc) Serve(ctx context.Context) error {
	return s.Run(ctx)
}

func (s ServiceFunc) String() string {
	return s.Name
}
