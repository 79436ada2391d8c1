// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package api exposes the TrustLens engine over HTTP: risk checks,
// reputation, threat graphs, intel exports and the realtime event stream.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/trustlens/internal/anomaly"
	"github.com/tomtom215/trustlens/internal/config"
	"github.com/tomtom215/trustlens/internal/events"
	"github.com/tomtom215/trustlens/internal/graph"
	"github.com/tomtom215/trustlens/internal/logging"
	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/reputation"
	"github.com/tomtom215/trustlens/internal/risk"
	"github.com/tomtom215/trustlens/internal/storage"
)

const (
	maxDomainLength  = 253
	defaultFlagLimit = 100
	maxFlagLimit     = 500
)

// Handler bundles the engine services behind the HTTP surface.
type Handler struct {
	cfg        config.Config
	risk       *risk.Engine
	anomaly    *anomaly.Engine
	reputation *reputation.Service
	graph      *graph.Service
	stores     *storage.Stores
	bus        *events.Bus
}

// NewHandler wires the services into a handler set.
func NewHandler(
	cfg config.Config,
	riskEngine *risk.Engine,
	anomalyEngine *anomaly.Engine,
	reputationSvc *reputation.Service,
	graphSvc *graph.Service,
	stores *storage.Stores,
	bus *events.Bus,
) *Handler {
	return &Handler{
		cfg:        cfg,
		risk:       riskEngine,
		anomaly:    anomalyEngine,
		reputation: reputationSvc,
		graph:      graphSvc,
		stores:     stores,
		bus:        bus,
	}
}

type checkRequest struct {
	Domain string `json:"domain"`
}

// CheckDomain runs the risk engine against one domain and appends the
// verdict to the domain's history.
func (h *Handler) CheckDomain(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	domain := strings.TrimSpace(req.Domain)
	if err := validateDomainInput(domain); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	start := time.Now()
	result := h.risk.Evaluate(domain)
	metrics.RecordCheck(string(result.RiskLevel), time.Since(start))

	if obs := observationFromContext(r.Context()); obs != nil {
		score := result.Score
		obs.Domain = result.Domain
		obs.Score = &score
		obs.RiskLevel = string(result.RiskLevel)
	}

	if _, err := h.stores.History.Append(r.Context(), models.HistoryEntry{
		Domain:    result.Domain,
		Score:     result.Score,
		RiskLevel: string(result.RiskLevel),
		Factors:   result.RiskFactors,
	}); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("domain", result.Domain).
			Msg("append history failed")
	}

	respond(w, r, http.StatusOK, result)
}

// GetReputation serves the reputation view for a domain, computing it on
// first sight.
func (h *Handler) GetReputation(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if err := validateDomainInput(domain); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	view, err := h.reputation.Get(r.Context(), domain)
	if err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, view)
}

// RecomputeReputation forces a fresh reputation computation. Recompute is
// best effort: a failure (or an open circuit breaker) is logged and the
// request still succeeds, the persisted view keeps serving.
func (h *Handler) RecomputeReputation(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if err := validateDomainInput(domain); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	view, err := h.reputation.Compute(r.Context(), domain)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("domain", domain).
			Msg("reputation recompute skipped")
		respond(w, r, http.StatusAccepted, map[string]any{
			"domain":     domain,
			"recomputed": false,
		})
		return
	}
	respond(w, r, http.StatusOK, view)
}

type feedbackRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Comment  string `json:"comment"`
}

// CreateFeedback records a community report about a domain. New reports
// start PENDING; only approved reports influence reputation.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	if err := validateDomainInput(strings.TrimSpace(req.Domain)); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "category is required")
		return
	}

	feedback, err := h.stores.Feedback.Create(r.Context(), models.Feedback{
		Domain:   strings.ToLower(strings.TrimSpace(req.Domain)),
		Category: strings.TrimSpace(req.Category),
		Comment:  strings.TrimSpace(req.Comment),
	})
	if err != nil {
		internalError(w, r, err)
		return
	}

	h.bus.Publish(events.TypeReportCreated, map[string]any{
		"report_id": feedback.ID.String(),
		"domain":    feedback.Domain,
		"category":  feedback.Category,
	}, logging.CorrelationIDFromContext(r.Context()))

	respond(w, r, http.StatusCreated, feedback)
}

// ListFlags lists abuse flags, newest first, filtered by at most one of
// domain, ip or key.
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	limit := defaultFlagLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxFlagLimit)
	}

	domain := r.URL.Query().Get("domain")
	ip := r.URL.Query().Get("ip")
	key := r.URL.Query().Get("key")
	if countNonEmpty(domain, ip, key) > 1 {
		badRequest(w, r, "provide at most one of domain, ip or key")
		return
	}

	var (
		flags []models.AbuseFlag
		err   error
	)
	switch {
	case domain != "":
		flags, err = h.stores.Flags.ListByDomain(r.Context(), strings.ToLower(domain), limit)
	case ip != "":
		flags, err = h.stores.Flags.ListByIP(r.Context(), ip, limit)
	case key != "":
		flags, err = h.stores.Flags.ListByAPIKey(r.Context(), key, limit)
	default:
		flags, err = h.stores.Flags.ListRecent(r.Context(), limit)
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{
		"flags": flags,
		"count": len(flags),
	})
}

// ResolveFlag marks an abuse flag resolved and announces the change.
func (h *Handler) ResolveFlag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		badRequest(w, r, "flag id is required")
		return
	}

	if err := h.stores.Flags.Resolve(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			notFound(w, r, "flag not found")
			return
		}
		internalError(w, r, err)
		return
	}

	h.bus.Publish(events.TypeIncidentChanged, map[string]any{
		"flag_id": id,
		"action":  "RESOLVED",
	}, logging.CorrelationIDFromContext(r.Context()))

	respond(w, r, http.StatusOK, map[string]any{
		"flag_id":  id,
		"resolved": true,
	})
}

// GetGraph builds the threat graph around a single pivot, given as
// exactly one of the domain, ip or key query parameters.
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	ip := r.URL.Query().Get("ip")
	key := r.URL.Query().Get("key")
	if countNonEmpty(domain, ip, key) != 1 {
		badRequest(w, r, "provide exactly one of domain, ip or key")
		return
	}

	var (
		g   graph.Graph
		err error
	)
	switch {
	case domain != "":
		g, err = h.graph.ByDomain(r.Context(), domain)
	case ip != "":
		g, err = h.graph.ByIP(r.Context(), ip)
	default:
		g, err = h.graph.ByKey(r.Context(), key)
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, g)
}

// GetExport assembles and serializes an intel export bundle. The body is
// served raw (not enveloped) so the download is directly usable.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	ip := r.URL.Query().Get("ip")
	key := r.URL.Query().Get("key")
	if countNonEmpty(domain, ip, key) != 1 {
		badRequest(w, r, "provide exactly one of domain, ip or key")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		badRequest(w, r, "format must be json or csv")
		return
	}

	var (
		export graph.Export
		scope  string
		err    error
	)
	switch {
	case domain != "":
		scope = strings.ToLower(domain)
		export, err = h.graph.ExportDomain(r.Context(), domain)
	case ip != "":
		scope = ip
		export, err = h.graph.ExportIP(r.Context(), ip)
	default:
		scope = key
		export, err = h.graph.ExportKey(r.Context(), key)
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	contentType, body, err := graph.Serialize(export, format)
	if err != nil {
		internalError(w, r, err)
		return
	}

	filename := fmt.Sprintf("trustlens-export-%s.%s", sanitizeFilename(scope), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ListEvents replays the event history, optionally from a cursor.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	var list []events.Event
	if since == "" {
		list = h.bus.History()
	} else {
		list = h.bus.EventsSince(since)
	}
	respond(w, r, http.StatusOK, map[string]any{
		"events": list,
		"count":  len(list),
	})
}

// Livez reports process liveness.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

// Readyz reports readiness by probing the store.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.stores.Flags.ListRecent(r.Context(), 1); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "storage unavailable")
		return
	}
	respond(w, r, http.StatusOK, map[string]any{"status": "ready"})
}

func validateDomainInput(domain string) error {
	switch {
	case domain == "":
		return errors.New("domain is required")
	case len(domain) > maxDomainLength:
		return fmt.Errorf("domain exceeds %d characters", maxDomainLength)
	case strings.ContainsAny(domain, " \t\n"):
		return errors.New("domain must not contain whitespace")
	}
	return nil
}

func countNonEmpty(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
