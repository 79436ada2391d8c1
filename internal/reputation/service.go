// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package reputation aggregates community feedback, score history and open
// abuse flags into a per-domain reputation view.
//
// A recompute reads every signal source, derives a 0-100 score with an
// explainable breakdown, persists the view and caches it for sixty
// seconds. Recomputes run behind a circuit breaker so a degraded store
// cannot stall the API surface.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trustlens/internal/cache"
	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/storage"
)

const (
	historyWindow         = 30 * 24 * time.Hour
	verifiedOwnerCategory = "Domain owner verified via DNS"
)

// Config holds the product-tunable reputation policy.
type Config struct {
	// CacheTTL bounds how long a computed view is served from cache.
	CacheTTL time.Duration

	// StabilityWindow is the minimum age of the oldest history entry
	// before a domain can earn the long-stability discount.
	StabilityWindow time.Duration

	// StabilityScoreCeiling is the all-time mean check score a domain
	// must stay under to count as stable.
	StabilityScoreCeiling float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:              60 * time.Second,
		StabilityWindow:       180 * 24 * time.Hour,
		StabilityScoreCeiling: 20,
	}
}

// categoryWeights maps a feedback category to its score contribution on
// top of the base 5 points per approved report. Unknown categories fall
// back to 5.
var categoryWeights = map[string]int{
	"phishing":             10,
	"impersonation":        12,
	"investment scam":      8,
	"investment":           8,
	"malware":              15,
	"malware delivery":     15,
	"fake crypto platform": 10,
	"tech support scam":    7,
	"romance scam":         6,
	"marketplace fraud":    7,
	"job scam":             6,
	"clone website":        9,
	"smishing":             8,
	"email spoofing":       8,
	"rug pulls":            10,
	"pump & dump":          10,
	"giveaway scams":       9,
}

func categoryWeight(category string) int {
	if w, ok := categoryWeights[strings.ToLower(strings.TrimSpace(category))]; ok {
		return w
	}
	return 5
}

// Service computes and serves domain reputation views.
type Service struct {
	stores  *storage.Stores
	cfg     Config
	cache   *cache.Cache
	breaker *gobreaker.CircuitBreaker[models.ReputationView]
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService wires a reputation service over the given stores. Zero
// config fields fall back to the defaults.
func NewService(stores *storage.Stores, cfg Config, logger zerolog.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.StabilityWindow <= 0 {
		cfg.StabilityWindow = DefaultConfig().StabilityWindow
	}
	if cfg.StabilityScoreCeiling <= 0 {
		cfg.StabilityScoreCeiling = DefaultConfig().StabilityScoreCeiling
	}
	s := &Service{
		stores: stores,
		cfg:    cfg,
		cache:  cache.New("reputation", cfg.CacheTTL),
		logger: logger.With().Str("component", "reputation").Logger(),
		now:    time.Now,
	}
	s.breaker = gobreaker.NewCircuitBreaker[models.ReputationView](gobreaker.Settings{
		Name:        "reputation-recompute",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			s.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return s
}

// Get serves the reputation view for a domain: cache first, then the
// persisted view, then a full recompute for domains never seen before.
func (s *Service) Get(ctx context.Context, domain string) (models.ReputationView, error) {
	domain = normalizeDomain(domain)

	if cached, ok := s.cache.Get(cacheKey(domain)); ok {
		metrics.ReputationCacheHits.Inc()
		return cached.(models.ReputationView), nil
	}
	metrics.ReputationCacheMisses.Inc()

	view, err := s.stores.Reputation.GetByDomain(ctx, domain)
	if err == nil {
		s.cache.Set(cacheKey(domain), view)
		return view, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.ReputationView{}, fmt.Errorf("load reputation for %s: %w", domain, err)
	}
	return s.Compute(ctx, domain)
}

// Compute recomputes the reputation view from scratch, persists it and
// refreshes the cache. The recompute runs behind the circuit breaker.
func (s *Service) Compute(ctx context.Context, domain string) (models.ReputationView, error) {
	domain = normalizeDomain(domain)

	view, err := s.breaker.Execute(func() (models.ReputationView, error) {
		return s.compute(ctx, domain)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ReputationRecomputes.WithLabelValues("rejected").Inc()
			return models.ReputationView{}, fmt.Errorf("reputation recompute for %s: %w", domain, err)
		}
		metrics.ReputationRecomputes.WithLabelValues("failure").Inc()
		return models.ReputationView{}, err
	}
	metrics.ReputationRecomputes.WithLabelValues("success").Inc()
	return view, nil
}

func (s *Service) compute(ctx context.Context, domain string) (models.ReputationView, error) {
	now := s.now().UTC()

	wasVerified := false
	var verifiedAt *time.Time
	existing, err := s.stores.Reputation.GetByDomain(ctx, domain)
	switch {
	case err == nil:
		wasVerified = existing.VerifiedOwner
		verifiedAt = existing.VerifiedAt
	case errors.Is(err, storage.ErrNotFound):
	default:
		return models.ReputationView{}, fmt.Errorf("load existing reputation: %w", err)
	}

	feedback, err := s.stores.Feedback.ListByDomain(ctx, domain)
	if err != nil {
		return models.ReputationView{}, fmt.Errorf("load feedback: %w", err)
	}
	history30d, err := s.stores.History.ListByDomain(ctx, domain, now.Add(-historyWindow))
	if err != nil {
		return models.ReputationView{}, fmt.Errorf("load recent history: %w", err)
	}
	historyAll, err := s.stores.History.ListByDomain(ctx, domain, time.Time{})
	if err != nil {
		return models.ReputationView{}, fmt.Errorf("load full history: %w", err)
	}
	flagCounts, err := s.stores.Flags.CountOpenByDomain(ctx, domain)
	if err != nil {
		return models.ReputationView{}, fmt.Errorf("count open flags: %w", err)
	}

	var approved, rejected []models.Feedback
	pending := 0
	for _, item := range feedback {
		switch item.Status {
		case models.ModerationApproved:
			approved = append(approved, item)
		case models.ModerationRejected:
			rejected = append(rejected, item)
		case models.ModerationPending:
			pending++
		}
	}

	score := 0.0
	for _, item := range approved {
		weight := item.ReputationWeight
		if weight == 0 {
			weight = 1
		}
		score += float64(5+categoryWeight(item.Category)) * clampFloat(weight, 0.2, 2)
	}
	score -= float64(len(rejected)) * 2

	impersonationHit := false
	for _, entry := range history30d {
		for _, factor := range entry.Factors {
			if strings.Contains(strings.ToLower(factor), "impersonation") {
				impersonationHit = true
				break
			}
		}
		if impersonationHit {
			break
		}
	}
	if impersonationHit {
		score += 40
	}

	score += float64(flagCounts.High) * 15
	score += float64(flagCounts.Medium) * 7
	score += float64(flagCounts.Low) * 3

	avgRiskScore30d := math.Round(avgScore(history30d)*10) / 10
	score += math.Round(avgRiskScore30d * 0.2)

	trend := models.TrendStable
	if len(historyAll) > 0 {
		diff := historyAll[len(historyAll)-1].Score - historyAll[0].Score
		if diff > 15 {
			trend = models.TrendWorsening
			score += 10
		} else if diff < -15 {
			trend = models.TrendImproving
			score -= 6
		}
	}

	// A long record of consistently quiet checks earns a discount, but
	// only while nothing negative is on file.
	longStable := len(historyAll) >= 5 &&
		now.Sub(historyAll[0].CreatedAt) > s.cfg.StabilityWindow &&
		avgScore(historyAll) < s.cfg.StabilityScoreCeiling
	if longStable && !impersonationHit && flagCounts.High == 0 && len(approved) == 0 {
		score -= 10
	}
	if wasVerified {
		score -= 6
	}

	clamped := clampInt(int(math.Round(score)), 0, 100)

	var latestRiskScore *int
	latest, err := s.stores.History.Latest(ctx, domain)
	switch {
	case err == nil:
		latestRiskScore = &latest.Score
	case errors.Is(err, storage.ErrNotFound):
	default:
		return models.ReputationView{}, fmt.Errorf("load latest history: %w", err)
	}
	riskLevel := toRiskLevel(clamped, latestRiskScore)

	totalFlags := flagCounts.High + flagCounts.Medium + flagCounts.Low
	confidenceRaw := 0.2 +
		math.Min(0.35, float64(len(approved))*0.03) +
		math.Min(0.2, float64(totalFlags)*0.04)
	if len(history30d) > 3 {
		confidenceRaw += 0.12
	} else if len(history30d) > 0 {
		confidenceRaw += 0.06
	}
	if impersonationHit {
		confidenceRaw += 0.18
	}
	if wasVerified {
		confidenceRaw += 0.05
	}
	confidence := math.Round(clampFloat(confidenceRaw, 0.15, 0.99)*1000) / 1000

	topCategories := topCategoriesOf(approved)
	if wasVerified {
		topCategories = append([]models.CategoryCount{{Category: verifiedOwnerCategory, Count: 1}}, topCategories...)
		if len(topCategories) > 5 {
			topCategories = topCategories[:5]
		}
	}

	verifiedOwner := wasVerified
	if riskLevel == models.ReputationCritical && verifiedOwner {
		verifiedOwner = false
		verifiedAt = nil
		if err := s.stores.Verifications.RevokeVerified(ctx, domain); err != nil {
			return models.ReputationView{}, fmt.Errorf("revoke verification: %w", err)
		}
		s.logger.Warn().Str("domain", domain).Msg("verified owner revoked on critical reputation")
	}

	view := models.ReputationView{
		Domain:          domain,
		ReputationScore: clamped,
		RiskLevel:       riskLevel,
		Confidence:      confidence,
		VerifiedOwner:   verifiedOwner,
		VerifiedAt:      verifiedAt,
		LastComputedAt:  now,
		Signals: models.ReputationSignals{
			ReportsApproved:  len(approved),
			ReportsRejected:  len(rejected),
			TopCategories:    topCategories,
			ImpersonationHit: impersonationHit,
			AbuseFlags:       flagCounts,
			HistoryTrend:     trend,
			AvgRiskScore30d:  avgRiskScore30d,
			LatestRiskScore:  latestRiskScore,
		},
		Counts: models.ReputationCounts{
			FeedbackTotal: len(feedback),
			Approved:      len(approved),
			Rejected:      len(rejected),
			Pending:       pending,
		},
	}

	if err := s.stores.Reputation.Upsert(ctx, view); err != nil {
		return models.ReputationView{}, fmt.Errorf("persist reputation: %w", err)
	}
	s.cache.Set(cacheKey(domain), view)

	s.logger.Debug().
		Str("domain", domain).
		Int("score", clamped).
		Str("risk_level", string(riskLevel)).
		Float64("confidence", confidence).
		Msg("reputation recomputed")
	return view, nil
}

// toRiskLevel grades a reputation score, letting a very recent risk check
// pull the grade up so a fresh detection is never hidden behind a stale
// aggregate.
func toRiskLevel(score int, latestRiskScore *int) models.ReputationLevel {
	merged := score
	if latestRiskScore != nil {
		if recent := int(math.Round(float64(*latestRiskScore) * 0.9)); recent > merged {
			merged = recent
		}
	}
	switch {
	case merged >= 85:
		return models.ReputationCritical
	case merged >= 65:
		return models.ReputationHigh
	case merged >= 40:
		return models.ReputationMedium
	case merged >= 20:
		return models.ReputationLow
	default:
		return models.ReputationSafe
	}
}

func topCategoriesOf(approved []models.Feedback) []models.CategoryCount {
	tally := make(map[string]int)
	for _, item := range approved {
		tally[item.Category]++
	}
	counts := make([]models.CategoryCount, 0, len(tally))
	for category, count := range tally {
		counts = append(counts, models.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Category < counts[j].Category
	})
	if len(counts) > 5 {
		counts = counts[:5]
	}
	return counts
}

func avgScore(entries []models.HistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, entry := range entries {
		sum += entry.Score
	}
	return float64(sum) / float64(len(entries))
}

// cacheKey namespaces cache entries so a raw domain can never collide
// with another method's key space.
func cacheKey(domain string) string {
	return cache.GenerateKey("reputation.view", domain)
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
