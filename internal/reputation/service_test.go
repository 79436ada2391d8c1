// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Stores, time.Time) {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	stores := storage.NewStores(db)
	svc := NewService(stores, DefaultConfig(), zerolog.Nop())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, stores, now
}

func appendHistory(t *testing.T, stores *storage.Stores, domain string, at time.Time, score int, factors ...string) {
	t.Helper()
	_, err := stores.History.Append(context.Background(), models.HistoryEntry{
		Domain:    domain,
		Score:     score,
		RiskLevel: "LOW",
		Factors:   factors,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("append history: %v", err)
	}
}

func addFeedback(t *testing.T, stores *storage.Stores, domain, category string, status models.ModerationStatus, weight float64) {
	t.Helper()
	_, err := stores.Feedback.Create(context.Background(), models.Feedback{
		Domain:           domain,
		Category:         category,
		Status:           status,
		ReputationWeight: weight,
	})
	if err != nil {
		t.Fatalf("create feedback: %v", err)
	}
}

func TestComputeQuietLongStableDomain(t *testing.T) {
	svc, stores, now := newTestService(t)
	ctx := context.Background()
	domain := "quiet.example"

	for _, daysAgo := range []int{200, 150, 100, 50, 20, 10} {
		appendHistory(t, stores, domain, now.AddDate(0, 0, -daysAgo), 5)
	}

	view, err := svc.Compute(ctx, domain)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if view.ReputationScore != 0 {
		t.Errorf("score = %d, want 0 (long stable discount floors it)", view.ReputationScore)
	}
	if view.RiskLevel != models.ReputationSafe {
		t.Errorf("level = %s, want SAFE", view.RiskLevel)
	}
	if view.Signals.HistoryTrend != models.TrendStable {
		t.Errorf("trend = %s, want STABLE", view.Signals.HistoryTrend)
	}
	if view.Signals.AvgRiskScore30d != 5 {
		t.Errorf("avg30d = %v, want 5", view.Signals.AvgRiskScore30d)
	}
	if view.Confidence != 0.26 {
		t.Errorf("confidence = %v, want 0.26", view.Confidence)
	}
	if view.Signals.LatestRiskScore == nil || *view.Signals.LatestRiskScore != 5 {
		t.Errorf("latest = %v, want 5", view.Signals.LatestRiskScore)
	}
}

func TestComputeAbusiveDomainIsCritical(t *testing.T) {
	svc, stores, now := newTestService(t)
	ctx := context.Background()
	domain := "scam.example"

	for i := 0; i < 3; i++ {
		addFeedback(t, stores, domain, "phishing", models.ModerationApproved, 1)
	}
	addFeedback(t, stores, domain, "phishing", models.ModerationRejected, 1)
	addFeedback(t, stores, domain, "malware", models.ModerationPending, 1)

	appendHistory(t, stores, domain, now.AddDate(0, 0, -10), 80)
	appendHistory(t, stores, domain, now.AddDate(0, 0, -5), 90, "Impersonation pattern: paypal")

	_, err := stores.Flags.Create(ctx, models.AbuseFlag{
		Kind:     "ML_ANOMALY_SPIKE",
		Severity: "HIGH",
		Domain:   domain,
	})
	if err != nil {
		t.Fatalf("create flag: %v", err)
	}

	view, err := svc.Compute(ctx, domain)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 3 approved phishing (15 each) - 2 rejected + 40 impersonation +
	// 15 high flag + round(85 * 0.2) = 115, clamped to 100.
	if view.ReputationScore != 100 {
		t.Errorf("score = %d, want 100", view.ReputationScore)
	}
	if view.RiskLevel != models.ReputationCritical {
		t.Errorf("level = %s, want CRITICAL", view.RiskLevel)
	}
	if !view.Signals.ImpersonationHit {
		t.Error("impersonation hit not detected from history factors")
	}
	if view.Signals.AbuseFlags.High != 1 {
		t.Errorf("high flags = %d, want 1", view.Signals.AbuseFlags.High)
	}
	if view.Confidence != 0.57 {
		t.Errorf("confidence = %v, want 0.57", view.Confidence)
	}
	if len(view.Signals.TopCategories) != 1 || view.Signals.TopCategories[0].Category != "phishing" || view.Signals.TopCategories[0].Count != 3 {
		t.Errorf("top categories = %v, want phishing x3", view.Signals.TopCategories)
	}
	if view.Counts.FeedbackTotal != 5 || view.Counts.Approved != 3 || view.Counts.Rejected != 1 || view.Counts.Pending != 1 {
		t.Errorf("counts = %+v, want 5/3/1/1", view.Counts)
	}
}

func TestCriticalReputationRevokesVerification(t *testing.T) {
	svc, stores, now := newTestService(t)
	ctx := context.Background()
	domain := "compromised.example"

	verifiedAt := now.AddDate(0, -2, 0)
	if err := stores.Reputation.Upsert(ctx, models.ReputationView{
		Domain:        domain,
		VerifiedOwner: true,
		VerifiedAt:    &verifiedAt,
	}); err != nil {
		t.Fatalf("seed reputation: %v", err)
	}
	if err := stores.Verifications.Upsert(ctx, models.Verification{
		Domain: domain,
		Status: models.VerificationVerified,
		Method: "DNS_TXT",
	}); err != nil {
		t.Fatalf("seed verification: %v", err)
	}

	for i := 0; i < 3; i++ {
		addFeedback(t, stores, domain, "phishing", models.ModerationApproved, 1)
	}
	appendHistory(t, stores, domain, now.AddDate(0, 0, -5), 90, "Impersonation pattern: paypal")
	_, err := stores.Flags.Create(ctx, models.AbuseFlag{Kind: "ML_ANOMALY_SPIKE", Severity: "HIGH", Domain: domain})
	if err != nil {
		t.Fatalf("create flag: %v", err)
	}

	view, err := svc.Compute(ctx, domain)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if view.RiskLevel != models.ReputationCritical {
		t.Fatalf("level = %s, want CRITICAL", view.RiskLevel)
	}
	if view.VerifiedOwner {
		t.Error("verified owner survived a critical reputation")
	}
	if view.VerifiedAt != nil {
		t.Errorf("verified at = %v, want nil after revocation", view.VerifiedAt)
	}
	if len(view.Signals.TopCategories) == 0 || view.Signals.TopCategories[0].Category != verifiedOwnerCategory {
		t.Errorf("top categories = %v, want verified-owner marker first", view.Signals.TopCategories)
	}

	verification, err := stores.Verifications.GetByDomain(ctx, domain)
	if err != nil {
		t.Fatalf("get verification: %v", err)
	}
	if verification.Status != models.VerificationFailed {
		t.Errorf("verification status = %s, want FAILED", verification.Status)
	}
}

func TestReputationWeightIsClamped(t *testing.T) {
	svc, stores, _ := newTestService(t)
	ctx := context.Background()
	domain := "weighted.example"

	addFeedback(t, stores, domain, "malware", models.ModerationApproved, 5)

	view, err := svc.Compute(ctx, domain)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// (5 + 15) * clamp(5, 0.2, 2) = 40.
	if view.ReputationScore != 40 {
		t.Errorf("score = %d, want 40 (weight clamped to 2)", view.ReputationScore)
	}
	if view.RiskLevel != models.ReputationMedium {
		t.Errorf("level = %s, want MEDIUM", view.RiskLevel)
	}
}

func TestGetServesCacheThenPersistedView(t *testing.T) {
	svc, stores, _ := newTestService(t)
	ctx := context.Background()
	domain := "cached.example"

	first, err := svc.Compute(ctx, domain)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// Change the persisted view out from under the cache; Get must still
	// serve the cached copy within the TTL.
	altered := first
	altered.ReputationScore = 99
	if err := stores.Reputation.Upsert(ctx, altered); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := svc.Get(ctx, domain)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReputationScore != first.ReputationScore {
		t.Errorf("score = %d, want cached %d", got.ReputationScore, first.ReputationScore)
	}

	// A fresh service has a cold cache and serves the persisted view
	// without recomputing.
	fresh := NewService(stores, DefaultConfig(), zerolog.Nop())
	got, err = fresh.Get(ctx, domain)
	if err != nil {
		t.Fatalf("get from fresh service: %v", err)
	}
	if got.ReputationScore != 99 {
		t.Errorf("score = %d, want persisted 99", got.ReputationScore)
	}
}

func TestConfigTunesPolicy(t *testing.T) {
	t.Run("stability window", func(t *testing.T) {
		svc, stores, now := newTestService(t)
		domain := "young-stable.example"
		for _, daysAgo := range []int{60, 50, 40, 30, 20, 10} {
			appendHistory(t, stores, domain, now.AddDate(0, 0, -daysAgo), 5)
		}

		view, err := svc.Compute(context.Background(), domain)
		if err != nil {
			t.Fatalf("compute with defaults: %v", err)
		}
		if view.ReputationScore != 1 {
			t.Errorf("default window score = %d, want 1 (60d record too young for the discount)", view.ReputationScore)
		}

		tuned := NewService(stores, Config{StabilityWindow: 40 * 24 * time.Hour}, zerolog.Nop())
		tuned.now = func() time.Time { return now }
		view, err = tuned.Compute(context.Background(), domain)
		if err != nil {
			t.Fatalf("compute with short window: %v", err)
		}
		if view.ReputationScore != 0 {
			t.Errorf("short window score = %d, want 0 (discount now applies)", view.ReputationScore)
		}
	})

	t.Run("stability score ceiling", func(t *testing.T) {
		svc, stores, now := newTestService(t)
		domain := "noisy-stable.example"
		for _, daysAgo := range []int{200, 150, 100, 50, 20, 10} {
			appendHistory(t, stores, domain, now.AddDate(0, 0, -daysAgo), 15)
		}

		view, err := svc.Compute(context.Background(), domain)
		if err != nil {
			t.Fatalf("compute with defaults: %v", err)
		}
		if view.ReputationScore != 0 {
			t.Errorf("default ceiling score = %d, want 0 (mean 15 under ceiling 20)", view.ReputationScore)
		}

		strict := NewService(stores, Config{StabilityScoreCeiling: 10}, zerolog.Nop())
		strict.now = func() time.Time { return now }
		view, err = strict.Compute(context.Background(), domain)
		if err != nil {
			t.Fatalf("compute with strict ceiling: %v", err)
		}
		if view.ReputationScore != 3 {
			t.Errorf("strict ceiling score = %d, want 3 (discount withheld)", view.ReputationScore)
		}
	})

	t.Run("cache ttl", func(t *testing.T) {
		svc, stores, _ := newTestService(t)
		domain := "ttl.example"

		short := NewService(stores, Config{CacheTTL: time.Nanosecond}, zerolog.Nop())
		short.now = svc.now
		if _, err := short.Get(context.Background(), domain); err != nil {
			t.Fatalf("first get: %v", err)
		}

		stale, err := stores.Reputation.GetByDomain(context.Background(), domain)
		if err != nil {
			t.Fatalf("load persisted view: %v", err)
		}
		stale.ReputationScore = 77
		if err := stores.Reputation.Upsert(context.Background(), stale); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		view, err := short.Get(context.Background(), domain)
		if err != nil {
			t.Fatalf("second get: %v", err)
		}
		if view.ReputationScore != 77 {
			t.Errorf("score = %d, want 77 (expired cache must re-read the store)", view.ReputationScore)
		}
	})
}

func TestHistoryTrend(t *testing.T) {
	svc, stores, now := newTestService(t)
	ctx := context.Background()

	worsening := "worsening.example"
	appendHistory(t, stores, worsening, now.AddDate(0, 0, -60), 10)
	appendHistory(t, stores, worsening, now.AddDate(0, 0, -1), 40)
	view, err := svc.Compute(ctx, worsening)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if view.Signals.HistoryTrend != models.TrendWorsening {
		t.Errorf("trend = %s, want WORSENING", view.Signals.HistoryTrend)
	}

	improving := "improving.example"
	appendHistory(t, stores, improving, now.AddDate(0, 0, -60), 50)
	appendHistory(t, stores, improving, now.AddDate(0, 0, -1), 10)
	view, err = svc.Compute(ctx, improving)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if view.Signals.HistoryTrend != models.TrendImproving {
		t.Errorf("trend = %s, want IMPROVING", view.Signals.HistoryTrend)
	}
}

func TestToRiskLevel(t *testing.T) {
	latest := func(v int) *int { return &v }
	tests := []struct {
		name   string
		score  int
		latest *int
		want   models.ReputationLevel
	}{
		{"zero", 0, nil, models.ReputationSafe},
		{"low", 25, nil, models.ReputationLow},
		{"medium", 40, nil, models.ReputationMedium},
		{"high", 70, nil, models.ReputationHigh},
		{"critical", 90, nil, models.ReputationCritical},
		{"latest pulls up", 10, latest(95), models.ReputationCritical},
		{"latest discounted", 10, latest(40), models.ReputationLow},
		{"score wins over low latest", 70, latest(10), models.ReputationHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toRiskLevel(tt.score, tt.latest); got != tt.want {
				t.Errorf("toRiskLevel(%d, %v) = %s, want %s", tt.score, tt.latest, got, tt.want)
			}
		})
	}
}

func TestCategoryWeight(t *testing.T) {
	tests := []struct {
		category string
		want     int
	}{
		{"phishing", 10},
		{"  Phishing  ", 10},
		{"malware", 15},
		{"IMPERSONATION", 12},
		{"something new", 5},
	}
	for _, tt := range tests {
		if got := categoryWeight(tt.category); got != tt.want {
			t.Errorf("categoryWeight(%q) = %d, want %d", tt.category, got, tt.want)
		}
	}
}
