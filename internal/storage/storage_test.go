// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/trustlens/internal/models"
)

func testStores(t *testing.T) *Stores {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewStores(db)
}

func TestRequestLogRoundTrip(t *testing.T) {
	stores := testStores(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := stores.Logs.Create(ctx, models.RequestLog{
			Endpoint:   "/api/v1/domains/check",
			Method:     "POST",
			Domain:     "example.com",
			IPAddress:  "203.0.113.1",
			APIKeyID:   "key-1",
			StatusCode: 200,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create log: %v", err)
		}
	}
	_, err := stores.Logs.Create(ctx, models.RequestLog{
		Endpoint:   "/api/v1/domains/check",
		Method:     "POST",
		Domain:     "other.org",
		IPAddress:  "198.51.100.2",
		StatusCode: 200,
		CreatedAt:  base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create log: %v", err)
	}

	byDomain, err := stores.Logs.ListByDomain(ctx, "example.com", 0)
	if err != nil {
		t.Fatalf("list by domain: %v", err)
	}
	if len(byDomain) != 3 {
		t.Errorf("by domain = %d logs, want 3", len(byDomain))
	}
	// Newest first.
	if len(byDomain) > 1 && byDomain[0].CreatedAt.Before(byDomain[1].CreatedAt) {
		t.Error("domain listing not newest-first")
	}

	byIP, err := stores.Logs.ListByIP(ctx, "203.0.113.1", 2)
	if err != nil {
		t.Fatalf("list by ip: %v", err)
	}
	if len(byIP) != 2 {
		t.Errorf("by ip with limit = %d logs, want 2", len(byIP))
	}

	byKey, err := stores.Logs.ListByAPIKey(ctx, "key-1", 0)
	if err != nil {
		t.Fatalf("list by key: %v", err)
	}
	if len(byKey) != 3 {
		t.Errorf("by key = %d logs, want 3", len(byKey))
	}

	recent, err := stores.Logs.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 4 {
		t.Errorf("recent = %d logs, want 4", len(recent))
	}
	if recent[0].Domain != "other.org" {
		t.Errorf("recent[0] = %s, want newest (other.org)", recent[0].Domain)
	}
}

func TestFeedbackDefaults(t *testing.T) {
	stores := testStores(t)
	ctx := context.Background()

	created, err := stores.Feedback.Create(ctx, models.Feedback{
		Domain:   "example.com",
		Category: "phishing",
	})
	if err != nil {
		t.Fatalf("create feedback: %v", err)
	}
	if created.Status != models.ModerationPending {
		t.Errorf("status = %s, want PENDING default", created.Status)
	}
	if created.ReputationWeight != 1 {
		t.Errorf("weight = %v, want 1 default", created.ReputationWeight)
	}

	listed, err := stores.Feedback.ListByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %v, want the created entry", listed)
	}
}

func TestHistoryOrderAndSince(t *testing.T) {
	stores := testStores(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	for i, score := range []int{10, 40, 70} {
		_, err := stores.History.Append(ctx, models.HistoryEntry{
			Domain:    "example.com",
			Score:     score,
			RiskLevel: "LOW",
			CreatedAt: base.AddDate(0, 0, i*10),
		})
		if err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	all, err := stores.History.ListByDomain(ctx, "example.com", time.Time{})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(all) != 3 || all[0].Score != 10 || all[2].Score != 70 {
		t.Errorf("history = %v, want ascending scores 10..70", all)
	}

	since, err := stores.History.ListByDomain(ctx, "example.com", base.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("since = %d entries, want 2", len(since))
	}

	latest, err := stores.History.Latest(ctx, "example.com")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Score != 70 {
		t.Errorf("latest score = %d, want 70", latest.Score)
	}

	if _, err := stores.History.Latest(ctx, "unknown.org"); !errors.Is(err, ErrNotFound) {
		t.Errorf("latest for unknown domain = %v, want ErrNotFound", err)
	}
}

func TestFlagCountsAndResolve(t *testing.T) {
	stores := testStores(t)
	ctx := context.Background()

	severities := []string{"HIGH", "HIGH", "MEDIUM", "LOW"}
	var lastID string
	for _, severity := range severities {
		flag, err := stores.Flags.Create(ctx, models.AbuseFlag{
			Kind:      "ML_ANOMALY_SPIKE",
			Severity:  severity,
			Domain:    "example.com",
			IPAddress: "203.0.113.1",
		})
		if err != nil {
			t.Fatalf("create flag: %v", err)
		}
		lastID = flag.ID.String()
	}

	counts, err := stores.Flags.CountOpenByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("count open: %v", err)
	}
	if counts.High != 2 || counts.Medium != 1 || counts.Low != 1 {
		t.Errorf("counts = %+v, want 2/1/1", counts)
	}

	if err := stores.Flags.Resolve(ctx, lastID, time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	counts, err = stores.Flags.CountOpenByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("count open after resolve: %v", err)
	}
	if counts.Low != 0 {
		t.Errorf("low count = %d after resolve, want 0", counts.Low)
	}

	// Resolving twice is a no-op, resolving an unknown id is ErrNotFound.
	if err := stores.Flags.Resolve(ctx, lastID, time.Now()); err != nil {
		t.Errorf("second resolve: %v", err)
	}
	if err := stores.Flags.Resolve(ctx, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("resolve unknown = %v, want ErrNotFound", err)
	}

	byIP, err := stores.Flags.ListByIP(ctx, "203.0.113.1", 0)
	if err != nil {
		t.Fatalf("list by ip: %v", err)
	}
	if len(byIP) != 4 {
		t.Errorf("by ip = %d flags, want 4", len(byIP))
	}
}

func TestVerificationLifecycle(t *testing.T) {
	stores := testStores(t)
	ctx := context.Background()

	err := stores.Verifications.Upsert(ctx, models.Verification{
		Domain: "example.com",
		Status: models.VerificationVerified,
		Method: "DNS_TXT",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := stores.Verifications.GetByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.VerificationVerified {
		t.Errorf("status = %s, want VERIFIED", got.Status)
	}

	if err := stores.Verifications.RevokeVerified(ctx, "example.com"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = stores.Verifications.GetByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("get after revoke: %v", err)
	}
	if got.Status != models.VerificationFailed {
		t.Errorf("status = %s after revoke, want FAILED", got.Status)
	}

	// Revoking a domain without a verified record is a no-op.
	if err := stores.Verifications.RevokeVerified(ctx, "unknown.org"); err != nil {
		t.Errorf("revoke unknown: %v", err)
	}
}

func TestReputationRoundTrip(t *testing.T) {
	stores := testStores(t)
	ctx := context.Background()

	view := models.ReputationView{
		Domain:          "example.com",
		ReputationScore: 72,
		RiskLevel:       models.ReputationHigh,
		Confidence:      0.81,
		LastComputedAt:  time.Now().UTC(),
		Signals: models.ReputationSignals{
			ReportsApproved: 4,
			HistoryTrend:    models.TrendWorsening,
			AbuseFlags:      models.FlagCounts{High: 1},
		},
		Counts: models.ReputationCounts{FeedbackTotal: 5, Approved: 4, Rejected: 1},
	}
	if err := stores.Reputation.Upsert(ctx, view); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := stores.Reputation.GetByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReputationScore != 72 || got.RiskLevel != models.ReputationHigh {
		t.Errorf("got %+v, want stored view back", got)
	}

	if _, err := stores.Reputation.GetByDomain(ctx, "unknown.org"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get unknown = %v, want ErrNotFound", err)
	}
}

func TestContextCancellation(t *testing.T) {
	stores := testStores(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stores.Logs.Create(ctx, models.RequestLog{IPAddress: "203.0.113.1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("create with cancelled ctx = %v, want context.Canceled", err)
	}
	if _, err := stores.History.Latest(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("latest with cancelled ctx = %v, want context.Canceled", err)
	}
}
