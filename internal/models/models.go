// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package models defines the data structures shared across the TrustLens
// stores, engines and API surface: request logs, community feedback,
// score history, abuse flags, domain verification and reputation views.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog is one recorded API request. It is the raw material for the
// anomaly detector, the threat graph and the intel exports.
type RequestLog struct {
	ID            uuid.UUID `json:"id"`
	APIKeyID      string    `json:"api_key_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Endpoint      string    `json:"endpoint"`
	Method        string    `json:"method"`
	Domain        string    `json:"domain,omitempty"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent,omitempty"`
	StatusCode    int       `json:"status_code"`
	DurationMs    int64     `json:"duration_ms"`
	RiskLevel     string    `json:"risk_level,omitempty"`
	Score         *int      `json:"score,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ModerationStatus is the review state of a piece of feedback.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationRejected ModerationStatus = "REJECTED"
)

// Feedback is one community report about a domain. Only approved feedback
// contributes positively to the reputation score; its contribution scales
// with the reporter's reputation weight.
type Feedback struct {
	ID               uuid.UUID        `json:"id"`
	Domain           string           `json:"domain"`
	Category         string           `json:"category"`
	Status           ModerationStatus `json:"status"`
	ReputationWeight float64          `json:"reputation_weight"`
	Comment          string           `json:"comment,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// HistoryEntry is one recorded risk check outcome for a domain.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	Domain    string    `json:"domain"`
	Score     int       `json:"score"`
	RiskLevel string    `json:"risk_level"`
	Factors   []string  `json:"factors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AbuseFlag is one emitted abuse signal, from the anomaly detector or a
// manual action. A flag stays open until ResolvedAt is set.
type AbuseFlag struct {
	ID            uuid.UUID      `json:"id"`
	Kind          string         `json:"kind"`
	Severity      string         `json:"severity"`
	APIKeyID      string         `json:"api_key_id,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	Domain        string         `json:"domain,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// VerificationStatus is the state of a domain ownership verification.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationFailed   VerificationStatus = "FAILED"
)

// Verification records a domain ownership verification attempt.
type Verification struct {
	ID        uuid.UUID          `json:"id"`
	Domain    string             `json:"domain"`
	Status    VerificationStatus `json:"status"`
	Method    string             `json:"method"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ReputationLevel grades an aggregated reputation score.
type ReputationLevel string

const (
	ReputationSafe     ReputationLevel = "SAFE"
	ReputationLow      ReputationLevel = "LOW"
	ReputationMedium   ReputationLevel = "MEDIUM"
	ReputationHigh     ReputationLevel = "HIGH"
	ReputationCritical ReputationLevel = "CRITICAL"
)

// HistoryTrend summarizes the direction of a domain's score history.
type HistoryTrend string

const (
	TrendImproving HistoryTrend = "IMPROVING"
	TrendStable    HistoryTrend = "STABLE"
	TrendWorsening HistoryTrend = "WORSENING"
)

// CategoryCount is one category tally in the reputation breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FlagCounts tallies open abuse flags by severity.
type FlagCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// ReputationSignals is the explainable breakdown behind a reputation
// score.
type ReputationSignals struct {
	ReportsApproved  int             `json:"reports_approved"`
	ReportsRejected  int             `json:"reports_rejected"`
	TopCategories    []CategoryCount `json:"top_categories"`
	ImpersonationHit bool            `json:"impersonation_hit"`
	AbuseFlags       FlagCounts      `json:"abuse_flags"`
	HistoryTrend     HistoryTrend    `json:"history_trend"`
	AvgRiskScore30d  float64         `json:"avg_risk_score_30d"`
	LatestRiskScore  *int            `json:"latest_risk_score"`
}

// ReputationCounts tallies the feedback volume behind a reputation view.
type ReputationCounts struct {
	FeedbackTotal int `json:"feedback_total"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	Pending       int `json:"pending"`
}

// ReputationView is the persisted, servable reputation of one domain.
type ReputationView struct {
	Domain          string            `json:"domain"`
	ReputationScore int               `json:"reputation_score"`
	RiskLevel       ReputationLevel   `json:"risk_level"`
	Confidence      float64           `json:"confidence"`
	VerifiedOwner   bool              `json:"verified_owner"`
	VerifiedAt      *time.Time        `json:"verified_at"`
	LastComputedAt  time.Time         `json:"last_computed_at"`
	Signals         ReputationSignals `json:"signals"`
	Counts          ReputationCounts  `json:"counts"`
}
