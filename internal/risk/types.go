// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package risk scores domain strings for phishing and scam likelihood.
//
// A check call parses the domain into a Context, runs eight independent
// scoring modules over it, and aggregates the weighted module deltas into a
// final score, level and confidence. The parser and every module are pure
// and total: they never fail on well-formed input and return a zero result
// when nothing matches, so the aggregate is always explainable from the
// per-module breakdown.
package risk

import "math"

// Level classifies an aggregated risk score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Context is the parsed, normalized form of a domain string. It is created
// per check call, immutable afterwards, and shared by all modules.
type Context struct {
	Domain      string `json:"domain"`
	FQDN        string `json:"fqdn"`
	ASCIIDomain string `json:"ascii_domain"`
	SLD         string `json:"sld"`
	TLD         string `json:"tld"`

	// Skeleton is the visually-normalized SLD (0→o, 1→l, separators
	// collapsed to single hyphens).
	Skeleton string `json:"skeleton"`

	// ConfusableVariants are lookalike renderings of the SLD generated by
	// bounded transform expansion. At most 24 entries.
	ConfusableVariants []string `json:"confusable_variants"`

	Labels             []string `json:"labels"`
	HasSuspiciousTLD   bool     `json:"has_suspicious_tld"`
	IsLikelyLoginTheme bool     `json:"is_likely_login_theme"`

	ContentFetchEnabled bool `json:"content_fetch_enabled"`
}

// ModuleResult is a single module's verdict over a Context.
type ModuleResult struct {
	ScoreDelta      float64  `json:"score_delta"`
	RiskFactors     []string `json:"risk_factors"`
	AbuseSignals    []string `json:"abuse_signals"`
	ConfidenceDelta float64  `json:"confidence_delta"`
}

// ModuleFunc evaluates one scoring module. Implementations must be pure
// and total.
type ModuleFunc func(Context) ModuleResult

// ModuleBreakdown records one module's contribution for explainability.
type ModuleBreakdown struct {
	Module          string  `json:"module"`
	ScoreDelta      float64 `json:"score_delta"`
	WeightedDelta   float64 `json:"weighted_score_delta"`
	ConfidenceDelta float64 `json:"confidence_delta"`
}

// TechnicalDetails carries the full per-module trace. No module may
// contribute to the final score without appearing here.
type TechnicalDetails struct {
	ModulesTriggered []string           `json:"modules_triggered"`
	WeightsUsed      map[string]float64 `json:"weights_used"`
	ModuleBreakdown  []ModuleBreakdown  `json:"module_breakdown"`
}

// Result is the aggregated verdict for one domain check.
type Result struct {
	Domain           string           `json:"domain"`
	Score            int              `json:"score"`
	RiskLevel        Level            `json:"risk_level"`
	Confidence       float64          `json:"confidence"`
	RiskFactors      []string         `json:"risk_factors"`
	AbuseSignals     []string         `json:"abuse_signals"`
	TechnicalDetails TechnicalDetails `json:"technical_details"`
}

// clampScore rounds and clamps a raw score into [0, 100].
func clampScore(score float64) int {
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// levelForScore maps a clamped score to its level. Aggregation overrides
// may still force a higher level afterwards.
func levelForScore(score int) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}
