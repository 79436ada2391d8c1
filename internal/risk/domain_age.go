// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import "regexp"

var digitRunRe = regexp.MustCompile(`\d{3,}`)

// inferAgeDays estimates a registration age without external lookups.
// Known-legitimate domains get their synthetic ages; otherwise the age is
// inferred from registration-pattern heuristics. Returns (0, false) when
// nothing can be inferred.
func inferAgeDays(ctx Context) (int, bool) {
	if days, ok := knownLegitimateAgeDays[ctx.ASCIIDomain]; ok {
		return days, true
	}
	if ctx.HasSuspiciousTLD && ctx.IsLikelyLoginTheme {
		return 6, true
	}
	if ctx.HasSuspiciousTLD {
		return 25, true
	}
	if len(ctx.SLD) > 20 && digitRunRe.MatchString(ctx.SLD) {
		return 20, true
	}
	return 0, false
}

// domainAgeModule scores registration recency. Very new domains add risk;
// long-established ones subtract a little, which also feeds the
// quiet-domain correction in the aggregator.
func domainAgeModule(ctx Context) ModuleResult {
	ageDays, ok := inferAgeDays(ctx)
	if !ok {
		return ModuleResult{}
	}

	var result ModuleResult
	switch {
	case ageDays < 7:
		result.ScoreDelta = 25
		result.ConfidenceDelta = 0.22
		result.RiskFactors = []string{"Recently registered domain (<7 days)"}
	case ageDays < 30:
		result.ScoreDelta = 15
		result.ConfidenceDelta = 0.16
		result.RiskFactors = []string{"Recently registered domain (<30 days)"}
	case ageDays < 90:
		result.ScoreDelta = 8
		result.ConfidenceDelta = 0.10
		result.RiskFactors = []string{"New domain (<90 days)"}
	case ageDays > 365*3:
		result.ScoreDelta = -5
		result.ConfidenceDelta = 0.06
		result.AbuseSignals = []string{"Long-established domain age reduces risk"}
	}
	return result
}
