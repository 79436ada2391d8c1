// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

// abuseHeuristicsModule scores campaign-style keyword combinations:
// payment themes with lure words, crypto-wallet vocabulary, and both
// together.
func abuseHeuristicsModule(ctx Context) ModuleResult {
	var result ModuleResult

	value := ctx.SLD + "." + ctx.TLD
	hasPayment := containsAny(value, paymentKeywords)
	hasCrypto := containsAny(value, cryptoKeywords)
	hasLure := containsAny(value, lureKeywords)

	if hasPayment && hasLure {
		result.ScoreDelta += 10
		result.ConfidenceDelta += 0.09
		result.RiskFactors = append(result.RiskFactors, "Payment-themed lure pattern")
	}

	if hasCrypto {
		result.ScoreDelta += 10
		result.ConfidenceDelta += 0.10
		result.RiskFactors = append(result.RiskFactors, "Crypto-wallet or token lure keyword set")
	}

	if hasCrypto && hasLure {
		result.ScoreDelta += 8
		result.ConfidenceDelta += 0.08
		result.AbuseSignals = append(result.AbuseSignals, "Combined crypto + lure campaign pattern")
	}

	return result
}
