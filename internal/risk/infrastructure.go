// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

// infrastructureSignalsModule scores hosting-infrastructure hints embedded
// in the hostname: disposable-hosting vocabulary, locally flagged network
// identifiers, and oversized labels on abuse-prone TLDs.
func infrastructureSignalsModule(ctx Context) ModuleResult {
	var result ModuleResult

	if containsAny(ctx.FQDN, disposableHostingHints) {
		result.ScoreDelta += 10
		result.ConfidenceDelta += 0.09
		result.RiskFactors = append(result.RiskFactors,
			"Infrastructure naming suggests disposable hosting")
	}

	if containsAny(ctx.FQDN, flaggedASNHints) {
		result.ScoreDelta += 12
		result.ConfidenceDelta += 0.10
		result.AbuseSignals = append(result.AbuseSignals,
			"Local flagged ASN hint in infrastructure identifier")
	}

	if ctx.HasSuspiciousTLD && len(ctx.SLD) > 18 {
		result.ScoreDelta += 6
		result.ConfidenceDelta += 0.05
		result.AbuseSignals = append(result.AbuseSignals,
			"Long label on abuse-prone TLD increases infrastructure risk")
	}

	return result
}
