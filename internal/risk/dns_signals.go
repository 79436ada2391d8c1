// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

// dnsSignalsModule scores DNS-posture tells readable from the name itself:
// login themes on abuse-prone TLDs, dynamic-DNS providers, and mail-themed
// naming where legitimate mail infrastructure would never live.
func dnsSignalsModule(ctx Context) ModuleResult {
	var result ModuleResult

	if ctx.IsLikelyLoginTheme && ctx.HasSuspiciousTLD {
		result.ScoreDelta += 10
		result.ConfidenceDelta += 0.08
		result.RiskFactors = append(result.RiskFactors,
			"Login-themed domain on suspicious TLD suggests weak/abusive DNS posture")
	}

	if containsAny(ctx.FQDN, dynamicDNSTokens) {
		result.ScoreDelta += 12
		result.ConfidenceDelta += 0.12
		result.AbuseSignals = append(result.AbuseSignals,
			"Dynamic DNS / low-trust nameserver pattern detected")
	}

	if containsAny(ctx.SLD, []string{"mail", "smtp", "support"}) && ctx.HasSuspiciousTLD {
		result.ScoreDelta += 6
		result.ConfidenceDelta += 0.06
		result.AbuseSignals = append(result.AbuseSignals, "Email-themed naming on high-abuse TLD")
	}

	return result
}
