// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import (
	"fmt"
	"strings"
)

// lexicalSignalsModule scores surface-level tells in the domain string:
// hyphen stuffing, long digit runs, abuse-prone TLDs, and brand tokens
// paired with lure keywords.
func lexicalSignalsModule(ctx Context) ModuleResult {
	var result ModuleResult

	if strings.Count(ctx.SLD, "-") >= 2 {
		result.ScoreDelta += 8
		result.ConfidenceDelta += 0.08
		result.RiskFactors = append(result.RiskFactors, "Excessive hyphen usage in second-level domain")
	}

	if digitRunRe.MatchString(ctx.SLD) {
		result.ScoreDelta += 8
		result.ConfidenceDelta += 0.07
		result.AbuseSignals = append(result.AbuseSignals, "Long numeric segments in domain label")
	}

	if ctx.HasSuspiciousTLD {
		result.ScoreDelta += 8
		result.ConfidenceDelta += 0.08
		result.AbuseSignals = append(result.AbuseSignals, fmt.Sprintf("Suspicious TLD .%s", ctx.TLD))
	}

	sldClean := strings.ReplaceAll(ctx.Skeleton, "-", "")
	hasBrand := false
	for _, brand := range protectedBrands {
		for _, token := range brand.Tokens {
			compact := strings.ToLower(strings.ReplaceAll(token, " ", ""))
			if compact != "" && strings.Contains(sldClean, compact) {
				hasBrand = true
				break
			}
		}
		if hasBrand {
			break
		}
	}

	if hasBrand && containsAny(sldClean, lureSuffixes) {
		result.ScoreDelta += 14
		result.ConfidenceDelta += 0.14
		result.RiskFactors = append(result.RiskFactors, "Brand token combined with authentication/lure keyword")
	}

	return result
}
