// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	randomAlnumRe      = regexp.MustCompile(`^[a-z0-9]{12,}$`)
	anyDigitRe         = regexp.MustCompile(`\d`)
	anyLetterRe        = regexp.MustCompile(`[a-z]`)
	consonantClusterRe = regexp.MustCompile(`[bcdfghjklmnpqrstvwxyz]{5,}`)
)

// shannonEntropy computes character-level Shannon entropy in bits.
func shannonEntropy(input string) float64 {
	runes := []rune(input)
	if len(runes) == 0 {
		return 0
	}
	freq := make(map[rune]int, len(runes))
	for _, r := range runes {
		freq[r]++
	}
	total := float64(len(runes))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// entropyModule flags algorithmically generated labels: high character
// entropy, long random alphanumerics, and consonant clusters that no
// pronounceable name produces.
func entropyModule(ctx Context) ModuleResult {
	var result ModuleResult

	compact := strings.ReplaceAll(ctx.SLD, "-", "")
	entropy := shannonEntropy(compact)

	if entropy >= 3.6 && len(compact) >= 10 {
		result.ScoreDelta += 15
		result.ConfidenceDelta += 0.15
		result.RiskFactors = append(result.RiskFactors,
			fmt.Sprintf("High lexical entropy detected (%.2f)", entropy))
	}
	if randomAlnumRe.MatchString(compact) && anyDigitRe.MatchString(compact) && anyLetterRe.MatchString(compact) {
		result.ScoreDelta += 10
		result.ConfidenceDelta += 0.08
		result.AbuseSignals = append(result.AbuseSignals, "Random-like long alphanumeric SLD")
	}
	if consonantClusterRe.MatchString(compact) && len(compact) >= 9 {
		result.ScoreDelta += 6
		result.ConfidenceDelta += 0.05
		result.AbuseSignals = append(result.AbuseSignals, "Consonant-cluster randomness in SLD")
	}

	return result
}
