// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// cleanToken lowercases and strips everything outside [a-z0-9] so edit
// distances compare the characters that actually render.
func cleanToken(token string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(token), "")
}

// looksLikeSuffixTrick reports whether the cleaned skeleton is exactly a
// brand token glued to a lure suffix ("paypallogin", "microsoftverify").
func looksLikeSuffixTrick(cleaned, token string) bool {
	for _, suffix := range lureSuffixes {
		if cleaned == token+suffix {
			return true
		}
	}
	return false
}

// impersonationModule scores brand impersonation and typosquatting. It
// compares the domain's confusable variants against every protected brand
// token using Damerau-Levenshtein distance, and recognizes suffix-trick and
// token-containment lure chains. Canonical brand domains and their
// subdomains short-circuit to a zero result.
func impersonationModule(ctx Context) ModuleResult {
	var riskFactors, abuseSignals []string
	var scoreDelta, confidenceDelta float64

	if strings.Contains(ctx.SLD, "rn") {
		abuseSignals = append(abuseSignals, "Visual confusable pattern rn->m")
	}
	if strings.Contains(ctx.SLD, "vv") {
		abuseSignals = append(abuseSignals, "Visual confusable pattern vv->w")
	}
	if strings.ContainsAny(ctx.SLD, "01") {
		abuseSignals = append(abuseSignals, "Visual confusable alphanumeric substitution detected")
	}

	for _, brand := range protectedBrands {
		canonical := strings.ToLower(brand.CanonicalDomain)
		if ctx.ASCIIDomain == canonical || strings.HasSuffix(ctx.ASCIIDomain, "."+canonical) {
			return ModuleResult{AbuseSignals: dedupeCap(abuseSignals, 6)}
		}
	}

	compactSLD := cleanToken(ctx.SLD)
	compactVariants := make([]string, len(ctx.ConfusableVariants))
	for i, v := range ctx.ConfusableVariants {
		compactVariants[i] = cleanToken(v)
	}
	hasSuffixLure := containsAny(compactSLD, lureSuffixes)

	for _, brand := range protectedBrands {
		for _, rawToken := range brand.Tokens {
			token := cleanToken(rawToken)
			if len(token) < 3 {
				continue
			}

			exact := false
			for _, v := range compactVariants {
				if v == token {
					exact = true
					break
				}
			}
			if exact {
				scoreDelta = maxFloat(scoreDelta, 58)
				confidenceDelta = maxFloat(confidenceDelta, 0.28)
				riskFactors = append(riskFactors,
					fmt.Sprintf("Brand impersonation / typosquatting detected: %s ~ %s", ctx.SLD, token))
				continue
			}

			minDistance := 99
			for _, v := range compactVariants {
				if dist := damerauLevenshtein(v, token); dist < minDistance {
					minDistance = dist
				}
			}
			if minDistance <= 2 {
				if minDistance <= 1 {
					scoreDelta = maxFloat(scoreDelta, 52)
					confidenceDelta = maxFloat(confidenceDelta, 0.24)
				} else {
					scoreDelta = maxFloat(scoreDelta, 46)
					confidenceDelta = maxFloat(confidenceDelta, 0.20)
				}
				riskFactors = append(riskFactors,
					fmt.Sprintf("Brand-typo proximity detected: %s ~ %s (distance %d)", ctx.SLD, token, minDistance))
				continue
			}

			if looksLikeSuffixTrick(cleanToken(ctx.Skeleton), token) {
				scoreDelta = maxFloat(scoreDelta, 45)
				confidenceDelta = maxFloat(confidenceDelta, 0.16)
				riskFactors = append(riskFactors,
					fmt.Sprintf("Brand phishing pattern detected: %s uses %s with phishing suffix", ctx.SLD, token))
			}

			containsToken := false
			startsWithToken := false
			for _, v := range compactVariants {
				if strings.Contains(v, token) {
					containsToken = true
				}
				if strings.HasPrefix(v, token) {
					startsWithToken = true
				}
			}
			if containsToken && hasSuffixLure {
				scoreDelta = maxFloat(scoreDelta, 50)
				confidenceDelta = maxFloat(confidenceDelta, 0.22)
				riskFactors = append(riskFactors,
					fmt.Sprintf("Brand token with phishing suffix chain detected: %s contains %s", ctx.SLD, token))
			}
			if startsWithToken && hasSuffixLure {
				scoreDelta = maxFloat(scoreDelta, 55)
				confidenceDelta = maxFloat(confidenceDelta, 0.25)
			}
		}
	}

	if scoreDelta > 60 {
		scoreDelta = 60
	}

	return ModuleResult{
		ScoreDelta:      scoreDelta,
		RiskFactors:     dedupeCap(riskFactors, 5),
		AbuseSignals:    dedupeCap(abuseSignals, 6),
		ConfidenceDelta: confidenceDelta,
	}
}

// dedupeCap removes duplicates preserving order and caps the list length.
// A non-positive limit means dedupe only.
func dedupeCap(items []string, limit int) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
