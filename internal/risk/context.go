// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRe   = regexp.MustCompile(`[_\s]+`)
	hyphenRunRe   = regexp.MustCompile(`-+`)
	unicodeDashRe = regexp.MustCompile(`[\x{2010}-\x{2015}]`)
	nonDomainRe   = regexp.MustCompile(`[^a-z0-9.-]`)
	dotRunRe      = regexp.MustCompile(`\.+`)
	stripSepRe    = regexp.MustCompile(`[-_.]+`)
)

// ParseContext normalizes a raw domain string into a Context. It is a pure
// function: no I/O, no error paths. Malformed input degrades to empty
// labels rather than failing.
func ParseContext(domain string, contentFetchEnabled bool) Context {
	fqdn := strings.TrimRight(strings.ToLower(strings.TrimSpace(domain)), ".")

	// Internationalized labels are decoded to their unicode form so the
	// skeleton and confusable transforms see the rendered characters, the
	// same ones a victim would see in the address bar.
	decoded, err := idna.ToUnicode(fqdn)
	if err != nil || decoded == "" {
		decoded = fqdn
	}

	ascii := strings.ToLower(norm.NFKC.String(decoded))
	ascii = unicodeDashRe.ReplaceAllString(ascii, "-")
	ascii = nonDomainRe.ReplaceAllString(ascii, "")
	ascii = dotRunRe.ReplaceAllString(ascii, ".")

	var labels []string
	for _, label := range strings.Split(ascii, ".") {
		if label != "" {
			labels = append(labels, label)
		}
	}

	var tld, sld string
	switch {
	case len(labels) > 1:
		tld = labels[len(labels)-1]
		sld = labels[len(labels)-2]
	case len(labels) == 1:
		sld = labels[0]
	}

	joined := sld + "-" + tld

	return Context{
		Domain:              domain,
		FQDN:                fqdn,
		ASCIIDomain:         ascii,
		SLD:                 sld,
		TLD:                 tld,
		Skeleton:            skeletonize(sld),
		ConfusableVariants:  confusableVariants(sld),
		Labels:              labels,
		HasSuspiciousTLD:    suspiciousTLDs[tld],
		IsLikelyLoginTheme:  containsAny(joined, lureSuffixes) || containsAny(joined, loginThemeTokens),
		ContentFetchEnabled: contentFetchEnabled,
	}
}

// skeletonize reduces a label to its visual skeleton: lowercase, separators
// collapsed to single hyphens, digit lookalikes mapped to letters.
func skeletonize(value string) string {
	v := strings.ToLower(value)
	v = separatorRe.ReplaceAllString(v, "-")
	v = hyphenRunRe.ReplaceAllString(v, "-")
	v = strings.ReplaceAll(v, "0", "o")
	v = strings.ReplaceAll(v, "1", "l")
	return v
}

// confusableLimit caps the variant expansion. The transforms can cycle
// (i→l feeds into every later pass), so the expansion must be bounded.
const confusableLimit = 24

var confusableTransforms = []func(string) string{
	func(v string) string { return strings.ReplaceAll(v, "rn", "m") },
	func(v string) string { return strings.ReplaceAll(v, "vv", "w") },
	func(v string) string { return strings.ReplaceAll(v, "0", "o") },
	func(v string) string { return strings.ReplaceAll(v, "1", "l") },
	func(v string) string { return strings.ReplaceAll(v, "i", "l") },
	func(v string) string { return stripSepRe.ReplaceAllString(v, "") },
}

// confusableVariants generates lookalike renderings of the input by
// breadth-first application of the visual transforms. Terminates within
// confusableLimit items even under cyclic transforms; deterministic order.
func confusableVariants(input string) []string {
	seen := make(map[string]bool, confusableLimit)
	variants := make([]string, 0, confusableLimit)
	queue := []string{skeletonize(input)}

	for len(queue) > 0 && len(seen) < confusableLimit {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		variants = append(variants, cur)

		for _, transform := range confusableTransforms {
			next := skeletonize(transform(cur))
			if !seen[next] && len(seen)+len(queue) < confusableLimit {
				queue = append(queue, next)
			}
		}
	}
	return variants
}
