// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package graph

import "strings"

// MaskAPIKey renders an API key identifier for display, keeping the
// prefix and the last four characters.
func MaskAPIKey(key string) string {
	if len(key) < 10 {
		return "****"
	}
	return key[:6] + "..." + key[len(key)-4:]
}

// MaskEmail renders an email address for display, keeping the first and
// last character of the local part. Malformed addresses collapse to
// "***".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.ToLower(email), "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}
