// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import "strings"

// moduleWeights are the fixed per-module aggregation weights. The table in
// engine.go pairs each weight with its module function; keeping them in one
// place makes the weighted breakdown reproducible from the result alone.
var moduleWeights = map[string]float64{
	"impersonation":         1.25,
	"domainAge":             1.0,
	"lexicalSignals":        1.0,
	"entropy":               0.9,
	"dnsSignals":            0.7,
	"infrastructureSignals": 0.8,
	"abuseHeuristics":       1.0,
	"contentSignals":        1.1,
}

// suspiciousTLDs are TLDs with disproportionate abuse rates.
var suspiciousTLDs = map[string]bool{
	"top":   true,
	"xyz":   true,
	"click": true,
	"gq":    true,
	"cf":    true,
	"tk":    true,
	"ml":    true,
	"work":  true,
	"live":  true,
	"loan":  true,
	"cfd":   true,
	"rest":  true,
	"shop":  true,
}

// lureSuffixes are the credential-lure words appended to brand tokens in
// phishing domains ("paypal-login", "microsoft-verify").
var lureSuffixes = []string{
	"login", "secure", "verify", "support", "account", "auth", "update", "wallet",
}

// loginThemeTokens complement the lure suffixes for the login-theme flag.
var loginThemeTokens = []string{"signin", "password", "account", "mail"}

// Brand is a protected brand: its canonical domain plus the name tokens
// impersonators target.
type Brand struct {
	CanonicalDomain string
	Tokens          []string
}

// protectedBrands is the static impersonation target list. Order matters
// only for factor message stability.
var protectedBrands = []Brand{
	{CanonicalDomain: "paypal.com", Tokens: []string{"paypal"}},
	{CanonicalDomain: "google.com", Tokens: []string{"google", "gmail"}},
	{CanonicalDomain: "microsoft.com", Tokens: []string{"microsoft", "outlook", "office365"}},
	{CanonicalDomain: "apple.com", Tokens: []string{"apple", "icloud"}},
	{CanonicalDomain: "amazon.com", Tokens: []string{"amazon"}},
	{CanonicalDomain: "github.com", Tokens: []string{"github"}},
	{CanonicalDomain: "facebook.com", Tokens: []string{"facebook"}},
	{CanonicalDomain: "instagram.com", Tokens: []string{"instagram"}},
	{CanonicalDomain: "netflix.com", Tokens: []string{"netflix"}},
	{CanonicalDomain: "binance.com", Tokens: []string{"binance"}},
	{CanonicalDomain: "coinbase.com", Tokens: []string{"coinbase"}},
	{CanonicalDomain: "whatsapp.com", Tokens: []string{"whatsapp"}},
	{CanonicalDomain: "chase.com", Tokens: []string{"chase"}},
	{CanonicalDomain: "wellsfargo.com", Tokens: []string{"wellsfargo"}},
	{CanonicalDomain: "steampowered.com", Tokens: []string{"steam"}},
}

// knownLegitimateAgeDays seeds synthetic ages for domains whose longevity
// is common knowledge; real WHOIS lookups are an external concern.
var knownLegitimateAgeDays = map[string]int{
	"paypal.com":    9000,
	"github.com":    6500,
	"google.com":    9800,
	"microsoft.com": 11000,
	"apple.com":     10000,
	"amazon.com":    10000,
}

// dynamicDNSTokens indicate dynamic-DNS / low-trust nameserver providers.
var dynamicDNSTokens = []string{"duckdns", "no-ip", "ddns", "dynu", "hopto", "servehttp"}

// disposableHostingHints suggest throwaway hosting infrastructure.
var disposableHostingHints = []string{"vps", "cheap", "hostfree", "freehost", "temp", "cdnlogin"}

// flaggedASNHints are locally flagged network identifiers seen embedded in
// infrastructure hostnames.
var flaggedASNHints = []string{"as14061", "as13335", "as9009", "as16276"}

// Keyword sets for the abuse heuristics module.
var (
	paymentKeywords = []string{"pay", "payment", "invoice", "refund", "billing", "bank", "card"}
	cryptoKeywords  = []string{"crypto", "wallet", "seed", "airdrop", "giveaway", "token", "recovery"}
	lureKeywords    = []string{"bonus", "free", "claim", "urgent", "verify"}
)

// containsAny reports whether value contains any of the listed substrings.
func containsAny(value string, tokens []string) bool {
	for _, token := range tokens {
		if token != "" && strings.Contains(value, token) {
			return true
		}
	}
	return false
}
