// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

// contentSignalsModule is the extension point for fetched-content
// heuristics (login-form detection, title spoofing). Content fetch is
// disabled by default to keep the engine fast and pure, so this module
// currently always returns a zero result.
//
// TODO: inject a fetched HTML snapshot and run form/title heuristics once
// the fetcher service lands.
func contentSignalsModule(ctx Context) ModuleResult {
	if !ctx.ContentFetchEnabled {
		return ModuleResult{}
	}
	return ModuleResult{}
}
