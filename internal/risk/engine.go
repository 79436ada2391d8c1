// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

import "math"

// moduleDef binds a module name to its weight and function. The table is
// static: no reflection, no runtime registration.
type moduleDef struct {
	name string
	fn   ModuleFunc
}

// moduleTable lists the eight scoring modules in evaluation order.
var moduleTable = []moduleDef{
	{"impersonation", impersonationModule},
	{"domainAge", domainAgeModule},
	{"lexicalSignals", lexicalSignalsModule},
	{"entropy", entropyModule},
	{"dnsSignals", dnsSignalsModule},
	{"infrastructureSignals", infrastructureSignalsModule},
	{"abuseHeuristics", abuseHeuristicsModule},
	{"contentSignals", contentSignalsModule},
}

// Config holds the risk engine policy knobs.
type Config struct {
	// ContentFetchEnabled enables the content-signals module.
	ContentFetchEnabled bool

	// QuietDomainDeduction is subtracted from long-established domains
	// that trigger no module. Policy constant, see config package.
	QuietDomainDeduction int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{QuietDomainDeduction: 8}
}

// Engine evaluates domain risk. Stateless across calls and safe for
// concurrent use without locks.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with the given policy.
func NewEngine(cfg Config) *Engine {
	if cfg.QuietDomainDeduction == 0 {
		cfg.QuietDomainDeduction = DefaultConfig().QuietDomainDeduction
	}
	return &Engine{cfg: cfg}
}

// Evaluate parses the domain, runs all modules, and aggregates their
// weighted deltas into the final verdict. The caller is responsible for
// syntactic validation of the input; Evaluate itself never fails.
func (e *Engine) Evaluate(domain string) Result {
	ctx := ParseContext(domain, e.cfg.ContentFetchEnabled)

	type execution struct {
		name     string
		weight   float64
		result   ModuleResult
		weighted float64
	}

	runs := make([]execution, 0, len(moduleTable))
	var rawScore float64
	for _, def := range moduleTable {
		weight := moduleWeights[def.name]
		result := def.fn(ctx)
		runs = append(runs, execution{
			name:     def.name,
			weight:   weight,
			result:   result,
			weighted: result.ScoreDelta * weight,
		})
		rawScore += result.ScoreDelta * weight
	}

	score := clampScore(rawScore)

	var riskFactors, abuseSignals []string
	for _, run := range runs {
		riskFactors = append(riskFactors, run.result.RiskFactors...)
		abuseSignals = append(abuseSignals, run.result.AbuseSignals...)
	}
	riskFactors = dedupeCap(riskFactors, 0)
	abuseSignals = dedupeCap(abuseSignals, 0)

	byName := make(map[string]ModuleResult, len(runs))
	for _, run := range runs {
		byName[run.name] = run.result
	}
	impersonationRaw := byName["impersonation"].ScoreDelta
	ageRaw := byName["domainAge"].ScoreDelta

	// Level overrides: strong impersonation evidence outranks the raw sum,
	// and paired with a fresh registration it outranks everything.
	level := levelForScore(score)
	if impersonationRaw >= 45 && (level == LevelLow || level == LevelMedium) {
		level = LevelHigh
	}
	if impersonationRaw >= 45 && ageRaw >= 15 {
		level = LevelCritical
	}

	confidence := 0.2
	triggered := make([]string, 0, len(runs))
	for _, run := range runs {
		confidence += run.result.ConfidenceDelta * run.weight
		if run.result.ScoreDelta > 0 {
			triggered = append(triggered, run.name)
		}
	}
	if len(triggered) >= 3 {
		confidence += 0.10
	}
	if impersonationRaw >= 45 && ageRaw >= 15 {
		confidence += 0.15
	}
	if impersonationRaw >= 45 && byName["dnsSignals"].ScoreDelta > 0 {
		confidence += 0.08
	}
	if byName["entropy"].ScoreDelta >= 10 && ageRaw >= 8 {
		confidence += 0.07
	}

	// Quiet-domain correction: a long-established domain with zero
	// triggered modules and no impersonation evidence is actively benign,
	// not merely unscored.
	if len(triggered) == 0 && ageRaw < 0 && impersonationRaw == 0 {
		score = clampScore(float64(score - e.cfg.QuietDomainDeduction))
		level = LevelLow
		confidence = math.Min(1, confidence+0.08)
	}

	confidence = round3(clamp01(confidence))

	breakdown := make([]ModuleBreakdown, 0, len(runs))
	for _, run := range runs {
		breakdown = append(breakdown, ModuleBreakdown{
			Module:          run.name,
			ScoreDelta:      run.result.ScoreDelta,
			WeightedDelta:   round2(run.weighted),
			ConfidenceDelta: round3(run.result.ConfidenceDelta),
		})
	}

	weights := make(map[string]float64, len(moduleWeights))
	for name, weight := range moduleWeights {
		weights[name] = weight
	}

	return Result{
		Domain:       domain,
		Score:        score,
		RiskLevel:    level,
		Confidence:   confidence,
		RiskFactors:  riskFactors,
		AbuseSignals: abuseSignals,
		TechnicalDetails: TechnicalDetails{
			ModulesTriggered: triggered,
			WeightsUsed:      weights,
			ModuleBreakdown:  breakdown,
		},
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
