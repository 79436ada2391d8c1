// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package anomaly

import (
	"math"
	"strings"
	"time"
)

// entityState holds the sliding observation window and the per-metric
// baselines for one entity. Access is guarded by the engine mutex.
type entityState struct {
	observations []Observation
	baselines    map[Metric]*ewmaBaseline
}

func newEntityState() *entityState {
	baselines := make(map[Metric]*ewmaBaseline, len(metricNames))
	for _, name := range metricNames {
		baselines[name] = newBaseline()
	}
	return &entityState{baselines: baselines}
}

// prune drops observations older than the ten-minute window.
func (s *entityState) prune(now time.Time, window time.Duration) {
	kept := s.observations[:0]
	for _, obs := range s.observations {
		if now.Sub(obs.Time) <= window {
			kept = append(kept, obs)
		}
	}
	s.observations = kept
}

// features derives the six windowed metrics from the observation window.
// Pruning happens first, so the ten-minute features read the whole slice.
func (s *entityState) features(now time.Time, w Windows) Features {
	s.prune(now, w.TenMinutes)

	var count1m int
	var recent5m []Observation
	for _, obs := range s.observations {
		age := now.Sub(obs.Time)
		if age <= w.OneMinute {
			count1m++
		}
		if age <= w.FiveMinutes {
			recent5m = append(recent5m, obs)
		}
	}

	uniqueDomains := make(map[string]bool)
	var errors5m int
	var totalDuration time.Duration
	endpoints := make([]string, 0, len(recent5m))
	for _, obs := range recent5m {
		if obs.Domain != "" {
			uniqueDomains[obs.Domain] = true
		}
		if obs.StatusCode >= 400 {
			errors5m++
		}
		totalDuration += obs.Duration
		endpoints = append(endpoints, obs.Endpoint)
	}

	var errorRate, avgDurationMs float64
	if len(recent5m) > 0 {
		errorRate = float64(errors5m) / float64(len(recent5m))
		avgDurationMs = float64(totalDuration.Milliseconds()) / float64(len(recent5m))
	}

	domains10m := make([]string, 0, len(s.observations))
	for _, obs := range s.observations {
		if obs.Domain != "" {
			domains10m = append(domains10m, obs.Domain)
		}
	}

	return Features{
		MetricRequestsPerMinute:  float64(count1m),
		MetricUniqueDomains5m:    float64(len(uniqueDomains)),
		MetricErrorRate5m:        errorRate,
		MetricAvgDurationMs5m:    avgDurationMs,
		MetricDomainEntropy10m:   domainTokenEntropy(domains10m),
		MetricEndpointMixEntropy: stringEntropy(endpoints),
	}
}

// stringEntropy computes the Shannon entropy of the item distribution in
// bits. A uniform mix of distinct items maximizes it; repetition of one
// item drives it to zero.
func stringEntropy(items []string) float64 {
	if len(items) == 0 {
		return 0
	}
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[item]++
	}
	total := float64(len(items))
	var entropy float64
	for _, count := range counts {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// domainTokenEntropy measures character-level entropy over the first
// labels of the queried domains. Enumeration sweeps (aaa1.com, aaa2.com,
// ...) produce near-random label characters in aggregate.
func domainTokenEntropy(domains []string) float64 {
	if len(domains) == 0 {
		return 0
	}
	var builder strings.Builder
	for _, domain := range domains {
		token := domain
		if idx := strings.IndexByte(domain, '.'); idx > 0 {
			token = domain[:idx]
		}
		builder.WriteString(token)
	}
	joined := builder.String()
	chars := make([]string, 0, len(joined))
	for _, r := range joined {
		chars = append(chars, string(r))
	}
	return stringEntropy(chars)
}
