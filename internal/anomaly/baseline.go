// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package anomaly

import "math"

// ewmaBaseline tracks an exponentially weighted mean and variance for one
// metric of one entity. The first sample seeds the mean directly with unit
// variance; z-scores stay suppressed until enough updates have accrued.
type ewmaBaseline struct {
	mean     float64
	variance float64
	updates  int
}

func newBaseline() *ewmaBaseline {
	return &ewmaBaseline{variance: 1}
}

// zScore returns the deviation of value from the baseline in standard
// deviations, with the variance floored to epsilon.
func (b *ewmaBaseline) zScore(value, epsilon float64) float64 {
	std := math.Sqrt(math.Max(b.variance, epsilon))
	return (value - b.mean) / std
}

// update folds a new sample into the baseline. The variance update uses
// the deviation from the pre-update mean, then the mean moves. Updating
// after every pass, including passes that fired, keeps the baseline
// self-normalizing: sustained elevated traffic becomes the new normal.
func (b *ewmaBaseline) update(value, alpha, epsilon float64) {
	if b.updates == 0 {
		b.mean = value
		b.variance = 1
		b.updates = 1
		return
	}
	diff := value - b.mean
	b.variance = math.Max(epsilon, alpha*diff*diff+(1-alpha)*b.variance)
	b.mean = alpha*value + (1-alpha)*b.mean
	b.updates++
}
