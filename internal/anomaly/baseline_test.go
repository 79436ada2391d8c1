// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package anomaly

import (
	"math"
	"testing"
)

const (
	testAlpha   = 0.25
	testEpsilon = 1e-5
)

func TestBaselineSeedsOnFirstSample(t *testing.T) {
	b := newBaseline()
	b.update(42, testAlpha, testEpsilon)

	if b.mean != 42 {
		t.Errorf("mean = %v, want 42", b.mean)
	}
	if b.variance != 1 {
		t.Errorf("variance = %v, want 1", b.variance)
	}
	if b.updates != 1 {
		t.Errorf("updates = %v, want 1", b.updates)
	}
}

func TestBaselineVarianceUsesPreUpdateMean(t *testing.T) {
	b := newBaseline()
	b.update(10, testAlpha, testEpsilon)
	b.update(14, testAlpha, testEpsilon)

	// diff is taken against the mean before it moves: 14-10=4, so the
	// variance is 0.25*16 + 0.75*1 = 4.75, and the mean then moves to 11.
	if math.Abs(b.variance-4.75) > 1e-9 {
		t.Errorf("variance = %v, want 4.75", b.variance)
	}
	if math.Abs(b.mean-11) > 1e-9 {
		t.Errorf("mean = %v, want 11", b.mean)
	}
}

func TestBaselineVarianceFloor(t *testing.T) {
	b := newBaseline()
	for i := 0; i < 200; i++ {
		b.update(5, testAlpha, testEpsilon)
	}
	if b.variance < testEpsilon {
		t.Errorf("variance = %v, want >= %v", b.variance, testEpsilon)
	}
	if z := b.zScore(5, testEpsilon); z != 0 {
		t.Errorf("z at mean = %v, want 0", z)
	}
	if z := b.zScore(6, testEpsilon); math.IsInf(z, 0) || math.IsNaN(z) {
		t.Errorf("z = %v, want finite under floored variance", z)
	}
}

func TestStringEntropy(t *testing.T) {
	if got := stringEntropy(nil); got != 0 {
		t.Errorf("entropy(nil) = %v, want 0", got)
	}
	if got := stringEntropy([]string{"a", "a", "a"}); got != 0 {
		t.Errorf("entropy of uniform repeat = %v, want 0", got)
	}
	if got := stringEntropy([]string{"a", "b"}); math.Abs(got-1) > 1e-9 {
		t.Errorf("entropy of 50/50 = %v, want 1", got)
	}
}

func TestDomainTokenEntropy(t *testing.T) {
	repeated := domainTokenEntropy([]string{"example.com", "example.com", "example.com"})
	varied := domainTokenEntropy([]string{"qz7k.com", "xm3r.net", "wf9t.org", "bh2j.io"})
	if varied <= repeated {
		t.Errorf("varied labels entropy %v, want > repeated labels entropy %v", varied, repeated)
	}
}
