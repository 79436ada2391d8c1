// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package anomaly detects behavioral anomalies in API traffic using
// per-entity EWMA baselines and z-score deviation checks.
//
// Every request becomes an Observation attributed to its source IP and,
// when present, its API key. The engine keeps a sliding ten-minute window
// of observations per entity, derives six windowed features from it each
// detection pass, and compares each feature against that entity's own
// exponentially weighted baseline. Entities learn their own normal; there
// are no global thresholds on raw traffic volume.
package anomaly

import "time"

// EntityType identifies what an anomaly baseline is keyed on.
type EntityType string

const (
	EntityIP     EntityType = "IP"
	EntityAPIKey EntityType = "API_KEY"
)

// Kind classifies a detection.
type Kind string

const (
	KindSpike       Kind = "ML_ANOMALY_SPIKE"
	KindErrorShift  Kind = "ML_ERROR_SHIFT"
	KindEnumeration Kind = "ML_ENUMERATION"
)

// Severity grades a detection by its z-score magnitude.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Metric names one of the six windowed features.
type Metric string

const (
	MetricRequestsPerMinute  Metric = "requests_per_minute"
	MetricUniqueDomains5m    Metric = "unique_domains_per_5m"
	MetricErrorRate5m        Metric = "error_rate_5m"
	MetricAvgDurationMs5m    Metric = "avg_duration_ms_5m"
	MetricDomainEntropy10m   Metric = "entropy_of_domains_10m"
	MetricEndpointMixEntropy Metric = "endpoint_mix"
)

// metricNames fixes the feature evaluation order.
var metricNames = []Metric{
	MetricRequestsPerMinute,
	MetricUniqueDomains5m,
	MetricErrorRate5m,
	MetricAvgDurationMs5m,
	MetricDomainEntropy10m,
	MetricEndpointMixEntropy,
}

// Observation is one recorded API request, as seen by the traffic
// middleware. Domain and APIKeyID are empty when not applicable.
type Observation struct {
	Time       time.Time     `json:"time"`
	APIKeyID   string        `json:"api_key_id,omitempty"`
	IPAddress  string        `json:"ip_address"`
	Endpoint   string        `json:"endpoint"`
	Domain     string        `json:"domain,omitempty"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration"`
}

// Features maps each metric to its current windowed value.
type Features map[Metric]float64

// Details carries the full evidence for a detection: the z-scores that
// fired, the raw features, and the windows and thresholds in force.
type Details struct {
	Z          map[Metric]float64 `json:"z"`
	Features   Features           `json:"features"`
	Windows    Windows            `json:"window"`
	Thresholds Thresholds         `json:"thresholds"`
}

// Windows are the sliding window sizes used for feature extraction.
type Windows struct {
	OneMinute   time.Duration `json:"one_minute"`
	FiveMinutes time.Duration `json:"five_minutes"`
	TenMinutes  time.Duration `json:"ten_minutes"`
}

// Thresholds are the z-score trigger levels in force for a detection.
type Thresholds struct {
	Spike       float64 `json:"spike"`
	ErrorShift  float64 `json:"error_shift"`
	Enumeration float64 `json:"enumeration"`
}

// Detection is one emitted anomaly. Exactly one of APIKeyID or IPAddress
// is set, matching EntityType.
type Detection struct {
	Kind       Kind       `json:"kind"`
	Severity   Severity   `json:"severity"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	APIKeyID   string     `json:"api_key_id,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	Details    Details    `json:"details"`
}

// severityForZ maps a z-score to its severity grade.
func severityForZ(z float64) Severity {
	switch {
	case z >= 8:
		return SeverityHigh
	case z >= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
