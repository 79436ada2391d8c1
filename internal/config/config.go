// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package config provides layered configuration for TrustLens using Koanf:
// struct defaults, then an optional YAML file, then TRUSTLENS_* environment
// variables.
//
// The numeric policy constants of the scoring and reputation engines
// (quiet-domain deduction, stability window, cooldowns, cadences) are
// deliberately configuration rather than code constants: they encode
// product policy, not derived facts.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the TrustLens server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Logging    LoggingConfig    `koanf:"logging"`
	Risk       RiskConfig       `koanf:"risk"`
	Anomaly    AnomalyConfig    `koanf:"anomaly"`
	Reputation ReputationConfig `koanf:"reputation"`
	Events     EventsConfig     `koanf:"events"`
	Graph      GraphConfig      `koanf:"graph"`
	Backup     BackupConfig     `koanf:"backup"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs     int           `koanf:"ratelimitreqs"`
	RateLimitWindow   time.Duration `koanf:"ratelimitwindow"`
	RateLimitDisabled bool          `koanf:"ratelimitdisabled"`
}

// StorageConfig configures the BadgerDB store.
type StorageConfig struct {
	// Path is the on-disk Badger directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"inmemory"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RiskConfig configures the domain risk engine.
type RiskConfig struct {
	// ContentFetchEnabled turns on the content-signals module. Disabled by
	// default to keep scoring fast and side-effect free.
	ContentFetchEnabled bool `koanf:"contentfetchenabled"`

	// QuietDomainDeduction is subtracted from the score of long-established
	// domains that trigger no module.
	QuietDomainDeduction int `koanf:"quietdomaindeduction"`
}

// AnomalyConfig configures the adaptive traffic anomaly engine.
type AnomalyConfig struct {
	// PassInterval is the cadence of the detection pass.
	PassInterval time.Duration `koanf:"passinterval"`

	// Cooldown suppresses duplicate (kind, entity) detections.
	Cooldown time.Duration `koanf:"cooldown"`

	// IngestBuffer is the capacity of the non-blocking ingest channel.
	IngestBuffer int `koanf:"ingestbuffer"`

	// Alpha is the EWMA smoothing factor for baselines.
	Alpha float64 `koanf:"alpha"`

	// MinUpdates is the number of baseline updates required before
	// z-scores are considered meaningful (cold-start guard).
	MinUpdates int `koanf:"minupdates"`

	SpikeThreshold       float64 `koanf:"spikethreshold"`
	ErrorShiftThreshold  float64 `koanf:"errorshiftthreshold"`
	EnumerationThreshold float64 `koanf:"enumerationthreshold"`
}

// ReputationConfig configures the reputation aggregator.
type ReputationConfig struct {
	// CacheTTL is how long a computed reputation view is served from cache.
	CacheTTL time.Duration `koanf:"cachettl"`

	// StabilityWindowDays and StabilityScoreCeiling gate the long-stability
	// discount: at least five history points spanning more than the window,
	// with a mean score below the ceiling.
	StabilityWindowDays   int     `koanf:"stabilitywindowdays"`
	StabilityScoreCeiling float64 `koanf:"stabilityscoreceiling"`
}

// EventsConfig configures the in-memory event bus.
type EventsConfig struct {
	// HistoryLimit bounds the replayable event history (FIFO eviction).
	HistoryLimit int `koanf:"historylimit"`

	// KeepAliveInterval is the SSE keep-alive comment cadence.
	KeepAliveInterval time.Duration `koanf:"keepaliveinterval"`
}

// GraphConfig bounds threat-graph and export queries.
type GraphConfig struct {
	PivotLimit   int `koanf:"pivotlimit"`
	RelatedLimit int `koanf:"relatedlimit"`
	FlagLimit    int `koanf:"flaglimit"`
	ExportLimit  int `koanf:"exportlimit"`
}

// BackupConfig configures scheduled store snapshots.
type BackupConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Dir      string        `koanf:"dir"`
	Interval time.Duration `koanf:"interval"`

	// MaxBackups bounds retained snapshots; non-positive keeps all.
	MaxBackups int `koanf:"maxbackups"`
}

// Default returns the built-in defaults, the base layer of Load. Useful
// for tests and embedded use.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3858,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Storage: StorageConfig{
			Path:     "/data/trustlens",
			InMemory: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Risk: RiskConfig{
			ContentFetchEnabled:  false,
			QuietDomainDeduction: 8,
		},
		Anomaly: AnomalyConfig{
			PassInterval:         60 * time.Second,
			Cooldown:             10 * time.Minute,
			IngestBuffer:         1024,
			Alpha:                0.25,
			MinUpdates:           5,
			SpikeThreshold:       4.0,
			ErrorShiftThreshold:  4.0,
			EnumerationThreshold: 3.5,
		},
		Reputation: ReputationConfig{
			CacheTTL:              60 * time.Second,
			StabilityWindowDays:   180,
			StabilityScoreCeiling: 20,
		},
		Events: EventsConfig{
			HistoryLimit:      500,
			KeepAliveInterval: 25 * time.Second,
		},
		Graph: GraphConfig{
			PivotLimit:   3000,
			RelatedLimit: 5000,
			FlagLimit:    500,
			ExportLimit:  10000,
		},
		Backup: BackupConfig{
			Enabled:    false,
			Dir:        "/data/trustlens-backups",
			Interval:   24 * time.Hour,
			MaxBackups: 7,
		},
	}
}

// Validate checks configuration invariants that would otherwise surface as
// runtime misbehavior deep inside the engines.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path required unless storage.inmemory is set")
	}
	if c.Anomaly.Alpha <= 0 || c.Anomaly.Alpha >= 1 {
		return fmt.Errorf("anomaly.alpha %v must be in (0, 1)", c.Anomaly.Alpha)
	}
	if c.Anomaly.MinUpdates < 1 {
		return fmt.Errorf("anomaly.minupdates must be positive")
	}
	if c.Anomaly.PassInterval <= 0 || c.Anomaly.Cooldown <= 0 {
		return fmt.Errorf("anomaly.passinterval and anomaly.cooldown must be positive")
	}
	if c.Events.HistoryLimit < 1 {
		return fmt.Errorf("events.historylimit must be positive")
	}
	if c.Reputation.CacheTTL <= 0 {
		return fmt.Errorf("reputation.cachettl must be positive")
	}
	if c.Graph.PivotLimit < 1 || c.Graph.RelatedLimit < 1 || c.Graph.FlagLimit < 1 {
		return fmt.Errorf("graph limits must be positive")
	}
	if c.Backup.Enabled {
		if c.Backup.Dir == "" {
			return fmt.Errorf("backup.dir required when backup.enabled is set")
		}
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup.interval must be positive")
		}
	}
	return nil
}
