// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package anomaly

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/logging"
	"github.com/tomtom215/trustlens/internal/metrics"
)

// Config holds the anomaly engine tuning parameters.
type Config struct {
	// Alpha is the EWMA smoothing factor.
	Alpha float64

	// MinUpdates suppresses z-scores until a baseline has seen this many
	// samples. Fresh entities never alert.
	MinUpdates int

	// Epsilon floors the variance to keep z-scores finite.
	Epsilon float64

	// Cooldown is the minimum interval between flags of the same kind for
	// the same entity.
	Cooldown time.Duration

	// PassInterval is the detection pass cadence.
	PassInterval time.Duration

	// IngestBuffer sizes the ingest channel. Ingest never blocks the
	// request path: observations arriving into a full buffer are dropped
	// and counted.
	IngestBuffer int

	SpikeThreshold       float64
	ErrorShiftThreshold  float64
	EnumerationThreshold float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:                0.25,
		MinUpdates:           5,
		Epsilon:              1e-5,
		Cooldown:             10 * time.Minute,
		PassInterval:         60 * time.Second,
		IngestBuffer:         1024,
		SpikeThreshold:       4.0,
		ErrorShiftThreshold:  4.0,
		EnumerationThreshold: 3.5,
	}
}

// defaultWindows are the fixed feature extraction windows.
var defaultWindows = Windows{
	OneMinute:   time.Minute,
	FiveMinutes: 5 * time.Minute,
	TenMinutes:  10 * time.Minute,
}

// Sink receives the detections of one pass. Implementations typically
// persist them as abuse flags and publish events; they must not block for
// long, the pass waits for them.
type Sink interface {
	HandleDetections(ctx context.Context, detections []Detection)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, detections []Detection)

// HandleDetections calls f.
func (f SinkFunc) HandleDetections(ctx context.Context, detections []Detection) {
	f(ctx, detections)
}

// Engine is the anomaly detection engine. One instance owns the entity
// registry; all state lives in memory and resets on restart, which is
// intentional: baselines re-learn quickly and stale baselines from before
// a deploy are worse than none.
type Engine struct {
	cfg     Config
	windows Windows
	sink    Sink
	logger  zerolog.Logger

	ingest chan Observation

	mu       sync.Mutex
	entities map[string]*entityState
	lastFlag map[string]time.Time
}

// NewEngine creates an anomaly engine. A nil sink discards detections.
func NewEngine(cfg Config, sink Sink) *Engine {
	if cfg.IngestBuffer <= 0 {
		cfg.IngestBuffer = DefaultConfig().IngestBuffer
	}
	if cfg.PassInterval <= 0 {
		cfg.PassInterval = DefaultConfig().PassInterval
	}
	if sink == nil {
		sink = SinkFunc(func(context.Context, []Detection) {})
	}
	return &Engine{
		cfg:      cfg,
		windows:  defaultWindows,
		sink:     sink,
		logger:   logging.With().Str("component", "anomaly").Logger(),
		ingest:   make(chan Observation, cfg.IngestBuffer),
		entities: make(map[string]*entityState),
		lastFlag: make(map[string]time.Time),
	}
}

// Ingest queues an observation for the engine loop. It never blocks: when
// the buffer is full the observation is dropped and counted, the request
// path always wins.
func (e *Engine) Ingest(obs Observation) {
	select {
	case e.ingest <- obs:
	default:
		metrics.AnomalyIngestDrops.Inc()
	}
}

// Serve runs the engine loop until ctx is cancelled: it drains the ingest
// channel into the registry and runs a detection pass every PassInterval.
// Implements suture.Service.
func (e *Engine) Serve(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PassInterval)
	defer ticker.Stop()

	e.logger.Info().
		Dur("pass_interval", e.cfg.PassInterval).
		Int("ingest_buffer", e.cfg.IngestBuffer).
		Msg("anomaly engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case obs := <-e.ingest:
			e.admit(obs)
		case now := <-ticker.C:
			e.runPass(ctx, now)
		}
	}
}

// admit attributes an observation to its IP entity and, when keyed, its
// API-key entity.
func (e *Engine) admit(obs Observation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.admitLocked(EntityIP, obs.IPAddress, obs)
	if obs.APIKeyID != "" {
		e.admitLocked(EntityAPIKey, obs.APIKeyID, obs)
	}
	metrics.AnomalyEntitiesTracked.Set(float64(len(e.entities)))
}

func (e *Engine) admitLocked(entityType EntityType, id string, obs Observation) {
	if id == "" {
		return
	}
	key := string(entityType) + ":" + id
	state, ok := e.entities[key]
	if !ok {
		state = newEntityState()
		e.entities[key] = state
	}
	state.observations = append(state.observations, obs)
	state.prune(obs.Time, e.windows.TenMinutes)
}

// runPass executes one detection pass and hands any detections to the sink.
func (e *Engine) runPass(ctx context.Context, now time.Time) {
	start := time.Now()
	detections := e.DetectNow(now)
	metrics.AnomalyPassDuration.Observe(time.Since(start).Seconds())

	if len(detections) == 0 {
		return
	}
	for _, d := range detections {
		metrics.RecordDetection(string(d.Kind), string(d.Severity))
		e.logger.Warn().
			Str("kind", string(d.Kind)).
			Str("severity", string(d.Severity)).
			Str("entity_type", string(d.EntityType)).
			Str("entity_id", d.EntityID).
			Msg("anomaly detected")
	}
	e.sink.HandleDetections(ctx, detections)
}

// DetectNow runs the detection checks for every tracked entity at the
// given instant and updates all baselines. Exposed for the pass loop and
// for deterministic testing with a synthetic clock.
func (e *Engine) DetectNow(now time.Time) []Detection {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Detection
	for key, state := range e.entities {
		entityType, id := splitEntityKey(key)
		out = append(out, e.detectEntityLocked(entityType, id, state, now)...)
	}
	return out
}

func splitEntityKey(key string) (EntityType, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return EntityType(key[:i]), key[i+1:]
		}
	}
	return EntityIP, key
}

// detectEntityLocked computes features, checks the three detectors against
// the baselines, then folds the features into the baselines. Detection
// reads the pre-update baseline: the sample that spikes must not soften
// its own z-score.
func (e *Engine) detectEntityLocked(entityType EntityType, id string, state *entityState, now time.Time) []Detection {
	features := state.features(now, e.windows)

	z := make(map[Metric]float64, len(metricNames))
	for _, name := range metricNames {
		baseline := state.baselines[name]
		if baseline.updates >= e.cfg.MinUpdates {
			z[name] = baseline.zScore(features[name], e.cfg.Epsilon)
		}
	}

	details := Details{
		Z:        z,
		Features: features,
		Windows:  e.windows,
		Thresholds: Thresholds{
			Spike:       e.cfg.SpikeThreshold,
			ErrorShift:  e.cfg.ErrorShiftThreshold,
			Enumeration: e.cfg.EnumerationThreshold,
		},
	}

	zReq := z[MetricRequestsPerMinute]
	zDomains := z[MetricUniqueDomains5m]
	zError := z[MetricErrorRate5m]
	zEntropy := z[MetricDomainEntropy10m]
	zMix := z[MetricEndpointMixEntropy]

	var out []Detection
	emit := func(kind Kind, severity Severity) {
		d := Detection{
			Kind:       kind,
			Severity:   severity,
			EntityType: entityType,
			EntityID:   id,
			Details:    details,
		}
		if entityType == EntityAPIKey {
			d.APIKeyID = id
		} else {
			d.IPAddress = id
		}
		out = append(out, d)
	}

	if (zReq >= e.cfg.SpikeThreshold || zDomains >= e.cfg.SpikeThreshold) &&
		e.canEmitLocked(KindSpike, entityType, id, now) {
		emit(KindSpike, severityForZ(maxZ(zReq, zDomains)))
	}

	if zError >= e.cfg.ErrorShiftThreshold && features[MetricErrorRate5m] >= 0.3 &&
		e.canEmitLocked(KindErrorShift, entityType, id, now) {
		emit(KindErrorShift, severityForZ(zError))
	}

	isEnumeration := zDomains >= e.cfg.EnumerationThreshold &&
		(zEntropy >= e.cfg.EnumerationThreshold || zMix >= e.cfg.EnumerationThreshold) &&
		features[MetricUniqueDomains5m] >= 15
	if isEnumeration && e.canEmitLocked(KindEnumeration, entityType, id, now) {
		emit(KindEnumeration, severityForZ(maxZ(zDomains, zEntropy, zMix)))
	}

	for _, name := range metricNames {
		state.baselines[name].update(features[name], e.cfg.Alpha, e.cfg.Epsilon)
	}
	return out
}

// canEmitLocked enforces the per (kind, entity) cooldown. Passing the
// check arms the cooldown immediately.
func (e *Engine) canEmitLocked(kind Kind, entityType EntityType, id string, now time.Time) bool {
	key := string(kind) + ":" + string(entityType) + ":" + id
	if previous, ok := e.lastFlag[key]; ok && now.Sub(previous) < e.cfg.Cooldown {
		return false
	}
	e.lastFlag[key] = now
	return true
}

func maxZ(values ...float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
