// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package anomaly

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/events"
	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/storage"
)

// FlagSink turns detections into persisted abuse flags and realtime
// events. The flag is written first, the event published after, so a
// subscriber acting on ABUSE_FLAG_CREATED always finds the flag.
type FlagSink struct {
	flags  storage.FlagStore
	bus    *events.Bus
	logger zerolog.Logger
}

// NewFlagSink wires a sink over the flag store and event bus.
func NewFlagSink(flags storage.FlagStore, bus *events.Bus, logger zerolog.Logger) *FlagSink {
	return &FlagSink{
		flags:  flags,
		bus:    bus,
		logger: logger.With().Str("component", "flagsink").Logger(),
	}
}

// HandleDetections persists each detection as an abuse flag. A failed
// write is logged and skipped; one bad flag must not drop the rest of
// the batch.
func (s *FlagSink) HandleDetections(ctx context.Context, detections []Detection) {
	for _, detection := range detections {
		flag, err := s.flags.Create(ctx, models.AbuseFlag{
			Kind:      string(detection.Kind),
			Severity:  string(detection.Severity),
			APIKeyID:  detection.APIKeyID,
			IPAddress: detection.IPAddress,
			Details: map[string]any{
				"source":      "EWMA_ZSCORE",
				"entity_type": string(detection.EntityType),
				"entity_id":   detection.EntityID,
				"z":           detection.Details.Z,
				"features":    detection.Details.Features,
				"windows":     detection.Details.Windows,
				"thresholds":  detection.Details.Thresholds,
			},
		})
		if err != nil {
			s.logger.Error().Err(err).
				Str("kind", string(detection.Kind)).
				Str("entity", detection.EntityID).
				Msg("persist abuse flag failed")
			continue
		}

		s.bus.Publish(events.TypeAbuseFlagCreated, map[string]any{
			"flag_id":     flag.ID.String(),
			"kind":        flag.Kind,
			"severity":    flag.Severity,
			"entity_type": string(detection.EntityType),
			"entity_id":   detection.EntityID,
		}, flag.CorrelationID)
	}
}
