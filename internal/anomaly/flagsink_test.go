// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/events"
	"github.com/tomtom215/trustlens/internal/storage"
)

func TestFlagSinkPersistsAndPublishes(t *testing.T) {
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	stores := storage.NewStores(db)
	bus := events.NewBus(10)

	sink := NewFlagSink(stores.Flags, bus, zerolog.Nop())
	sink.HandleDetections(context.Background(), []Detection{
		{
			Kind:       KindSpike,
			Severity:   SeverityHigh,
			EntityType: EntityIP,
			EntityID:   "198.51.100.7",
			IPAddress:  "198.51.100.7",
			Details: Details{
				Z:        map[Metric]float64{MetricRequestsPerMinute: 9.2},
				Features: Features{MetricRequestsPerMinute: 420},
				Windows:  defaultWindows,
				Thresholds: Thresholds{
					Spike:       4,
					ErrorShift:  4,
					Enumeration: 3.5,
				},
			},
		},
	})

	flags, err := stores.Flags.ListByIP(context.Background(), "198.51.100.7", 10)
	if err != nil {
		t.Fatalf("list flags: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("flag count = %d, want 1", len(flags))
	}
	flag := flags[0]
	if flag.Kind != string(KindSpike) || flag.Severity != string(SeverityHigh) {
		t.Errorf("flag = %s/%s, want %s/%s", flag.Kind, flag.Severity, KindSpike, SeverityHigh)
	}
	if flag.Details["source"] != "EWMA_ZSCORE" {
		t.Errorf("details source = %v", flag.Details["source"])
	}
	if flag.Details["entity_id"] != "198.51.100.7" {
		t.Errorf("details entity_id = %v", flag.Details["entity_id"])
	}

	history := bus.History()
	if len(history) != 1 {
		t.Fatalf("event count = %d, want 1", len(history))
	}
	event := history[0]
	if event.Type != events.TypeAbuseFlagCreated {
		t.Errorf("event type = %s, want %s", event.Type, events.TypeAbuseFlagCreated)
	}
	if event.Payload["flag_id"] != flag.ID.String() {
		t.Errorf("event flag_id = %v, want %s", event.Payload["flag_id"], flag.ID)
	}
	if event.Payload["severity"] != string(SeverityHigh) {
		t.Errorf("event severity = %v", event.Payload["severity"])
	}
}

func TestFlagSinkSkipsFailedWrites(t *testing.T) {
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	stores := storage.NewStores(db)
	bus := events.NewBus(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewFlagSink(stores.Flags, bus, zerolog.Nop())
	sink.HandleDetections(ctx, []Detection{
		{
			Kind:       KindEnumeration,
			Severity:   SeverityMedium,
			EntityType: EntityAPIKey,
			EntityID:   "tlk_abc",
			APIKeyID:   "tlk_abc",
		},
	})

	if got := len(bus.History()); got != 0 {
		t.Errorf("event count = %d, want 0 when the write fails", got)
	}
}

func TestFlagSinkFeedsEngine(t *testing.T) {
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	stores := storage.NewStores(db)
	bus := events.NewBus(50)

	sink := NewFlagSink(stores.Flags, bus, zerolog.Nop())
	engine := NewEngine(DefaultConfig(), sink)

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	now = warm(engine, now, 6, 2, "steady.example")
	for i := 0; i < 200; i++ {
		engine.admit(Observation{
			Time:       now.Add(-5 * time.Second),
			IPAddress:  "203.0.113.7",
			Endpoint:   "/api/v1/domains/check",
			Domain:     "steady.example",
			StatusCode: 200,
			Duration:   20 * time.Millisecond,
		})
	}
	sink.HandleDetections(context.Background(), engine.DetectNow(now))

	flags, err := stores.Flags.ListByIP(context.Background(), "203.0.113.7", 10)
	if err != nil {
		t.Fatalf("list flags: %v", err)
	}
	if len(flags) == 0 {
		t.Fatal("spike produced no abuse flag")
	}
	if len(bus.History()) == 0 {
		t.Fatal("spike produced no event")
	}
}
