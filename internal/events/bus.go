// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package events provides the in-process realtime event bus.
//
// The bus keeps a bounded in-memory history for cursor-based replay and
// dispatches every published event synchronously to all subscribers.
// Synchronous dispatch keeps ordering trivial: subscribers observe events
// in exactly the publish order, and a subscriber that needs to decouple
// does its own buffering (the SSE stream does).
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/logging"
	"github.com/tomtom215/trustlens/internal/metrics"
)

// Type enumerates the realtime event types.
type Type string

const (
	TypeLogCreated       Type = "LOG_CREATED"
	TypeAbuseFlagCreated Type = "ABUSE_FLAG_CREATED"
	TypeTicketCreated    Type = "TICKET_CREATED"
	TypeTicketUpdated    Type = "TICKET_UPDATED"
	TypeReportCreated    Type = "REPORT_CREATED"
	TypeReportModerated  Type = "REPORT_MODERATED"
	TypeKeyStatusChanged Type = "KEY_STATUS_CHANGED"
	TypeIPRuleChanged    Type = "IP_RULE_CHANGED"
	TypeIncidentChanged  Type = "INCIDENT_CHANGED"
)

// Event is one realtime event. Seq is a process-local monotonic sequence
// number backing the replay cursor; IDs alone are random and carry no
// ordering.
type Event struct {
	Type          Type           `json:"type"`
	ID            string         `json:"id"`
	Seq           uint64         `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	Payload       map[string]any `json:"payload"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// Handler receives published events during dispatch. Handlers run on the
// publisher's goroutine and must return quickly.
type Handler func(Event)

// DefaultHistoryLimit caps the replay history.
const DefaultHistoryLimit = 500

// Bus is the realtime event bus. Safe for concurrent use.
type Bus struct {
	logger zerolog.Logger
	limit  int

	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextSub  uint64
	history  []Event
	seq      uint64
}

// NewBus creates a bus with the given history limit; non-positive limits
// fall back to DefaultHistoryLimit.
func NewBus(historyLimit int) *Bus {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Bus{
		logger:   logging.With().Str("component", "events").Logger(),
		limit:    historyLimit,
		handlers: make(map[uint64]Handler),
	}
}

// Publish appends the event to the history, evicting the oldest entry
// beyond the limit, and synchronously dispatches it to a snapshot of the
// current subscribers. A panicking subscriber is isolated and logged; it
// never takes down the publisher or starves later subscribers.
func (b *Bus) Publish(eventType Type, payload map[string]any, correlationID string) Event {
	b.mu.Lock()
	b.seq++
	event := Event{
		Type:          eventType,
		ID:            uuid.NewString(),
		Seq:           b.seq,
		CreatedAt:     time.Now().UTC(),
		Payload:       payload,
		CorrelationID: correlationID,
	}
	b.history = append(b.history, event)
	if len(b.history) > b.limit {
		b.history = append(b.history[:0], b.history[len(b.history)-b.limit:]...)
	}
	snapshot := make([]Handler, 0, len(b.handlers))
	for _, handler := range b.handlers {
		snapshot = append(snapshot, handler)
	}
	b.mu.Unlock()

	metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()
	for _, handler := range snapshot {
		b.dispatch(handler, event)
	}
	return event
}

func (b *Bus) dispatch(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventSubscriberPanics.Inc()
			b.logger.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Str("event_id", event.ID).
				Msg("event subscriber panicked")
		}
	}()
	handler(event)
}

// Subscribe registers a handler and returns its unsubscribe function.
// Both are safe to call during dispatch: dispatch works on a snapshot, so
// a handler added or removed mid-publish takes effect from the next one.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.handlers[id] = handler
	count := len(b.handlers)
	b.mu.Unlock()

	metrics.EventSubscribers.Set(float64(count))

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			remaining := len(b.handlers)
			b.mu.Unlock()
			metrics.EventSubscribers.Set(float64(remaining))
		})
	}
}

// EventsSince returns the retained events strictly after the event with
// the given ID, in publish order. An empty or unknown cursor returns the
// full retained history; the caller catches up from the oldest retained
// event rather than silently missing everything before reconnecting.
func (b *Bus) EventsSince(lastEventID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if lastEventID != "" {
		for i, event := range b.history {
			if event.ID == lastEventID {
				start = i + 1
				break
			}
		}
	}
	out := make([]Event, len(b.history)-start)
	copy(out, b.history[start:])
	return out
}

// History returns a copy of the full retained history.
func (b *Bus) History() []Event {
	return b.EventsSince("")
}
