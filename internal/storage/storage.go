// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package storage provides the persistent stores behind the TrustLens
// engines: request logs, feedback, score history, abuse flags, domain
// verification and reputation views.
//
// The stores are defined as narrow interfaces consumed by the engines;
// the provided implementation is backed by BadgerDB with JSON values.
// Time-ordered keys make range scans cheap, and secondary index keys
// point back at primary keys for the per-domain, per-IP and per-key
// access paths.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/trustlens/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// RequestLogStore persists request logs and serves the access paths the
// graph, correlation and export layers pivot on.
type RequestLogStore interface {
	Create(ctx context.Context, log models.RequestLog) (models.RequestLog, error)
	ListByDomain(ctx context.Context, domain string, limit int) ([]models.RequestLog, error)
	ListByIP(ctx context.Context, ip string, limit int) ([]models.RequestLog, error)
	ListByAPIKey(ctx context.Context, keyID string, limit int) ([]models.RequestLog, error)
	ListRecent(ctx context.Context, limit int) ([]models.RequestLog, error)
}

// FeedbackStore persists community feedback per domain.
type FeedbackStore interface {
	Create(ctx context.Context, feedback models.Feedback) (models.Feedback, error)
	ListByDomain(ctx context.Context, domain string) ([]models.Feedback, error)
}

// HistoryStore persists risk check outcomes per domain in time order.
type HistoryStore interface {
	Append(ctx context.Context, entry models.HistoryEntry) (models.HistoryEntry, error)

	// ListByDomain returns entries in ascending time order. A zero since
	// returns the full history.
	ListByDomain(ctx context.Context, domain string, since time.Time) ([]models.HistoryEntry, error)

	// Latest returns the most recent entry, or ErrNotFound.
	Latest(ctx context.Context, domain string) (models.HistoryEntry, error)
}

// FlagStore persists abuse flags.
type FlagStore interface {
	Create(ctx context.Context, flag models.AbuseFlag) (models.AbuseFlag, error)
	ListByDomain(ctx context.Context, domain string, limit int) ([]models.AbuseFlag, error)
	ListByIP(ctx context.Context, ip string, limit int) ([]models.AbuseFlag, error)
	ListByAPIKey(ctx context.Context, keyID string, limit int) ([]models.AbuseFlag, error)
	ListRecent(ctx context.Context, limit int) ([]models.AbuseFlag, error)

	// CountOpenByDomain tallies unresolved flags for a domain by severity.
	CountOpenByDomain(ctx context.Context, domain string) (models.FlagCounts, error)

	// Resolve marks a flag resolved. Resolving twice is a no-op.
	Resolve(ctx context.Context, id string, at time.Time) error
}

// VerificationStore persists domain ownership verification state.
type VerificationStore interface {
	Upsert(ctx context.Context, verification models.Verification) error
	GetByDomain(ctx context.Context, domain string) (models.Verification, error)

	// RevokeVerified flips a VERIFIED record to FAILED. Domains without a
	// verified record are left untouched.
	RevokeVerified(ctx context.Context, domain string) error
}

// ReputationStore persists computed reputation views.
type ReputationStore interface {
	Upsert(ctx context.Context, view models.ReputationView) error
	GetByDomain(ctx context.Context, domain string) (models.ReputationView, error)
}

// Stores bundles all store implementations over one database.
type Stores struct {
	Logs          RequestLogStore
	Feedback      FeedbackStore
	History       HistoryStore
	Flags         FlagStore
	Verifications VerificationStore
	Reputation    ReputationStore
}

// NewStores wires all Badger-backed stores over db.
func NewStores(db *DB) *Stores {
	return &Stores{
		Logs:          &requestLogStore{db: db},
		Feedback:      &feedbackStore{db: db},
		History:       &historyStore{db: db},
		Flags:         &flagStore{db: db},
		Verifications: &verificationStore{db: db},
		Reputation:    &reputationStore{db: db},
	}
}
