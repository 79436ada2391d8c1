// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package storage

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
)

type historyStore struct {
	db *DB
}

func (s *historyStore) Append(ctx context.Context, entry models.HistoryEntry) (models.HistoryEntry, error) {
	if err := ctxErr(ctx); err != nil {
		return models.HistoryEntry{}, err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	key := indexKey("hist:", entry.Domain, entry.CreatedAt, entry.ID.String())
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, entry)
	})
	metrics.RecordStoreOp("history", "append", time.Since(start), err)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}

func (s *historyStore) ListByDomain(ctx context.Context, domain string, since time.Time) ([]models.HistoryEntry, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	entries, err := scanPrefix[models.HistoryEntry](s.db.badger, []byte("hist:"+domain+":"), 0, false)
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		return entries, nil
	}
	kept := entries[:0]
	for _, entry := range entries {
		if !entry.CreatedAt.Before(since) {
			kept = append(kept, entry)
		}
	}
	return kept, nil
}

func (s *historyStore) Latest(ctx context.Context, domain string) (models.HistoryEntry, error) {
	if err := ctxErr(ctx); err != nil {
		return models.HistoryEntry{}, err
	}
	entries, err := scanPrefix[models.HistoryEntry](s.db.badger, []byte("hist:"+domain+":"), 1, true)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	if len(entries) == 0 {
		return models.HistoryEntry{}, ErrNotFound
	}
	return entries[0], nil
}
