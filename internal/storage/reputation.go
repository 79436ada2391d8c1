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

	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
)

type reputationStore struct {
	db *DB
}

func (s *reputationStore) Upsert(ctx context.Context, view models.ReputationView) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte("rep:"+view.Domain), view)
	})
	metrics.RecordStoreOp("reputation", "upsert", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert reputation for %s: %w", view.Domain, err)
	}
	return nil
}

func (s *reputationStore) GetByDomain(ctx context.Context, domain string) (models.ReputationView, error) {
	if err := ctxErr(ctx); err != nil {
		return models.ReputationView{}, err
	}
	var view models.ReputationView
	err := s.db.badger.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte("rep:"+domain), &view)
	})
	return view, err
}
