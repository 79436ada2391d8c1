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

type feedbackStore struct {
	db *DB
}

func (s *feedbackStore) Create(ctx context.Context, feedback models.Feedback) (models.Feedback, error) {
	if err := ctxErr(ctx); err != nil {
		return models.Feedback{}, err
	}
	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	if feedback.Status == "" {
		feedback.Status = models.ModerationPending
	}
	if feedback.ReputationWeight == 0 {
		feedback.ReputationWeight = 1
	}

	start := time.Now()
	key := indexKey("fb:", feedback.Domain, feedback.CreatedAt, feedback.ID.String())
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, feedback)
	})
	metrics.RecordStoreOp("feedback", "create", time.Since(start), err)
	if err != nil {
		return models.Feedback{}, fmt.Errorf("create feedback: %w", err)
	}
	return feedback, nil
}

func (s *feedbackStore) ListByDomain(ctx context.Context, domain string) ([]models.Feedback, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanPrefix[models.Feedback](s.db.badger, []byte("fb:"+domain+":"), 0, false)
}
