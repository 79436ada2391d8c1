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

type requestLogStore struct {
	db *DB
}

func (s *requestLogStore) Create(ctx context.Context, log models.RequestLog) (models.RequestLog, error) {
	if err := ctxErr(ctx); err != nil {
		return models.RequestLog{}, err
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	primary := primaryKey("rl:", log.CreatedAt, log.ID.String())
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, primary, log); err != nil {
			return err
		}
		if log.Domain != "" {
			if err := txn.Set(indexKey("rli:d:", log.Domain, log.CreatedAt, log.ID.String()), primary); err != nil {
				return err
			}
		}
		if log.IPAddress != "" {
			if err := txn.Set(indexKey("rli:i:", log.IPAddress, log.CreatedAt, log.ID.String()), primary); err != nil {
				return err
			}
		}
		if log.APIKeyID != "" {
			if err := txn.Set(indexKey("rli:k:", log.APIKeyID, log.CreatedAt, log.ID.String()), primary); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordStoreOp("request_logs", "create", time.Since(start), err)
	if err != nil {
		return models.RequestLog{}, fmt.Errorf("create request log: %w", err)
	}
	return log, nil
}

func (s *requestLogStore) ListByDomain(ctx context.Context, domain string, limit int) ([]models.RequestLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanIndex[models.RequestLog](s.db.badger, []byte("rli:d:"+domain+":"), limit, true)
}

func (s *requestLogStore) ListByIP(ctx context.Context, ip string, limit int) ([]models.RequestLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanIndex[models.RequestLog](s.db.badger, []byte("rli:i:"+ip+":"), limit, true)
}

func (s *requestLogStore) ListByAPIKey(ctx context.Context, keyID string, limit int) ([]models.RequestLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanIndex[models.RequestLog](s.db.badger, []byte("rli:k:"+keyID+":"), limit, true)
}

func (s *requestLogStore) ListRecent(ctx context.Context, limit int) ([]models.RequestLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanPrefix[models.RequestLog](s.db.badger, []byte("rl:"), limit, true)
}
