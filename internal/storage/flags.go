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

type flagStore struct {
	db *DB
}

func (s *flagStore) Create(ctx context.Context, flag models.AbuseFlag) (models.AbuseFlag, error) {
	if err := ctxErr(ctx); err != nil {
		return models.AbuseFlag{}, err
	}
	if flag.ID == uuid.Nil {
		flag.ID = uuid.New()
	}
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	primary := primaryKey("fl:", flag.CreatedAt, flag.ID.String())
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, primary, flag); err != nil {
			return err
		}
		if err := txn.Set([]byte("flid:"+flag.ID.String()), primary); err != nil {
			return err
		}
		if flag.Domain != "" {
			if err := txn.Set(indexKey("fli:d:", flag.Domain, flag.CreatedAt, flag.ID.String()), primary); err != nil {
				return err
			}
		}
		if flag.IPAddress != "" {
			if err := txn.Set(indexKey("fli:i:", flag.IPAddress, flag.CreatedAt, flag.ID.String()), primary); err != nil {
				return err
			}
		}
		if flag.APIKeyID != "" {
			if err := txn.Set(indexKey("fli:k:", flag.APIKeyID, flag.CreatedAt, flag.ID.String()), primary); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordStoreOp("flags", "create", time.Since(start), err)
	if err != nil {
		return models.AbuseFlag{}, fmt.Errorf("create abuse flag: %w", err)
	}
	return flag, nil
}

func (s *flagStore) ListByDomain(ctx context.Context, domain string, limit int) ([]models.AbuseFlag, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanIndex[models.AbuseFlag](s.db.badger, []byte("fli:d:"+domain+":"), limit, true)
}

func (s *flagStore) ListByIP(ctx context.Context, ip string, limit int) ([]models.AbuseFlag, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanIndex[models.AbuseFlag](s.db.badger, []byte("fli:i:"+ip+":"), limit, true)
}

func (s *flagStore) ListByAPIKey(ctx context.Context, keyID string, limit int) ([]models.AbuseFlag, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanIndex[models.AbuseFlag](s.db.badger, []byte("fli:k:"+keyID+":"), limit, true)
}

func (s *flagStore) ListRecent(ctx context.Context, limit int) ([]models.AbuseFlag, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return scanPrefix[models.AbuseFlag](s.db.badger, []byte("fl:"), limit, true)
}

func (s *flagStore) CountOpenByDomain(ctx context.Context, domain string) (models.FlagCounts, error) {
	flags, err := s.ListByDomain(ctx, domain, 0)
	if err != nil {
		return models.FlagCounts{}, err
	}
	var counts models.FlagCounts
	for _, flag := range flags {
		if flag.ResolvedAt != nil {
			continue
		}
		switch flag.Severity {
		case "HIGH":
			counts.High++
		case "MEDIUM":
			counts.Medium++
		case "LOW":
			counts.Low++
		}
	}
	return counts, nil
}

func (s *flagStore) Resolve(ctx context.Context, id string, at time.Time) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		var primary []byte
		item, err := txn.Get([]byte("flid:" + id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		if primary, err = item.ValueCopy(nil); err != nil {
			return err
		}

		var flag models.AbuseFlag
		if err := getJSON(txn, primary, &flag); err != nil {
			return err
		}
		if flag.ResolvedAt != nil {
			return nil
		}
		resolved := at.UTC()
		flag.ResolvedAt = &resolved
		return setJSON(txn, primary, flag)
	})
	metrics.RecordStoreOp("flags", "resolve", time.Since(start), err)
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("resolve abuse flag %s: %w", id, err)
	}
	return err
}
