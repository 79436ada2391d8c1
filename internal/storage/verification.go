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

type verificationStore struct {
	db *DB
}

func (s *verificationStore) Upsert(ctx context.Context, verification models.Verification) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if verification.ID == uuid.Nil {
		verification.ID = uuid.New()
	}
	now := time.Now().UTC()
	if verification.CreatedAt.IsZero() {
		verification.CreatedAt = now
	}
	verification.UpdatedAt = now

	start := time.Now()
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte("ver:"+verification.Domain), verification)
	})
	metrics.RecordStoreOp("verifications", "upsert", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert verification for %s: %w", verification.Domain, err)
	}
	return nil
}

func (s *verificationStore) GetByDomain(ctx context.Context, domain string) (models.Verification, error) {
	if err := ctxErr(ctx); err != nil {
		return models.Verification{}, err
	}
	var verification models.Verification
	err := s.db.badger.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte("ver:"+domain), &verification)
	})
	return verification, err
}

func (s *verificationStore) RevokeVerified(ctx context.Context, domain string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.badger.Update(func(txn *badger.Txn) error {
		var verification models.Verification
		if err := getJSON(txn, []byte("ver:"+domain), &verification); err != nil {
			if err == ErrNotFound {
				return nil
			}
			return err
		}
		if verification.Status != models.VerificationVerified {
			return nil
		}
		verification.Status = models.VerificationFailed
		verification.UpdatedAt = time.Now().UTC()
		return setJSON(txn, []byte("ver:"+domain), verification)
	})
	metrics.RecordStoreOp("verifications", "revoke", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("revoke verification for %s: %w", domain, err)
	}
	return nil
}
