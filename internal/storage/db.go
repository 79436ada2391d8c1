// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/logging"
)

// DB wraps the BadgerDB handle shared by all stores.
type DB struct {
	badger *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the database at dir.
func Open(dir string) (*DB, error) {
	logger := logging.With().Str("component", "storage").Logger()
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{logger}).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &DB{badger: db, logger: logger}, nil
}

// OpenInMemory opens an ephemeral in-memory database. Used by tests and
// usable for fully stateless deployments.
func OpenInMemory() (*DB, error) {
	logger := logging.With().Str("component", "storage").Logger()
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(badgerLogger{logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &DB{badger: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	return d.badger.Close()
}

// RunGC runs Badger value-log garbage collection on a fixed cadence until
// ctx is cancelled. Implements suture.Service.
func (d *DB) RunGC(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Repeat while GC keeps finding work; ErrNoRewrite ends the
			// round.
			for {
				if err := d.badger.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						d.logger.Warn().Err(err).Msg("value log gc failed")
					}
					break
				}
			}
		}
	}
}

// Backup streams a full snapshot of the database to w and returns the
// version watermark of the snapshot.
func (d *DB) Backup(w io.Writer) (uint64, error) {
	since, err := d.badger.Backup(w, 0)
	if err != nil {
		return 0, fmt.Errorf("backup badger: %w", err)
	}
	return since, nil
}

// Restore loads a backup stream produced by Backup into the database.
// Intended for restoring into an empty database.
func (d *DB) Restore(r io.Reader) error {
	if err := d.badger.Load(r, 16); err != nil {
		return fmt.Errorf("restore badger: %w", err)
	}
	return nil
}

// badgerLogger adapts zerolog to badger's logger interface.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
