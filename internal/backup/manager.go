// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package backup provides scheduled snapshots of the TrustLens store.
//
// Each run streams a full Badger backup to a timestamped file in the
// backup directory, then applies count-based retention. Snapshots are
// self-contained; restoring one into an empty data directory brings back
// logs, feedback, history, flags, verifications and reputation views.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/storage"
)

const filePrefix = "trustlens-"
const fileSuffix = ".bak"

// Config holds backup scheduling and retention settings.
type Config struct {
	// Dir receives the snapshot files.
	Dir string

	// Interval between scheduled snapshots.
	Interval time.Duration

	// MaxBackups bounds how many snapshots retention keeps, oldest
	// deleted first. Non-positive keeps everything.
	MaxBackups int
}

// Manager runs scheduled snapshots of one database.
type Manager struct {
	db     *storage.DB
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a backup manager.
func NewManager(db *storage.DB, cfg Config, logger zerolog.Logger) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup dir required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("backup interval must be positive, got %v", cfg.Interval)
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Manager{
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "backup").Logger(),
		now:    time.Now,
	}, nil
}

// Serve runs snapshots on the configured interval until ctx is
// cancelled. Implements suture.Service. A failed run is logged and the
// schedule continues; transient disk pressure must not kill the service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.Info().
		Str("dir", m.cfg.Dir).
		Dur("interval", m.cfg.Interval).
		Int("max_backups", m.cfg.MaxBackups).
		Msg("backup manager started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			path, err := m.RunOnce()
			if err != nil {
				m.logger.Error().Err(err).Msg("backup run failed")
				continue
			}
			m.logger.Info().Str("path", path).Msg("backup written")
		}
	}
}

func (m *Manager) String() string {
	return "backup-manager"
}

// RunOnce writes one snapshot and applies retention. Returns the path of
// the written file.
func (m *Manager) RunOnce() (string, error) {
	name := filePrefix + m.now().UTC().Format("20060102T150405Z") + fileSuffix
	path := filepath.Join(m.cfg.Dir, name)

	// Write to a temp name and rename: a crashed run never leaves a
	// half-written file that retention or restore would trust.
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := m.db.Backup(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close backup file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize backup file: %w", err)
	}

	if err := m.applyRetention(); err != nil {
		m.logger.Warn().Err(err).Msg("backup retention failed")
	}
	return path, nil
}

// Restore loads the snapshot at path into the database. The database
// should be empty; existing keys are overwritten by the snapshot's.
func (m *Manager) Restore(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()
	return m.db.Restore(f)
}

// applyRetention deletes the oldest snapshots beyond MaxBackups. File
// names embed a UTC timestamp, so lexical order is age order.
func (m *Manager) applyRetention() error {
	if m.cfg.MaxBackups <= 0 {
		return nil
	}
	snapshots, err := m.List()
	if err != nil {
		return err
	}
	if len(snapshots) <= m.cfg.MaxBackups {
		return nil
	}
	for _, stale := range snapshots[:len(snapshots)-m.cfg.MaxBackups] {
		if err := os.Remove(stale); err != nil {
			return fmt.Errorf("delete stale backup: %w", err)
		}
		m.logger.Debug().Str("path", stale).Msg("stale backup deleted")
	}
	return nil
}

// List returns the snapshot paths in the backup directory, oldest first.
func (m *Manager) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.cfg.Dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}
