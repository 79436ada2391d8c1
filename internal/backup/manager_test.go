// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package backup

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/storage"
)

func newTestManager(t *testing.T, db *storage.DB, maxBackups int) *Manager {
	t.Helper()
	m, err := NewManager(db, Config{
		Dir:        t.TempDir(),
		Interval:   time.Hour,
		MaxBackups: maxBackups,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunOnceWritesSnapshot(t *testing.T) {
	db := openDB(t)
	stores := storage.NewStores(db)
	if _, err := stores.Flags.Create(context.Background(), models.AbuseFlag{
		Kind:     "ML_ANOMALY_SPIKE",
		Severity: "HIGH",
	}); err != nil {
		t.Fatalf("seed flag: %v", err)
	}

	m := newTestManager(t, db, 0)
	path, err := m.RunOnce()
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}
	if info.Size() == 0 {
		t.Error("snapshot is empty")
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	src := openDB(t)
	srcStores := storage.NewStores(src)
	flag, err := srcStores.Flags.Create(context.Background(), models.AbuseFlag{
		Kind:      "ML_ENUMERATION",
		Severity:  "MEDIUM",
		IPAddress: "198.51.100.4",
	})
	if err != nil {
		t.Fatalf("seed flag: %v", err)
	}

	m := newTestManager(t, src, 0)
	path, err := m.RunOnce()
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	dst := openDB(t)
	restorer := newTestManager(t, dst, 0)
	if err := restorer.Restore(path); err != nil {
		t.Fatalf("restore: %v", err)
	}

	flags, err := storage.NewStores(dst).Flags.ListByIP(context.Background(), "198.51.100.4", 10)
	if err != nil {
		t.Fatalf("list restored flags: %v", err)
	}
	if len(flags) != 1 || flags[0].ID != flag.ID {
		t.Fatalf("restored flags = %+v, want the seeded flag", flags)
	}
}

func TestRetentionKeepsNewest(t *testing.T) {
	db := openDB(t)
	m := newTestManager(t, db, 2)

	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		stamp := ts.Add(time.Duration(i) * time.Hour)
		m.now = func() time.Time { return stamp }
		if _, err := m.RunOnce(); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	kept, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %d snapshots, want 2", len(kept))
	}
	if !strings.HasSuffix(kept[0], "trustlens-20260801T020000Z.bak") ||
		!strings.HasSuffix(kept[1], "trustlens-20260801T030000Z.bak") {
		t.Errorf("kept = %v, want the two newest snapshots", kept)
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	db := openDB(t)
	if _, err := NewManager(db, Config{Interval: time.Hour}, zerolog.Nop()); err == nil {
		t.Error("missing dir accepted")
	}
	if _, err := NewManager(db, Config{Dir: t.TempDir()}, zerolog.Nop()); err == nil {
		t.Error("zero interval accepted")
	}
}
