// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package main is the entry point for the TrustLens server.
//
// TrustLens is a self-hosted domain-risk and abuse-intelligence engine.
// It scores domains for phishing and fraud signals, tracks per-domain
// reputation over time, detects traffic anomalies in its own API usage,
// and exposes threat graphs, intel exports and a realtime event stream.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered load (defaults, config file,
//     TRUSTLENS_ environment variables)
//  2. Logging: zerolog global logger
//  3. Storage: BadgerDB stores (request logs, feedback, history, flags,
//     verifications, reputation views)
//  4. Engines: risk engine, anomaly engine, reputation service, threat
//     graph service, event bus
//  5. Supervision: suture tree running the anomaly engine, storage GC
//     and the HTTP server
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor tree stops its services, in-flight requests get a drain
// window, then the database closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/trustlens/internal/anomaly"
	"github.com/tomtom215/trustlens/internal/api"
	"github.com/tomtom215/trustlens/internal/backup"
	"github.com/tomtom215/trustlens/internal/config"
	"github.com/tomtom215/trustlens/internal/events"
	"github.com/tomtom215/trustlens/internal/graph"
	"github.com/tomtom215/trustlens/internal/logging"
	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/reputation"
	"github.com/tomtom215/trustlens/internal/risk"
	"github.com/tomtom215/trustlens/internal/storage"
	"github.com/tomtom215/trustlens/internal/supervisor"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("storage_path", cfg.Storage.Path).
		Bool("in_memory", cfg.Storage.InMemory).
		Msg("Starting TrustLens")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	var db *storage.DB
	if cfg.Storage.InMemory {
		db, err = storage.OpenInMemory()
	} else {
		db, err = storage.Open(cfg.Storage.Path)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	stores := storage.NewStores(db)
	bus := events.NewBus(cfg.Events.HistoryLimit)

	riskEngine := risk.NewEngine(risk.Config{
		ContentFetchEnabled:  cfg.Risk.ContentFetchEnabled,
		QuietDomainDeduction: cfg.Risk.QuietDomainDeduction,
	})

	flagSink := anomaly.NewFlagSink(stores.Flags, bus, logging.WithComponent("flagsink"))
	anomalyCfg := anomaly.DefaultConfig()
	anomalyCfg.PassInterval = cfg.Anomaly.PassInterval
	anomalyCfg.Cooldown = cfg.Anomaly.Cooldown
	anomalyCfg.IngestBuffer = cfg.Anomaly.IngestBuffer
	anomalyCfg.Alpha = cfg.Anomaly.Alpha
	anomalyCfg.MinUpdates = cfg.Anomaly.MinUpdates
	anomalyCfg.SpikeThreshold = cfg.Anomaly.SpikeThreshold
	anomalyCfg.ErrorShiftThreshold = cfg.Anomaly.ErrorShiftThreshold
	anomalyCfg.EnumerationThreshold = cfg.Anomaly.EnumerationThreshold
	anomalyEngine := anomaly.NewEngine(anomalyCfg, flagSink)

	reputationSvc := reputation.NewService(stores, reputation.Config{
		CacheTTL:              cfg.Reputation.CacheTTL,
		StabilityWindow:       time.Duration(cfg.Reputation.StabilityWindowDays) * 24 * time.Hour,
		StabilityScoreCeiling: cfg.Reputation.StabilityScoreCeiling,
	}, logging.WithComponent("reputation"))
	graphSvc := graph.NewService(stores, graph.Limits{
		PivotLogs:   cfg.Graph.PivotLimit,
		RelatedLogs: cfg.Graph.RelatedLimit,
		Flags:       cfg.Graph.FlagLimit,
		ExportLogs:  cfg.Graph.ExportLimit,
	}, logging.WithComponent("graph"))

	handler := api.NewHandler(*cfg, riskEngine, anomalyEngine, reputationSvc, graphSvc, stores, bus)
	router := api.NewRouter(handler)

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddEngineService(anomalyEngine)
	tree.AddEngineService(supervisor.ServiceFunc{Name: "storage-gc", Run: db.RunGC})

	if cfg.Backup.Enabled {
		backupMgr, err := backup.NewManager(db, backup.Config{
			Dir:        cfg.Backup.Dir,
			Interval:   cfg.Backup.Interval,
			MaxBackups: cfg.Backup.MaxBackups,
		}, logging.WithComponent("backup"))
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize backup manager")
		}
		tree.AddEngineService(backupMgr)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	tree.AddAPIService(supervisor.NewHTTPServer(addr, router, cfg.Server.Timeout, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", addr).Msg("TrustLens ready")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited")
		os.Exit(1)
	}
	logging.Info().Msg("TrustLens stopped")
}
