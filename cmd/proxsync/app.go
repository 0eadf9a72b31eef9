package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tylwright/craft-docs-proxmox/alerts"
	"github.com/tylwright/craft-docs-proxmox/config"
	"github.com/tylwright/craft-docs-proxmox/docscan"
	"github.com/tylwright/craft-docs-proxmox/grouping"
	"github.com/tylwright/craft-docs-proxmox/providers"
	"github.com/tylwright/craft-docs-proxmox/providers/craft"
	"github.com/tylwright/craft-docs-proxmox/providers/proxmox"
	"github.com/tylwright/craft-docs-proxmox/publisher"
	"github.com/tylwright/craft-docs-proxmox/reconciler"
	"github.com/tylwright/craft-docs-proxmox/render"
	"github.com/tylwright/craft-docs-proxmox/storage"
	"github.com/tylwright/craft-docs-proxmox/telemetry"
	"github.com/tylwright/craft-docs-proxmox/types"
	"github.com/tylwright/craft-docs-proxmox/wal"
)

// app wires one sync pipeline: inventory source, document store, prior
// state, reconciliation, publishing, and the local audit trail
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	wal       *wal.WAL
	snapshots *storage.SnapshotStore
	pve       providers.InventorySource
	docs      *craft.Client
	reader    *docscan.Reader
	evaluator *alerts.Evaluator
	engine    *reconciler.Engine
	pub       *publisher.Publisher
}

func newApp(cfg *config.Config, dryRun bool) (*app, error) {
	logger := setupLogger(cfg.Log.Level)

	if err := os.MkdirAll(cfg.Sync.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	walInstance, err := wal.Open(filepath.Join(cfg.Sync.StateDir, "wal"))
	if err != nil {
		return nil, fmt.Errorf("opening WAL: %w", err)
	}

	snapshots, err := storage.NewSnapshotStore(cfg.Sync.StateDir)
	if err != nil {
		walInstance.Close()
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	pve := proxmox.NewClient(proxmox.Config{
		Host:             cfg.Proxmox.Host,
		Port:             cfg.Proxmox.Port,
		TokenID:          cfg.Proxmox.TokenID,
		TokenSecret:      cfg.Proxmox.TokenSecret,
		VerifyTLS:        cfg.Proxmox.VerifyTLS,
		Timeout:          cfg.Proxmox.Timeout,
		IncludeStorage:   *cfg.Sync.IncludeStorage,
		IncludeBackups:   *cfg.Sync.IncludeBackups,
		IncludeSnapshots: *cfg.Sync.IncludeSnapshots,
	}, logger)

	docs := craft.NewClient(craft.Config{
		APIURL:  cfg.Craft.APIURL,
		APIKey:  cfg.Craft.APIKey,
		Timeout: cfg.Craft.Timeout,
	}, logger)

	reader := docscan.NewReader(docs, logger)
	engine := reconciler.NewEngine(
		reconciler.NewSetComparator(),
		reconciler.NewSimpleDecisionMaker(),
		reader,
		walInstance,
		logger,
	)

	renderer := render.NewRenderer(cfg.Proxmox.Host, cfg.Proxmox.Port, cfg.Alerts)
	pub := publisher.NewPublisher(docs, renderer, walInstance, publisher.Options{DryRun: dryRun}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		wal:       walInstance,
		snapshots: snapshots,
		pve:       pve,
		docs:      docs,
		reader:    reader,
		evaluator: alerts.NewEvaluator(cfg.Alerts),
		engine:    engine,
		pub:       pub,
	}, nil
}

func (a *app) Close() {
	if a.wal != nil {
		_ = a.wal.Close()
	}
	if a.snapshots != nil {
		_ = a.snapshots.Close()
	}
}

func (a *app) inventoryFilter() types.InventoryFilter {
	return types.InventoryFilter{
		Node:             a.cfg.Sync.Node,
		Tag:              a.cfg.Sync.Tag,
		IncludeTemplates: a.cfg.Sync.IncludeTemplates,
		IncludeStopped:   *a.cfg.Sync.IncludeStopped,
	}
}

// syncOnce runs a complete pipeline pass: fetch, evaluate, plan, publish,
// record. With incremental false the document is rebuilt from scratch.
func (a *app) syncOnce(ctx context.Context, incremental, dryRun bool) (*publisher.Result, error) {
	start := time.Now()
	documentID := a.cfg.Craft.DocumentID
	telemetry.SyncRuns.Add(ctx, 1)

	cluster, err := a.pve.FetchCluster(ctx, a.inventoryFilter())
	if err != nil {
		telemetry.SyncFailures.Add(ctx, 1)
		return nil, fmt.Errorf("fetching inventory: %w", err)
	}
	telemetry.ResourcesFetched.Add(ctx, int64(cluster.TotalVMs()+cluster.TotalContainers()))

	if *a.cfg.Sync.ShowAlerts {
		a.evaluator.AnnotateCluster(cluster)
	}

	prior := map[types.ResourceKey]types.PriorEntry{}
	if incremental {
		prior = a.loadPrior(ctx, documentID)
	}

	plan, err := a.engine.Plan(ctx, cluster, prior)
	if err != nil {
		telemetry.SyncFailures.Add(ctx, 1)
		return nil, fmt.Errorf("planning: %w", err)
	}
	telemetry.DecisionsPlanned.Add(ctx, int64(len(plan.Decisions)))

	result, err := a.pub.Apply(ctx, plan, cluster, documentID, grouping.ParseMode(a.cfg.Sync.GroupBy))
	if err != nil {
		telemetry.SyncFailures.Add(ctx, 1)
		return result, err
	}
	telemetry.PublishFailures.Add(ctx, int64(result.FailedCount))

	if !dryRun && len(result.Published) > 0 {
		rev, saveErr := a.snapshots.SaveRun(result.Published)
		if saveErr != nil {
			a.logger.Warn().Err(saveErr).Msg("failed to record published entries")
		} else {
			telemetry.SnapshotRevision.Record(ctx, rev)
			a.logger.Debug().Int64("revision", rev).Int("entries", len(result.Published)).Msg("snapshot recorded")
		}
	}

	telemetry.DocumentEntries.Record(ctx, int64(len(result.Published)))
	telemetry.SyncDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return result, nil
}

// loadPrior prefers the snapshot store over re-parsing the document. Stored
// notes are dropped so the reconciler re-reads annotations from the live
// document and picks up edits made since the last run. Scanning the document
// remains the fallback for a fresh or lost state dir.
func (a *app) loadPrior(ctx context.Context, documentID string) map[types.ResourceKey]types.PriorEntry {
	prior := a.snapshots.LoadPrior()
	for key, entry := range prior {
		entry.Notes = ""
		prior[key] = entry
	}
	if len(prior) > 0 {
		a.logger.Debug().Int("entries", len(prior)).Msg("prior state loaded from snapshot store")
		return prior
	}
	return a.reader.Scan(ctx, documentID)
}

func setupLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logLevel := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(level); err == nil {
		logLevel = parsed
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(logLevel).
		With().
		Timestamp().
		Logger().
		Hook(telemetry.OTELHook{})
}
