package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codegraph/internal/graph"
	"codegraph/internal/index"
	"codegraph/internal/ingest"
	"codegraph/internal/migrate"
	"codegraph/internal/schema"
	"codegraph/internal/storage"
)

var (
	ErrBackupFailed      = errors.New("backup before migration failed")
	ErrMigrationFailed   = errors.New("schema migration failed")
	ErrMigrationRequired = errors.New("store holds entities from an older schema and auto-migration is disabled")
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Migrations []migrate.Result
	Stats      ingest.WriteStats
	Unresolved map[graph.UnresolvedReason]int
	Duration   time.Duration
}

// Importer brings the store up to the current schema and then writes the
// analyzed codebases into it. Every entity it writes carries
// schema.CurrentVersion, so ingesting into an older store would mix versions;
// the migration stage runs first for that reason.
type Importer struct {
	store   storage.Store
	indexer *index.Indexer
	engine  *migrate.Engine
	writer  *ingest.Writer
	cfg     migrate.Config
	logger  *slog.Logger
}

func NewImporter(store storage.Store, indexer *index.Indexer, cfg migrate.Config, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:   store,
		indexer: indexer,
		engine:  migrate.NewEngine(store, cfg, logger),
		writer:  ingest.NewWriter(store, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Run imports the named codebases, or every configured codebase when ids is
// empty.
func (p *Importer) Run(ctx context.Context, ids ...string) (*ImportResult, error) {
	start := time.Now()
	res := &ImportResult{}

	migrations, err := p.migrationStage(ctx)
	res.Migrations = migrations
	if err != nil {
		return res, err
	}

	g, err := p.graphStage(ids)
	if err != nil {
		return res, err
	}
	res.Unresolved = g.UnresolvedReasonCounts()

	stats, err := p.writer.WriteGraph(ctx, g)
	if err != nil {
		return res, fmt.Errorf("failed to write graph: %w", err)
	}
	res.Stats = stats
	res.Duration = time.Since(start)

	p.logger.Info("import finished",
		"nodes", stats.Nodes,
		"relationships", stats.Relationships,
		"skipped", stats.Skipped,
		"unresolved", len(g.Unresolved),
		"duration", res.Duration)
	return res, nil
}

// migrationStage applies the migration policy. When auto-migration is on it
// backs up (aborting on failure if BackupBeforeMigration is set), migrates
// every older version and then untagged entities. Any failed migration
// aborts the import.
func (p *Importer) migrationStage(ctx context.Context) ([]migrate.Result, error) {
	needed, err := p.engine.IsMigrationNeeded(ctx)
	if err != nil {
		return nil, err
	}
	unversioned, err := p.engine.HasUnversioned(ctx)
	if err != nil {
		return nil, err
	}
	if !needed && !unversioned {
		return nil, nil
	}
	if !p.cfg.AutoMigrate {
		return nil, ErrMigrationRequired
	}

	if p.cfg.BackupBeforeMigration && !p.engine.CreateBackup(ctx) {
		return nil, ErrBackupFailed
	}

	var results []migrate.Result
	if needed {
		results = p.engine.MigrateAllToCurrentVersion(ctx)
	}
	if unversioned {
		results = append(results, p.engine.MigrateSchema(ctx, schema.Unversioned, schema.CurrentVersion))
	}

	var errs []error
	for _, r := range results {
		if !r.Success {
			errs = append(errs, fmt.Errorf("%s -> %s: %s", r.From, r.To, r.Error))
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("%w: %w", ErrMigrationFailed, errors.Join(errs...))
	}
	return results, nil
}

func (p *Importer) graphStage(ids []string) (*graph.Graph, error) {
	start := time.Now()
	g, err := p.indexer.BuildGraph(ids...)
	if err != nil {
		return nil, fmt.Errorf("graph build failed: %w", err)
	}
	p.logger.Info("graph built",
		"nodes", len(g.Nodes),
		"relationships", len(g.Relationships),
		"duration", time.Since(start))
	for reason, n := range g.UnresolvedReasonCounts() {
		p.logger.Debug("unresolved references", "reason", reason, "count", n)
	}
	return g, nil
}
