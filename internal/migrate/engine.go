package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"codegraph/internal/metrics"
	"codegraph/internal/schema"
	"codegraph/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrSameVersion  = errors.New("source and target versions are equal")
	ErrNoTarget     = errors.New("target version is empty")
	ErrNoDialectSQL = errors.New("no statement for dialect")
)

// Config controls migration policy. The engine itself only reads BackupDir.
type Config struct {
	AutoMigrate           bool
	BackupBeforeMigration bool
	BackupDir             string
}

// Result describes one MigrateSchema call. Counts are zero unless Success.
type Result struct {
	Success               bool          `json:"success"`
	NodesMigrated         int64         `json:"nodesMigrated"`
	RelationshipsMigrated int64         `json:"relationshipsMigrated"`
	Error                 string        `json:"error,omitempty"`
	From                  string        `json:"from"`
	To                    string        `json:"to"`
	RunID                 string        `json:"runId"`
	Duration              time.Duration `json:"duration"`
}

// Engine upgrades the version tags and structure of stored entities.
// Migrations are administrative: one writer, one transaction per call.
type Engine struct {
	store  storage.Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(store storage.Store, cfg Config, logger *slog.Logger) *Engine {
	if cfg.BackupDir == "" {
		cfg.BackupDir = DefaultBackupDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, cfg: cfg, logger: logger, now: time.Now}
}

func (e *Engine) statement(q query) (string, error) {
	text, ok := q[e.store.Dialect()]
	if !ok {
		return "", fmt.Errorf("%w %s", ErrNoDialectSQL, e.store.Dialect())
	}
	return text, nil
}

// GetCurrentVersions returns the distinct version tags present on nodes and
// relationships, in ascending version order. Unversioned entities are not
// reported.
func (e *Engine) GetCurrentVersions(ctx context.Context) ([]string, error) {
	text, err := e.statement(versionsQuery)
	if err != nil {
		return nil, err
	}
	res, err := e.store.Run(ctx, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}

	seen := make(map[string]bool)
	var versions []string
	for _, rec := range res.Records {
		v, err := rec.String("version")
		if err != nil {
			return nil, err
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return compareVersions(versions[i], versions[j]) < 0 })
	return versions, nil
}

// IsMigrationNeeded reports whether any entity carries a version tag other
// than schema.CurrentVersion.
func (e *Engine) IsMigrationNeeded(ctx context.Context) (bool, error) {
	versions, err := e.GetCurrentVersions(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range versions {
		if v != schema.CurrentVersion {
			return true, nil
		}
	}
	return false, nil
}

// HasUnversioned reports whether any entity has no version tag.
func (e *Engine) HasUnversioned(ctx context.Context) (bool, error) {
	text, err := e.statement(unversionedQuery)
	if err != nil {
		return false, err
	}
	res, err := e.store.Run(ctx, text, nil)
	if err != nil {
		return false, fmt.Errorf("failed to count unversioned entities: %w", err)
	}
	rec, err := res.Single()
	if err != nil {
		return false, err
	}
	total, err := rec.Int("total")
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// MigrateSchema moves every entity tagged from to version to in a single
// transaction. A named migration for the pair runs its structural steps
// first; every entity still tagged from is then retagged, nodes before
// relationships. from = schema.Unversioned selects untagged entities.
//
// Any failure rolls the transaction back and yields a failed Result.
func (e *Engine) MigrateSchema(ctx context.Context, from, to string) Result {
	start := e.now()
	res := Result{From: from, To: to, RunID: uuid.NewString()}
	log := e.logger.With("run", res.RunID, "from", displayVersion(from), "to", to)

	nodes, rels, err := e.migrate(ctx, from, to, log)
	res.Duration = e.now().Sub(start)
	metrics.MigrationDuration.Observe(res.Duration.Seconds())

	if err != nil {
		metrics.MigrationRuns.WithLabelValues("failure").Inc()
		log.Error("migration failed", "error", err)
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.NodesMigrated = nodes
	res.RelationshipsMigrated = rels
	metrics.MigrationRuns.WithLabelValues("success").Inc()
	metrics.MigratedEntities.WithLabelValues("node").Add(float64(nodes))
	metrics.MigratedEntities.WithLabelValues("relationship").Add(float64(rels))
	log.Info("migration committed", "nodes", nodes, "relationships", rels, "duration", res.Duration)
	return res
}

func (e *Engine) migrate(ctx context.Context, from, to string, log *slog.Logger) (nodes, rels int64, err error) {
	if to == "" {
		return 0, 0, ErrNoTarget
	}
	if from == to {
		return 0, 0, ErrSameVersion
	}

	params := map[string]any{
		"from":  from,
		"to":    to,
		"kinds": metacognitiveKindNames(),
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if m, ok := Lookup(from, to); ok {
		for _, step := range m.Steps {
			n, err := e.exec(ctx, tx, step.Query, params)
			if err != nil {
				return 0, 0, fmt.Errorf("step %s: %w", step.Name, err)
			}
			log.Debug("migration step applied", "step", step.Name, "affected", n)
		}
	}

	if nodes, err = e.exec(ctx, tx, retagNodes, params); err != nil {
		return 0, 0, fmt.Errorf("retag nodes: %w", err)
	}
	if rels, err = e.exec(ctx, tx, retagRelationships, params); err != nil {
		return 0, 0, fmt.Errorf("retag relationships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit migration: %w", err)
	}
	return nodes, rels, nil
}

func (e *Engine) exec(ctx context.Context, q storage.Querier, stmt query, params map[string]any) (int64, error) {
	text, err := e.statement(stmt)
	if err != nil {
		return 0, err
	}
	res, err := q.Run(ctx, text, params)
	if err != nil {
		return 0, err
	}
	rec, err := res.Single()
	if err != nil {
		return 0, err
	}
	return rec.Int("affected")
}

// MigrateAllToCurrentVersion migrates every present version other than
// schema.CurrentVersion, one independent transaction per version. A failed
// version does not stop the others.
func (e *Engine) MigrateAllToCurrentVersion(ctx context.Context) []Result {
	versions, err := e.GetCurrentVersions(ctx)
	if err != nil {
		e.logger.Error("failed to enumerate schema versions", "error", err)
		metrics.MigrationRuns.WithLabelValues("failure").Inc()
		return []Result{{To: schema.CurrentVersion, RunID: uuid.NewString(), Error: err.Error()}}
	}

	var results []Result
	for _, v := range versions {
		if v == schema.CurrentVersion {
			continue
		}
		results = append(results, e.MigrateSchema(ctx, v, schema.CurrentVersion))
	}
	return results
}

func displayVersion(v string) string {
	if v == schema.Unversioned {
		return "unversioned"
	}
	return v
}

// compareVersions orders dotted versions numerically segment by segment,
// falling back to string order for non-numeric segments.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if x == y {
			continue
		}
		xi, xerr := strconv.Atoi(x)
		yi, yerr := strconv.Atoi(y)
		if xerr == nil && yerr == nil {
			if xi < yi {
				return -1
			}
			return 1
		}
		return strings.Compare(x, y)
	}
	return 0
}
