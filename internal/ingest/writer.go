package ingest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"codegraph/internal/graph"
	"codegraph/internal/metrics"
	"codegraph/internal/schema"
	"codegraph/internal/storage"

	"lukechampine.com/blake3"
)

// WriteStats counts what one batch wrote.
type WriteStats struct {
	Nodes         int
	Relationships int
	Skipped       int // relationships whose endpoints are not in the store
}

// Writer upserts graph batches. Every entity is tagged with
// schema.CurrentVersion and keyed by its nodeId, so re-importing a codebase
// updates entities in place.
type Writer struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewWriter(store storage.Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, logger: logger, now: time.Now}
}

// WriteGraph writes every node and relationship of g in one transaction.
func (w *Writer) WriteGraph(ctx context.Context, g *graph.Graph) (WriteStats, error) {
	nodes := make([]*schema.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })
	return w.WriteBatch(ctx, nodes, g.Relationships)
}

// WriteBatch validates the batch against the catalog, then upserts nodes
// before relationships. Nothing is written when validation fails.
func (w *Writer) WriteBatch(ctx context.Context, nodes []*schema.Node, rels []*schema.Relationship) (WriteStats, error) {
	var stats WriteStats

	var errs []error
	for _, n := range nodes {
		if n.Kind().IsMetacognitive() {
			n.AddLabel(schema.LabelMetacognitive)
		}
		if err := schema.ValidateNode(n); err != nil {
			errs = append(errs, err)
		}
		n.SchemaVersion = schema.CurrentVersion
		if n.Hash == "" {
			n.Hash = contentHash(n.Labels, n.Properties)
		}
	}
	for _, r := range rels {
		if err := schema.ValidateRelationship(r); err != nil {
			errs = append(errs, err)
		}
		r.SchemaVersion = schema.CurrentVersion
		if r.Hash == "" {
			r.Hash = contentHash([]string{string(r.Type), r.StartNodeID, r.EndNodeID}, r.Properties)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return stats, fmt.Errorf("invalid batch: %w", err)
	}

	now := storage.FormatTime(w.now())
	dialect := w.store.Dialect()

	tx, err := w.store.BeginTx(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range nodes {
		query, err := nodeStatement(dialect, n)
		if err != nil {
			return WriteStats{}, err
		}
		if _, err := affected(ctx, tx, query, nodeParams(n, now)); err != nil {
			return WriteStats{}, fmt.Errorf("failed to upsert node %s: %w", n.NodeID, err)
		}
		stats.Nodes++
	}

	for _, r := range rels {
		query, err := relationshipStatement(dialect, r)
		if err != nil {
			return WriteStats{}, err
		}
		n, err := affected(ctx, tx, query, relationshipParams(r, now))
		if err != nil {
			return WriteStats{}, fmt.Errorf("failed to upsert relationship %s: %w", r.NodeID, err)
		}
		if n == 0 {
			stats.Skipped++
			w.logger.Debug("skipping relationship with missing endpoint", "relationship", r.NodeID)
			continue
		}
		stats.Relationships++
	}

	if err := tx.Commit(ctx); err != nil {
		return WriteStats{}, fmt.Errorf("failed to commit batch: %w", err)
	}

	metrics.IngestedEntities.WithLabelValues("node").Add(float64(stats.Nodes))
	metrics.IngestedEntities.WithLabelValues("relationship").Add(float64(stats.Relationships))
	metrics.IngestedEntities.WithLabelValues("skipped").Add(float64(stats.Skipped))
	w.logger.Info("batch written", "nodes", stats.Nodes, "relationships", stats.Relationships, "skipped", stats.Skipped)
	return stats, nil
}

func affected(ctx context.Context, q storage.Querier, query string, params map[string]any) (int64, error) {
	res, err := q.Run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	rec, err := res.Single()
	if err != nil {
		return 0, err
	}
	return rec.Int("affected")
}

// contentHash fingerprints an entity that carries no source hash.
func contentHash(head []string, props schema.Properties) string {
	b, _ := json.Marshal(struct {
		Head  []string          `json:"head"`
		Props schema.Properties `json:"props"`
	}{head, props})
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:16])
}
