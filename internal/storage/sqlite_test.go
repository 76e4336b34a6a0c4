package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codegraph/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

const insertNode = `
	INSERT INTO nodes (node_id, codebase_id, labels, properties, schema_version, created_at, updated_at)
	VALUES (:nodeId, :codebaseId, :labels, :properties, :version, :now, :now)`

func seedNode(t *testing.T, q Querier, id, codebase string, labels []string, version any) {
	t.Helper()
	res, err := q.Run(context.Background(), insertNode, map[string]any{
		"nodeId":     id,
		"codebaseId": codebase,
		"labels":     labels,
		"properties": schema.Properties{"path": id},
		"version":    version,
		"now":        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	rec, err := res.Single()
	require.NoError(t, err)
	n, err := rec.Int("affected")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestSQLiteStore_RunBindsNamedParameters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedNode(t, store, "a:File:x.go", "a", []string{"File"}, "2.0.0")

	res, err := store.Run(ctx, `SELECT labels, properties, schema_version AS v FROM nodes WHERE node_id = :id`, map[string]any{"id": "a:File:x.go", "unused": 1})
	require.NoError(t, err)
	rec, err := res.Single()
	require.NoError(t, err)

	labels, err := rec.Strings("labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"File"}, labels)

	props, err := rec.Map("properties")
	require.NoError(t, err)
	assert.Equal(t, "a:File:x.go", props["path"])

	v, err := rec.String("v")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v)

	_, err = store.Run(ctx, `SELECT 1 FROM nodes WHERE node_id = :missing`, nil)
	assert.ErrorContains(t, err, "missing")
}

func TestSQLiteStore_TxRollbackAndCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	seedNode(t, tx, "a:File:gone.go", "a", []string{"File"}, nil)
	require.NoError(t, tx.Rollback(ctx))

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	seedNode(t, tx, "a:File:kept.go", "a", []string{"File"}, nil)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	res, err := store.Run(ctx, `SELECT node_id FROM nodes ORDER BY node_id`, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	id, err := res.Records[0].String("node_id")
	require.NoError(t, err)
	assert.Equal(t, "a:File:kept.go", id)
}

func TestSQLiteStore_ExportIsOrderedAndDecoded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedNode(t, store, "b:File:z.go", "b", []string{"File"}, "1.0.0")
	seedNode(t, store, "a:Insight:i1", "a", []string{"Metacognitive", "Insight"}, nil)

	_, err := store.Run(ctx, `
		INSERT INTO relationships (node_id, type, start_node_id, end_node_id, codebase_id, is_cross_codebase,
			source_codebase_id, target_codebase_id, properties, schema_version)
		VALUES (:id, 'REFERENCES', :start, :end, 'a', :cross, 'a', 'b', '{}', '2.0.0')`,
		map[string]any{"id": "a:REFERENCES:x", "start": "a:Insight:i1", "end": "b:File:z.go", "cross": true})
	require.NoError(t, err)

	var entries []SnapshotEntry
	require.NoError(t, store.Export(ctx, func(e SnapshotEntry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 3)

	require.NotNil(t, entries[0].Node)
	assert.Equal(t, "a:Insight:i1", entries[0].Node.NodeID)
	assert.Equal(t, schema.KindInsight, entries[0].Node.Kind())
	assert.Equal(t, "", entries[0].Node.SchemaVersion)

	require.NotNil(t, entries[1].Node)
	assert.Equal(t, "1.0.0", entries[1].Node.SchemaVersion)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), entries[1].Node.CreatedAt)

	rel := entries[2].Relationship
	require.NotNil(t, rel)
	assert.Equal(t, schema.RelReferences, rel.Type)
	assert.True(t, rel.IsCrossCodebase)
	assert.Equal(t, "b", rel.TargetCodebaseID)
}

func TestSnapshotFile_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedNode(t, store, "a:File:x.go", "a", []string{"File"}, "2.0.0")
	seedNode(t, store, "a:File:y.go", "a", []string{"File"}, "2.0.0")

	var plain bytes.Buffer
	n, err := ExportJSONL(ctx, store, &plain)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	path := filepath.Join(t.TempDir(), "backups", "snap.jsonl.zst")
	n, err = WriteSnapshotFile(ctx, store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	require.NoError(t, ReadSnapshot(f, func(e SnapshotEntry) error {
		ids = append(ids, e.Node.NodeID)
		return nil
	}))
	assert.Equal(t, []string{"a:File:x.go", "a:File:y.go"}, ids)
}
