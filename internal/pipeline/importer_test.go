package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codegraph/internal/crawler"
	"codegraph/internal/extractor"
	"codegraph/internal/index"
	"codegraph/internal/migrate"
	"codegraph/internal/schema"
	"codegraph/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appSource = `package app

// Run starts the app.
func Run() { setup() }

func setup() {}
`

func newImporter(t *testing.T, cfg migrate.Config) (*Importer, *storage.SQLiteStore) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.go"), []byte(appSource), 0o644))

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ext, err := extractor.NewExtractor("go")
	require.NoError(t, err)
	idx := index.NewIndexer(crawler.NewCrawler(ext, nil, nil),
		[]index.Codebase{{ID: "app", Root: root, Module: "example.com/app"}}, nil)
	return NewImporter(store, idx, cfg, nil), store
}

func seedLegacyNode(t *testing.T, s storage.Store, version any) {
	t.Helper()
	_, err := s.Run(context.Background(),
		`INSERT INTO nodes (node_id, codebase_id, labels, schema_version) VALUES (:id, 'old', :labels, :version)`,
		map[string]any{"id": "old:Decision:d1", "labels": []string{"Decision"}, "version": version})
	require.NoError(t, err)
}

func versions(t *testing.T, s storage.Store) []string {
	t.Helper()
	v, err := migrate.NewEngine(s, migrate.Config{}, nil).GetCurrentVersions(context.Background())
	require.NoError(t, err)
	return v
}

func TestImporter_FreshStore(t *testing.T) {
	imp, store := newImporter(t, migrate.Config{AutoMigrate: true})

	res, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Migrations)
	assert.Greater(t, res.Stats.Nodes, 0)
	assert.Greater(t, res.Stats.Relationships, 0)
	assert.Equal(t, []string{schema.CurrentVersion}, versions(t, store))
}

func TestImporter_MigratesBeforeIngest(t *testing.T) {
	backups := filepath.Join(t.TempDir(), "backups")
	imp, store := newImporter(t, migrate.Config{AutoMigrate: true, BackupBeforeMigration: true, BackupDir: backups})
	seedLegacyNode(t, store, "1.5.0")
	_, err := store.Run(context.Background(),
		`INSERT INTO nodes (node_id, codebase_id, labels) VALUES (:id, 'old', '["File"]')`,
		map[string]any{"id": "old:File:x.go"})
	require.NoError(t, err)

	res, err := imp.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Migrations, 2, "one per older version plus untagged entities")
	assert.Equal(t, "1.5.0", res.Migrations[0].From)
	assert.Equal(t, schema.Unversioned, res.Migrations[1].From)
	for _, m := range res.Migrations {
		assert.True(t, m.Success, m.Error)
	}
	assert.Equal(t, []string{schema.CurrentVersion}, versions(t, store))

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImporter_Policy(t *testing.T) {
	t.Run("auto-migration disabled", func(t *testing.T) {
		imp, store := newImporter(t, migrate.Config{})
		seedLegacyNode(t, store, "1.0.0")

		res, err := imp.Run(context.Background())
		assert.ErrorIs(t, err, ErrMigrationRequired)
		assert.Zero(t, res.Stats.Nodes)
		assert.Equal(t, []string{"1.0.0"}, versions(t, store))
	})

	t.Run("backup failure blocks migration", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		imp, store := newImporter(t, migrate.Config{AutoMigrate: true, BackupBeforeMigration: true, BackupDir: blocker})
		seedLegacyNode(t, store, "1.0.0")

		_, err := imp.Run(context.Background())
		assert.ErrorIs(t, err, ErrBackupFailed)
		assert.Equal(t, []string{"1.0.0"}, versions(t, store))
	})

	t.Run("backup not required", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		imp, store := newImporter(t, migrate.Config{AutoMigrate: true, BackupDir: blocker})
		seedLegacyNode(t, store, "1.0.0")

		_, err := imp.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{schema.CurrentVersion}, versions(t, store))
	})
}
