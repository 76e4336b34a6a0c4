// Package storagetest opens throwaway stores for tests.
package storagetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codegraph/internal/storage"

	"github.com/stretchr/testify/require"
)

// Neo4j connection settings for integration tests. Tests that need Neo4j are
// skipped when Neo4jURIEnv is unset.
const (
	Neo4jURIEnv      = "CODEGRAPH_TEST_NEO4J_URI"
	Neo4jUserEnv     = "CODEGRAPH_TEST_NEO4J_USER"
	Neo4jPasswordEnv = "CODEGRAPH_TEST_NEO4J_PASSWORD"
	Neo4jDatabaseEnv = "CODEGRAPH_TEST_NEO4J_DATABASE"
)

// SQLite opens a store in a temporary directory.
func SQLite(t testing.TB) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Neo4j connects to the database named by the environment and empties it
// before and after the test. The database must be dedicated to tests.
func Neo4j(t testing.TB) *storage.Neo4jStore {
	t.Helper()
	uri := os.Getenv(Neo4jURIEnv)
	if uri == "" {
		t.Skipf("%s not set", Neo4jURIEnv)
	}
	user := os.Getenv(Neo4jUserEnv)
	if user == "" {
		user = "neo4j"
	}

	ctx := context.Background()
	store, err := storage.NewNeo4jStore(ctx, uri, user, os.Getenv(Neo4jPasswordEnv), os.Getenv(Neo4jDatabaseEnv))
	require.NoError(t, err)
	_, err = store.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if _, err := store.Run(ctx, `MATCH (n) DETACH DELETE n`, nil); err != nil {
			t.Logf("failed to empty neo4j: %v", err)
		}
		store.Close()
	})
	return store
}

// Each runs fn once per available backend. Neo4j is included only when
// Neo4jURIEnv is set.
func Each(t *testing.T, fn func(t *testing.T, store storage.Store)) {
	t.Run(string(storage.DialectSQLite), func(t *testing.T) {
		fn(t, SQLite(t))
	})
	t.Run(string(storage.DialectCypher), func(t *testing.T) {
		fn(t, Neo4j(t))
	})
}
