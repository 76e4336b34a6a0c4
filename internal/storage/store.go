package storage

import (
	"context"
	"fmt"
	"regexp"

	"codegraph/internal/schema"
)

// Dialect names the query language a Store understands. Consumers keep one
// query text per dialect and pick it with Store.Dialect.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectCypher Dialect = "cypher"
)

var paramPatterns = map[Dialect]*regexp.Regexp{
	DialectSQLite: regexp.MustCompile(`(?:^|[^:\w]):([A-Za-z_][A-Za-z0-9_]*)`),
	DialectCypher: regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`),
}

// ParamNames returns the distinct parameters query references in dialect d,
// in order of first use.
func ParamNames(d Dialect, query string) []string {
	pattern, ok := paramPatterns[d]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range pattern.FindAllStringSubmatch(query, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Querier runs a query with named parameters.
type Querier interface {
	// Run executes query and returns its records. Write statements without a
	// RETURN clause yield a single record with an "affected" column.
	Run(ctx context.Context, query string, params map[string]any) (*Result, error)
}

// Tx is an explicit transaction. Rollback after Commit is a no-op.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the transactional property-graph store shared by every codebase.
type Store interface {
	Querier

	Dialect() Dialect

	// BeginTx opens a write transaction.
	BeginTx(ctx context.Context) (Tx, error)

	// Export streams every node then every relationship, ordered by nodeId.
	Export(ctx context.Context, fn func(SnapshotEntry) error) error

	Close() error
}

// SnapshotEntry is one exported entity.
type SnapshotEntry struct {
	Node         *schema.Node         `json:"node,omitempty"`
	Relationship *schema.Relationship `json:"relationship,omitempty"`
}

// Options select and configure a backend.
type Options struct {
	Driver string

	SQLitePath string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLiteStore(opts.SQLitePath)
	case "neo4j":
		return NewNeo4jStore(ctx, opts.Neo4jURI, opts.Neo4jUser, opts.Neo4jPassword, opts.Neo4jDatabase)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", opts.Driver)
	}
}
