package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"codegraph/internal/schema"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the property graph in two tables. Labels and properties
// are JSON columns; the version tag is the schema_version column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_txlock=immediate"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Dialect() Dialect {
	return DialectSQLite
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			node_id TEXT PRIMARY KEY,
			codebase_id TEXT NOT NULL DEFAULT '',
			labels TEXT NOT NULL DEFAULT '[]',
			properties TEXT NOT NULL DEFAULT '{}',
			hash TEXT,
			schema_version TEXT,
			created_at TEXT,
			updated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS relationships (
			node_id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			start_node_id TEXT NOT NULL,
			end_node_id TEXT NOT NULL,
			codebase_id TEXT NOT NULL DEFAULT '',
			is_cross_codebase INTEGER,
			source_codebase_id TEXT,
			target_codebase_id TEXT,
			properties TEXT NOT NULL DEFAULT '{}',
			hash TEXT,
			schema_version TEXT,
			created_at TEXT,
			updated_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_codebase ON nodes(codebase_id);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_version ON nodes(schema_version);`,
		`CREATE INDEX IF NOT EXISTS idx_rels_start ON relationships(start_node_id);`,
		`CREATE INDEX IF NOT EXISTS idx_rels_end ON relationships(end_node_id);`,
		`CREATE INDEX IF NOT EXISTS idx_rels_version ON relationships(schema_version);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Run(ctx context.Context, query string, params map[string]any) (*Result, error) {
	return runSQL(ctx, s.db, query, params)
}

func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteStore) Export(ctx context.Context, fn func(SnapshotEntry) error) error {
	return export(ctx, s, sqliteExportNodes, sqliteExportRelationships, fn)
}

type sqliteTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqliteTx) Run(ctx context.Context, query string, params map[string]any) (*Result, error) {
	return runSQL(ctx, t.tx, query, params)
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	t.done = true
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func runSQL(ctx context.Context, r sqlRunner, query string, params map[string]any) (*Result, error) {
	args, err := bindNamed(query, params)
	if err != nil {
		return nil, err
	}

	if !isReadQuery(query) {
		res, err := r.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		return &Result{Records: []Record{{Keys: []string{"affected"}, Values: []any{n}}}}, nil
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &Result{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out.Records = append(out.Records, Record{Keys: cols, Values: values})
	}
	return out, rows.Err()
}

func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "WITH")
}

// bindNamed binds exactly the :name parameters the query references.
func bindNamed(query string, params map[string]any) ([]any, error) {
	var args []any
	for _, name := range ParamNames(DialectSQLite, query) {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("missing query parameter %q", name)
		}
		sv, err := sqliteValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		args = append(args, sql.Named(name, sv))
	}
	return args, nil
}

func sqliteValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, int64, int, float64:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return FormatTime(x), nil
	case []string, map[string]any, schema.Properties:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

const sqliteExportNodes = `
	SELECT node_id AS nodeId, codebase_id AS codebaseId, labels, properties, hash,
		schema_version AS schemaVersion, created_at AS createdAt, updated_at AS updatedAt
	FROM nodes ORDER BY node_id`

const sqliteExportRelationships = `
	SELECT node_id AS nodeId, codebase_id AS codebaseId, type, start_node_id AS startNodeId,
		end_node_id AS endNodeId, properties, hash, schema_version AS schemaVersion,
		created_at AS createdAt, updated_at AS updatedAt, is_cross_codebase AS isCrossCodebase,
		source_codebase_id AS sourceCodebaseId, target_codebase_id AS targetCodebaseId
	FROM relationships ORDER BY node_id`
