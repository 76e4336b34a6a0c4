package storage

import (
	"context"
	"fmt"
	"time"

	"codegraph/internal/schema"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore keeps the property graph in Neo4j. Reserved fields are stored
// as node and relationship properties next to the kind-specific attributes.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jStore(ctx context.Context, uri, user, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}
	return &Neo4jStore{driver: driver, database: database}, nil
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) Dialect() Dialect {
	return DialectCypher
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
}

func (s *Neo4jStore) Run(ctx context.Context, query string, params map[string]any) (*Result, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, query, cypherParams(params))
	if err != nil {
		return nil, err
	}
	return collect(ctx, res)
}

func (s *Neo4jStore) BeginTx(ctx context.Context) (Tx, error) {
	session := s.session(ctx)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, err
	}
	return &neo4jTx{session: session, tx: tx}, nil
}

func (s *Neo4jStore) Export(ctx context.Context, fn func(SnapshotEntry) error) error {
	return export(ctx, s, cypherExportNodes, cypherExportRelationships, fn)
}

type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

func (t *neo4jTx) Run(ctx context.Context, query string, params map[string]any) (*Result, error) {
	res, err := t.tx.Run(ctx, query, cypherParams(params))
	if err != nil {
		return nil, err
	}
	return collect(ctx, res)
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	t.done = true
	defer t.session.Close(ctx)
	return t.tx.Commit(ctx)
}

func (t *neo4jTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)
	return t.tx.Rollback(ctx)
}

// collect drains res. A statement without a RETURN clause reports the number
// of entities it touched as a single "affected" record.
func collect(ctx context.Context, res neo4j.ResultWithContext) (*Result, error) {
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := res.Keys()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		c := summary.Counters()
		affected := int64(c.NodesCreated() + c.NodesDeleted() + c.RelationshipsCreated() +
			c.RelationshipsDeleted() + c.LabelsAdded() + c.PropertiesSet())
		return &Result{Records: []Record{{Keys: []string{"affected"}, Values: []any{affected}}}}, nil
	}

	out := &Result{Records: make([]Record, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, Record{Keys: rec.Keys, Values: rec.Values})
	}
	return out, nil
}

// cypherParams converts values the driver cannot pack natively.
func cypherParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch x := v.(type) {
		case time.Time:
			out[k] = FormatTime(x)
		case schema.Properties:
			out[k] = map[string]any(x)
		default:
			out[k] = v
		}
	}
	return out
}

const cypherExportNodes = `
	MATCH (n) WHERE n.nodeId IS NOT NULL
	RETURN n.nodeId AS nodeId, n.codebaseId AS codebaseId, labels(n) AS labels,
		properties(n) AS properties, n.hash AS hash, n._schemaVersion AS schemaVersion,
		n.createdAt AS createdAt, n.updatedAt AS updatedAt
	ORDER BY nodeId`

const cypherExportRelationships = `
	MATCH (a)-[r]->(b) WHERE r.nodeId IS NOT NULL
	RETURN r.nodeId AS nodeId, r.codebaseId AS codebaseId, type(r) AS type,
		a.nodeId AS startNodeId, b.nodeId AS endNodeId, properties(r) AS properties,
		r.hash AS hash, r._schemaVersion AS schemaVersion, r.createdAt AS createdAt,
		r.updatedAt AS updatedAt, r.isCrossCodebase AS isCrossCodebase,
		r.sourceCodebaseId AS sourceCodebaseId, r.targetCodebaseId AS targetCodebaseId
	ORDER BY nodeId`
