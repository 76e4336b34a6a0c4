package ingest

import (
	"fmt"
	"strings"

	"codegraph/internal/schema"
	"codegraph/internal/storage"
)

const sqliteUpsertNode = `
	INSERT INTO nodes (node_id, codebase_id, labels, properties, hash, schema_version, created_at, updated_at)
	VALUES (:nodeId, :codebaseId, :labels, :properties, :hash, :version, :now, :now)
	ON CONFLICT(node_id) DO UPDATE SET
		codebase_id = excluded.codebase_id,
		labels = excluded.labels,
		properties = excluded.properties,
		schema_version = excluded.schema_version,
		updated_at = CASE WHEN nodes.hash IS excluded.hash THEN nodes.updated_at ELSE excluded.updated_at END,
		hash = excluded.hash`

// Relationships whose endpoints are missing are not inserted; the statement
// then affects no row.
const sqliteUpsertRelationship = `
	INSERT INTO relationships (node_id, type, start_node_id, end_node_id, codebase_id, is_cross_codebase,
		source_codebase_id, target_codebase_id, properties, hash, schema_version, created_at, updated_at)
	SELECT :nodeId, :type, :startNodeId, :endNodeId, :codebaseId, :isCrossCodebase,
		:sourceCodebaseId, :targetCodebaseId, :properties, :hash, :version, :now, :now
	WHERE EXISTS (SELECT 1 FROM nodes WHERE node_id = :startNodeId)
		AND EXISTS (SELECT 1 FROM nodes WHERE node_id = :endNodeId)
	ON CONFLICT(node_id) DO UPDATE SET
		type = excluded.type,
		codebase_id = excluded.codebase_id,
		is_cross_codebase = excluded.is_cross_codebase,
		source_codebase_id = excluded.source_codebase_id,
		target_codebase_id = excluded.target_codebase_id,
		properties = excluded.properties,
		schema_version = excluded.schema_version,
		updated_at = CASE WHEN relationships.hash IS excluded.hash THEN relationships.updated_at ELSE excluded.updated_at END,
		hash = excluded.hash`

const cypherUpsertNode = `
	MERGE (n:%s {nodeId: $nodeId})
	WITH n, n.createdAt AS createdAt,
		CASE WHEN n.hash = $hash THEN n.updatedAt ELSE NULL END AS keptUpdatedAt
	SET n = $fields
	SET n.createdAt = coalesce(createdAt, $now), n.updatedAt = coalesce(keptUpdatedAt, $now)%s
	RETURN count(n) AS affected`

const cypherUpsertRelationship = `
	MATCH (a {nodeId: $startNodeId}), (b {nodeId: $endNodeId})
	MERGE (a)-[r:%s {nodeId: $nodeId}]->(b)
	WITH r, r.createdAt AS createdAt,
		CASE WHEN r.hash = $hash THEN r.updatedAt ELSE NULL END AS keptUpdatedAt
	SET r = $fields
	SET r.createdAt = coalesce(createdAt, $now), r.updatedAt = coalesce(keptUpdatedAt, $now)
	RETURN count(r) AS affected`

// nodeStatement returns the upsert statement for n. Labels and types are
// spliced into Cypher text, so they must pass schema.IsSafeTag.
func nodeStatement(d storage.Dialect, n *schema.Node) (string, error) {
	if d == storage.DialectSQLite {
		return sqliteUpsertNode, nil
	}
	for _, l := range n.Labels {
		if !schema.IsSafeTag(l) {
			return "", fmt.Errorf("node %q: unsafe label %q", n.NodeID, l)
		}
	}
	extra := ""
	if len(n.Labels) > 1 {
		extra = "\n\tSET n:" + strings.Join(n.Labels[1:], ":")
	}
	return fmt.Sprintf(cypherUpsertNode, n.Labels[0], extra), nil
}

func relationshipStatement(d storage.Dialect, r *schema.Relationship) (string, error) {
	if d == storage.DialectSQLite {
		return sqliteUpsertRelationship, nil
	}
	if !schema.IsSafeTag(string(r.Type)) {
		return "", fmt.Errorf("relationship %q: unsafe type %q", r.NodeID, r.Type)
	}
	return fmt.Sprintf(cypherUpsertRelationship, r.Type), nil
}

func nodeParams(n *schema.Node, now string) map[string]any {
	fields := map[string]any{}
	for k, v := range n.Properties {
		fields[k] = v
	}
	fields["nodeId"] = n.NodeID
	fields["codebaseId"] = n.CodebaseID
	fields["hash"] = n.Hash
	fields[schema.VersionProperty] = n.SchemaVersion

	return map[string]any{
		"nodeId":     n.NodeID,
		"codebaseId": n.CodebaseID,
		"labels":     n.Labels,
		"properties": n.Properties,
		"hash":       n.Hash,
		"version":    n.SchemaVersion,
		"now":        now,
		"fields":     fields,
	}
}

func relationshipParams(r *schema.Relationship, now string) map[string]any {
	fields := map[string]any{}
	for k, v := range r.Properties {
		fields[k] = v
	}
	fields["nodeId"] = r.NodeID
	fields["codebaseId"] = r.CodebaseID
	fields["isCrossCodebase"] = r.IsCrossCodebase
	fields["sourceCodebaseId"] = r.SourceCodebaseID
	fields["targetCodebaseId"] = r.TargetCodebaseID
	fields["hash"] = r.Hash
	fields[schema.VersionProperty] = r.SchemaVersion

	return map[string]any{
		"nodeId":           r.NodeID,
		"type":             string(r.Type),
		"startNodeId":      r.StartNodeID,
		"endNodeId":        r.EndNodeID,
		"codebaseId":       r.CodebaseID,
		"isCrossCodebase":  r.IsCrossCodebase,
		"sourceCodebaseId": r.SourceCodebaseID,
		"targetCodebaseId": r.TargetCodebaseID,
		"properties":       r.Properties,
		"hash":             r.Hash,
		"version":          r.SchemaVersion,
		"now":              now,
		"fields":           fields,
	}
}
