package migrate

import "codegraph/internal/storage"

// query holds one statement per dialect. Write statements report the number
// of touched entities in an "affected" column.
type query map[storage.Dialect]string

var versionsQuery = query{
	storage.DialectSQLite: `
		SELECT schema_version AS version FROM nodes
		WHERE schema_version IS NOT NULL AND schema_version <> ''
		UNION
		SELECT schema_version FROM relationships
		WHERE schema_version IS NOT NULL AND schema_version <> ''`,
	storage.DialectCypher: `
		MATCH (n) WHERE coalesce(n._schemaVersion, '') <> ''
		RETURN DISTINCT n._schemaVersion AS version
		UNION
		MATCH ()-[r]->() WHERE coalesce(r._schemaVersion, '') <> ''
		RETURN DISTINCT r._schemaVersion AS version`,
}

var unversionedQuery = query{
	storage.DialectSQLite: `
		SELECT (SELECT COUNT(*) FROM nodes WHERE COALESCE(schema_version, '') = '')
			+ (SELECT COUNT(*) FROM relationships WHERE COALESCE(schema_version, '') = '') AS total`,
	storage.DialectCypher: `
		CALL { MATCH (n) WHERE coalesce(n._schemaVersion, '') = '' RETURN count(n) AS nodes }
		CALL { MATCH ()-[r]->() WHERE coalesce(r._schemaVersion, '') = '' RETURN count(r) AS rels }
		RETURN nodes + rels AS total`,
}

// Entities without a tag match from = "".
var retagNodes = query{
	storage.DialectSQLite: `
		UPDATE nodes SET schema_version = :to
		WHERE COALESCE(schema_version, '') = :from`,
	storage.DialectCypher: `
		MATCH (n) WHERE coalesce(n._schemaVersion, '') = $from
		SET n._schemaVersion = $to
		RETURN count(n) AS affected`,
}

var retagRelationships = query{
	storage.DialectSQLite: `
		UPDATE relationships SET schema_version = :to
		WHERE COALESCE(schema_version, '') = :from`,
	storage.DialectCypher: `
		MATCH ()-[r]->() WHERE coalesce(r._schemaVersion, '') = $from
		SET r._schemaVersion = $to
		RETURN count(r) AS affected`,
}

var backfillRelationshipCodebase = query{
	storage.DialectSQLite: `
		UPDATE relationships
		SET codebase_id = (SELECT n.codebase_id FROM nodes n WHERE n.node_id = relationships.start_node_id)
		WHERE COALESCE(schema_version, '') = :from
			AND codebase_id = ''
			AND EXISTS (SELECT 1 FROM nodes n WHERE n.node_id = relationships.start_node_id)`,
	storage.DialectCypher: `
		MATCH (a)-[r]->() WHERE coalesce(r._schemaVersion, '') = $from
			AND coalesce(r.codebaseId, '') = '' AND a.codebaseId IS NOT NULL
		SET r.codebaseId = a.codebaseId
		RETURN count(r) AS affected`,
}

var labelMetacognitive = query{
	storage.DialectSQLite: `
		UPDATE nodes SET labels = json_insert(labels, '$[#]', 'Metacognitive')
		WHERE COALESCE(schema_version, '') = :from
			AND EXISTS (SELECT 1 FROM json_each(nodes.labels) WHERE value IN (SELECT value FROM json_each(:kinds)))
			AND NOT EXISTS (SELECT 1 FROM json_each(nodes.labels) WHERE value = 'Metacognitive')`,
	storage.DialectCypher: `
		MATCH (n) WHERE coalesce(n._schemaVersion, '') = $from
			AND any(l IN labels(n) WHERE l IN $kinds) AND NOT n:Metacognitive
		SET n:Metacognitive
		RETURN count(n) AS affected`,
}
