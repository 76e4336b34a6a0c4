package resolver

import "codegraph/internal/storage"

// query holds one report query per dialect.
type query map[storage.Dialect]string

var censusQuery = query{
	storage.DialectSQLite: `
		SELECT codebase_id AS codebaseId, COUNT(*) AS nodeCount
		FROM nodes
		WHERE codebase_id <> ''
		GROUP BY codebase_id
		ORDER BY nodeCount DESC, codebaseId`,
	storage.DialectCypher: `
		MATCH (n) WHERE n.codebaseId IS NOT NULL AND n.codebaseId <> ''
		RETURN n.codebaseId AS codebaseId, count(n) AS nodeCount
		ORDER BY nodeCount DESC, codebaseId`,
}

var kindQuery = query{
	storage.DialectSQLite: `
		SELECT codebase_id AS codebaseId, json_extract(labels, '$[0]') AS kind, COUNT(*) AS nodeCount
		FROM nodes
		WHERE codebase_id <> ''
		GROUP BY codebase_id, kind
		ORDER BY codebaseId, nodeCount DESC, kind`,
	storage.DialectCypher: `
		MATCH (n) WHERE n.codebaseId IS NOT NULL AND n.codebaseId <> ''
		WITH n.codebaseId AS codebaseId, [l IN labels(n) WHERE l <> 'Metacognitive'][0] AS kind
		RETURN codebaseId, kind, count(*) AS nodeCount
		ORDER BY codebaseId, nodeCount DESC, kind`,
}

// Cross-codebase relationships are detected by the stored flag or by
// comparing endpoint codebases, so rows written before the flag existed
// are still found.
var crossEdgeQuery = query{
	storage.DialectSQLite: `
		SELECT r.type AS relType,
			COALESCE(NULLIF(r.source_codebase_id, ''), a.codebase_id) AS sourceCodebaseId,
			COALESCE(NULLIF(r.target_codebase_id, ''), b.codebase_id) AS targetCodebaseId,
			COUNT(*) AS relCount
		FROM relationships r
		JOIN nodes a ON a.node_id = r.start_node_id
		JOIN nodes b ON b.node_id = r.end_node_id
		WHERE r.is_cross_codebase = 1 OR a.codebase_id <> b.codebase_id
		GROUP BY relType, sourceCodebaseId, targetCodebaseId
		ORDER BY relCount DESC, relType, sourceCodebaseId, targetCodebaseId`,
	storage.DialectCypher: `
		MATCH (a)-[r]->(b)
		WHERE r.isCrossCodebase = true OR a.codebaseId <> b.codebaseId
		WITH type(r) AS relType,
			coalesce(r.sourceCodebaseId, a.codebaseId) AS sourceCodebaseId,
			coalesce(r.targetCodebaseId, b.codebaseId) AS targetCodebaseId
		RETURN relType, sourceCodebaseId, targetCodebaseId, count(*) AS relCount
		ORDER BY relCount DESC, relType, sourceCodebaseId, targetCodebaseId`,
}

var matrixQuery = query{
	storage.DialectSQLite: `
		SELECT COALESCE(NULLIF(r.source_codebase_id, ''), a.codebase_id) AS sourceCodebaseId,
			COALESCE(NULLIF(r.target_codebase_id, ''), b.codebase_id) AS targetCodebaseId,
			COUNT(*) AS weight
		FROM relationships r
		JOIN nodes a ON a.node_id = r.start_node_id
		JOIN nodes b ON b.node_id = r.end_node_id
		WHERE r.is_cross_codebase = 1 OR a.codebase_id <> b.codebase_id
		GROUP BY sourceCodebaseId, targetCodebaseId
		ORDER BY weight DESC, sourceCodebaseId, targetCodebaseId`,
	storage.DialectCypher: `
		MATCH (a)-[r]->(b)
		WHERE r.isCrossCodebase = true OR a.codebaseId <> b.codebaseId
		WITH coalesce(r.sourceCodebaseId, a.codebaseId) AS sourceCodebaseId,
			coalesce(r.targetCodebaseId, b.codebaseId) AS targetCodebaseId
		RETURN sourceCodebaseId, targetCodebaseId, count(*) AS weight
		ORDER BY weight DESC, sourceCodebaseId, targetCodebaseId`,
}

// A file owns itself and whatever it CONTAINS or DEFINES.
var fileDependencyQuery = query{
	storage.DialectSQLite: `
		WITH file_of AS (
			SELECT node_id AS entity_id, node_id AS file_id
			FROM nodes WHERE json_extract(labels, '$[0]') = 'File'
			UNION
			SELECT o.end_node_id, o.start_node_id
			FROM relationships o
			JOIN nodes f ON f.node_id = o.start_node_id
			WHERE o.type IN ('CONTAINS', 'DEFINES') AND json_extract(f.labels, '$[0]') = 'File'
		)
		SELECT fa.codebase_id AS sourceCodebaseId,
			json_extract(fa.properties, '$.path') AS sourceFile,
			fb.codebase_id AS targetCodebaseId,
			json_extract(fb.properties, '$.path') AS targetFile,
			COUNT(DISTINCT r.node_id) AS relCount
		FROM relationships r
		JOIN nodes a ON a.node_id = r.start_node_id
		JOIN nodes b ON b.node_id = r.end_node_id
		JOIN file_of xa ON xa.entity_id = a.node_id
		JOIN nodes fa ON fa.node_id = xa.file_id
		JOIN file_of xb ON xb.entity_id = b.node_id
		JOIN nodes fb ON fb.node_id = xb.file_id
		WHERE fa.codebase_id <> fb.codebase_id AND r.type NOT IN ('CONTAINS', 'DEFINES')
		GROUP BY sourceCodebaseId, sourceFile, targetCodebaseId, targetFile
		ORDER BY relCount DESC, sourceFile, targetFile
		LIMIT :limit`,
	storage.DialectCypher: `
		MATCH (a)-[r]->(b)
		WHERE NOT type(r) IN ['CONTAINS', 'DEFINES']
		MATCH (fa:File) WHERE fa = a OR (fa)-[:CONTAINS|DEFINES]->(a)
		MATCH (fb:File) WHERE (fb = b OR (fb)-[:CONTAINS|DEFINES]->(b)) AND fa.codebaseId <> fb.codebaseId
		RETURN fa.codebaseId AS sourceCodebaseId, fa.path AS sourceFile,
			fb.codebaseId AS targetCodebaseId, fb.path AS targetFile,
			count(DISTINCT r) AS relCount
		ORDER BY relCount DESC, sourceFile, targetFile
		LIMIT $limit`,
}
