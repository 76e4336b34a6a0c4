package resolver

import (
	"strings"
	"testing"

	"codegraph/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestQueries_DefineEveryDialect(t *testing.T) {
	queries := map[string]query{
		"census":      censusQuery,
		"kinds":       kindQuery,
		"cross_edges": crossEdgeQuery,
		"matrix":      matrixQuery,
		"files":       fileDependencyQuery,
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, q, 2)
			for _, d := range []storage.Dialect{storage.DialectSQLite, storage.DialectCypher} {
				assert.NotEmpty(t, strings.TrimSpace(q[d]), d)
			}
			assert.ElementsMatch(t,
				storage.ParamNames(storage.DialectSQLite, q[storage.DialectSQLite]),
				storage.ParamNames(storage.DialectCypher, q[storage.DialectCypher]),
				"both dialects take the same parameters")
		})
	}
}
