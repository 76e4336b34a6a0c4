package migrate

import (
	"strings"
	"testing"

	"codegraph/internal/storage"

	"github.com/stretchr/testify/assert"
)

var dialects = []storage.Dialect{storage.DialectSQLite, storage.DialectCypher}

func assertBothDialects(t *testing.T, q query) {
	t.Helper()
	assert.Len(t, q, len(dialects))
	for _, d := range dialects {
		assert.NotEmpty(t, strings.TrimSpace(q[d]), d)
	}
	assert.ElementsMatch(t,
		storage.ParamNames(storage.DialectSQLite, q[storage.DialectSQLite]),
		storage.ParamNames(storage.DialectCypher, q[storage.DialectCypher]),
		"both dialects take the same parameters")
}

func TestQueries_DefineEveryDialect(t *testing.T) {
	queries := map[string]query{
		"versions":            versionsQuery,
		"unversioned":         unversionedQuery,
		"retag_nodes":         retagNodes,
		"retag_relationships": retagRelationships,
	}
	for _, m := range registry {
		for _, step := range m.Steps {
			queries[step.Name] = step.Query
		}
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			assertBothDialects(t, q)
		})
	}
}

func TestSteps_UseOnlyEngineParameters(t *testing.T) {
	for _, m := range registry {
		for _, step := range m.Steps {
			for _, d := range dialects {
				for _, name := range storage.ParamNames(d, step.Query[d]) {
					assert.Contains(t, []string{"from", "to", "kinds"}, name, "%s (%s)", step.Name, d)
				}
			}
		}
	}
}
