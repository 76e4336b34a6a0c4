package migrate

import (
	"codegraph/internal/schema"
)

// Step is one structural change of a named migration. It runs inside the
// migration transaction before entities are retagged, and only touches
// entities still tagged with the source version.
type Step struct {
	Name  string
	Query query
}

// Migration is a hand-written upgrade between two versions whose structural
// change cannot be expressed as a plain retag.
type Migration struct {
	From  string
	To    string
	Steps []Step
}

type versionPair struct{ from, to string }

var registry = map[versionPair]Migration{}

// Register adds m to the named migrations. A later registration for the same
// version pair replaces the earlier one.
func Register(m Migration) {
	registry[versionPair{m.From, m.To}] = m
}

// Lookup returns the named migration from -> to, if any.
func Lookup(from, to string) (Migration, bool) {
	m, ok := registry[versionPair{from, to}]
	return m, ok
}

var (
	stepBackfillCodebase = Step{Name: "backfill_relationship_codebase", Query: backfillRelationshipCodebase}
	stepLabelMetacog     = Step{Name: "label_metacognitive", Query: labelMetacognitive}
)

func init() {
	// 1.0.0 relationships predate codebase ownership and metacognitive
	// nodes predate the derived label.
	Register(Migration{
		From:  "1.0.0",
		To:    schema.CurrentVersion,
		Steps: []Step{stepBackfillCodebase, stepLabelMetacog},
	})
	Register(Migration{
		From:  "1.5.0",
		To:    schema.CurrentVersion,
		Steps: []Step{stepLabelMetacog},
	})
	Register(Migration{
		From:  schema.Unversioned,
		To:    schema.CurrentVersion,
		Steps: []Step{stepBackfillCodebase, stepLabelMetacog},
	})
}

func metacognitiveKindNames() []string {
	kinds := schema.MetacognitiveKinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
