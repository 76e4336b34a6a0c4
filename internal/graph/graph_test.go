package graph

import (
	"testing"

	"codegraph/internal/identity"
	"codegraph/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fn(codebase, pkg, name string) *schema.Node {
	return schema.NewNode(codebase, schema.KindFunction, pkg+"."+name, schema.Properties{"name": name, "filePath": "x.go"})
}

func TestGraph_LinkRelations(t *testing.T) {
	g := NewGraph()
	g.RegisterModule("example.com/web", "web")
	g.RegisterModule("example.com/lib", "lib")

	a := fn("web", "example.com/web/app", "FuncA")
	b := fn("web", "example.com/web/app", "FuncB")
	c := fn("web", "example.com/web/other", "FuncB")
	g.AddNode(a, "FuncA", "example.com/web/app.FuncA")
	g.AddNode(b, "FuncB", "example.com/web/app.FuncB")
	g.AddNode(c, "FuncB", "example.com/web/other.FuncB")

	ref := func(target string) Ref {
		return Ref{From: a.NodeID, Type: schema.RelCalls, Target: target, TargetKind: schema.KindFunction, Package: "example.com/web/app"}
	}
	g.AddRef(ref("FuncB"))
	g.AddRef(ref("FuncB"))
	g.AddRef(ref("example.com/web/other.FuncB"))
	g.AddRef(ref("example.com/lib/util.Format"))
	g.AddRef(ref("fmt.Println"))

	g.LinkRelations()

	t.Run("package-local match wins over global name", func(t *testing.T) {
		out := g.Outgoing(a.NodeID)
		require.Len(t, out, 3)
		assert.Equal(t, b.NodeID, out[0].EndNodeID)
		assert.Equal(t, int64(2), out[0].Properties.Int("callCount"))
		assert.False(t, out[0].IsCrossCodebase)
	})

	t.Run("qualified match", func(t *testing.T) {
		assert.Equal(t, c.NodeID, g.Outgoing(a.NodeID)[1].EndNodeID)
	})

	t.Run("registered module outside the batch", func(t *testing.T) {
		r := g.Outgoing(a.NodeID)[2]
		assert.Equal(t, identity.Compose("lib", "Function", "example.com/lib/util.Format"), r.EndNodeID)
		assert.True(t, r.IsCrossCodebase)
		assert.Equal(t, "lib", r.TargetCodebaseID)
	})

	t.Run("unresolved", func(t *testing.T) {
		counts := g.UnresolvedReasonCounts()
		assert.Equal(t, 1, counts[ReasonNoCandidate])
		assert.Empty(t, g.Refs)
	})
}

func TestGraph_BareNameStaysInPackage(t *testing.T) {
	g := NewGraph()
	g.RegisterModule("example.com/web", "web")
	g.RegisterModule("example.com/lib", "lib")
	main := fn("web", "example.com/web", "main")
	cleanup := fn("lib", "example.com/lib/util", "cleanup")
	g.AddNode(main, "example.com/web.main")
	g.AddNode(cleanup, "example.com/lib/util.cleanup")

	g.AddRef(Ref{From: main.NodeID, Type: schema.RelCalls, Target: "cleanup", TargetKind: schema.KindFunction, Package: "example.com/web"})
	g.LinkRelations()

	assert.Empty(t, g.Relationships)
	require.Len(t, g.Unresolved, 1)
	assert.Equal(t, ReasonNoCandidate, g.Unresolved[0].Reason)
}

func TestGraph_AmbiguousQualifiedName(t *testing.T) {
	g := NewGraph()
	a := fn("web", "p1", "Caller")
	g.AddNode(a, "p1.Caller")
	g.AddNode(fn("web", "shared/run", "Run"), "shared/run.Run")
	g.AddNode(fn("lib", "shared/run", "Run"), "shared/run.Run")

	g.AddRef(Ref{From: a.NodeID, Type: schema.RelCalls, Target: "shared/run.Run", Package: "p1"})
	g.LinkRelations()

	assert.Empty(t, g.Relationships)
	assert.Equal(t, 1, g.UnresolvedReasonCounts()[ReasonAmbiguous])
}

func TestGraph_AddRelationshipDeduplicates(t *testing.T) {
	g := NewGraph()
	a := fn("web", "p", "A")
	b := fn("web", "p", "B")

	first, err := g.Link(schema.RelCalls, a.NodeID, b.NodeID, nil)
	require.NoError(t, err)
	second, err := g.Link(schema.RelCalls, a.NodeID, b.NodeID, nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, g.Relationships, 1)

	_, err = g.Link(schema.RelCalls, "broken", b.NodeID, nil)
	assert.ErrorIs(t, err, identity.ErrMalformed)

	cb, ok := g.CodebaseForPackage("unknown/pkg")
	assert.False(t, ok)
	assert.Empty(t, cb)
}
