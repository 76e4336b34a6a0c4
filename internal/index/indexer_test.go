package index

import (
	"os"
	"path/filepath"
	"testing"

	"codegraph/internal/crawler"
	"codegraph/internal/extractor"
	"codegraph/internal/graph"
	"codegraph/internal/identity"
	"codegraph/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func twoCodebases(t *testing.T) []Codebase {
	t.Helper()
	lib := t.TempDir()
	writeFile(t, lib, "util/util.go", `package util

// Format renders a value.
func Format() string { return "" }

type Printer struct {
	Prefix string
}

func (p *Printer) Print() { Format() }
`)

	web := t.TempDir()
	writeFile(t, web, "main.go", `package main

import (
	"fmt"

	"example.com/lib/util"
)

func main() {
	helper()
	fmt.Println(util.Format())
}

func helper() {}
`)

	return []Codebase{
		{ID: "lib", Root: lib, Module: "example.com/lib"},
		{ID: "web", Root: web, Module: "example.com/web"},
	}
}

func newIndexer(t *testing.T, codebases []Codebase) *Indexer {
	ext, err := extractor.NewExtractor("go")
	require.NoError(t, err)
	return NewIndexer(crawler.NewCrawler(ext, nil, nil), codebases, nil)
}

func relsOfType(rels []*schema.Relationship, t schema.RelType) []*schema.Relationship {
	var out []*schema.Relationship
	for _, r := range rels {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func TestIndexer_BuildGraph(t *testing.T) {
	g, err := newIndexer(t, twoCodebases(t)).BuildGraph()
	require.NoError(t, err)

	format := identity.Compose("lib", "Function", "example.com/lib/util.Format")
	printer := identity.Compose("lib", "Class", "example.com/lib/util.Printer")
	printMethod := identity.Compose("lib", "Method", "example.com/lib/util.Printer.Print")
	webMain := identity.Compose("web", "Function", "example.com/web.main")
	helper := identity.Compose("web", "Function", "example.com/web.helper")
	webFile := identity.Compose("web", "File", "main.go")

	t.Run("nodes validate against the catalog", func(t *testing.T) {
		for _, id := range []string{format, printer, printMethod, webMain, helper, webFile} {
			require.Contains(t, g.Nodes, id)
		}
		for _, n := range g.Nodes {
			assert.NoError(t, schema.ValidateNode(n), n.NodeID)
		}
		for _, r := range g.Relationships {
			assert.NoError(t, schema.ValidateRelationship(r), r.NodeID)
		}
		assert.Equal(t, "Format renders a value.", g.Nodes[format].Properties.String("docComment"))
		assert.NotEmpty(t, g.Nodes[format].Hash)
		assert.Equal(t, []string{"Prefix"}, g.Nodes[printer].Properties["fields"])
	})

	t.Run("calls", func(t *testing.T) {
		var targets []string
		for _, r := range relsOfType(g.Outgoing(webMain), schema.RelCalls) {
			targets = append(targets, r.EndNodeID)
		}
		assert.ElementsMatch(t, []string{helper, format}, targets)

		calls := relsOfType(g.Outgoing(printMethod), schema.RelCalls)
		require.Len(t, calls, 1)
		assert.Equal(t, format, calls[0].EndNodeID)
		assert.False(t, calls[0].IsCrossCodebase)
	})

	t.Run("cross-codebase call", func(t *testing.T) {
		for _, r := range relsOfType(g.Outgoing(webMain), schema.RelCalls) {
			if r.EndNodeID == format {
				assert.True(t, r.IsCrossCodebase)
				assert.Equal(t, "web", r.SourceCodebaseID)
				assert.Equal(t, "lib", r.TargetCodebaseID)
			}
		}
	})

	t.Run("imports", func(t *testing.T) {
		imports := relsOfType(g.Outgoing(webFile), schema.RelImports)
		require.Len(t, imports, 1)
		assert.Equal(t, identity.Compose("lib", "Package", "example.com/lib/util"), imports[0].EndNodeID)
		assert.True(t, imports[0].IsCrossCodebase)

		pkgImports := relsOfType(g.Outgoing(webFile), schema.RelImportsFromPackage)
		require.Len(t, pkgImports, 1)
		attrs, err := schema.DecodeImport(pkgImports[0])
		require.NoError(t, err)
		assert.Equal(t, "fmt", attrs.PackageName)
		assert.False(t, attrs.IsResolved)
	})

	t.Run("methods attach to their receiver", func(t *testing.T) {
		has := relsOfType(g.Outgoing(printer), schema.RelHasMethod)
		require.Len(t, has, 1)
		assert.Equal(t, printMethod, has[0].EndNodeID)
	})
}

func TestIndexer_SingleCodebaseResolvesIntoKnownModules(t *testing.T) {
	g, err := newIndexer(t, twoCodebases(t)).BuildGraph("web")
	require.NoError(t, err)

	for id := range g.Nodes {
		assert.True(t, identity.OwnedBy(id, "web"), id)
	}

	webMain := identity.Compose("web", "Function", "example.com/web.main")
	var cross int
	for _, r := range relsOfType(g.Outgoing(webMain), schema.RelCalls) {
		if r.IsCrossCodebase {
			cross++
			assert.Equal(t, identity.Compose("lib", "Function", "example.com/lib/util.Format"), r.EndNodeID)
		}
	}
	assert.Equal(t, 1, cross)

	_, err = newIndexer(t, twoCodebases(t)).BuildGraph("missing")
	assert.Error(t, err)
}

func TestIndexer_LocalCallDoesNotCrossCodebases(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "util/util.go", `package util

func cleanup() {}
`)
	web := t.TempDir()
	writeFile(t, web, "main.go", `package main

func main() {
	cleanup := func() {}
	cleanup()
}
`)

	g, err := newIndexer(t, []Codebase{
		{ID: "lib", Root: lib, Module: "example.com/lib"},
		{ID: "web", Root: web, Module: "example.com/web"},
	}).BuildGraph()
	require.NoError(t, err)

	webMain := identity.Compose("web", "Function", "example.com/web.main")
	require.Contains(t, g.Nodes, webMain)
	assert.Empty(t, relsOfType(g.Outgoing(webMain), schema.RelCalls))
	for _, r := range g.Relationships {
		if r.Type == schema.RelCalls {
			assert.False(t, r.IsCrossCodebase, r.NodeID)
		}
	}
	assert.Equal(t, 1, g.UnresolvedReasonCounts()[graph.ReasonNoCandidate])
}
