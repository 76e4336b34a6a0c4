package index

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"codegraph/internal/crawler"
	"codegraph/internal/extractor"
	"codegraph/internal/graph"
	"codegraph/internal/identity"
	"codegraph/internal/schema"
)

// Codebase is one independently analyzed source tree.
type Codebase struct {
	ID     string
	Root   string
	Module string
}

// Indexer turns scanned source trees into a graph batch.
type Indexer struct {
	crawler   *crawler.Crawler
	codebases []Codebase
	logger    *slog.Logger
}

// NewIndexer creates an indexer over the known codebases. Module paths of
// every known codebase are used to resolve references, even when only some
// of them are scanned.
func NewIndexer(c *crawler.Crawler, codebases []Codebase, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{crawler: c, codebases: codebases, logger: logger}
}

type pendingMethod struct {
	codebase string
	pkg      string
	receiver string
	methodID string
}

type batch struct {
	g       *graph.Graph
	methods []pendingMethod
}

// BuildGraph scans the codebases named by ids (all known codebases when ids
// is empty) and links their references.
func (i *Indexer) BuildGraph(ids ...string) (*graph.Graph, error) {
	b := &batch{g: graph.NewGraph()}
	for _, cb := range i.codebases {
		if cb.Module != "" {
			b.g.RegisterModule(cb.Module, cb.ID)
		}
	}

	selected, err := i.selectCodebases(ids)
	if err != nil {
		return nil, err
	}

	for _, cb := range selected {
		if err := i.scanCodebase(b, cb); err != nil {
			return nil, fmt.Errorf("scan %s failed: %w", cb.ID, err)
		}
	}

	b.linkMethods()

	// Resolve relationships after all units are loaded
	b.g.LinkRelations()

	if counts := b.g.UnresolvedReasonCounts(); len(counts) > 0 {
		i.logger.Debug("unresolved references", "counts", counts)
	}
	i.logger.Info("graph built", "codebases", len(selected), "nodes", len(b.g.Nodes), "relationships", len(b.g.Relationships))
	return b.g, nil
}

func (i *Indexer) selectCodebases(ids []string) ([]Codebase, error) {
	if len(ids) == 0 {
		return i.codebases, nil
	}
	var out []Codebase
	for _, id := range ids {
		found := false
		for _, cb := range i.codebases {
			if cb.ID == id {
				out = append(out, cb)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown codebase %q", id)
		}
	}
	return out, nil
}

func (i *Indexer) scanCodebase(b *batch, cb Codebase) error {
	root := schema.NewNode(cb.ID, schema.KindCodebase, cb.ID, schema.Properties{
		"name":       cb.ID,
		"rootPath":   cb.Root,
		"modulePath": cb.Module,
		"language":   "go",
	})
	b.g.AddNode(root)

	return i.crawler.ScanProject(cb.Root, func(f *extractor.FileFacts) error {
		return b.addFile(cb, root.NodeID, f)
	})
}

func (b *batch) addFile(cb Codebase, codebaseID string, f *extractor.FileFacts) error {
	pkgPath := packagePath(cb.Module, f.Path)

	pkg := schema.NewNode(cb.ID, schema.KindPackage, pkgPath, schema.Properties{
		"name":       f.PackageName,
		"importPath": pkgPath,
	})
	if _, ok := b.g.Nodes[pkg.NodeID]; !ok {
		b.g.AddNode(pkg)
		if _, err := b.g.Link(schema.RelContains, codebaseID, pkg.NodeID, nil); err != nil {
			return err
		}
	}

	file := schema.NewNode(cb.ID, schema.KindFile, f.Path, schema.Properties{
		"path":        f.Path,
		"name":        path.Base(f.Path),
		"extension":   path.Ext(f.Path),
		"language":    "go",
		"packageName": f.PackageName,
		"lineCount":   f.LineCount,
		"size":        f.Size,
	})
	b.g.AddNode(file)
	if _, err := b.g.Link(schema.RelContains, pkg.NodeID, file.NodeID, nil); err != nil {
		return err
	}

	aliases, err := b.addImports(cb, codebaseID, file.NodeID, f.Imports)
	if err != nil {
		return err
	}

	for _, unit := range f.Units {
		n := declarationNode(cb.ID, pkgPath, f.Path, unit)
		if unit.UnitType == "method" {
			b.g.AddNode(n, pkgPath+"."+unit.Receiver+"."+unit.Name)
			b.methods = append(b.methods, pendingMethod{codebase: cb.ID, pkg: pkgPath, receiver: unit.Receiver, methodID: n.NodeID})
		} else {
			b.g.AddNode(n, pkgPath+"."+unit.Name)
		}
		if _, err := b.g.Link(schema.RelDefines, file.NodeID, n.NodeID, nil); err != nil {
			return err
		}

		for _, call := range unit.Calls {
			target, ok := qualify(call.Target, aliases)
			if !ok {
				continue
			}
			b.g.AddRef(graph.Ref{
				From:       n.NodeID,
				Type:       schema.RelCalls,
				Target:     target,
				TargetKind: schema.KindFunction,
				Package:    pkgPath,
				Props:      schema.Properties{"line": call.Line},
			})
		}
	}
	return nil
}

// addImports links the file to every package it imports and returns the
// local name -> import path table used to qualify calls.
func (b *batch) addImports(cb Codebase, codebaseID, fileID string, imports []extractor.Import) (map[string]string, error) {
	aliases := make(map[string]string)
	for _, imp := range imports {
		local := imp.Alias
		if local == "" {
			local = path.Base(imp.Path)
		}
		if local != "_" && local != "." {
			aliases[local] = imp.Path
		}

		attrs := schema.ImportAttrs{
			ImportPath:  imp.Path,
			Alias:       imp.Alias,
			IsNamespace: true,
		}

		if owner, ok := b.g.CodebaseForPackage(imp.Path); ok {
			attrs.IsResolved = true
			attrs.ResolvedPath = imp.Path
			target := identity.Compose(owner, string(schema.KindPackage), imp.Path)
			rel, err := schema.NewImport(schema.RelImports, fileID, target, attrs)
			if err != nil {
				return nil, err
			}
			b.g.AddRelationship(rel)
			continue
		}

		dep := schema.NewNode(cb.ID, schema.KindDependency, imp.Path, schema.Properties{"name": imp.Path})
		if _, ok := b.g.Nodes[dep.NodeID]; !ok {
			b.g.AddNode(dep)
			if _, err := b.g.Link(schema.RelDependsOn, codebaseID, dep.NodeID, nil); err != nil {
				return nil, err
			}
		}
		rel, err := schema.NewPackageImport(schema.RelImportsFromPackage, fileID, dep.NodeID, schema.PackageImportAttrs{
			ImportAttrs: attrs,
			PackageName: imp.Path,
		})
		if err != nil {
			return nil, err
		}
		b.g.AddRelationship(rel)
	}
	return aliases, nil
}

// linkMethods attaches methods to their receiver type once every file of
// the batch has been read.
func (b *batch) linkMethods() {
	for _, m := range b.methods {
		key := m.pkg + "." + m.receiver
		for _, kind := range []schema.NodeKind{schema.KindClass, schema.KindTypeAlias, schema.KindInterface} {
			id := identity.Compose(m.codebase, string(kind), key)
			if _, ok := b.g.Nodes[id]; ok {
				_, _ = b.g.Link(schema.RelHasMethod, id, m.methodID, nil)
				break
			}
		}
	}
}

func declarationNode(codebase, pkgPath, filePath string, unit *extractor.CodeUnit) *schema.Node {
	props := schema.Properties{
		"name":       unit.Name,
		"filePath":   filePath,
		"startLine":  unit.StartLine,
		"endLine":    unit.EndLine,
		"isExported": isExported(unit.Name),
	}
	if unit.DocComment != "" {
		props["docComment"] = unit.DocComment
	}

	var kind schema.NodeKind
	key := pkgPath + "." + unit.Name
	switch unit.UnitType {
	case "function", "method":
		kind = schema.KindFunction
		if unit.UnitType == "method" {
			kind = schema.KindMethod
			key = pkgPath + "." + unit.Receiver + "." + unit.Name
			props["receiver"] = unit.Receiver
		}
		props["signature"] = unit.Signature
		props["parameterCount"] = unit.ParamCount
		if unit.ReturnType != "" {
			props["returnType"] = unit.ReturnType
		}
	case "struct":
		kind = schema.KindClass
		props["fields"] = unit.Fields
	case "interface":
		kind = schema.KindInterface
		props["methods"] = unit.Methods
	case "constant", "variable":
		kind = schema.KindVariable
		props["isConst"] = unit.UnitType == "constant"
		if unit.ValueType != "" {
			props["valueType"] = unit.ValueType
		}
		if unit.Value != "" {
			props["defaultValue"] = unit.Value
		}
	default:
		kind = schema.KindTypeAlias
		if unit.ValueType != "" {
			props["aliasedType"] = unit.ValueType
		}
	}

	n := schema.NewNode(codebase, kind, key, props)
	n.Hash = extractor.ContentHash(unit.Content)
	return n
}

// qualify rewrites "alias.Name" to "importPath.Name". Selectors whose operand
// is not an imported package are method calls on values and are dropped.
func qualify(target string, aliases map[string]string) (string, bool) {
	dot := strings.Index(target, ".")
	if dot < 0 {
		return target, true
	}
	importPath, ok := aliases[target[:dot]]
	if !ok {
		return "", false
	}
	return importPath + target[dot:], true
}

// packagePath is the import path of the package holding relPath.
func packagePath(module, relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return module
	}
	if module == "" {
		return dir
	}
	return module + "/" + dir
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
