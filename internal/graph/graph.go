package graph

import (
	"strings"

	"codegraph/internal/identity"
	"codegraph/internal/schema"
)

// Ref is a name-based reference found during extraction. LinkRelations turns
// it into a relationship once every node of the batch is known.
type Ref struct {
	From       string
	Type       schema.RelType
	Target     string // bare name or importPath.Name
	TargetKind schema.NodeKind
	Package    string // import path of the referring package
	Props      schema.Properties
}

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
	ReasonInvalid     UnresolvedReason = "invalid"
)

type Unresolved struct {
	Ref    Ref
	Reason UnresolvedReason
}

// Graph is one ingestion batch: nodes keyed by id, relationships in insertion
// order and the references still to be linked.
type Graph struct {
	Nodes         map[string]*schema.Node
	Relationships []*schema.Relationship
	Refs          []Ref
	Unresolved    []Unresolved

	relIndex map[string]*schema.Relationship

	// Name -> []ID, used to resolve name-based references.
	nameIndex map[string][]string

	// module path -> codebase id, for references into codebases outside the batch
	modules map[string]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*schema.Node),
		relIndex:  make(map[string]*schema.Relationship),
		nameIndex: make(map[string][]string),
		modules:   make(map[string]string),
	}
}

// RegisterModule maps a Go module path to the codebase that owns it.
func (g *Graph) RegisterModule(modulePath, codebaseID string) {
	g.modules[modulePath] = codebaseID
}

// CodebaseForPackage returns the codebase owning importPath, if its module is registered.
func (g *Graph) CodebaseForPackage(importPath string) (string, bool) {
	best := ""
	for m := range g.modules {
		if (importPath == m || strings.HasPrefix(importPath, m+"/")) && len(m) > len(best) {
			best = m
		}
	}
	if best == "" {
		return "", false
	}
	return g.modules[best], true
}

// AddNode adds n and indexes it under names.
func (g *Graph) AddNode(n *schema.Node, names ...string) {
	if n == nil {
		return
	}
	g.Nodes[n.NodeID] = n
	for _, name := range names {
		g.nameIndex[name] = append(g.nameIndex[name], n.NodeID)
	}
}

// AddRelationship adds r unless a relationship with the same id exists, and
// returns the stored one.
func (g *Graph) AddRelationship(r *schema.Relationship) *schema.Relationship {
	if existing, ok := g.relIndex[r.NodeID]; ok {
		return existing
	}
	g.relIndex[r.NodeID] = r
	g.Relationships = append(g.Relationships, r)
	return r
}

// Link creates and adds a relationship between two known ids.
func (g *Graph) Link(t schema.RelType, from, to string, props schema.Properties) (*schema.Relationship, error) {
	r, err := schema.NewRelationship(t, from, to, props)
	if err != nil {
		return nil, err
	}
	return g.AddRelationship(r), nil
}

func (g *Graph) AddRef(ref Ref) {
	g.Refs = append(g.Refs, ref)
}

// LinkRelations resolves every pending reference. Repeated calls between the
// same pair are folded into one relationship with a callCount.
func (g *Graph) LinkRelations() {
	g.Unresolved = nil
	for _, ref := range g.Refs {
		targets, reason := g.resolveTarget(ref)
		if len(targets) == 0 {
			g.Unresolved = append(g.Unresolved, Unresolved{Ref: ref, Reason: reason})
			continue
		}
		for _, targetID := range targets {
			props := schema.Properties{}
			for k, v := range ref.Props {
				props[k] = v
			}
			if ref.Type == schema.RelCalls {
				props["callCount"] = int64(1)
			}
			r, err := schema.NewRelationship(ref.Type, ref.From, targetID, props)
			if err != nil {
				g.Unresolved = append(g.Unresolved, Unresolved{Ref: ref, Reason: ReasonInvalid})
				continue
			}
			stored := g.AddRelationship(r)
			if stored != r && ref.Type == schema.RelCalls {
				stored.Properties["callCount"] = stored.Properties.Int("callCount") + 1
			}
		}
	}
	g.Refs = nil
}

// resolveTarget finds the target ids of ref.
func (g *Graph) resolveTarget(ref Ref) ([]string, UnresolvedReason) {
	// Normalize target name (e.g., "*Extractor" -> "Extractor", "[]Node" -> "Node")
	cleanName := strings.TrimPrefix(ref.Target, "*")
	cleanName = strings.TrimPrefix(cleanName, "[]")

	// 1. Package-local match
	if ids, ok := g.nameIndex[ref.Package+"."+cleanName]; ok {
		return ids, ""
	}

	// 2. Qualified match. A bare name can only reach its own package.
	if strings.Contains(cleanName, ".") {
		if ids, ok := g.nameIndex[cleanName]; ok {
			if len(ids) == 1 {
				return ids, ""
			}
			return nil, ReasonAmbiguous
		}
	}

	// 3. Qualified name in a registered module outside the batch
	if dot := strings.LastIndex(cleanName, "."); dot > 0 && ref.TargetKind != "" {
		source, _ := identity.Codebase(ref.From)
		if codebase, ok := g.CodebaseForPackage(cleanName[:dot]); ok && codebase != source {
			return []string{identity.Compose(codebase, string(ref.TargetKind), cleanName)}, ""
		}
	}

	return nil, ReasonNoCandidate
}

func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		counts[u.Reason]++
	}
	return counts
}

// Outgoing returns the relationships starting at id.
func (g *Graph) Outgoing(id string) []*schema.Relationship {
	var out []*schema.Relationship
	for _, r := range g.Relationships {
		if r.StartNodeID == id {
			out = append(out, r)
		}
	}
	return out
}
