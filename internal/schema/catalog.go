package schema

import (
	"errors"
	"fmt"
	"regexp"

	"codegraph/internal/identity"
)

var (
	ErrUnknownKind      = errors.New("unknown kind")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrMissingAttribute = errors.New("missing required attribute")
	ErrAttributeType    = errors.New("attribute type mismatch")
	ErrReserved         = errors.New("reserved attribute name")
	ErrIdentity         = errors.New("identity mismatch")
)

// Spec is the closed attribute set of one node kind or relationship type.
type Spec struct {
	Attrs []Attr
}

func (s Spec) lookup(name string) (Attr, bool) {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

func specOf(groups ...[]Attr) Spec {
	var attrs []Attr
	for _, g := range groups {
		attrs = append(attrs, g...)
	}
	return Spec{Attrs: attrs}
}

// reserved names are stored outside Properties.
var reserved = map[string]bool{
	"nodeId": true, "codebaseId": true, "labels": true, "hash": true, "createdAt": true,
	"updatedAt": true, VersionProperty: true, "type": true, "startNodeId": true, "endNodeId": true,
	"isCrossCodebase": true, "sourceCodebaseId": true, "targetCodebaseId": true,
}

var (
	declarationAttrs = []Attr{
		required("name", TypeString),
		required("filePath", TypeString),
		optional("startLine", TypeInt),
		optional("endLine", TypeInt),
		optional("isExported", TypeBool),
		optional("docComment", TypeString),
	}
	callableAttrs = []Attr{
		optional("signature", TypeString),
		optional("returnType", TypeString),
		optional("parameterCount", TypeInt),
		optional("isAsync", TypeBool),
	}
	valueAttrs = []Attr{
		optional("valueType", TypeString),
		optional("defaultValue", TypeString),
		optional("isConst", TypeBool),
		optional("isOptional", TypeBool),
	}
	metacognitiveAttrs = []Attr{
		required("content", TypeString),
		optional("confidence", TypeFloat),
		optional("status", TypeString),
		optional("agentId", TypeString),
		optional("tags", TypeStringList),
	}

	importAttrs = []Attr{
		required("importPath", TypeString),
		optional("isDefault", TypeBool),
		optional("isNamed", TypeBool),
		optional("isNamespace", TypeBool),
		optional("isTypeOnly", TypeBool),
		optional("importedNames", TypeStringList),
		optional("alias", TypeString),
		required("isResolved", TypeBool),
		optional("resolvedPath", TypeString),
	}
	packageImportAttrs = []Attr{
		required("packageName", TypeString),
		optional("packageVersion", TypeString),
		optional("isDevDependency", TypeBool),
		optional("isPeerDependency", TypeBool),
		optional("isOptionalDependency", TypeBool),
	}
	exportAttrs = []Attr{
		optional("isTypeOnly", TypeBool),
		optional("isNamespace", TypeBool),
	}
	exportedNamesAttrs = []Attr{
		required("exportedNames", TypeStringList),
	}
	metaEdgeAttrs = []Attr{
		optional("confidence", TypeFloat),
		optional("note", TypeString),
	}
	positionAttrs = []Attr{
		optional("line", TypeInt),
		optional("column", TypeInt),
	}
)

var nodeSpecs = map[NodeKind]Spec{
	KindCodebase: specOf([]Attr{
		required("name", TypeString),
		optional("rootPath", TypeString),
		optional("modulePath", TypeString),
		optional("language", TypeString),
		optional("description", TypeString),
	}),
	KindPackage: specOf([]Attr{
		required("name", TypeString),
		optional("importPath", TypeString),
		optional("version", TypeString),
	}),
	KindDirectory: specOf([]Attr{
		required("path", TypeString),
		optional("name", TypeString),
	}),
	KindFile: specOf([]Attr{
		required("path", TypeString),
		optional("name", TypeString),
		optional("extension", TypeString),
		optional("language", TypeString),
		optional("packageName", TypeString),
		optional("lineCount", TypeInt),
		optional("size", TypeInt),
	}),
	KindClass: specOf(declarationAttrs, []Attr{
		optional("isAbstract", TypeBool),
		optional("fields", TypeStringList),
	}),
	KindInterface: specOf(declarationAttrs, []Attr{
		optional("methods", TypeStringList),
	}),
	KindEnum: specOf(declarationAttrs, []Attr{
		optional("members", TypeStringList),
	}),
	KindTypeAlias: specOf(declarationAttrs, []Attr{
		optional("aliasedType", TypeString),
	}),
	KindFunction:    specOf(declarationAttrs, callableAttrs),
	KindMethod:      specOf(declarationAttrs, callableAttrs, []Attr{optional("receiver", TypeString), optional("isStatic", TypeBool)}),
	KindConstructor: specOf(declarationAttrs, callableAttrs),
	KindProperty:    specOf(declarationAttrs, valueAttrs, []Attr{optional("isStatic", TypeBool), optional("isReadonly", TypeBool)}),
	KindVariable:    specOf(declarationAttrs, valueAttrs),
	KindParameter:   specOf(declarationAttrs, valueAttrs, []Attr{optional("position", TypeInt)}),
	KindJSXElement: specOf([]Attr{
		required("tagName", TypeString),
		required("filePath", TypeString),
		optional("startLine", TypeInt),
		optional("isComponent", TypeBool),
		optional("props", TypeStringList),
	}),
	KindTest: specOf([]Attr{
		required("name", TypeString),
		required("filePath", TypeString),
		optional("framework", TypeString),
		optional("startLine", TypeInt),
	}),
	KindComponent: specOf([]Attr{
		required("name", TypeString),
		required("filePath", TypeString),
		optional("framework", TypeString),
		optional("props", TypeStringList),
	}),
	KindDependency: specOf([]Attr{
		required("name", TypeString),
		optional("version", TypeString),
		optional("isDevDependency", TypeBool),
		optional("isPeerDependency", TypeBool),
		optional("isOptionalDependency", TypeBool),
	}),
	KindASTPosition: specOf([]Attr{
		required("filePath", TypeString),
		required("startLine", TypeInt),
		optional("startColumn", TypeInt),
		optional("endLine", TypeInt),
		optional("endColumn", TypeInt),
		optional("nodeType", TypeString),
	}),

	KindHypothesis:   specOf(metacognitiveAttrs, []Attr{optional("evidence", TypeStringList)}),
	KindReflection:   specOf(metacognitiveAttrs),
	KindInsight:      specOf(metacognitiveAttrs, []Attr{optional("impact", TypeString)}),
	KindQuestion:     specOf(metacognitiveAttrs, []Attr{optional("isAnswered", TypeBool)}),
	KindDecision:     specOf(metacognitiveAttrs, []Attr{optional("rationale", TypeString), optional("alternatives", TypeStringList)}),
	KindPattern:      specOf(metacognitiveAttrs, []Attr{optional("occurrences", TypeInt)}),
	KindTask:         specOf(metacognitiveAttrs, []Attr{optional("title", TypeString), optional("priority", TypeInt)}),
	KindSubtask:      specOf(metacognitiveAttrs, []Attr{optional("title", TypeString), optional("order", TypeInt)}),
	KindAgent:        specOf(metacognitiveAttrs, []Attr{optional("name", TypeString), optional("role", TypeString)}),
	KindVerification: specOf(metacognitiveAttrs, []Attr{optional("passed", TypeBool), optional("method", TypeString)}),
	KindResult:       specOf(metacognitiveAttrs, []Attr{optional("outcome", TypeString)}),
	KindOrientation:  specOf(metacognitiveAttrs, []Attr{optional("focus", TypeString)}),
}

var relSpecs = map[RelType]Spec{
	RelContains:     specOf(),
	RelDefines:      specOf(),
	RelCalls:        specOf(positionAttrs, []Attr{optional("callCount", TypeInt), optional("isAsync", TypeBool)}),
	RelReferences:   specOf(positionAttrs, []Attr{optional("context", TypeString)}),
	RelExtends:      specOf(),
	RelImplements:   specOf(),
	RelHasMethod:    specOf(),
	RelHasProperty:  specOf(),
	RelHasParameter: specOf([]Attr{optional("position", TypeInt)}),
	RelRenders:      specOf(positionAttrs, []Attr{optional("propsPassed", TypeStringList)}),
	RelTests:        specOf([]Attr{optional("coverageKind", TypeString)}),
	RelDependsOn:    specOf([]Attr{optional("versionRange", TypeString), optional("isDevDependency", TypeBool)}),

	RelImports:                 specOf(importAttrs),
	RelImportsTypes:            specOf(importAttrs),
	RelImportsFromPackage:      specOf(importAttrs, packageImportAttrs),
	RelImportsTypesFromPackage: specOf(importAttrs, packageImportAttrs),

	RelExportsLocal:         specOf(exportAttrs, exportedNamesAttrs),
	RelExportsDefault:       specOf(exportAttrs, []Attr{optional("exportedName", TypeString)}),
	RelReexports:            specOf(exportAttrs, exportedNamesAttrs, []Attr{required("sourcePath", TypeString)}),
	RelReexportsFromPackage: specOf(exportAttrs, exportedNamesAttrs, []Attr{required("packageName", TypeString)}),
	RelReexportsAll:         specOf(exportAttrs, exportedNamesAttrs, []Attr{required("sourcePath", TypeString)}),

	RelSupports:    specOf(metaEdgeAttrs),
	RelContradicts: specOf(metaEdgeAttrs),
	RelDerivedFrom: specOf(metaEdgeAttrs),
	RelAnswers:     specOf(metaEdgeAttrs),
	RelVerifies:    specOf(metaEdgeAttrs),
	RelAssignedTo:  specOf(metaEdgeAttrs),
	RelSubtaskOf:   specOf(metaEdgeAttrs),
	RelObserves:    specOf(metaEdgeAttrs),
}

// NodeSpec returns the attribute spec of kind.
func NodeSpec(kind NodeKind) (Spec, bool) {
	s, ok := nodeSpecs[kind]
	return s, ok
}

// RelSpec returns the attribute spec of t.
func RelSpec(t RelType) (Spec, bool) {
	s, ok := relSpecs[t]
	return s, ok
}

// IsKnownLabel reports whether label may appear on a node.
func IsKnownLabel(label string) bool {
	if NodeKind(label) == LabelMetacognitive {
		return true
	}
	_, ok := nodeSpecs[NodeKind(label)]
	return ok
}

// IsReserved reports whether name is stored outside Properties.
func IsReserved(name string) bool {
	return reserved[name]
}

var tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// IsSafeTag reports whether s can be spliced into a query as a label or type.
func IsSafeTag(s string) bool {
	return tagPattern.MatchString(s)
}

// ValidateNode checks n against the catalog and normalizes its property values.
func ValidateNode(n *Node) error {
	kind := n.Kind()
	spec, ok := nodeSpecs[kind]
	if !ok {
		return fmt.Errorf("node %q: %w %q", n.NodeID, ErrUnknownKind, kind)
	}
	for _, l := range n.Labels[1:] {
		if !IsKnownLabel(l) {
			return fmt.Errorf("node %q: %w label %q", n.NodeID, ErrUnknownKind, l)
		}
	}
	id, err := identity.Decompose(n.NodeID)
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if id.Scope != identity.Sanitize(n.CodebaseID) || id.Kind != identity.Sanitize(string(kind)) {
		return fmt.Errorf("node %q owned by %q as %s: %w", n.NodeID, n.CodebaseID, kind, ErrIdentity)
	}
	if n.Properties == nil {
		n.Properties = Properties{}
	}
	return validateProperties(string(kind), nodeSchemaURL(kind), spec, n.Properties)
}

// ValidateRelationship checks r against the catalog, normalizes its property
// values and verifies the cross-codebase fields agree with the endpoints.
func ValidateRelationship(r *Relationship) error {
	spec, ok := relSpecs[r.Type]
	if !ok {
		return fmt.Errorf("relationship %q: %w %q", r.NodeID, ErrUnknownKind, r.Type)
	}
	source, err := identity.Codebase(r.StartNodeID)
	if err != nil {
		return fmt.Errorf("relationship %q start: %w", r.NodeID, err)
	}
	target, err := identity.Codebase(r.EndNodeID)
	if err != nil {
		return fmt.Errorf("relationship %q end: %w", r.NodeID, err)
	}
	if r.SourceCodebaseID != source || r.TargetCodebaseID != target || r.IsCrossCodebase != (source != target) {
		return fmt.Errorf("relationship %q cross-codebase fields: %w", r.NodeID, ErrIdentity)
	}
	if !identity.OwnedBy(r.NodeID, r.CodebaseID) {
		return fmt.Errorf("relationship %q owned by %q: %w", r.NodeID, r.CodebaseID, ErrIdentity)
	}
	if r.Properties == nil {
		r.Properties = Properties{}
	}
	return validateProperties(string(r.Type), relSchemaURL(r.Type), spec, r.Properties)
}
