package schema

// NodeKind is the label that identifies what a node models.
type NodeKind string

const (
	KindCodebase    NodeKind = "Codebase"
	KindPackage     NodeKind = "Package"
	KindDirectory   NodeKind = "Directory"
	KindFile        NodeKind = "File"
	KindClass       NodeKind = "Class"
	KindInterface   NodeKind = "Interface"
	KindEnum        NodeKind = "Enum"
	KindTypeAlias   NodeKind = "TypeAlias"
	KindFunction    NodeKind = "Function"
	KindMethod      NodeKind = "Method"
	KindConstructor NodeKind = "Constructor"
	KindProperty    NodeKind = "Property"
	KindVariable    NodeKind = "Variable"
	KindParameter   NodeKind = "Parameter"
	KindJSXElement  NodeKind = "JSXElement"
	KindTest        NodeKind = "Test"
	KindComponent   NodeKind = "Component"
	KindDependency  NodeKind = "Dependency"
	KindASTPosition NodeKind = "ASTPosition"
)

// Metacognitive kinds annotate the code graph with reasoning artifacts.
const (
	KindHypothesis   NodeKind = "Hypothesis"
	KindReflection   NodeKind = "Reflection"
	KindInsight      NodeKind = "Insight"
	KindQuestion     NodeKind = "Question"
	KindDecision     NodeKind = "Decision"
	KindPattern      NodeKind = "Pattern"
	KindTask         NodeKind = "Task"
	KindSubtask      NodeKind = "Subtask"
	KindAgent        NodeKind = "Agent"
	KindVerification NodeKind = "Verification"
	KindResult       NodeKind = "Result"
	KindOrientation  NodeKind = "Orientation"
)

// LabelMetacognitive is the derived label every metacognitive node carries
// since schema 2.0.0. It is never a primary kind.
const LabelMetacognitive NodeKind = "Metacognitive"

var metacognitiveKinds = []NodeKind{
	KindHypothesis, KindReflection, KindInsight, KindQuestion, KindDecision, KindPattern,
	KindTask, KindSubtask, KindAgent, KindVerification, KindResult, KindOrientation,
}

// MetacognitiveKinds returns the metacognitive node kinds.
func MetacognitiveKinds() []NodeKind {
	out := make([]NodeKind, len(metacognitiveKinds))
	copy(out, metacognitiveKinds)
	return out
}

// IsMetacognitive reports whether k is one of the reasoning-artifact kinds.
func (k NodeKind) IsMetacognitive() bool {
	for _, m := range metacognitiveKinds {
		if m == k {
			return true
		}
	}
	return false
}

// IsDeclaration reports whether k is a source-level declaration.
func (k NodeKind) IsDeclaration() bool {
	switch k {
	case KindClass, KindInterface, KindEnum, KindTypeAlias, KindFunction, KindMethod,
		KindConstructor, KindProperty, KindVariable, KindParameter:
		return true
	}
	return false
}

// RelType is the discriminant tag of a relationship.
type RelType string

const (
	RelContains     RelType = "CONTAINS"
	RelDefines      RelType = "DEFINES"
	RelCalls        RelType = "CALLS"
	RelReferences   RelType = "REFERENCES"
	RelExtends      RelType = "EXTENDS"
	RelImplements   RelType = "IMPLEMENTS"
	RelHasMethod    RelType = "HAS_METHOD"
	RelHasProperty  RelType = "HAS_PROPERTY"
	RelHasParameter RelType = "HAS_PARAMETER"
	RelRenders      RelType = "RENDERS"
	RelTests        RelType = "TESTS"
	RelDependsOn    RelType = "DEPENDS_ON"
)

// Import family.
const (
	RelImports                 RelType = "IMPORTS"
	RelImportsFromPackage      RelType = "IMPORTS_FROM_PACKAGE"
	RelImportsTypes            RelType = "IMPORTS_TYPES"
	RelImportsTypesFromPackage RelType = "IMPORTS_TYPES_FROM_PACKAGE"
)

// Export family.
const (
	RelExportsLocal         RelType = "EXPORTS_LOCAL"
	RelExportsDefault       RelType = "EXPORTS_DEFAULT"
	RelReexports            RelType = "REEXPORTS"
	RelReexportsFromPackage RelType = "REEXPORTS_FROM_PACKAGE"
	RelReexportsAll         RelType = "REEXPORTS_ALL"
)

// Metacognitive edges.
const (
	RelSupports    RelType = "SUPPORTS"
	RelContradicts RelType = "CONTRADICTS"
	RelDerivedFrom RelType = "DERIVED_FROM"
	RelAnswers     RelType = "ANSWERS"
	RelVerifies    RelType = "VERIFIES"
	RelAssignedTo  RelType = "ASSIGNED_TO"
	RelSubtaskOf   RelType = "SUBTASK_OF"
	RelObserves    RelType = "OBSERVES"
)

// IsImport reports whether t belongs to the import family.
func (t RelType) IsImport() bool {
	switch t {
	case RelImports, RelImportsFromPackage, RelImportsTypes, RelImportsTypesFromPackage:
		return true
	}
	return false
}

// IsPackageImport reports whether t is an import sourced from a package.
func (t RelType) IsPackageImport() bool {
	return t == RelImportsFromPackage || t == RelImportsTypesFromPackage
}

// IsExport reports whether t belongs to the export family.
func (t RelType) IsExport() bool {
	switch t {
	case RelExportsLocal, RelExportsDefault, RelReexports, RelReexportsFromPackage, RelReexportsAll:
		return true
	}
	return false
}

// IsOwnership reports whether t links a file to what it owns. Ownership edges
// are how file-level reports attribute a declaration to its file.
func (t RelType) IsOwnership() bool {
	return t == RelContains || t == RelDefines
}
