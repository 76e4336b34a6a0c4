package extractor

import sitter "github.com/smacker/go-tree-sitter"

// CodeUnit is one top-level declaration found in a source file.
type CodeUnit struct {
	Name       string
	UnitType   string // function, method, struct, interface, type, constant, variable
	Receiver   string // receiver type name of a method, without pointer
	StartLine  int
	EndLine    int
	Content    string
	DocComment string
	Signature  string
	ParamCount int
	ReturnType string
	ValueType  string
	Value      string
	Fields     []string
	Methods    []string
	Calls      []Call
}

// Call is a call expression inside a function body, as written.
type Call struct {
	Target string // "helper" or "alias.Name"
	Line   int
}

// Import is one import spec of a file.
type Import struct {
	Path  string
	Alias string
	Line  int
}

// FileFacts is everything extracted from one source file.
type FileFacts struct {
	Path        string // slash path relative to the codebase root
	PackageName string
	LineCount   int
	Size        int
	Imports     []Import
	Units       []*CodeUnit
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	ExtractUnit(captureName string, node *sitter.Node, sourceCode []byte) *CodeUnit
	ExtractImports(root *sitter.Node, sourceCode []byte) []Import
	PackageName(root *sitter.Node, sourceCode []byte) string
}
