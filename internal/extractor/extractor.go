package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "go":
		langExt = &GoExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

func (e *Extractor) Language() string {
	return e.langName
}

// ExtractFromFile parses the file at path. relPath is recorded as the
// file's path inside its codebase.
func (e *Extractor) ExtractFromFile(path, relPath string) (*FileFacts, error) {
	sourceCode, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.ExtractSource(relPath, sourceCode)
}

// ExtractSource parses sourceCode and extracts its package, imports and
// top-level declarations.
func (e *Extractor) ExtractSource(relPath string, sourceCode []byte) (*FileFacts, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", relPath, err)
	}
	root := tree.RootNode()

	facts := &FileFacts{
		Path:        relPath,
		PackageName: e.langExtractor.PackageName(root, sourceCode),
		LineCount:   bytes.Count(sourceCode, []byte("\n")) + 1,
		Size:        len(sourceCode),
		Imports:     e.langExtractor.ExtractImports(root, sourceCode),
	}

	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}

	qc := sitter.NewQueryCursor()
	qc.Exec(query, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			captureName := query.CaptureNameForId(c.Index)
			unit := e.langExtractor.ExtractUnit(captureName, c.Node, sourceCode)
			if unit != nil {
				facts.Units = append(facts.Units, unit)
			}
		}
	}

	return facts, nil
}
