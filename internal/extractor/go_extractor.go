package extractor

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `
		(source_file (function_declaration) @func)
		(source_file (method_declaration) @func)
		(source_file (type_declaration (type_spec) @type))
		(source_file (type_declaration (type_alias) @type))
		(source_file (const_declaration (const_spec) @const))
		(source_file (var_declaration (var_spec) @var))
	`
}

func (g *GoExtractor) ExtractUnit(captureName string, node *sitter.Node, sourceCode []byte) *CodeUnit {
	switch captureName {
	case "func":
		return g.extractFunctionUnit(node, sourceCode)
	case "type":
		return g.extractTypeUnit(node, sourceCode)
	case "const":
		return g.extractValueUnit(node, sourceCode, "constant")
	case "var":
		return g.extractValueUnit(node, sourceCode, "variable")
	}
	return nil
}

func (g *GoExtractor) PackageName(root *sitter.Node, sourceCode []byte) string {
	pkgQuery, err := sitter.NewQuery([]byte(`(package_clause (package_identifier) @pkg)`), g.GetLanguage())
	if err != nil {
		return ""
	}
	pqc := sitter.NewQueryCursor()
	pqc.Exec(pkgQuery, root)
	if m, ok := pqc.NextMatch(); ok {
		return m.Captures[0].Node.Content(sourceCode)
	}
	return ""
}

func (g *GoExtractor) ExtractImports(root *sitter.Node, sourceCode []byte) []Import {
	var imports []Import
	query, err := sitter.NewQuery([]byte(`(import_spec) @imp`), g.GetLanguage())
	if err != nil {
		return nil
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(query, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			pathNode := c.Node.ChildByFieldName("path")
			if pathNode == nil {
				continue
			}
			path, err := strconv.Unquote(pathNode.Content(sourceCode))
			if err != nil {
				continue
			}
			imp := Import{Path: path, Line: int(c.Node.StartPoint().Row + 1)}
			if nameNode := c.Node.ChildByFieldName("name"); nameNode != nil {
				imp.Alias = nameNode.Content(sourceCode)
			}
			imports = append(imports, imp)
		}
	}
	return imports
}

func (g *GoExtractor) extractTypeUnit(node *sitter.Node, sourceCode []byte) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	parentNode := node.Parent()
	if parentNode == nil || parentNode.Type() != "type_declaration" || parentNode.NamedChildCount() > 1 {
		parentNode = node
	}

	unit := &CodeUnit{
		Name:       nameNode.Content(sourceCode),
		UnitType:   "type",
		StartLine:  int(parentNode.StartPoint().Row + 1),
		EndLine:    int(parentNode.EndPoint().Row + 1),
		Content:    parentNode.Content(sourceCode),
		DocComment: g.extractDocComment(parentNode, sourceCode),
	}
	if unit.DocComment == "" && parentNode != node {
		unit.DocComment = g.extractDocComment(node, sourceCode)
	}

	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return unit
	}
	switch {
	case node.Type() == "type_alias":
		unit.UnitType = "alias"
		unit.ValueType = typeNode.Content(sourceCode)
	case typeNode.Type() == "struct_type":
		unit.UnitType = "struct"
		unit.Fields = g.extractStructFields(typeNode, sourceCode)
	case typeNode.Type() == "interface_type":
		unit.UnitType = "interface"
		unit.Methods = g.extractInterfaceMethods(typeNode, sourceCode)
	default:
		unit.ValueType = typeNode.Content(sourceCode)
	}
	return unit
}

func (g *GoExtractor) extractStructFields(structNode *sitter.Node, sourceCode []byte) []string {
	fields := []string{}
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return fields
	}

	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		fieldDecl := fieldList.NamedChild(i)
		if fieldDecl.Type() != "field_declaration" {
			continue
		}

		foundNames := false
		for j := 0; j < int(fieldDecl.NamedChildCount()); j++ {
			child := fieldDecl.NamedChild(j)
			if child.Type() == "field_identifier" {
				fields = append(fields, child.Content(sourceCode))
				foundNames = true
			}
		}

		// Embedded field: the type name is the field name.
		if typeNode := fieldDecl.ChildByFieldName("type"); !foundNames && typeNode != nil {
			name := strings.TrimPrefix(typeNode.Content(sourceCode), "*")
			if lastDot := strings.LastIndex(name, "."); lastDot != -1 {
				name = name[lastDot+1:]
			}
			fields = append(fields, name)
		}
	}
	return fields
}

func (g *GoExtractor) extractInterfaceMethods(interfaceNode *sitter.Node, sourceCode []byte) []string {
	methods := []string{}
	for i := 0; i < int(interfaceNode.NamedChildCount()); i++ {
		n := interfaceNode.NamedChild(i)
		if n.Type() != "method_elem" && n.Type() != "method_spec" {
			continue
		}
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			methods = append(methods, nameNode.Content(sourceCode))
		}
	}
	return methods
}

func (g *GoExtractor) extractFunctionUnit(node *sitter.Node, sourceCode []byte) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	content := node.Content(sourceCode)

	unit := &CodeUnit{
		Name:       nameNode.Content(sourceCode),
		UnitType:   "function",
		StartLine:  int(node.StartPoint().Row + 1),
		EndLine:    int(node.EndPoint().Row + 1),
		Content:    content,
		DocComment: g.extractDocComment(node, sourceCode),
	}

	if node.Type() == "method_declaration" {
		unit.UnitType = "method"
		if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
			unit.Receiver = receiverTypeName(receiverNode, sourceCode)
		}
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		unit.ParamCount = g.countParams(paramsNode, sourceCode)
	}
	if resultNode := node.ChildByFieldName("result"); resultNode != nil {
		unit.ReturnType = resultNode.Content(sourceCode)
	}

	bodyNode := node.ChildByFieldName("body")
	if bodyNode != nil {
		unit.Signature = strings.TrimSpace(string(sourceCode[node.StartByte():bodyNode.StartByte()]))
		unit.Calls = g.extractCalls(bodyNode, sourceCode)
	} else {
		unit.Signature = content
	}
	return unit
}

func receiverTypeName(receiverNode *sitter.Node, sourceCode []byte) string {
	for i := 0; i < int(receiverNode.NamedChildCount()); i++ {
		param := receiverNode.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		name := strings.TrimPrefix(typeNode.Content(sourceCode), "*")
		if idx := strings.Index(name, "["); idx != -1 {
			name = name[:idx]
		}
		return strings.TrimSpace(name)
	}
	return ""
}

var builtins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true, "complex": true, "copy": true,
	"delete": true, "imag": true, "len": true, "make": true, "max": true, "min": true,
	"new": true, "panic": true, "print": true, "println": true, "real": true, "recover": true,
}

// extractCalls lists the plain and package-qualified calls in body.
// Calls through arbitrary expressions are not resolvable by name and are skipped.
func (g *GoExtractor) extractCalls(body *sitter.Node, sourceCode []byte) []Call {
	var calls []Call
	query, err := sitter.NewQuery([]byte(`(call_expression function: (_) @callee)`), g.GetLanguage())
	if err != nil {
		return nil
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(query, body)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			callee := c.Node
			switch callee.Type() {
			case "identifier":
				name := callee.Content(sourceCode)
				if builtins[name] {
					continue
				}
				calls = append(calls, Call{Target: name, Line: int(callee.StartPoint().Row + 1)})
			case "selector_expression":
				operand := callee.ChildByFieldName("operand")
				if operand == nil || operand.Type() != "identifier" {
					continue
				}
				calls = append(calls, Call{Target: callee.Content(sourceCode), Line: int(callee.StartPoint().Row + 1)})
			}
		}
	}
	return calls
}

func (g *GoExtractor) extractValueUnit(node *sitter.Node, sourceCode []byte, unitType string) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	parentNode := node.Parent()
	if parentNode == nil {
		parentNode = node
	}

	docComment := g.extractDocComment(parentNode, sourceCode)
	if docComment == "" {
		docComment = g.extractDocComment(node, sourceCode)
	}

	unit := &CodeUnit{
		Name:       nameNode.Content(sourceCode),
		UnitType:   unitType,
		StartLine:  int(node.StartPoint().Row + 1),
		EndLine:    int(node.EndPoint().Row + 1),
		Content:    node.Content(sourceCode),
		DocComment: docComment,
	}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		unit.ValueType = typeNode.Content(sourceCode)
	}
	if valueNode := node.ChildByFieldName("value"); valueNode != nil {
		unit.Value = valueNode.Content(sourceCode)
	}
	return unit
}

func (g *GoExtractor) extractDocComment(node *sitter.Node, sourceCode []byte) string {
	var commentLines []string
	currentNode := node
	for {
		prevSibling := currentNode.PrevSibling()
		if prevSibling == nil || (currentNode.StartPoint().Row-prevSibling.EndPoint().Row > 1) {
			break
		}
		if prevSibling.Type() != "comment" {
			break
		}
		commentLines = append([]string{prevSibling.Content(sourceCode)}, commentLines...)
		currentNode = prevSibling
	}
	return cleanDocComment(strings.Join(commentLines, "\n"))
}

func (g *GoExtractor) countParams(paramsNode *sitter.Node, sourceCode []byte) int {
	count := 0
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		if pNode.Type() != "parameter_declaration" && pNode.Type() != "variadic_parameter_declaration" {
			continue
		}
		names := 0
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			if pNode.NamedChild(j).Type() == "identifier" {
				names++
			}
		}
		if names == 0 {
			names = 1
		}
		count += names
	}
	return count
}

func cleanDocComment(rawComment string) string {
	if rawComment == "" {
		return ""
	}
	lines := strings.Split(rawComment, "\n")
	var cleaned []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "//")
		l = strings.TrimPrefix(l, "/*")
		l = strings.TrimSuffix(l, "*/")
		cleaned = append(cleaned, strings.TrimSpace(l))
	}
	return strings.Join(cleaned, "\n")
}
