package parsing

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// JS/TS extraction walks, shared by the javascript, typescript and tsx
// grammars whose relevant node types coincide.

func (p *Parser) extractJSFunctions(root *sitter.Node, source []byte) []FunctionDef {
	var functions []FunctionDef

	var visit func(node *sitter.Node, parentClass string)
	visit = func(node *sitter.Node, parentClass string) {
		switch node.Type() {
		case "function_declaration", "generator_function_declaration":
			if fn, ok := p.jsFunction(node, source, "", false); ok {
				functions = append(functions, fn)
			}
		case "method_definition":
			if fn, ok := p.jsFunction(node, source, parentClass, true); ok {
				functions = append(functions, fn)
			}
		case "lexical_declaration", "variable_declaration":
			// const f = () => {} / const f = function() {}
			for i := 0; i < int(node.ChildCount()); i++ {
				decl := node.Child(i)
				if decl == nil || decl.Type() != "variable_declarator" {
					continue
				}
				value := decl.ChildByFieldName("value")
				if value == nil {
					continue
				}
				if value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function" {
					continue
				}
				name := p.walker.NodeText(decl.ChildByFieldName("name"), source)
				if name == "" {
					continue
				}
				functions = append(functions, FunctionDef{
					Name:       name,
					StartLine:  p.walker.StartLine(decl),
					EndLine:    p.walker.EndLine(decl),
					Parameters: p.jsParameters(value, source),
					IsAsync:    jsIsAsync(value, source),
				})
			}
		case "class_declaration":
			className := p.walker.NodeText(node.ChildByFieldName("name"), source)
			for i := 0; i < int(node.ChildCount()); i++ {
				if child := node.Child(i); child != nil {
					visit(child, className)
				}
			}
			return
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child != nil {
				visit(child, parentClass)
			}
		}
	}

	visit(root, "")
	return functions
}

func (p *Parser) jsFunction(node *sitter.Node, source []byte, parentClass string, isMethod bool) (FunctionDef, bool) {
	name := p.walker.NodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		return FunctionDef{}, false
	}
	return FunctionDef{
		Name:        name,
		StartLine:   p.walker.StartLine(node),
		EndLine:     p.walker.EndLine(node),
		Parameters:  p.jsParameters(node, source),
		ParentClass: parentClass,
		IsMethod:    isMethod,
		IsAsync:     jsIsAsync(node, source),
	}, true
}

func (p *Parser) jsParameters(node *sitter.Node, source []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		// Single-parameter arrow function without parens.
		if param := node.ChildByFieldName("parameter"); param != nil {
			return []string{p.walker.NodeText(param, source)}
		}
		return nil
	}

	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier":
			names = append(names, p.walker.NodeText(child, source))
		case "required_parameter", "optional_parameter":
			if name := p.walker.FindChildByType(child, "identifier"); name != nil {
				names = append(names, p.walker.NodeText(name, source))
			}
		}
	}
	return names
}

func jsIsAsync(node *sitter.Node, source []byte) bool {
	if int(node.StartByte()) < len(source) {
		// The async keyword is the node's first token when present.
		text := string(source[node.StartByte():min(int(node.EndByte()), int(node.StartByte())+6)])
		return strings.HasPrefix(text, "async")
	}
	return false
}

func (p *Parser) extractJSClasses(root *sitter.Node, source []byte) []ClassDef {
	var classes []ClassDef

	p.walker.Walk(root, func(node *sitter.Node) bool {
		if node.Type() != "class_declaration" {
			return true
		}
		name := p.walker.NodeText(node.ChildByFieldName("name"), source)
		if name == "" {
			return true
		}

		class := ClassDef{
			Name:      name,
			StartLine: p.walker.StartLine(node),
			EndLine:   p.walker.EndLine(node),
		}

		// extends clause
		if heritage := p.walker.FindChildByType(node, "class_heritage"); heritage != nil {
			for i := 0; i < int(heritage.ChildCount()); i++ {
				child := heritage.Child(i)
				if child != nil && (child.Type() == "identifier" || child.Type() == "member_expression") {
					class.BaseClasses = append(class.BaseClasses, p.walker.NodeText(child, source))
				}
			}
		}

		classes = append(classes, class)
		return true
	})

	return classes
}

func (p *Parser) extractJSImports(root *sitter.Node, source []byte) []ImportDecl {
	var imports []ImportDecl

	p.walker.Walk(root, func(node *sitter.Node) bool {
		if node.Type() != "import_statement" {
			return true
		}

		sourceNode := node.ChildByFieldName("source")
		if sourceNode == nil {
			return false
		}
		module := strings.Trim(p.walker.NodeText(sourceNode, source), `'"`)
		if module == "" {
			return false
		}

		decl := ImportDecl{
			Module: module,
			Line:   p.walker.StartLine(node),
		}

		if clause := p.walker.FindChildByType(node, "import_clause"); clause != nil {
			p.walker.Walk(clause, func(n *sitter.Node) bool {
				switch n.Type() {
				case "import_specifier":
					if name := n.ChildByFieldName("name"); name != nil {
						decl.Names = append(decl.Names, p.walker.NodeText(name, source))
					}
					decl.FromImport = true
				case "identifier":
					if parent := n.Parent(); parent != nil && parent.Type() == "import_clause" {
						// default import
						decl.Names = append(decl.Names, p.walker.NodeText(n, source))
						decl.FromImport = true
					}
				case "namespace_import":
					if name := p.walker.FindChildByType(n, "identifier"); name != nil {
						decl.Alias = p.walker.NodeText(name, source)
					}
				}
				return true
			})
		}

		imports = append(imports, decl)
		return false
	})

	return imports
}

func (p *Parser) extractJSVariables(root *sitter.Node, source []byte) []VariableDecl {
	var variables []VariableDecl

	for i := 0; i < int(root.ChildCount()); i++ {
		stmt := root.Child(i)
		if stmt == nil {
			continue
		}
		if stmt.Type() != "lexical_declaration" && stmt.Type() != "variable_declaration" {
			continue
		}
		isConst := strings.HasPrefix(p.walker.NodeText(stmt, source), "const")

		for j := 0; j < int(stmt.ChildCount()); j++ {
			decl := stmt.Child(j)
			if decl == nil || decl.Type() != "variable_declarator" {
				continue
			}
			value := decl.ChildByFieldName("value")
			if value != nil {
				switch value.Type() {
				case "arrow_function", "function_expression", "function":
					// Captured as a function instead.
					continue
				}
			}
			name := p.walker.NodeText(decl.ChildByFieldName("name"), source)
			if name == "" {
				continue
			}
			variables = append(variables, VariableDecl{
				Name:       name,
				Line:       p.walker.StartLine(decl),
				Scope:      "global",
				IsConstant: isConst,
			})
		}
	}

	return variables
}
