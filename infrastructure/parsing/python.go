package parsing

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// Python extraction walks. Methods record their enclosing class so the
// indexer can assign scope and qualified names.

func (p *Parser) extractPythonFunctions(root *sitter.Node, source []byte) []FunctionDef {
	var functions []FunctionDef

	var visit func(node *sitter.Node, parentClass string)
	visit = func(node *sitter.Node, parentClass string) {
		switch node.Type() {
		case "function_definition":
			fn := FunctionDef{
				StartLine:   p.walker.StartLine(node),
				EndLine:     p.walker.EndLine(node),
				ParentClass: parentClass,
				IsMethod:    parentClass != "",
				Decorators:  pythonDecorators(p.walker, node, source),
			}
			fn.Name = p.walker.NodeText(node.ChildByFieldName("name"), source)
			if fn.Name == "" {
				return
			}
			if params := node.ChildByFieldName("parameters"); params != nil {
				for i := 0; i < int(params.ChildCount()); i++ {
					child := params.Child(i)
					if child == nil {
						continue
					}
					switch child.Type() {
					case "identifier":
						fn.Parameters = append(fn.Parameters, p.walker.NodeText(child, source))
					case "default_parameter", "typed_parameter", "typed_default_parameter":
						if name := p.walker.FindChildByType(child, "identifier"); name != nil {
							fn.Parameters = append(fn.Parameters, p.walker.NodeText(name, source))
						}
					}
				}
			}
			for i := 0; i < int(node.ChildCount()); i++ {
				if child := node.Child(i); child != nil && child.Type() == "async" {
					fn.IsAsync = true
					break
				}
			}
			functions = append(functions, fn)

			// Descend for nested defs inside the same scope.
			if body := node.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					if child := body.Child(i); child != nil {
						visit(child, parentClass)
					}
				}
			}
			return
		case "class_definition":
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

func (p *Parser) extractPythonClasses(root *sitter.Node, source []byte) []ClassDef {
	var classes []ClassDef

	p.walker.Walk(root, func(node *sitter.Node) bool {
		if node.Type() != "class_definition" {
			return true
		}

		name := p.walker.NodeText(node.ChildByFieldName("name"), source)
		if name == "" {
			return true
		}

		class := ClassDef{
			Name:       name,
			StartLine:  p.walker.StartLine(node),
			EndLine:    p.walker.EndLine(node),
			Decorators: pythonDecorators(p.walker, node, source),
		}

		if supers := node.ChildByFieldName("superclasses"); supers != nil {
			for i := 0; i < int(supers.ChildCount()); i++ {
				arg := supers.Child(i)
				if arg == nil {
					continue
				}
				if arg.Type() == "identifier" || arg.Type() == "attribute" {
					class.BaseClasses = append(class.BaseClasses, p.walker.NodeText(arg, source))
				}
			}
		}

		classes = append(classes, class)
		return true
	})

	return classes
}

func (p *Parser) extractPythonImports(root *sitter.Node, source []byte) []ImportDecl {
	var imports []ImportDecl

	p.walker.Walk(root, func(node *sitter.Node) bool {
		switch node.Type() {
		case "import_statement":
			// import a.b, import x as y
			for i := 0; i < int(node.ChildCount()); i++ {
				child := node.Child(i)
				if child == nil {
					continue
				}
				switch child.Type() {
				case "dotted_name":
					imports = append(imports, ImportDecl{
						Module: p.walker.NodeText(child, source),
						Line:   p.walker.StartLine(node),
					})
				case "aliased_import":
					imports = append(imports, ImportDecl{
						Module: p.walker.NodeText(child.ChildByFieldName("name"), source),
						Alias:  p.walker.NodeText(child.ChildByFieldName("alias"), source),
						Line:   p.walker.StartLine(node),
					})
				}
			}
			return false
		case "import_from_statement":
			moduleNode := node.ChildByFieldName("module_name")
			module := p.walker.NodeText(moduleNode, source)
			if module == "" {
				return false
			}

			decl := ImportDecl{
				Module:     module,
				Line:       p.walker.StartLine(node),
				FromImport: true,
			}
			for i := 0; i < int(node.ChildCount()); i++ {
				child := node.Child(i)
				if child == nil || child == moduleNode {
					continue
				}
				switch child.Type() {
				case "dotted_name", "identifier":
					decl.Names = append(decl.Names, p.walker.NodeText(child, source))
				case "aliased_import":
					decl.Names = append(decl.Names, p.walker.NodeText(child.ChildByFieldName("name"), source))
					decl.Alias = p.walker.NodeText(child.ChildByFieldName("alias"), source)
				}
			}
			imports = append(imports, decl)
			return false
		}
		return true
	})

	return imports
}

func (p *Parser) extractPythonVariables(root *sitter.Node, source []byte) []VariableDecl {
	var variables []VariableDecl

	// Only module-level assignments; function and class bodies are the
	// indexer's concern through their own symbols.
	for i := 0; i < int(root.ChildCount()); i++ {
		stmt := root.Child(i)
		if stmt == nil || stmt.Type() != "expression_statement" {
			continue
		}
		assign := p.walker.FindChildByType(stmt, "assignment")
		if assign == nil {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := p.walker.NodeText(left, source)
		if name == "" {
			continue
		}
		variables = append(variables, VariableDecl{
			Name:       name,
			Line:       p.walker.StartLine(assign),
			Scope:      "global",
			IsConstant: isConstantName(name),
		})
	}

	return variables
}

func pythonDecorators(w Walker, node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}

	var decorators []string
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child != nil && child.Type() == "decorator" {
			text := strings.TrimPrefix(w.NodeText(child, source), "@")
			decorators = append(decorators, text)
		}
	}
	return decorators
}

func isConstantName(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
