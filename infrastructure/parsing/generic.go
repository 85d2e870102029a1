package parsing

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Generic extraction for grammars without a dedicated walk. Uses the
// per-language node-type sets and the conventional "name" field.

func (p *Parser) extractGenericFunctions(lang Language, root *sitter.Node, source []byte) []FunctionDef {
	nodes := lang.Nodes()
	types := append(append([]string{}, nodes.FunctionNodes()...), nodes.MethodNodes()...)
	methodTypes := make(map[string]struct{}, len(nodes.MethodNodes()))
	for _, t := range nodes.MethodNodes() {
		methodTypes[t] = struct{}{}
	}

	var functions []FunctionDef
	for _, node := range p.walker.CollectNodes(root, types) {
		name := p.genericName(node, source)
		if name == "" {
			continue
		}
		_, isMethod := methodTypes[node.Type()]
		functions = append(functions, FunctionDef{
			Name:      name,
			StartLine: p.walker.StartLine(node),
			EndLine:   p.walker.EndLine(node),
			IsMethod:  isMethod,
		})
	}
	return functions
}

func (p *Parser) extractGenericClasses(lang Language, root *sitter.Node, source []byte) []ClassDef {
	var classes []ClassDef
	for _, node := range p.walker.CollectNodes(root, lang.Nodes().ClassNodes()) {
		name := p.genericName(node, source)
		if name == "" {
			continue
		}
		classes = append(classes, ClassDef{
			Name:      name,
			StartLine: p.walker.StartLine(node),
			EndLine:   p.walker.EndLine(node),
		})
	}
	return classes
}

func (p *Parser) genericName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return p.walker.NodeText(name, source)
	}
	// C-family grammars put the name inside a declarator.
	if decl := node.ChildByFieldName("declarator"); decl != nil {
		var name string
		p.walker.Walk(decl, func(n *sitter.Node) bool {
			if p.walker.IsIdentifier(n) && name == "" {
				name = p.walker.NodeText(n, source)
				return false
			}
			return true
		})
		return name
	}
	return ""
}
