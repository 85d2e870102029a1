package parsing

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Walker provides AST traversal utilities.
type Walker struct{}

// NewWalker creates a Walker.
func NewWalker() Walker {
	return Walker{}
}

// WalkFunc is called for each node during traversal.
// Return false to stop descending into the node's children.
type WalkFunc func(node *sitter.Node) bool

// Walk performs a depth-first traversal of the AST. Depth-first keeps
// extraction order aligned with source order.
func (w Walker) Walk(root *sitter.Node, fn WalkFunc) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child != nil {
			w.Walk(child, fn)
		}
	}
}

// CollectNodes returns all nodes of the specified types in source order.
func (w Walker) CollectNodes(root *sitter.Node, nodeTypes []string) []*sitter.Node {
	typeSet := make(map[string]struct{}, len(nodeTypes))
	for _, t := range nodeTypes {
		typeSet[t] = struct{}{}
	}

	var nodes []*sitter.Node
	w.Walk(root, func(node *sitter.Node) bool {
		if _, ok := typeSet[node.Type()]; ok {
			nodes = append(nodes, node)
		}
		return true
	})

	return nodes
}

// CollectDescendants returns all descendants with the specified type.
func (w Walker) CollectDescendants(root *sitter.Node, nodeType string) []*sitter.Node {
	return w.CollectNodes(root, []string{nodeType})
}

// FindChildByType finds the first direct child with the specified type.
func (w Walker) FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// NodeText extracts the text content of a node.
func (w Walker) NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}

	start := node.StartByte()
	end := node.EndByte()
	if start >= uint32(len(source)) || end > uint32(len(source)) || start >= end {
		return ""
	}

	return string(source[start:end])
}

// StartLine returns the 1-based start line of a node.
func (w Walker) StartLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// EndLine returns the 1-based end line of a node.
func (w Walker) EndLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// IsIdentifier checks if a node is an identifier type.
func (w Walker) IsIdentifier(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "identifier", "type_identifier", "field_identifier",
		"property_identifier", "shorthand_property_identifier":
		return true
	}
	return false
}
