// Package parsing provides tree-sitter based source parsing and symbol
// extraction for the ingestion pipeline.
package parsing

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is one supported grammar plus the node-type names the
// generic extractor needs.
type Language struct {
	name       string
	extensions []string
	language   *sitter.Language
	nodes      NodeTypes
}

// NewLanguage creates a Language configuration.
func NewLanguage(name string, extensions []string, lang *sitter.Language, nodes NodeTypes) Language {
	return Language{
		name:       name,
		extensions: extensions,
		language:   lang,
		nodes:      nodes,
	}
}

// Name returns the language name.
func (l Language) Name() string { return l.name }

// Extensions returns the file extensions, leading dot included.
func (l Language) Extensions() []string { return l.extensions }

// SitterLanguage returns the tree-sitter grammar.
func (l Language) SitterLanguage() *sitter.Language { return l.language }

// Nodes returns the node type configuration.
func (l Language) Nodes() NodeTypes { return l.nodes }

// NodeTypes defines AST node type names for a language.
type NodeTypes struct {
	functionNodes []string
	methodNodes   []string
	classNodes    []string
	callNode      string
	importNodes   []string
}

// NewNodeTypes creates a NodeTypes configuration.
func NewNodeTypes(functionNodes, methodNodes, classNodes []string, callNode string, importNodes []string) NodeTypes {
	return NodeTypes{
		functionNodes: functionNodes,
		methodNodes:   methodNodes,
		classNodes:    classNodes,
		callNode:      callNode,
		importNodes:   importNodes,
	}
}

// FunctionNodes returns function definition node types.
func (n NodeTypes) FunctionNodes() []string { return n.functionNodes }

// MethodNodes returns method definition node types.
func (n NodeTypes) MethodNodes() []string { return n.methodNodes }

// ClassNodes returns class definition node types.
func (n NodeTypes) ClassNodes() []string { return n.classNodes }

// CallNode returns the function call node type.
func (n NodeTypes) CallNode() string { return n.callNode }

// ImportNodes returns import statement node types.
func (n NodeTypes) ImportNodes() []string { return n.importNodes }

// LanguageConfig holds all supported language configurations.
type LanguageConfig struct {
	languages map[string]Language
	byExt     map[string]Language
}

// NewLanguageConfig creates a LanguageConfig with all supported languages.
func NewLanguageConfig() LanguageConfig {
	languages := make(map[string]Language)
	byExt := make(map[string]Language)

	configs := []Language{
		pythonConfig(),
		javascriptConfig(),
		typescriptConfig(),
		tsxConfig(),
		goConfig(),
		rustConfig(),
		javaConfig(),
		cConfig(),
		cppConfig(),
		rubyConfig(),
		phpConfig(),
	}

	for _, cfg := range configs {
		languages[cfg.name] = cfg
		for _, ext := range cfg.extensions {
			byExt[ext] = cfg
		}
	}

	return LanguageConfig{
		languages: languages,
		byExt:     byExt,
	}
}

// ByName returns the language configuration by name.
func (c LanguageConfig) ByName(name string) (Language, bool) {
	lang, ok := c.languages[name]
	return lang, ok
}

// ByExtension returns the language configuration by file extension
// (leading dot included).
func (c LanguageConfig) ByExtension(ext string) (Language, bool) {
	lang, ok := c.byExt[ext]
	return lang, ok
}

// SupportedExtensions returns all supported file extensions.
func (c LanguageConfig) SupportedExtensions() []string {
	extensions := make([]string, 0, len(c.byExt))
	for ext := range c.byExt {
		extensions = append(extensions, ext)
	}
	return extensions
}

func pythonConfig() Language {
	return NewLanguage(
		"python",
		[]string{".py", ".pyw", ".pyi"},
		python.GetLanguage(),
		NewNodeTypes(
			[]string{"function_definition"},
			nil,
			[]string{"class_definition"},
			"call",
			[]string{"import_statement", "import_from_statement"},
		),
	)
}

func javascriptConfig() Language {
	return NewLanguage(
		"javascript",
		[]string{".js", ".jsx", ".mjs", ".cjs"},
		javascript.GetLanguage(),
		NewNodeTypes(
			[]string{"function_declaration", "function_expression", "arrow_function", "generator_function_declaration"},
			[]string{"method_definition"},
			[]string{"class_declaration"},
			"call_expression",
			[]string{"import_statement"},
		),
	)
}

func typescriptConfig() Language {
	return NewLanguage(
		"typescript",
		[]string{".ts", ".mts", ".cts"},
		typescript.GetLanguage(),
		NewNodeTypes(
			[]string{"function_declaration", "function_expression", "arrow_function", "generator_function_declaration"},
			[]string{"method_definition"},
			[]string{"class_declaration"},
			"call_expression",
			[]string{"import_statement"},
		),
	)
}

func tsxConfig() Language {
	return NewLanguage(
		"tsx",
		[]string{".tsx"},
		tsx.GetLanguage(),
		NewNodeTypes(
			[]string{"function_declaration", "function_expression", "arrow_function", "generator_function_declaration"},
			[]string{"method_definition"},
			[]string{"class_declaration"},
			"call_expression",
			[]string{"import_statement"},
		),
	)
}

func goConfig() Language {
	return NewLanguage(
		"go",
		[]string{".go"},
		golang.GetLanguage(),
		NewNodeTypes(
			[]string{"function_declaration"},
			[]string{"method_declaration"},
			nil,
			"call_expression",
			[]string{"import_declaration"},
		),
	)
}

func rustConfig() Language {
	return NewLanguage(
		"rust",
		[]string{".rs"},
		rust.GetLanguage(),
		NewNodeTypes(
			[]string{"function_item"},
			nil,
			[]string{"struct_item", "enum_item"},
			"call_expression",
			[]string{"use_declaration"},
		),
	)
}

func javaConfig() Language {
	return NewLanguage(
		"java",
		[]string{".java"},
		java.GetLanguage(),
		NewNodeTypes(
			[]string{"method_declaration", "constructor_declaration"},
			nil,
			[]string{"class_declaration", "interface_declaration", "enum_declaration"},
			"method_invocation",
			[]string{"import_declaration"},
		),
	)
}

func cConfig() Language {
	return NewLanguage(
		"c",
		[]string{".c", ".h"},
		c.GetLanguage(),
		NewNodeTypes(
			[]string{"function_definition"},
			nil,
			[]string{"struct_specifier", "union_specifier", "enum_specifier"},
			"call_expression",
			[]string{"preproc_include"},
		),
	)
}

func cppConfig() Language {
	return NewLanguage(
		"cpp",
		[]string{".cpp", ".cc", ".cxx", ".hpp", ".hxx", ".hh"},
		cpp.GetLanguage(),
		NewNodeTypes(
			[]string{"function_definition"},
			nil,
			[]string{"class_specifier", "struct_specifier"},
			"call_expression",
			[]string{"preproc_include"},
		),
	)
}

func rubyConfig() Language {
	return NewLanguage(
		"ruby",
		[]string{".rb", ".rake"},
		ruby.GetLanguage(),
		NewNodeTypes(
			[]string{"method", "singleton_method"},
			nil,
			[]string{"class", "module"},
			"call",
			[]string{},
		),
	)
}

func phpConfig() Language {
	return NewLanguage(
		"php",
		[]string{".php", ".phtml"},
		php.GetLanguage(),
		NewNodeTypes(
			[]string{"function_definition"},
			[]string{"method_declaration"},
			[]string{"class_declaration", "interface_declaration", "trait_declaration"},
			"function_call_expression",
			[]string{"namespace_use_declaration"},
		),
	)
}
