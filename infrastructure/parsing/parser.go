package parsing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSkipped indicates a file was skipped rather than parsed. Skips are
// recorded on the run but never fail ingestion.
var ErrSkipped = errors.New("file skipped")

// FunctionDef is a function or method definition.
type FunctionDef struct {
	Name        string
	StartLine   int
	EndLine     int
	Parameters  []string
	ParentClass string
	Decorators  []string
	IsAsync     bool
	IsMethod    bool
}

// ClassDef is a class definition.
type ClassDef struct {
	Name        string
	StartLine   int
	EndLine     int
	BaseClasses []string
	Decorators  []string
}

// ImportDecl is an import statement.
type ImportDecl struct {
	Module     string
	Line       int
	Names      []string
	Alias      string
	FromImport bool
}

// VariableDecl is a top-level variable assignment.
type VariableDecl struct {
	Name       string
	Line       int
	Scope      string
	IsConstant bool
}

// FileParse is the extraction result for one source file.
type FileParse struct {
	Path      string
	Language  string
	Functions []FunctionDef
	Classes   []ClassDef
	Imports   []ImportDecl
	Variables []VariableDecl
}

// Parser parses source files and extracts their symbols.
type Parser struct {
	config      LanguageConfig
	walker      Walker
	maxFileSize int64
}

// NewParser creates a Parser. Files larger than maxFileSize bytes are
// skipped.
func NewParser(maxFileSize int64) *Parser {
	return &Parser{
		config:      NewLanguageConfig(),
		walker:      NewWalker(),
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the skip threshold in bytes.
func (p *Parser) MaxFileSize() int64 {
	return p.maxFileSize
}

// Supports reports whether the file's extension maps to a known grammar.
func (p *Parser) Supports(path string) bool {
	_, ok := p.config.ByExtension(strings.ToLower(filepath.Ext(path)))
	return ok
}

// DetectLanguage returns the language name for a path, or "" when the
// extension is not supported.
func (p *Parser) DetectLanguage(path string) string {
	lang, ok := p.config.ByExtension(strings.ToLower(filepath.Ext(path)))
	if !ok {
		return ""
	}
	return lang.Name()
}

// Parse parses content and extracts functions, classes, imports and
// variables. Oversized or unsupported files return ErrSkipped.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (FileParse, error) {
	lang, ok := p.config.ByExtension(strings.ToLower(filepath.Ext(path)))
	if !ok {
		return FileParse{}, fmt.Errorf("%w: unsupported language for %s", ErrSkipped, path)
	}
	if p.maxFileSize > 0 && int64(len(content)) > p.maxFileSize {
		return FileParse{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrSkipped, path, p.maxFileSize)
	}

	tree, err := p.ParseTree(ctx, lang, content)
	if err != nil {
		return FileParse{}, fmt.Errorf("%w: parse %s: %w", ErrSkipped, path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	result := FileParse{
		Path:     path,
		Language: lang.Name(),
	}

	switch lang.Name() {
	case "python":
		result.Functions = p.extractPythonFunctions(root, content)
		result.Classes = p.extractPythonClasses(root, content)
		result.Imports = p.extractPythonImports(root, content)
		result.Variables = p.extractPythonVariables(root, content)
	case "javascript", "typescript", "tsx":
		result.Functions = p.extractJSFunctions(root, content)
		result.Classes = p.extractJSClasses(root, content)
		result.Imports = p.extractJSImports(root, content)
		result.Variables = p.extractJSVariables(root, content)
	default:
		result.Functions = p.extractGenericFunctions(lang, root, content)
		result.Classes = p.extractGenericClasses(lang, root, content)
	}

	return result, nil
}

// ParseTree parses content into a raw syntax tree. The analysis layer
// re-parses files when walking call expressions.
func (p *Parser) ParseTree(ctx context.Context, lang Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang.SitterLanguage())
	return parser.ParseCtx(ctx, nil, content)
}

// LanguageByName exposes a grammar for the analysis layer.
func (p *Parser) LanguageByName(name string) (Language, bool) {
	return p.config.ByName(name)
}
