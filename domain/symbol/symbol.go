// Package symbol defines code symbols, their relationships, and the graph
// store interfaces used by static queries.
package symbol

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a symbol.
type Type string

// Symbol types.
const (
	TypeFunction Type = "function"
	TypeClass    Type = "class"
	TypeMethod   Type = "method"
	TypeImport   Type = "import"
	TypeVariable Type = "variable"
)

// Symbol is one named code element extracted from a parsed file.
type Symbol struct {
	id             uuid.UUID
	repoID         uuid.UUID
	commitSHA      string
	name           string
	qualifiedName  string
	symbolType     Type
	filePath       string
	startLine      int
	endLine        int
	scope          string
	signature      string
	parentSymbolID uuid.UUID
	metadata       map[string]any
	createdAt      time.Time
}

// NewSymbol creates a Symbol with a fresh ID.
func NewSymbol(repoID uuid.UUID, commitSHA, name string, symbolType Type, filePath string, startLine, endLine int) Symbol {
	return Symbol{
		id:            uuid.New(),
		repoID:        repoID,
		commitSHA:     commitSHA,
		name:          name,
		qualifiedName: name,
		symbolType:    symbolType,
		filePath:      filePath,
		startLine:     startLine,
		endLine:       endLine,
		createdAt:     time.Now().UTC(),
	}
}

// NewSymbolWithID reconstructs a Symbol from persisted state.
func NewSymbolWithID(
	id, repoID uuid.UUID,
	commitSHA, name, qualifiedName string,
	symbolType Type,
	filePath string,
	startLine, endLine int,
	scope, signature string,
	parentSymbolID uuid.UUID,
	metadata map[string]any,
	createdAt time.Time,
) Symbol {
	return Symbol{
		id:             id,
		repoID:         repoID,
		commitSHA:      commitSHA,
		name:           name,
		qualifiedName:  qualifiedName,
		symbolType:     symbolType,
		filePath:       filePath,
		startLine:      startLine,
		endLine:        endLine,
		scope:          scope,
		signature:      signature,
		parentSymbolID: parentSymbolID,
		metadata:       metadata,
		createdAt:      createdAt,
	}
}

// ID returns the symbol ID.
func (s Symbol) ID() uuid.UUID { return s.id }

// RepoID returns the owning repository ID.
func (s Symbol) RepoID() uuid.UUID { return s.repoID }

// CommitSHA returns the commit this symbol was extracted at.
func (s Symbol) CommitSHA() string { return s.commitSHA }

// Name returns the bare symbol name.
func (s Symbol) Name() string { return s.name }

// QualifiedName returns the scope-qualified name, e.g. "ClassName.method".
func (s Symbol) QualifiedName() string { return s.qualifiedName }

// SymbolType returns the symbol type.
func (s Symbol) SymbolType() Type { return s.symbolType }

// FilePath returns the repo-relative file path.
func (s Symbol) FilePath() string { return s.filePath }

// StartLine returns the 1-based first line of the definition.
func (s Symbol) StartLine() int { return s.startLine }

// EndLine returns the 1-based last line of the definition.
func (s Symbol) EndLine() int { return s.endLine }

// Scope returns the enclosing scope ("module" or the class name).
func (s Symbol) Scope() string { return s.scope }

// Signature returns the rendered signature for callables.
func (s Symbol) Signature() string { return s.signature }

// ParentSymbolID returns the enclosing class for methods, uuid.Nil otherwise.
func (s Symbol) ParentSymbolID() uuid.UUID { return s.parentSymbolID }

// CreatedAt returns the creation timestamp.
func (s Symbol) CreatedAt() time.Time { return s.createdAt }

// Metadata returns a copy of the symbol metadata.
func (s Symbol) Metadata() map[string]any {
	if s.metadata == nil {
		return nil
	}
	cp := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		cp[k] = v
	}
	return cp
}

// WithQualifiedName returns a copy with the qualified name set.
func (s Symbol) WithQualifiedName(qn string) Symbol {
	s.qualifiedName = qn
	return s
}

// WithScope returns a copy with the scope set.
func (s Symbol) WithScope(scope string) Symbol {
	s.scope = scope
	return s
}

// WithSignature returns a copy with the signature set.
func (s Symbol) WithSignature(sig string) Symbol {
	s.signature = sig
	return s
}

// WithParent returns a copy with the parent symbol set.
func (s Symbol) WithParent(parentID uuid.UUID) Symbol {
	s.parentSymbolID = parentID
	return s
}

// WithMetadata returns a copy with the metadata map replaced.
func (s Symbol) WithMetadata(metadata map[string]any) Symbol {
	s.metadata = metadata
	return s
}

// metaString reads a string metadata value.
func (s Symbol) metaString(key string) string {
	if v, ok := s.metadata[key].(string); ok {
		return v
	}
	return ""
}

// metaStrings reads a string-slice metadata value. JSON round-trips
// deliver []any, so both representations are accepted.
func (s Symbol) metaStrings(key string) []string {
	switch v := s.metadata[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Language returns the source language recorded at extraction time.
func (s Symbol) Language() string { return s.metaString("language") }

// BaseClasses returns the base class names for class symbols.
func (s Symbol) BaseClasses() []string { return s.metaStrings("base_classes") }

// ImportModule returns the imported module for import symbols.
func (s Symbol) ImportModule() string { return s.metaString("module") }

// ImportedNames returns the names pulled in by an import symbol.
func (s Symbol) ImportedNames() []string { return s.metaStrings("imported_names") }

// Alias returns the import alias, if any.
func (s Symbol) Alias() string { return s.metaString("alias") }

// IsFromImport reports whether an import symbol is a from-import.
func (s Symbol) IsFromImport() bool {
	v, ok := s.metadata["is_from_import"].(bool)
	return ok && v
}

// Parameters returns the parameter names for callables.
func (s Symbol) Parameters() []string { return s.metaStrings("parameters") }

// IsAsync reports whether a callable is async.
func (s Symbol) IsAsync() bool {
	v, ok := s.metadata["is_async"].(bool)
	return ok && v
}
