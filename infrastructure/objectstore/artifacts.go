package objectstore

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
)

// ManifestVersion identifies the artifact layout; bumped when the
// graph or AST payloads change shape.
const ManifestVersion = "v2"

// Manifest summarises one ingested commit's artifacts.
type Manifest struct {
	Commit     string `json:"commit"`
	NodesCount int    `json:"nodes_count"`
	Version    string `json:"version"`
}

// EncodeManifest renders the manifest JSON.
func EncodeManifest(m Manifest) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeManifest parses manifest JSON.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// graphSymbol is the persisted form of a symbol in graph_data.
type graphSymbol struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	QualifiedName string         `json:"qualified_name"`
	Type          string         `json:"type"`
	FilePath      string         `json:"file_path"`
	StartLine     int            `json:"start_line"`
	EndLine       int            `json:"end_line"`
	Scope         string         `json:"scope,omitempty"`
	Signature     string         `json:"signature,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type graphRelationship struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
}

type graphData struct {
	Commit        string              `json:"commit"`
	Symbols       []graphSymbol       `json:"symbols"`
	Relationships []graphRelationship `json:"relationships"`
}

// EncodeGraphData renders the gzip JSON graph artifact.
func EncodeGraphData(commitSHA string, symbols []symbol.Symbol, relationships []symbol.Relationship) ([]byte, error) {
	data := graphData{
		Commit:        commitSHA,
		Symbols:       make([]graphSymbol, 0, len(symbols)),
		Relationships: make([]graphRelationship, 0, len(relationships)),
	}
	for _, s := range symbols {
		data.Symbols = append(data.Symbols, graphSymbol{
			ID:            s.ID().String(),
			Name:          s.Name(),
			QualifiedName: s.QualifiedName(),
			Type:          string(s.SymbolType()),
			FilePath:      s.FilePath(),
			StartLine:     s.StartLine(),
			EndLine:       s.EndLine(),
			Scope:         s.Scope(),
			Signature:     s.Signature(),
			Metadata:      s.Metadata(),
		})
	}
	for _, r := range relationships {
		data.Relationships = append(data.Relationships, graphRelationship{
			SourceID: r.SourceID().String(),
			TargetID: r.TargetID().String(),
			Type:     string(r.RelType()),
			FilePath: r.FilePath(),
			Line:     r.Line(),
		})
	}
	return gzipJSON(data)
}

// astFile is the persisted per-file parse summary in ast_data.
type astFile struct {
	Path      string `json:"path"`
	Language  string `json:"language"`
	Functions int    `json:"functions"`
	Classes   int    `json:"classes"`
	Imports   int    `json:"imports"`
	Variables int    `json:"variables"`
	Skipped   bool   `json:"skipped,omitempty"`
	SkipNote  string `json:"skip_note,omitempty"`
}

// ASTSummary aggregates parse outcomes for the ast_data artifact.
type ASTSummary struct {
	files []astFile
}

// AddParsed records a successfully parsed file.
func (a *ASTSummary) AddParsed(parse parsing.FileParse) {
	a.files = append(a.files, astFile{
		Path:      parse.Path,
		Language:  parse.Language,
		Functions: len(parse.Functions),
		Classes:   len(parse.Classes),
		Imports:   len(parse.Imports),
		Variables: len(parse.Variables),
	})
}

// AddSkipped records a skipped file with its reason.
func (a *ASTSummary) AddSkipped(path, note string) {
	a.files = append(a.files, astFile{
		Path:     path,
		Skipped:  true,
		SkipNote: note,
	})
}

// Encode renders the gzip JSON ast_data artifact.
func (a *ASTSummary) Encode(commitSHA string) ([]byte, error) {
	return gzipJSON(map[string]any{
		"commit": commitSHA,
		"files":  a.files,
	})
}

func gzipJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// GunzipJSON decodes a gzip JSON artifact into v.
func GunzipJSON(data []byte, v any) error {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gr.Close() }()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return fmt.Errorf("decompress artifact: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// PackSourceTree builds a tar.gz of the walked files of a checkout.
func PackSourceTree(root string, files []git.SourceFile) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, f := range files {
		info, err := os.Stat(f.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f.Path, err)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", f.Path, err)
		}
		hdr.Name = f.Path

		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("write header %s: %w", f.Path, err)
		}
		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}
		if _, err := tw.Write(content); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractFile pulls one file's content out of a source_tree artifact.
func ExtractFile(archive []byte, path string) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = gr.Close() }()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if filepath.ToSlash(hdr.Name) == path {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%w: %s in source tree", ErrObjectNotFound, path)
}
