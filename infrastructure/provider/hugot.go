package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

const hugotBatchMax = 10

// ortState holds the process-wide ONNX Runtime session and pipeline. ORT
// allows one active session per process, so every HugotEmbedder shares it.
// The mutex serializes initialization and inference; ORT is not thread-safe.
var ortState struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
}

// HugotEmbedder generates embeddings locally with an ONNX sentence
// transformer, used when no remote embedding provider is configured.
//
// The model is located in one of two ways, in order: a subdirectory of
// modelDir containing tokenizer.json, or a model compiled into the binary
// with the embed_model build tag and extracted to modelDir on first use.
type HugotEmbedder struct {
	modelDir string
	model    string
}

// NewHugotEmbedder creates a HugotEmbedder that looks for model files in
// modelDir.
func NewHugotEmbedder(modelDir string) *HugotEmbedder {
	return &HugotEmbedder{modelDir: modelDir, model: "local-onnx"}
}

// Available reports whether a usable model exists on disk or in the binary.
func (h *HugotEmbedder) Available() bool {
	if hasEmbeddedModel {
		return true
	}
	_, err := h.diskModelPath()
	return err == nil
}

// Model identifies the embedding model for cache keys.
func (h *HugotEmbedder) Model() string { return h.model }

// Capacity returns the maximum texts per Embed call.
func (h *HugotEmbedder) Capacity() int { return hugotBatchMax }

// Close is a no-op. The ONNX Runtime session is process-global and released
// at process exit.
func (h *HugotEmbedder) Close() error { return nil }

func (h *HugotEmbedder) initialize() error {
	ortState.mu.Lock()
	defer ortState.mu.Unlock()

	if ortState.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	modelPath, err := h.resolveModelPath()
	if err != nil {
		_ = session.Destroy()
		return err
	}
	h.model = filepath.Base(modelPath)

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "chunk-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	})
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortState.session = session
	ortState.pipeline = pipeline
	ortState.ready = true
	return nil
}

// Embed runs the local pipeline over one batch of texts.
func (h *HugotEmbedder) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}
	if len(texts) > hugotBatchMax {
		return EmbeddingResponse{}, fmt.Errorf("%w: %d texts exceeds capacity %d", ErrEmbedFailed, len(texts), hugotBatchMax)
	}
	if err := ctx.Err(); err != nil {
		return EmbeddingResponse{}, err
	}

	if err := h.initialize(); err != nil {
		return EmbeddingResponse{}, fmt.Errorf("%w: initialize local model: %w", ErrEmbedFailed, err)
	}

	ortState.mu.Lock()
	defer ortState.mu.Unlock()

	result, err := ortState.pipeline.RunPipeline(texts)
	if err != nil {
		embedFailuresTotal.Inc()
		return EmbeddingResponse{}, fmt.Errorf("%w: run embedding pipeline: %w", ErrEmbedFailed, err)
	}

	embeddings := make([][]float64, len(result.Embeddings))
	for i, vec32 := range result.Embeddings {
		vec64 := make([]float64, len(vec32))
		for j, v := range vec32 {
			vec64[j] = float64(v)
		}
		embeddings[i] = vec64
	}

	return NewEmbeddingResponse(embeddings, NewUsage(0, 0, 0)), nil
}

// resolveModelPath prefers model files already on disk, then falls back to
// extracting the compiled-in model.
func (h *HugotEmbedder) resolveModelPath() (string, error) {
	if diskPath, err := h.diskModelPath(); err == nil {
		return diskPath, nil
	}

	if !hasEmbeddedModel {
		return "", fmt.Errorf("no model found in %s and no embedded model compiled in (build with -tags embed_model)", h.modelDir)
	}

	if err := os.MkdirAll(h.modelDir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}
	return extractEmbeddedModel(embeddedModelFS, h.modelDir)
}

// diskModelPath finds a subdirectory of modelDir containing tokenizer.json.
func (h *HugotEmbedder) diskModelPath() (string, error) {
	entries, err := os.ReadDir(h.modelDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.modelDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.modelDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json found in %s", h.modelDir)
}

// extractEmbeddedModel writes the compiled-in model files under targetDir
// and returns the model subdirectory path.
func extractEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var modelSubdir string
	for _, entry := range entries {
		if entry.IsDir() {
			modelSubdir = entry.Name()
			break
		}
	}
	if modelSubdir == "" {
		return "", fmt.Errorf("no model directory found in embedded models")
	}

	modelPath := filepath.Join(targetDir, modelSubdir)
	if _, statErr := os.Stat(filepath.Join(modelPath, "tokenizer.json")); statErr == nil {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(modelsFS, modelSubdir)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return modelPath, nil
}

var _ Embedder = (*HugotEmbedder)(nil)
