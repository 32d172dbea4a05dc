// Package vector implements embed-on-write storage and cosine-similarity
// search over normalized database objects, with a native sqlite-vec path
// and a JSON/in-process fallback.
package vector

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/generalpiston/qpg/internal/types"
)

// Embedder is the narrow capability the ingest and query pipelines need
// from an embedding backend.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

const maxTokens = 256

// ModelEmbedder loads a code-pretrained transformer once and reuses it for
// every call. Loading is guarded by mu so concurrent callers (the HTTP tool
// server) share a single instance; Require returns
// VectorModelNotInitializedError while the cache dir is missing or empty.
type ModelEmbedder struct {
	cacheDir string

	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	dim      int
}

// NewModelEmbedder returns an embedder rooted at cacheDir. No model is
// loaded until Init is called; Embed of non-empty text fails until then.
func NewModelEmbedder(cacheDir string) *ModelEmbedder {
	return &ModelEmbedder{cacheDir: cacheDir}
}

// Init loads the model from the cache directory into an inference session.
// It does not download anything: the model files must already be in the
// cache directory.
func (m *ModelEmbedder) Init(ctx context.Context, modelRepo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLoadedLocked(modelRepo)
}

// Require errors with VectorModelNotInitializedError if the cache directory
// is missing or empty.
func (m *ModelEmbedder) Require() error {
	entries, err := os.ReadDir(m.cacheDir)
	if err != nil || len(entries) == 0 {
		return types.ErrVectorModelNotInitialized
	}
	return nil
}

func (m *ModelEmbedder) ensureLoadedLocked(modelRepo string) error {
	if m.pipeline != nil {
		return nil
	}
	session, err := hugot.NewORTSession()
	if err != nil {
		return fmt.Errorf("start inference session: %w", err)
	}
	cfg := hugot.FeatureExtractionConfig{
		ModelPath: m.cacheDir,
		Name:      modelRepo,
	}
	pipeline, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		session.Destroy()
		return fmt.Errorf("load feature extraction pipeline: %w", err)
	}
	m.session = session
	m.pipeline = pipeline
	m.dim = pipeline.OutputDim
	return nil
}

// Embed truncates text to its first 256 whitespace-separated words, runs the
// feature-extraction pipeline on it, and L2-normalizes the first embedding
// the pipeline returns; tokenization and pooling are the pipeline's own.
// Empty text yields the zero vector.
func (m *ModelEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return make([]float32, m.Dim()), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Require(); err != nil {
		return nil, err
	}
	if m.pipeline == nil {
		return nil, types.ErrVectorModelNotInitialized
	}

	out, err := m.pipeline.RunPipeline([]string{truncateTokens(text, maxTokens)})
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if len(out.Embeddings) == 0 {
		return make([]float32, m.dim), nil
	}
	return l2Normalize(out.Embeddings[0]), nil
}

// Dim reports the embedding dimensionality, defaulting to 768 (the model's
// advertised hidden size) before a model has finished loading.
func (m *ModelEmbedder) Dim() int {
	if m.dim > 0 {
		return m.dim
	}
	return 768
}

// Close releases the underlying inference session.
func (m *ModelEmbedder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return m.session.Destroy()
	}
	return nil
}

func truncateTokens(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
