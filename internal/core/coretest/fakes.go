// Package coretest provides in-memory implementations of the core
// interfaces for tests.
package coretest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/vectordb/internal/core"
	"github.com/markdave123-py/vectordb/internal/models"
)

// Store keeps documents keyed by content hash and enforces the same
// uniqueness rule as the SQL table.
type Store struct {
	mu   sync.Mutex
	docs map[string]*models.Document

	Healthy    bool
	StoreErr   error
	FindErr    error
	StoreCalls int
	FindCalls  int
	// BeforeStore runs inside Store before the uniqueness check.
	BeforeStore func(doc *models.Document)
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*models.Document), Healthy: true}
}

// Put inserts doc directly, bypassing Store counters.
func (s *Store) Put(doc *models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ContentHash] = doc
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) Store(ctx context.Context, doc *models.Document) (bool, error) {
	if s.BeforeStore != nil {
		s.BeforeStore(doc)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StoreCalls++
	if s.StoreErr != nil {
		return false, &core.StorageError{Op: "store", Err: s.StoreErr}
	}
	if _, ok := s.docs[doc.ContentHash]; ok {
		return false, &core.StorageError{Op: "store", Err: core.ErrDuplicate}
	}
	now := time.Now()
	cp := *doc
	cp.CreatedAt = &now
	s.docs[doc.ContentHash] = &cp
	return true, nil
}

func (s *Store) FindByHash(ctx context.Context, hash string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls++
	if s.FindErr != nil {
		return nil, &core.StorageError{Op: "find", Err: s.FindErr}
	}
	doc, ok := s.docs[hash]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.Healthy
}

// SearchChunks ranks chunks by squared euclidean distance to query.
func (s *Store) SearchChunks(ctx context.Context, query []float32, limit int) ([]models.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hits []models.SearchHit
	for _, d := range s.sorted() {
		for _, c := range d.Chunks {
			hits = append(hits, models.SearchHit{
				DocumentID:  d.ID,
				Filename:    d.Filename,
				FilePath:    d.FilePath,
				ContentHash: d.ContentHash,
				ChunkIndex:  c.ChunkIndex,
				Content:     c.Content,
				Distance:    distance(query, c.Embedding),
			})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]models.DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DocumentSummary
	for _, d := range s.sorted() {
		out = append(out, models.DocumentSummary{
			ContentHash: d.ContentHash,
			Filename:    d.Filename,
			FilePath:    d.FilePath,
			ChunkCount:  len(d.Chunks),
			CreatedAt:   d.CreatedAt,
		})
	}
	if offset >= len(out) {
		return []models.DocumentSummary{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteByHash(ctx context.Context, hash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[hash]
	if !ok {
		return 0, nil
	}
	delete(s.docs, hash)
	return len(d.Chunks), nil
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.Stats{Documents: len(s.docs)}
	for _, d := range s.docs {
		st.Chunks += len(d.Chunks)
	}
	return st, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) sorted() []*models.Document {
	out := make([]*models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

func distance(a, b []float32) float64 {
	var d float64
	for i := 0; i < len(a) && i < len(b); i++ {
		x := float64(a[i] - b[i])
		d += x * x
	}
	return d
}

// Embedder returns deterministic vectors of length Dim. Any text containing
// FailOn makes the whole call fail.
type Embedder struct {
	mu      sync.Mutex
	Dim     int
	FailOn  string
	Healthy bool
	Calls   int
	Texts   []string
}

func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim, Healthy: true}
}

func (e *Embedder) Generate(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.FailOn != "" && strings.Contains(t, e.FailOn) {
			return nil, &core.EmbeddingError{Op: "generate", Err: fmt.Errorf("backend rejected text %d", i)}
		}
		e.Texts = append(e.Texts, t)
		out[i] = Vector(t, e.Dim)
	}
	return out, nil
}

func (e *Embedder) HealthCheck(ctx context.Context) bool { return e.Healthy }

func (e *Embedder) ModelName() string { return "fake-embed" }

func (e *Embedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Calls
}

// Vector derives a stable vector from text.
func Vector(text string, dim int) []float32 {
	v := make([]float32, dim)
	if dim == 0 {
		return v
	}
	for i, r := range text {
		v[i%dim] += float32(r%31) / 31
	}
	return v
}

var (
	_ core.ChunkStore        = (*Store)(nil)
	_ core.EmbeddingProvider = (*Embedder)(nil)
)
