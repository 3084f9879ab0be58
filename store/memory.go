package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"rag/types"
)

// MemoryStore is a Storer backed by maps and brute-force exact cosine
// similarity. It backs the service tests and the no-database dev mode, where
// it behaves like the Postgres store minus persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]types.Document
	chunks map[string][]types.Chunk // keyed by document id, insertion order kept
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]types.Document),
		chunks: make(map[string][]types.Chunk),
	}
}

func (m *MemoryStore) Init(ctx context.Context) error { return nil }

func (m *MemoryStore) SaveDocument(ctx context.Context, doc types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return fmt.Errorf("save document %s: id already exists", doc.ID)
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryStore) SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return fmt.Errorf("save chunks: unknown document %s", docID)
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("save chunk %s: missing embedding", c.ID)
		}
	}
	m.chunks[docID] = append(m.chunks[docID], chunks...)
	return nil
}

func (m *MemoryStore) ListDocuments(ctx context.Context) ([]types.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []types.Document
	for _, doc := range m.docs {
		if doc.Status == types.StatusActive {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (m *MemoryStore) GetChunks(ctx context.Context, docID string) ([]types.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := make([]types.Chunk, len(m.chunks[docID]))
	copy(chunks, m.chunks[docID])
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
	return chunks, nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docID)
	delete(m.chunks, docID)
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, queryVec []float32, opts types.SearchOptions) ([]types.SearchResult, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	limit := ClampLimit(opts.Limit)
	threshold := ClampThreshold(opts.Threshold)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []types.SearchResult
	for docID, chunks := range m.chunks {
		doc, ok := m.docs[docID]
		if !ok || doc.Status != types.StatusActive {
			continue
		}
		for _, c := range chunks {
			if len(opts.Tags) > 0 && !intersects(c.Tags, opts.Tags) {
				continue
			}
			sim := cosine(queryVec, c.Embedding)
			if sim < threshold {
				continue
			}
			results = append(results, types.SearchResult{
				ID:            c.ID,
				Document:      doc.Name,
				Section:       c.Section,
				ParentSection: c.ParentSection,
				Content:       c.Content,
				Tags:          c.Tags,
				ChunkType:     c.ChunkType,
				Similarity:    sim,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
