package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"rag/model"
	"rag/store"
	"rag/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder records batch sizes and derives each vector from its text, so
// tests can verify position i of the output belongs to input i.
type fakeEmbedder struct {
	batchSizes []int
	fail       error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, input model.InputType) ([][]float32, error) {
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.fail != nil {
		return nil, f.fail
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t)), 1}
	}
	return vectors, nil
}

func newTestService(storer store.Storer, embedder model.Embedder) (*Service, *int) {
	svc := New(storer, embedder)
	delays := 0
	svc.sleep = func(time.Duration) { delays++ }
	return svc, &delays
}

func para(n int) string {
	return strings.Repeat("plain retrieval corpus text with neutral words here ", 20)[:n]
}

func introDetailsDoc() string {
	return "## Intro\n\n" + para(120) + "\n\n" + para(120) + "\n\n" +
		"### Details\n\n" + para(120) + "\n\n" + para(120) + "\n"
}

func TestProcessDocumentHappyPath(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc, _ := newTestService(mem, &fakeEmbedder{})

	result, err := svc.ProcessDocument(ctx, introDetailsDoc(), ProcessOptions{DocumentName: "guide.md"})
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 2, result.TotalChunks)
	assert.Equal(t, "guide.md", result.FileName)
	assert.True(t, strings.HasPrefix(result.DocumentID, "doc_guide_"))

	docs, err := mem.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].TotalChunks)
	assert.Equal(t, types.StatusActive, docs[0].Status)

	chunks, err := mem.GetChunks(ctx, result.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestProcessDocumentNoChunks(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	emb := &fakeEmbedder{}
	svc, _ := newTestService(mem, emb)

	_, err := svc.ProcessDocument(ctx, para(40), ProcessOptions{DocumentName: "tiny.md"})
	assert.ErrorIs(t, err, ErrNoChunks)

	// Aborted before any embedding call or store write.
	assert.Empty(t, emb.batchSizes)
	docs, err := mem.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestEmbedChunksBatching(t *testing.T) {
	emb := &fakeEmbedder{}
	svc, delays := newTestService(store.NewMemoryStore(), emb)

	chunks := make([]types.Chunk, 23)
	for i := range chunks {
		chunks[i] = types.Chunk{
			ID:      fmt.Sprintf("doc-0-%d", i),
			Content: para(100 + i),
		}
	}

	embedded, err := svc.embedChunks(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 3}, emb.batchSizes)
	// Delay between batches only, none after the last.
	assert.Equal(t, 2, *delays)

	require.Len(t, embedded, 23)
	for i, c := range embedded {
		assert.Equal(t, chunks[i].ID, c.ID)
		assert.Equal(t, float32(len(chunks[i].Content)), c.Embedding[0])
	}
}

func TestEmbedChunksRateLimitExhausted(t *testing.T) {
	emb := &fakeEmbedder{fail: &model.ProviderError{
		StatusCode: http.StatusTooManyRequests,
		Detail:     "rate limit exceeded",
	}}
	svc, delays := newTestService(store.NewMemoryStore(), emb)

	_, err := svc.embedChunks(context.Background(), []types.Chunk{{ID: "c", Content: para(150)}})

	var exhausted *BatchExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, MaxRetries, exhausted.Attempts)
	assert.Len(t, emb.batchSizes, MaxRetries)
	assert.Equal(t, MaxRetries, *delays)
}

func TestEmbedChunksFatalProviderError(t *testing.T) {
	emb := &fakeEmbedder{fail: &model.ProviderError{
		StatusCode: http.StatusBadRequest,
		Detail:     "input too long",
	}}
	svc, delays := newTestService(store.NewMemoryStore(), emb)

	_, err := svc.embedChunks(context.Background(), []types.Chunk{{ID: "c", Content: para(150)}})
	require.Error(t, err)

	var exhausted *BatchExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	// Non-retryable errors abort on the first attempt.
	assert.Len(t, emb.batchSizes, 1)
	assert.Equal(t, 0, *delays)
}

func TestProcessDocumentExhaustionLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	emb := &fakeEmbedder{fail: &model.ProviderError{
		StatusCode: http.StatusTooManyRequests,
		Detail:     "rate limit exceeded",
	}}
	svc, _ := newTestService(mem, emb)

	_, err := svc.ProcessDocument(ctx, introDetailsDoc(), ProcessOptions{DocumentName: "guide.md"})

	var exhausted *BatchExhaustedError
	require.ErrorAs(t, err, &exhausted)

	docs, err := mem.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// failingStore makes chunk persistence fail to exercise the compensating
// document rollback.
type failingStore struct {
	store.Storer
}

func (f *failingStore) SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error {
	return errors.New("disk full")
}

func TestProcessDocumentRollsBackOnChunkInsertFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc, _ := newTestService(&failingStore{Storer: mem}, &fakeEmbedder{})

	_, err := svc.ProcessDocument(ctx, introDetailsDoc(), ProcessOptions{DocumentName: "guide.md"})
	require.Error(t, err)

	docs, err := mem.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs, "document row must not survive a chunk insert failure")
}

func TestSearchDefaultsAndRounding(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc, _ := newTestService(mem, &fakeEmbedder{})

	content := "## Intro\n\nKafka 이벤트 스트림을 다루는 내용이다 " + para(120) + "\n\n" + para(120) + "\n"
	_, err := svc.ProcessDocument(ctx, content, ProcessOptions{DocumentName: "events.md"})
	require.NoError(t, err)

	results, err := svc.Search(ctx, para(110), types.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 5)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.3)
		// Scores come back rounded to two decimals.
		assert.InDelta(t, r.Similarity, float64(int(r.Similarity*100+0.5))/100, 1e-9)
		assert.Equal(t, "events.md", r.Document)
	}

	tagged, err := svc.Search(ctx, para(110), types.SearchOptions{Tags: []string{"Kafka"}})
	require.NoError(t, err)
	for _, r := range tagged {
		assert.Contains(t, r.Tags, "Kafka")
	}
}

func TestGenerateDocumentID(t *testing.T) {
	id := generateDocumentID("MSA 정의서.MD")
	assert.True(t, strings.HasPrefix(id, "doc_MSA_정의서_"))
	assert.NotContains(t, id, " ")
	assert.NotContains(t, strings.ToLower(id), ".md")

	// Long names are truncated before the timestamp suffix.
	long := generateDocumentID(strings.Repeat("verylongname", 10) + ".md")
	parts := strings.Split(long, "_")
	require.GreaterOrEqual(t, len(parts), 3)
	assert.LessOrEqual(t, len([]rune(parts[1])), 20)
}
