package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rag/chunker"
	"rag/model"
	"rag/store"
	"rag/types"

	"github.com/google/uuid"
)

// Pipeline constants, sized against the provider's free-plan quota
// (3 requests per minute shared across all callers).
const (
	BatchSize      = 10
	RateLimitDelay = 21 * time.Second
	MaxRetries     = 3
	DocumentDelay  = 25 * time.Second
)

const (
	defaultSearchLimit     = 5
	defaultSearchThreshold = 0.3
)

// ErrNoChunks means chunking produced zero usable chunks; ingestion stops
// before anything is written.
var ErrNoChunks = errors.New("chunking produced no usable chunks, check the document format")

// Service composes the chunker, the embedding pipeline and the store into
// the document ingestion and query operations.
type Service struct {
	logger         *slog.Logger
	store          store.Storer
	embedder       model.Embedder
	batchSize      int
	maxRetries     int
	rateLimitDelay time.Duration
	sleep          func(time.Duration)
}

func New(storer store.Storer, embedder model.Embedder) *Service {
	return &Service{
		logger:         slog.Default(),
		store:          storer,
		embedder:       embedder,
		batchSize:      BatchSize,
		maxRetries:     MaxRetries,
		rateLimitDelay: RateLimitDelay,
		sleep:          time.Sleep,
	}
}

type ProcessOptions struct {
	DocumentName string
	Version      string
}

// ProcessDocument runs one ingestion: chunk, embed in batches, then persist
// document and chunks. Persisted state is all-or-nothing: a chunk insert
// failure rolls the document row back, so search never sees a partial
// document.
func (s *Service) ProcessDocument(ctx context.Context, content string, opts ProcessOptions) (*types.ProcessResult, error) {
	version := opts.Version
	if version == "" {
		version = "1.0"
	}
	name := opts.DocumentName
	docID := generateDocumentID(name)

	log := s.logger.With("run_id", uuid.NewString(), "document", name)
	log.Info("processing document", "document_id", docID)

	chunks := chunker.Chunk(content, chunker.Metadata{
		DocumentID:   docID,
		DocumentName: name,
		Version:      version,
	})
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	stats := chunker.Stats(chunks)
	log.Info("chunking complete", "chunks", len(chunks), "avg_length", stats.AvgLength)

	embedded, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	doc := types.Document{
		ID:          docID,
		Name:        name,
		Version:     version,
		Description: fmt.Sprintf("%s - %d chunks", name, len(chunks)),
		TotalChunks: len(chunks),
		Status:      types.StatusActive,
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.store.SaveChunks(ctx, docID, embedded); err != nil {
		// Compensating rollback: without it a document row with no
		// chunks would stay visible.
		if delErr := s.store.DeleteDocument(ctx, docID); delErr != nil {
			log.Error("rollback of document failed", "document_id", docID, "error", delErr)
		}
		return nil, err
	}

	log.Info("document processed", "document_id", docID, "chunks", len(chunks))

	return &types.ProcessResult{
		DocumentID:  docID,
		FileName:    name,
		TotalChunks: len(chunks),
		Stats:       stats,
		Status:      "completed",
	}, nil
}

// Search embeds the query (a single call, independent of the ingestion
// pipeline and its delays) and runs the similarity search.
func (s *Service) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.SearchResult, error) {
	if opts.Limit == 0 {
		opts.Limit = defaultSearchLimit
	}
	if opts.Threshold == 0 {
		opts.Threshold = defaultSearchThreshold
	}

	vectors, err := s.embedder.Embed(ctx, []string{query}, model.InputQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Search(ctx, vectors[0], opts)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	for i := range results {
		results[i].Similarity = math.Round(results[i].Similarity*100) / 100
	}
	return results, nil
}

func (s *Service) ListDocuments(ctx context.Context) ([]types.Document, error) {
	return s.store.ListDocuments(ctx)
}

func (s *Service) GetChunks(ctx context.Context, docID string) ([]types.Chunk, error) {
	return s.store.GetChunks(ctx, docID)
}

func (s *Service) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", docID)
	return nil
}

var (
	reMdSuffix = regexp.MustCompile(`(?i)\.md$`)
	reUnsafe   = regexp.MustCompile(`[^a-zA-Z0-9가-힣]`)
)

// generateDocumentID derives an id from the display name plus a base36
// millisecond timestamp, e.g. "doc_MSA_정의서_mf3k1x2q".
func generateDocumentID(name string) string {
	safe := reMdSuffix.ReplaceAllString(name, "")
	safe = reUnsafe.ReplaceAllString(safe, "_")
	if r := []rune(safe); len(r) > 20 {
		safe = string(r[:20])
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return strings.Join([]string{"doc", safe, ts}, "_")
}
