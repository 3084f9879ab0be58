package store

import (
	"context"
	"fmt"
	"log"

	"rag/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Search clamps: callers never get more than MaxSearchLimit rows, and the
// similarity threshold is kept inside a sane band.
const (
	MaxSearchLimit = 10
	MinThreshold   = 0.1
	MaxThreshold   = 1.0
)

type Storer interface {
	Init(ctx context.Context) error
	SaveDocument(ctx context.Context, doc types.Document) error
	SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error
	ListDocuments(ctx context.Context) ([]types.Document, error)
	GetChunks(ctx context.Context, docID string) ([]types.Chunk, error)
	DeleteDocument(ctx context.Context, docID string) error
	Search(ctx context.Context, queryVec []float32, opts types.SearchOptions) ([]types.SearchResult, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '1.0',
		description TEXT,
		total_chunks INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		section TEXT,
		parent_section TEXT,
		content TEXT NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}',
		chunk_type TEXT,
		language TEXT,
		version TEXT,
		embedding vector(1024) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_tags ON chunks USING gin (tags);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) SaveDocument(ctx context.Context, doc types.Document) error {
	query := `
	INSERT INTO documents (id, name, version, description, total_chunks, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, query,
		doc.ID,
		doc.Name,
		doc.Version,
		doc.Description,
		doc.TotalChunks,
		doc.Status,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// SaveChunks writes all chunk rows in one transaction, so a document is
// never left with a partial chunk set.
func (p *PostgresStore) SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin chunk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
	INSERT INTO chunks (id, document_id, section, parent_section, content, tags, chunk_type, language, version, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, c := range chunks {
		_, err := tx.Exec(ctx, query,
			c.ID,
			docID,
			c.Section,
			c.ParentSection,
			c.Content,
			c.Tags,
			c.ChunkType,
			c.Language,
			c.Version,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("save chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunk insert: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListDocuments(ctx context.Context) ([]types.Document, error) {
	query := `
	SELECT id, name, version, description, total_chunks, status, created_at
	FROM documents
	WHERE status = 'active'
	ORDER BY created_at DESC
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.Name,
			&doc.Version,
			&doc.Description,
			&doc.TotalChunks,
			&doc.Status,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *PostgresStore) GetChunks(ctx context.Context, docID string) ([]types.Chunk, error) {
	query := `
	SELECT id, document_id, section, parent_section, content, tags, chunk_type, language, version
	FROM chunks
	WHERE document_id = $1
	ORDER BY id
	`
	rows, err := p.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(
			&c.ID,
			&c.DocumentID,
			&c.Section,
			&c.ParentSection,
			&c.Content,
			&c.Tags,
			&c.ChunkType,
			&c.Language,
			&c.Version,
		); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes the document row; the FK cascade removes its
// chunks in the same statement.
func (p *PostgresStore) DeleteDocument(ctx context.Context, docID string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, opts types.SearchOptions) ([]types.SearchResult, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	limit := ClampLimit(opts.Limit)
	threshold := ClampThreshold(opts.Threshold)
	tags := opts.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
	SELECT c.id, d.name, c.section, c.parent_section, c.content, c.tags, c.chunk_type,
	       1 - (c.embedding <=> $1) AS similarity
	FROM chunks c
	JOIN documents d ON c.document_id = d.id
	WHERE d.status = 'active'
	  AND 1 - (c.embedding <=> $1) >= $2
	  AND (cardinality($3::text[]) = 0 OR c.tags && $3::text[])
	ORDER BY c.embedding <=> $1
	LIMIT $4
	`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(queryVec), threshold, tags, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		if err := rows.Scan(
			&r.ID,
			&r.Document,
			&r.Section,
			&r.ParentSection,
			&r.Content,
			&r.Tags,
			&r.ChunkType,
			&r.Similarity,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ClampLimit bounds a search limit to [1, MaxSearchLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// ClampThreshold bounds a similarity threshold to [MinThreshold, MaxThreshold].
func ClampThreshold(t float64) float64 {
	if t < MinThreshold {
		return MinThreshold
	}
	if t > MaxThreshold {
		return MaxThreshold
	}
	return t
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
