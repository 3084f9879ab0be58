package service

import (
	"context"
	"errors"
	"fmt"

	"rag/model"
	"rag/types"
)

// BatchExhaustedError means one embedding batch hit the provider's rate
// limit on every attempt. It is fatal for the whole ingestion run.
type BatchExhaustedError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *BatchExhaustedError) Error() string {
	return fmt.Sprintf("embedding batch %d failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *BatchExhaustedError) Unwrap() error {
	return e.Err
}

// embedChunks runs the batch embedding pipeline: batches of batchSize,
// a fixed delay between successful batches (none after the last), and up to
// maxRetries attempts per batch when the provider signals rate limiting.
// Any other failure aborts immediately. Output preserves input order.
func (s *Service) embedChunks(ctx context.Context, chunks []types.Chunk) ([]types.Chunk, error) {
	embedded := make([]types.Chunk, 0, len(chunks))

	for i := 0; i < len(chunks); i += s.batchSize {
		end := i + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]
		batchNum := i / s.batchSize

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		retries := 0
		success := false
		var lastErr error

		for !success && retries < s.maxRetries {
			vectors, err := s.embedder.Embed(ctx, texts, model.InputDocument)
			if err != nil {
				var provErr *model.ProviderError
				if errors.As(err, &provErr) && provErr.RateLimited() {
					retries++
					lastErr = err
					s.logger.Warn("rate limit hit, backing off",
						"batch", batchNum, "attempt", retries, "delay", s.rateLimitDelay)
					s.sleep(s.rateLimitDelay)
					continue
				}
				return nil, fmt.Errorf("embed batch %d: %w", batchNum, err)
			}

			for j := range batch {
				c := batch[j]
				c.Embedding = vectors[j]
				embedded = append(embedded, c)
			}
			success = true

			s.logger.Info("batch embedded", "done", end, "total", len(chunks))

			// Keep the provider's throughput quota between batches.
			if end < len(chunks) {
				s.sleep(s.rateLimitDelay)
			}
		}

		if !success {
			return nil, &BatchExhaustedError{Batch: batchNum, Attempts: retries, Err: lastErr}
		}
	}

	return embedded, nil
}
