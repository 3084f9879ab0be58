package model

import (
	"context"
	"errors"
)

// InputType tells the provider whether texts are ingestion passages or a
// search query; the two are embedded differently.
type InputType string

const (
	InputDocument InputType = "document"
	InputQuery    InputType = "query"
)

// ErrNotConfigured is returned before any network call when no valid
// provider credential is present.
var ErrNotConfigured = errors.New("voyage api key is missing or invalid, check VOYAGE_API_KEY")

// Embedder converts texts into fixed-dimension vectors. Output has the same
// length and order as the input. Implementations do not retry or batch;
// that belongs to the caller.
type Embedder interface {
	Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error)
}
