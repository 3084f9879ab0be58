package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *VoyageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("VOYAGE_API_URL", srv.URL)
	t.Setenv("VOYAGE_API_KEY", "pa-test-key")
	t.Setenv("VOYAGE_MODEL", "voyage-3")
	return NewVoyageClient()
}

func TestEmbedOrderPreserved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req voyageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bearer pa-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "document", req.InputType)

		resp := voyageResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{float32(i), 1}})
		}
		json.NewEncoder(w).Encode(resp)
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"}, InputDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestEmbedNotConfigured(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	// Placeholder keys from .env templates do not count as configured.
	t.Setenv("VOYAGE_API_KEY", "your_api_key_here")
	client = NewVoyageClient()

	_, err := client.Embed(context.Background(), []string{"a"}, InputQuery)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, called)
}

func TestEmbedProviderErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(voyageError{Detail: "input too long"})
	})

	_, err := client.Embed(context.Background(), []string{"a"}, InputDocument)
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusBadRequest, provErr.StatusCode)
	assert.Contains(t, provErr.Error(), "input too long")
	assert.False(t, provErr.RateLimited())
}

func TestEmbedRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(voyageError{Detail: "rate limit exceeded, 3 RPM allowed"})
	})

	_, err := client.Embed(context.Background(), []string{"a"}, InputDocument)
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.RateLimited())
}

func TestRateLimitedByDetail(t *testing.T) {
	// Some providers signal quota exhaustion with a 400 and a message.
	err := &ProviderError{StatusCode: http.StatusBadRequest, Detail: "you exceeded your RPM quota"}
	assert.True(t, err.RateLimited())

	err = &ProviderError{StatusCode: http.StatusInternalServerError, Detail: "boom"}
	assert.False(t, err.RateLimited())
}

func TestEmbedCountMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(voyageResponse{})
	})

	_, err := client.Embed(context.Background(), []string{"a", "b"}, InputDocument)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConfigured))
}
