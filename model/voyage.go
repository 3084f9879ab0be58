package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultVoyageURL = "https://api.voyageai.com/v1/embeddings"

// VoyageClient creates embeddings through the Voyage AI REST API.
type VoyageClient struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type voyageError struct {
	Detail string `json:"detail"`
}

// ProviderError is a non-success response from the embedding provider,
// carrying the provider's error detail when it sent one.
type ProviderError struct {
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("voyage api error: %s", e.Detail)
}

// RateLimited reports whether the provider rejected the call for exceeding
// its request-rate quota. Only these failures are worth retrying.
func (e *ProviderError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(e.Detail, "rate limit") ||
		strings.Contains(e.Detail, "RPM")
}

// NewVoyageClient builds a client from VOYAGE_API_KEY, VOYAGE_MODEL and
// VOYAGE_API_URL. Credential validity is checked on each Embed call, not
// here, so a client can be constructed in an unconfigured environment.
func NewVoyageClient() *VoyageClient {
	apiURL := os.Getenv("VOYAGE_API_URL")
	if apiURL == "" {
		apiURL = defaultVoyageURL
	}
	model := os.Getenv("VOYAGE_MODEL")
	if model == "" {
		model = "voyage-3"
	}
	return &VoyageClient{
		apiURL: apiURL,
		apiKey: os.Getenv("VOYAGE_API_KEY"),
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether a plausible API key is present. Voyage keys
// start with "pa-"; placeholder values from .env templates are rejected.
func (c *VoyageClient) Configured() bool {
	return c.apiKey != "" &&
		!strings.Contains(c.apiKey, "your_") &&
		!strings.Contains(c.apiKey, "your-") &&
		strings.HasPrefix(c.apiKey, "pa-")
}

// Embed converts texts into vectors, one per input, in input order.
func (c *VoyageClient) Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(voyageRequest{
		Input:     texts,
		Model:     c.model,
		InputType: string(input),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := resp.Status
		var apiErr voyageError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
			detail = apiErr.Detail
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var out voyageResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("voyage returned %d embeddings for %d texts", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(out.Data))
	for i, item := range out.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}
