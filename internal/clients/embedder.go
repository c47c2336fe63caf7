package clients

import (
	"context"
	"fmt"
	"net/http"
	"sort"
)

// DefaultOpenAIURL is the public OpenAI API endpoint.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// Embedder turns text chunks into vectors via the OpenAI embeddings API.
type Embedder struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewEmbedder creates an embeddings client for the given model.
func NewEmbedder(apiKey, model string) *Embedder {
	return &Embedder{
		APIKey:     apiKey,
		BaseURL:    DefaultOpenAIURL,
		Model:      model,
		HTTPClient: http.DefaultClient,
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (c *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out embeddingResponse
	err := postJSON(ctx, c.HTTPClient, "openai",
		c.BaseURL+"/embeddings", bearer(c.APIKey),
		embeddingRequest{Input: texts, Model: c.Model}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf(
			"openai: got %d embeddings for %d inputs",
			len(out.Data), len(texts))
	}

	// The API is documented to return entries indexed by input position.
	sort.Slice(out.Data, func(i, j int) bool {
		return out.Data[i].Index < out.Data[j].Index
	})
	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
