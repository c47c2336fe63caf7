package clients

import (
	"context"
	"net/http"
)

// Qdrant talks to a Qdrant server over its REST API.
type Qdrant struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewQdrant creates a Qdrant client for the given server URL.
func NewQdrant(baseURL, apiKey string) *Qdrant {
	return &Qdrant{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: http.DefaultClient,
	}
}

// Point is one vector with its payload, keyed by a UUID id.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// ScoredPoint is a search hit with its similarity score and payload.
type ScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (c *Qdrant) headers() map[string]string {
	if c.APIKey == "" {
		return nil
	}
	return map[string]string{"api-key": c.APIKey}
}

// CollectionExists reports whether the named collection is present.
func (c *Qdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	var out struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	err := getJSON(ctx, c.HTTPClient, "qdrant",
		c.BaseURL+"/collections/"+name+"/exists", c.headers(), &out)
	if err != nil {
		return false, err
	}
	return out.Result.Exists, nil
}

// EnsureCollection creates the named collection with cosine distance and
// the given vector size unless it already exists.
func (c *Qdrant) EnsureCollection(ctx context.Context, name string, size int) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": "Cosine",
		},
	}
	return putJSON(ctx, c.HTTPClient, "qdrant",
		c.BaseURL+"/collections/"+name, c.headers(), body, nil)
}

// Upsert writes points into the collection, waiting for the operation to
// be applied.
func (c *Qdrant) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	return putJSON(ctx, c.HTTPClient, "qdrant",
		c.BaseURL+"/collections/"+collection+"/points?wait=true",
		c.headers(), body, nil)
}

// Search returns the top-limit nearest points with payloads.
func (c *Qdrant) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var out struct {
		Result []ScoredPoint `json:"result"`
	}
	err := postJSON(ctx, c.HTTPClient, "qdrant",
		c.BaseURL+"/collections/"+collection+"/points/search",
		c.headers(), body, &out)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}
