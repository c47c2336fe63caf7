package clients

import (
	"context"
	"fmt"
	"net/http"
)

// WebSearch answers queries with a search-tuned OpenRouter model. The
// model does the searching; this client just phrases the request.
type WebSearch struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewWebSearch creates a web search client backed by the given
// search-tuned model.
func NewWebSearch(apiKey, model string) *WebSearch {
	return &WebSearch{
		APIKey:     apiKey,
		BaseURL:    DefaultOpenRouterURL,
		Model:      model,
		HTTPClient: http.DefaultClient,
	}
}

// Search returns a summary of web results for the query.
func (c *WebSearch) Search(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(
		"Perform a web search for the following query and summarize the key findings:\n\nQuery: %s\n",
		query)

	var out completionResponse
	err := postJSON(ctx, c.HTTPClient, "openrouter",
		c.BaseURL+"/chat/completions", bearer(c.APIKey),
		completionRequest{
			Model:    c.Model,
			Messages: []Message{{Role: "user", Content: prompt}},
		}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter: web search returned no content")
	}
	return out.Choices[0].Message.Content, nil
}
