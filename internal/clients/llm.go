package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// DefaultOpenRouterURL is the public OpenRouter API endpoint.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// ErrInvalidModel signals that the requested model is not available on
// the provider. Handlers translate it into a client error rather than a
// pipeline failure.
var ErrInvalidModel = errors.New("invalid model specified")

// Message is one chat turn sent to a completion model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLM calls OpenRouter-compatible chat completion endpoints.
type LLM struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewLLM creates an OpenRouter chat client with the given default model.
func NewLLM(apiKey, model string) *LLM {
	return &LLM{
		APIKey:     apiKey,
		BaseURL:    DefaultOpenRouterURL,
		Model:      model,
		HTTPClient: http.DefaultClient,
	}
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete runs a chat completion. An empty model falls back to the
// client's default; the model is validated against ListModels first, so
// a bad override surfaces as ErrInvalidModel instead of a provider 400.
func (c *LLM) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if model == "" {
		model = c.Model
	}
	if err := c.validateModel(ctx, model); err != nil {
		return "", err
	}

	var out completionResponse
	err := postJSON(ctx, c.HTTPClient, "openrouter",
		c.BaseURL+"/chat/completions", bearer(c.APIKey),
		completionRequest{Model: model, Messages: messages}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openrouter: completion returned no content")
	}
	return out.Choices[0].Message.Content, nil
}

// ListModels returns the ids of the models available on the provider.
func (c *LLM) ListModels(ctx context.Context) ([]string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := getJSON(ctx, c.HTTPClient, "openrouter",
		c.BaseURL+"/models", bearer(c.APIKey), &out)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(out.Data))
	for i, m := range out.Data {
		ids[i] = m.ID
	}
	return ids, nil
}

func (c *LLM) validateModel(ctx context.Context, model string) error {
	ids, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == model {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidModel, model)
}
