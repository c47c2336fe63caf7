// Package clients holds the thin HTTP clients for the vendors the
// pipeline talks to: OpenRouter for chat and web search, OpenAI for
// embeddings, Qdrant for vector storage, Firecrawl for crawling, and
// LlamaParse for PDF extraction. Every client takes an injectable base
// URL and *http.Client so tests can point it at an httptest server.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// apiError is the non-2xx outcome of a vendor call.
type apiError struct {
	Service string
	Status  int
	Body    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s",
		e.Service, e.Status, e.Body)
}

// postJSON sends a JSON body and decodes a JSON response. headers are
// applied on top of Content-Type. Non-2xx statuses become an apiError
// carrying a truncated body.
func postJSON(ctx context.Context, hc *http.Client, service, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(hc, service, req, out)
}

// putJSON is postJSON with the PUT method.
func putJSON(ctx context.Context, hc *http.Client, service, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(hc, service, req, out)
}

// getJSON fetches a URL and decodes a JSON response.
func getJSON(ctx context.Context, hc *http.Client, service, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(hc, service, req, out)
}

func doJSON(hc *http.Client, service string, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{
			Service: service,
			Status:  resp.StatusCode,
			Body:    truncate(string(data), 512),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func bearer(key string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + key}
}
