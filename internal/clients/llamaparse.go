package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultLlamaParseURL is the public LlamaParse (LlamaCloud) endpoint.
const DefaultLlamaParseURL = "https://api.cloud.llamaindex.ai"

// LlamaParse extracts text from PDFs through the LlamaCloud parsing API:
// upload the file, poll the job, then fetch the text result.
type LlamaParse struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// NewLlamaParse creates a LlamaParse client.
func NewLlamaParse(apiKey string) *LlamaParse {
	return &LlamaParse{
		APIKey:       apiKey,
		BaseURL:      DefaultLlamaParseURL,
		HTTPClient:   http.DefaultClient,
		PollInterval: 2 * time.Second,
	}
}

// ExtractText parses the PDF at path and returns its plain text.
func (c *LlamaParse) ExtractText(ctx context.Context, path string) (string, error) {
	jobID, err := c.upload(ctx, path)
	if err != nil {
		return "", err
	}

	for {
		var job struct {
			Status string `json:"status"`
		}
		err := getJSON(ctx, c.HTTPClient, "llamaparse",
			c.BaseURL+"/api/parsing/job/"+jobID, bearer(c.APIKey), &job)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case "SUCCESS":
			var result struct {
				Text string `json:"text"`
			}
			err := getJSON(ctx, c.HTTPClient, "llamaparse",
				c.BaseURL+"/api/parsing/job/"+jobID+"/result/text",
				bearer(c.APIKey), &result)
			if err != nil {
				return "", err
			}
			return result.Text, nil
		case "ERROR", "CANCELED":
			return "", fmt.Errorf(
				"llamaparse: job %s finished with status %s", jobID, job.Status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

func (c *LlamaParse) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("llamaparse: open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("llamaparse: read pdf: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/parsing/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	var out struct {
		ID string `json:"id"`
	}
	if err := doJSON(c.HTTPClient, "llamaparse", req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("llamaparse: upload returned no job id")
	}
	return out.ID, nil
}
