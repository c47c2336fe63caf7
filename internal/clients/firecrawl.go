package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultFirecrawlURL is the public Firecrawl API endpoint.
const DefaultFirecrawlURL = "https://api.firecrawl.dev"

// Firecrawl crawls websites and returns their main content as markdown.
// A crawl is asynchronous on the provider side: start returns a job id
// that is polled until the crawl completes.
type Firecrawl struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// NewFirecrawl creates a Firecrawl client.
func NewFirecrawl(apiKey string) *Firecrawl {
	return &Firecrawl{
		APIKey:       apiKey,
		BaseURL:      DefaultFirecrawlURL,
		HTTPClient:   http.DefaultClient,
		PollInterval: 2 * time.Second,
	}
}

type crawlStatus struct {
	Status string `json:"status"`
	Data   []struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Crawl fetches up to maxPages pages starting from url and returns their
// markdown joined with a page separator. An empty crawl is an error: the
// pipeline has nothing to index without content.
func (c *Firecrawl) Crawl(ctx context.Context, url string, maxPages int) (string, error) {
	var started struct {
		ID string `json:"id"`
	}
	err := postJSON(ctx, c.HTTPClient, "firecrawl",
		c.BaseURL+"/v1/crawl", bearer(c.APIKey),
		map[string]any{
			"url":   url,
			"limit": maxPages,
			"scrapeOptions": map[string]any{
				"onlyMainContent": true,
				"formats":         []string{"markdown"},
			},
		}, &started)
	if err != nil {
		return "", err
	}
	if started.ID == "" {
		return "", fmt.Errorf("firecrawl: crawl start returned no job id")
	}

	for {
		var status crawlStatus
		err := getJSON(ctx, c.HTTPClient, "firecrawl",
			c.BaseURL+"/v1/crawl/"+started.ID, bearer(c.APIKey), &status)
		if err != nil {
			return "", err
		}

		switch status.Status {
		case "completed":
			var pages []string
			for _, page := range status.Data {
				if page.Markdown != "" {
					pages = append(pages, page.Markdown)
				}
			}
			if len(pages) == 0 {
				return "", fmt.Errorf(
					"firecrawl: crawl of %s produced no content", url)
			}
			return strings.Join(pages, "\n\n---\n\n"), nil
		case "failed", "cancelled":
			return "", fmt.Errorf("firecrawl: crawl of %s %s", url, status.Status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}
