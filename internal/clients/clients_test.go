package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLM_Complete(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"id": "gpt-4o-mini"}, {"id": "other"}},
			})
		case "/chat/completions":
			var req completionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotModel = req.Model
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"role": "assistant", "content": "hi there"}},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	llm := NewLLM("test-key", "gpt-4o-mini")
	llm.BaseURL = srv.URL

	answer, err := llm.Complete(context.Background(),
		[]Message{{Role: "user", Content: "hello"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "hi there", answer)
	assert.Equal(t, "gpt-4o-mini", gotModel)
}

func TestLLM_InvalidModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "gpt-4o-mini"}},
		})
	}))
	defer srv.Close()

	llm := NewLLM("test-key", "gpt-4o-mini")
	llm.BaseURL = srv.URL

	_, err := llm.Complete(context.Background(),
		[]Message{{Role: "user", Content: "hello"}}, "made-up-model")
	require.ErrorIs(t, err, ErrInvalidModel)
}

func TestEmbedder_OrderByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Respond out of order; the client must sort by index.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.2}},
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer srv.Close()

	e := NewEmbedder("test-key", "text-embedding-3-small")
	e.BaseURL = srv.URL

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1}, vecs[0])
	assert.Equal(t, []float32{0.2}, vecs[1])
}

func TestEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{0.1}}},
		})
	}))
	defer srv.Close()

	e := NewEmbedder("test-key", "text-embedding-3-small")
	e.BaseURL = srv.URL

	_, err := e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestQdrant_EnsureCollectionCreatesMissing(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/docs/exists":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]bool{"exists": false},
			})
		case r.URL.Path == "/collections/docs" && r.Method == http.MethodPut:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]any)
			assert.Equal(t, "Cosine", vectors["distance"])
			assert.EqualValues(t, 1536, vectors["size"])
			created = true
			_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
		default:
			t.Fatalf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	q := NewQdrant(srv.URL, "")
	require.NoError(t, q.EnsureCollection(context.Background(), "docs", 1536))
	assert.True(t, created)
}

func TestQdrant_EnsureCollectionSkipsExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/docs/exists", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]bool{"exists": true},
		})
	}))
	defer srv.Close()

	q := NewQdrant(srv.URL, "")
	require.NoError(t, q.EnsureCollection(context.Background(), "docs", 1536))
}

func TestQdrant_UpsertAndSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/docs/points":
			assert.Equal(t, "true", r.URL.Query().Get("wait"))
			assert.Equal(t, "secret", r.Header.Get("api-key"))
			_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
		case "/collections/docs/points/search":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{"id": "p1", "score": 0.9, "payload": map[string]any{"text": "hit"}},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	q := NewQdrant(srv.URL, "secret")
	ctx := context.Background()

	err := q.Upsert(ctx, "docs", []Point{
		{ID: "p1", Vector: []float32{0.1}, Payload: map[string]any{"text": "hit"}},
	})
	require.NoError(t, err)

	hits, err := q.Search(ctx, "docs", []float32{0.1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "hit", hits[0].Payload["text"])
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)
}

func TestFirecrawl_CrawlPollsUntilComplete(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/crawl":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "job-1"})
		case "/v1/crawl/job-1":
			polls++
			if polls < 2 {
				_ = json.NewEncoder(w).Encode(map[string]any{"status": "scraping"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "completed",
				"data": []map[string]string{
					{"markdown": "# Page one"},
					{"markdown": "# Page two"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	fc := NewFirecrawl("test-key")
	fc.BaseURL = srv.URL
	fc.PollInterval = time.Millisecond

	content, err := fc.Crawl(context.Background(), "https://example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, "# Page one\n\n---\n\n# Page two", content)
	assert.Equal(t, 2, polls)
}

func TestFirecrawl_EmptyCrawlIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/crawl":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "job-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "completed",
				"data":   []map[string]string{},
			})
		}
	}))
	defer srv.Close()

	fc := NewFirecrawl("test-key")
	fc.BaseURL = srv.URL
	fc.PollInterval = time.Millisecond

	_, err := fc.Crawl(context.Background(), "https://example.com", 5)
	require.Error(t, err)
}

func TestLlamaParse_ExtractText(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 fake"), 0o600))

	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/parsing/upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "doc.pdf", header.Filename)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "job-9"})
		case "/api/parsing/job/job-9":
			polls++
			status := "PENDING"
			if polls >= 2 {
				status = "SUCCESS"
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
		case "/api/parsing/job/job-9/result/text":
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "extracted text"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	lp := NewLlamaParse("test-key")
	lp.BaseURL = srv.URL
	lp.PollInterval = time.Millisecond

	text, err := lp.ExtractText(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "extracted text", text)
}

func TestWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "perplexity/sonar-reasoning-pro", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "latest AI news")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "summary"}},
			},
		})
	}))
	defer srv.Close()

	ws := NewWebSearch("test-key", "perplexity/sonar-reasoning-pro")
	ws.BaseURL = srv.URL

	out, err := ws.Search(context.Background(), "latest AI news")
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
}

func TestAPIErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewEmbedder("test-key", "text-embedding-3-small")
	e.BaseURL = srv.URL

	_, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}
