package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/clients"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// fakeLLM scripts chat completions. Completions return Answer unless a
// CompleteFn is set; model "bad-model" is always rejected.
type fakeLLM struct {
	mu         sync.Mutex
	Answer     string
	CompleteFn func(messages []clients.Message, model string) (string, error)
	calls      [][]clients.Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []clients.Message, model string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()

	if model == "bad-model" {
		return "", fmt.Errorf("%w: %s", clients.ErrInvalidModel, model)
	}
	if f.CompleteFn != nil {
		return f.CompleteFn(messages, model)
	}
	return f.Answer, nil
}

type fakeEmbedder struct {
	mu     sync.Mutex
	err    error
	inputs [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, texts)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

// fakeVectors keeps upserted points in memory and serves scripted
// search hits per collection.
type fakeVectors struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string][]clients.Point
	hits        map[string][]clients.ScoredPoint
	upsertErr   error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{
		collections: map[string]int{},
		points:      map[string][]clients.Point{},
		hits:        map[string][]clients.ScoredPoint{},
	}
}

func (f *fakeVectors) EnsureCollection(ctx context.Context, name string, size int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[name] = size
	return nil
}

func (f *fakeVectors) CollectionExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeVectors) Upsert(ctx context.Context, collection string, points []clients.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points[collection] = append(f.points[collection], points...)
	return nil
}

func (f *fakeVectors) Search(ctx context.Context, collection string, vector []float32, limit int) ([]clients.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[collection], nil
}

type fakeCrawler struct {
	content string
	err     error
	calls   int
}

func (f *fakeCrawler) Crawl(ctx context.Context, url string, maxPages int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeWeb struct {
	results string
	err     error
	calls   int
}

func (f *fakeWeb) Search(ctx context.Context, query string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.results, nil
}

var errVendorDown = errors.New("vendor unavailable")

// newTestPipeline wires a pipeline over fakes and a fresh memory store.
func newTestPipeline() (*Pipeline, *fakeLLM, *fakeVectors, *session.MemoryStore) {
	llm := &fakeLLM{Answer: "fake answer"}
	vectors := newFakeVectors()
	store := session.NewMemoryStore()
	p := &Pipeline{
		LLM:           llm,
		Embedder:      &fakeEmbedder{},
		Vectors:       vectors,
		Crawler:       &fakeCrawler{content: "crawled page content."},
		Extractor:     &fakeExtractor{text: "extracted pdf text."},
		Web:           &fakeWeb{results: "web findings"},
		Sessions:      store,
		Splitter:      NewSplitter(600, 128),
		EmbeddingDim:  4,
		MaxCrawlPages: 1,
		NumFAQs:       2,
		Retry:         flow.Retry(3).Immediate().Policy(),
	}
	return p, llm, vectors, store
}
