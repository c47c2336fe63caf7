package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/clients"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// searchLimit is the number of hits fetched per collection when
// answering a question.
const searchLimit = 3

// Retrieval outcomes the chat node routes on.
var (
	// ErrNoCollections means the session has nothing indexed yet.
	ErrNoCollections = errors.New("no active collections for session")
	// ErrNoContext means the indexed content held nothing relevant.
	ErrNoContext = errors.New("no relevant context found")
)

// Vendor collaborator contracts. The concrete clients in
// internal/clients satisfy them; tests substitute fakes.
type (
	Completer interface {
		Complete(ctx context.Context, messages []clients.Message, model string) (string, error)
	}

	TextEmbedder interface {
		Embed(ctx context.Context, texts []string) ([][]float32, error)
	}

	VectorStore interface {
		EnsureCollection(ctx context.Context, name string, size int) error
		CollectionExists(ctx context.Context, name string) (bool, error)
		Upsert(ctx context.Context, collection string, points []clients.Point) error
		Search(ctx context.Context, collection string, vector []float32, limit int) ([]clients.ScoredPoint, error)
	}

	Crawler interface {
		Crawl(ctx context.Context, url string, maxPages int) (string, error)
	}

	PDFExtractor interface {
		ExtractText(ctx context.Context, path string) (string, error)
	}

	WebSearcher interface {
		Search(ctx context.Context, query string) (string, error)
	}
)

// Resource attributes part of an answer to the chunk it came from.
type Resource struct {
	Source  string `json:"source"`
	Snippet string `json:"text_snippet"`
}

// Pipeline bundles the collaborators the workflow nodes share.
type Pipeline struct {
	LLM       Completer
	Embedder  TextEmbedder
	Vectors   VectorStore
	Crawler   Crawler
	Extractor PDFExtractor
	Web       WebSearcher
	Sessions  session.Store
	Splitter  *Splitter

	EmbeddingDim  int
	MaxCrawlPages int
	NumFAQs       int

	// Retry overrides the vendor retry policy when MaxAttempts is
	// positive.
	Retry flow.RetryPolicy

	Logger *slog.Logger
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// acquire fetches raw content for an input, crawl for websites, parse
// for PDFs, and returns it as an encoded document envelope carrying the
// input value as its source.
func (p *Pipeline) acquire(ctx context.Context, inputType, inputValue string) (string, error) {
	switch inputType {
	case InputWebsite:
		content, err := p.Crawler.Crawl(ctx, inputValue, p.MaxCrawlPages)
		if err != nil {
			return "", fmt.Errorf("crawl %s: %w", inputValue, err)
		}
		return EncodeDocument(Document{Source: inputValue, Content: content})
	case InputPDF:
		text, err := p.Extractor.ExtractText(ctx, inputValue)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", inputValue, err)
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("extract %s: pdf produced no text", inputValue)
		}
		return EncodeDocument(Document{Source: inputValue, Content: text})
	default:
		return "", fmt.Errorf("unsupported input type %q", inputType)
	}
}

// embedAndStore decodes the document envelope, chunks its content,
// embeds every chunk, and upserts the vectors into the session's
// collection for the source. It returns the collection name and the
// chunk texts that were stored.
func (p *Pipeline) embedAndStore(ctx context.Context, envelope, inputType, sessionID, source string) (string, []string, error) {
	doc, err := DecodeDocument(envelope)
	if err != nil {
		return "", nil, err
	}
	chunks := p.Splitter.Split(doc.Content)
	if len(chunks) == 0 {
		return "", nil, fmt.Errorf("document %s: no content to embed", doc.Source)
	}
	p.log().Info("split content into chunks",
		"source", doc.Source, "chunks", len(chunks))

	vectors, err := p.Embedder.Embed(ctx, chunks)
	if err != nil {
		return "", nil, fmt.Errorf("embed chunks: %w", err)
	}

	collection := CollectionName(inputType, source, sessionID)
	if err := p.Vectors.EnsureCollection(ctx, collection, p.EmbeddingDim); err != nil {
		return "", nil, fmt.Errorf("ensure collection %s: %w", collection, err)
	}

	points := make([]clients.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = clients.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"text":        chunk,
				"source":      doc.Source,
				"type":        inputType,
				"session_id":  sessionID,
				"chunk_index": i,
			},
		}
	}
	if err := p.Vectors.Upsert(ctx, collection, points); err != nil {
		return "", nil, fmt.Errorf("upsert into %s: %w", collection, err)
	}

	p.log().Info("stored embedded chunks",
		"collection", collection, "points", len(points))
	return collection, chunks, nil
}

// Query answers a question from the session's indexed content. It
// embeds the question, searches every active collection, and asks the
// LLM to answer from the highest-scoring chunks. ErrNoCollections and
// ErrNoContext report the two empty-retrieval cases.
func (p *Pipeline) Query(ctx context.Context, sessionID, query string) (string, []Resource, error) {
	vectors, err := p.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", nil, fmt.Errorf("embed query: %w", err)
	}

	sess, err := p.Sessions.Get(ctx, sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if len(sess.ActiveCollections) == 0 {
		return "", nil, ErrNoCollections
	}

	var hits []clients.ScoredPoint
	for _, collection := range sess.ActiveCollections {
		exists, err := p.Vectors.CollectionExists(ctx, collection)
		if err != nil {
			return "", nil, fmt.Errorf("check collection %s: %w", collection, err)
		}
		if !exists {
			p.log().Warn("active collection missing, skipping",
				"collection", collection, "session_id", sessionID)
			continue
		}
		found, err := p.Vectors.Search(ctx, collection, vectors[0], searchLimit)
		if err != nil {
			return "", nil, fmt.Errorf("search %s: %w", collection, err)
		}
		hits = append(hits, found...)
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	var contextChunks []string
	var resources []Resource
	for _, hit := range hits {
		text, ok := hit.Payload["text"].(string)
		if !ok || text == "" {
			continue
		}
		contextChunks = append(contextChunks, text)
		source, _ := hit.Payload["source"].(string)
		if source == "" {
			source = "unknown"
		}
		resources = append(resources, Resource{Source: source, Snippet: text})
	}
	if len(contextChunks) == 0 {
		return "", nil, ErrNoContext
	}

	prompt := fmt.Sprintf(
		"Based on the following context, answer the question:\n\nContext:\n%s\n\nQuestion: %s\nAnswer:",
		strings.Join(contextChunks, "\n"), query)
	answer, err := p.LLM.Complete(ctx,
		[]clients.Message{{Role: "user", Content: prompt}}, "")
	if err != nil {
		return "", nil, fmt.Errorf("answer query: %w", err)
	}
	return answer, resources, nil
}
