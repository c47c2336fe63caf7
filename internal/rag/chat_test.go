package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/clients"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// readySession seeds the store with a session that has an indexed
// collection registered in the fake vector store.
func readySession(t *testing.T, store *session.MemoryStore, vectors *fakeVectors) (*session.Session, string) {
	t.Helper()
	s := session.New(InputWebsite, "https://example.com")
	collection := CollectionName(InputWebsite, "https://example.com", s.ID)
	s.Status = session.StatusReady
	s.ContextReady = true
	s.ActiveCollections = []string{collection}
	require.NoError(t, store.Create(context.Background(), s))
	vectors.collections[collection] = 4
	return s, collection
}

func chatShared(sessionID, query string) flow.Shared {
	return flow.Shared{
		KeySessionID: sessionID,
		KeyUserQuery: query,
	}
}

func TestChat_AnswersFromIndexedContext(t *testing.T) {
	p, llm, vectors, store := newTestPipeline()
	ctx := context.Background()

	s, collection := readySession(t, store, vectors)
	vectors.hits[collection] = []clients.ScoredPoint{
		{ID: "1", Score: 0.9, Payload: map[string]any{
			"text": "The capital is Paris.", "source": "https://example.com",
		}},
	}
	llm.Answer = "Paris."

	shared := chatShared(s.ID, "What is the capital?")
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionDefault, action)
	assert.Equal(t, "Paris.", shared.String(KeyAnswer))

	resources, ok := shared[KeyResources].([]Resource)
	require.True(t, ok)
	require.Len(t, resources, 1)
	assert.Equal(t, "https://example.com", resources[0].Source)
	assert.Equal(t, "The capital is Paris.", resources[0].Snippet)

	// History carries the user question and the assistant answer.
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.ChatHistory, 2)
	assert.Equal(t, "user", got.ChatHistory[0].Role)
	assert.Equal(t, "What is the capital?", got.ChatHistory[0].Content)
	assert.Equal(t, "assistant", got.ChatHistory[1].Role)
	assert.Equal(t, "Paris.", got.ChatHistory[1].Content)
}

func TestChat_NoCollectionsGetsCannedAnswer(t *testing.T) {
	p, _, _, store := newTestPipeline()
	ctx := context.Background()

	s := session.New(InputWebsite, "https://example.com")
	s.ContextReady = true
	require.NoError(t, store.Create(ctx, s))

	shared := chatShared(s.ID, "anything indexed?")
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionDefault, action)
	assert.Contains(t, shared.String(KeyAnswer),
		"I don't have any documents to search for this session.")
}

func TestChat_EmptyRetrievalFallsBackToWebSearch(t *testing.T) {
	p, _, vectors, store := newTestPipeline()
	web := &fakeWeb{results: "fresh web findings"}
	p.Web = web
	ctx := context.Background()

	// Collection exists but serves no hits.
	s, _ := readySession(t, store, vectors)

	shared := chatShared(s.ID, "something not indexed")
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionDefault, action)
	assert.Equal(t, 1, web.calls)
	assert.Equal(t, "(Web Search Result) fresh web findings",
		shared.String(KeyAnswer))

	resources, ok := shared[KeyResources].([]Resource)
	require.True(t, ok)
	require.Len(t, resources, 1)
	assert.Equal(t, "web_search", resources[0].Source)
}

func TestChat_CannotAnswerTriggersWebSearch(t *testing.T) {
	p, llm, vectors, store := newTestPipeline()
	web := &fakeWeb{results: "found it on the web"}
	p.Web = web
	ctx := context.Background()

	s, collection := readySession(t, store, vectors)
	vectors.hits[collection] = []clients.ScoredPoint{
		{ID: "1", Score: 0.4, Payload: map[string]any{
			"text": "unrelated text", "source": "https://example.com",
		}},
	}
	llm.Answer = "I cannot answer that from the given context."

	shared := chatShared(s.ID, "off-topic question")
	_, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, 1, web.calls)
	assert.Equal(t, "(Web Search Result) found it on the web",
		shared.String(KeyAnswer))
}

func TestChat_NoRelevantContextTriggersWebSearch(t *testing.T) {
	p, llm, vectors, store := newTestPipeline()
	web := &fakeWeb{results: "found it on the web"}
	p.Web = web
	ctx := context.Background()

	s, collection := readySession(t, store, vectors)
	vectors.hits[collection] = []clients.ScoredPoint{
		{ID: "1", Score: 0.4, Payload: map[string]any{
			"text": "unrelated text", "source": "https://example.com",
		}},
	}
	llm.Answer = "There is no relevant context for this question."

	shared := chatShared(s.ID, "off-topic question")
	_, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, 1, web.calls)
	assert.Equal(t, "(Web Search Result) found it on the web",
		shared.String(KeyAnswer))
}

func TestChat_WebSearchFailureFallsBackToPlainLLM(t *testing.T) {
	p, llm, vectors, store := newTestPipeline()
	p.Web = &fakeWeb{err: errVendorDown}
	llm.Answer = "best effort answer"
	ctx := context.Background()

	s, _ := readySession(t, store, vectors)

	shared := chatShared(s.ID, "something not indexed")
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionDefault, action)
	assert.Equal(t, "best effort answer", shared.String(KeyAnswer))
}

func TestChat_ContextlessSession(t *testing.T) {
	p, llm, _, store := newTestPipeline()
	llm.Answer = "plain chat answer"
	ctx := context.Background()

	s := session.New(InputNone, "")
	s.Status = session.StatusReady
	require.NoError(t, store.Create(ctx, s))

	shared := chatShared(s.ID, "hello there")
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionDefault, action)
	assert.Equal(t, "plain chat answer", shared.String(KeyAnswer))

	// The question went to the LLM as conversation history.
	require.NotEmpty(t, llm.calls)
	last := llm.calls[len(llm.calls)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "hello there", last[0].Content)
}

func TestChat_UnknownSessionChatsWithoutContext(t *testing.T) {
	p, llm, _, _ := newTestPipeline()
	llm.Answer = "no session, still chatting"
	ctx := context.Background()

	shared := chatShared("missing-session", "hello?")
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionDefault, action)
	assert.Equal(t, "no session, still chatting", shared.String(KeyAnswer))
}

func TestChat_InvalidModel(t *testing.T) {
	p, _, vectors, store := newTestPipeline()
	ctx := context.Background()

	s, _ := readySession(t, store, vectors)

	shared := chatShared(s.ID, "a question")
	shared[KeyModel] = "bad-model"
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, ActionInvalidModel, action)
	assert.Contains(t, shared.String(KeyAnswer),
		"Invalid model specified: bad-model")
}

func TestChat_EmptyQueryExits(t *testing.T) {
	p, llm, _, _ := newTestPipeline()
	ctx := context.Background()

	shared := flow.Shared{KeySessionID: "irrelevant"}
	action, err := NewChatNode(p).Run(ctx, shared)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionExit, action)
	assert.Empty(t, llm.calls)
}

func TestChat_ExitKeywordExits(t *testing.T) {
	p, _, _, store := newTestPipeline()
	ctx := context.Background()

	s := session.New(InputNone, "")
	require.NoError(t, store.Create(ctx, s))

	action, err := NewChatNode(p).Run(ctx, chatShared(s.ID, "Exit"))
	require.NoError(t, err)
	assert.Equal(t, flow.ActionExit, action)
}
