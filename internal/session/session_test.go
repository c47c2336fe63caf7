package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New("web_url", "https://example.com")
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "web_url", s.InputType)
	assert.Equal(t, "https://example.com", s.InputValue)
	assert.Equal(t, StatusProcessing, s.Status)
	assert.False(t, s.ContextReady)
	assert.Empty(t, s.ActiveCollections)

	// Ids must be unique per session.
	assert.NotEqual(t, s.ID, New("web_url", "x").ID)
}

func TestUpdate_PartialFieldsOnly(t *testing.T) {
	s := New("pdf_file", "doc.pdf")
	Update{Status: Stat(StatusReady), Message: Str("done")}.apply(s)

	assert.Equal(t, StatusReady, s.Status)
	assert.Equal(t, "done", s.Message)
	// Untouched fields survive.
	assert.Equal(t, "pdf_file", s.InputType)
	assert.Equal(t, "doc.pdf", s.InputValue)
}

func TestUpdate_ActiveCollectionsMergeAsSet(t *testing.T) {
	s := New("web_url", "https://example.com")
	Update{ActiveCollections: []string{"web-a", "web-b"}}.apply(s)
	Update{ActiveCollections: []string{"web-b", "pdf-c"}}.apply(s)

	assert.Equal(t, []string{"web-a", "web-b", "pdf-c"}, s.ActiveCollections)
}

func TestUpdate_ChatHistoryReplaces(t *testing.T) {
	s := New("web_url", "https://example.com")
	Update{ChatHistory: []ChatMessage{{Role: "user", Content: "hi"}}}.apply(s)
	Update{ChatHistory: []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}}.apply(s)

	require.Len(t, s.ChatHistory, 2)
	assert.Equal(t, "assistant", s.ChatHistory[1].Role)
}
