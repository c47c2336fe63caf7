package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
)

func TestParseFAQs_PlainArray(t *testing.T) {
	faqs, err := parseFAQs(`[
		{"question": "What is it?", "answer": "A thing."},
		{"question": "Why?", "answer": "Because."}
	]`)
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, "What is it?", faqs[0].Question)
	assert.Equal(t, "Because.", faqs[1].Answer)
}

func TestParseFAQs_CodeFencedWithProse(t *testing.T) {
	raw := "Here are the FAQs you asked for:\n```json\n" +
		`[{"question": "Q1?", "answer": "A1."}]` +
		"\n```\nLet me know if you need more."
	faqs, err := parseFAQs(raw)
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	assert.Equal(t, "Q1?", faqs[0].Question)
}

func TestParseFAQs_NotAnArray(t *testing.T) {
	_, err := parseFAQs(`{"question": "Q?", "answer": "A."}`)
	require.Error(t, err)
}

func TestParseFAQs_MissingKeys(t *testing.T) {
	_, err := parseFAQs(`[{"question": "Q?"}]`)
	require.Error(t, err)
}

func TestParseFAQs_Empty(t *testing.T) {
	_, err := parseFAQs(`[]`)
	require.Error(t, err)
}

func TestCombineFAQs(t *testing.T) {
	out := CombineFAQs([]session.FAQ{
		{Question: "Q1?", Answer: "A1."},
		{Question: "Q2?", Answer: "A2."},
	})
	assert.Equal(t,
		"Question: Q1?\nAnswer: A1.\n\nQuestion: Q2?\nAnswer: A2.", out)
}

func TestDocumentRoundTrip(t *testing.T) {
	encoded, err := EncodeDocument(Document{
		Source:  "https://example.com",
		Content: "page text",
	})
	require.NoError(t, err)

	doc, err := DecodeDocument(encoded)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", doc.Source)
	assert.Equal(t, "page text", doc.Content)
}

func TestDecodeDocument_MissingSource(t *testing.T) {
	doc, err := DecodeDocument("content: some text\n")
	require.NoError(t, err)
	assert.Equal(t, "unknown", doc.Source)
}
