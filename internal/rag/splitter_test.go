package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitter_ShortTextIsSingleChunk(t *testing.T) {
	sp := NewSplitter(600, 128)
	chunks := sp.Split("One short sentence.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "One short sentence.", chunks[0])
}

func TestSplitter_EmptyText(t *testing.T) {
	sp := NewSplitter(600, 128)
	assert.Nil(t, sp.Split(""))
	assert.Nil(t, sp.Split("   \n  "))
}

func TestSplitter_BreaksOnSentenceBoundaries(t *testing.T) {
	sp := NewSplitter(80, 0)
	text := "First sentence is here. Second sentence follows it. " +
		"Third sentence arrives. Fourth sentence closes."

	chunks := sp.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 80, "chunk too long: %q", chunk)
		// Chunks end at sentence boundaries.
		assert.True(t, strings.HasSuffix(chunk, "."), "chunk %q", chunk)
	}
}

func TestSplitter_OverlapCarriesTrailingContext(t *testing.T) {
	sp := NewSplitter(60, 30)
	text := "Alpha statement one. Beta statement two. Gamma statement three. " +
		"Delta statement four. Epsilon statement five."

	chunks := sp.Split(text)
	require.Greater(t, len(chunks), 1)

	// Each later chunk starts with a sentence from the previous chunk.
	for i := 1; i < len(chunks); i++ {
		first, _, _ := strings.Cut(chunks[i], ".")
		assert.Contains(t, chunks[i-1], first,
			"chunk %d does not overlap its predecessor", i)
	}
}

func TestSplitter_OversizedSentenceKeptWhole(t *testing.T) {
	sp := NewSplitter(20, 0)
	long := "this sentence is far longer than the chunk size limit."
	chunks := sp.Split(long + " Short one.")

	require.NotEmpty(t, chunks)
	// The oversized sentence stays intact rather than being cut mid-word.
	assert.Contains(t, chunks[0], "far longer than the chunk size limit.")
}

func TestSplitSentences_NewlinesTerminate(t *testing.T) {
	sentences := splitSentences("# Heading\nBody text here. More body.")
	require.Len(t, sentences, 3)
	assert.Equal(t, "# Heading", sentences[0])
	assert.Equal(t, "Body text here.", sentences[1])
	assert.Equal(t, "More body.", sentences[2])
}
