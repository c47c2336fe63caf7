package rag

import (
	"strings"
	"unicode"
)

// Splitter chunks text for embedding. Chunks break on sentence
// boundaries where possible and consecutive chunks share roughly
// Overlap characters of trailing context, so a fact straddling a
// boundary stays retrievable.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// NewSplitter creates a splitter. Size must be positive; overlap must
// be smaller than size (callers validate via config).
func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{ChunkSize: size, Overlap: overlap}
}

// Split breaks text into chunks of at most ChunkSize characters. A
// single sentence longer than ChunkSize becomes its own oversized
// chunk rather than being cut mid-word.
func (sp *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= sp.ChunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences up to Overlap.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			n := len(current[i])
			if carryLen+n > sp.Overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += n + 1
		}
		current = carry
		currentLen = carryLen
	}

	for _, sentence := range sentences {
		if currentLen > 0 && currentLen+len(sentence) > sp.ChunkSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
	}
	if len(current) > 0 {
		// Drop a trailing chunk that is pure overlap of the previous one.
		tail := strings.Join(current, " ")
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], tail) {
			chunks = append(chunks, tail)
		}
	}
	return chunks
}

// splitSentences cuts text at sentence-ending punctuation followed by
// whitespace. Newlines also terminate a sentence, which keeps markdown
// headings and list items intact.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
			continue
		}
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') &&
			(i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
