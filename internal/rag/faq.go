package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/clients"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
)

const faqPrompt = `Generate %d frequently asked questions (FAQs) and their answers based on the following content.
Provide the output as a JSON array of objects, where each object has 'question' and 'answer' keys.

Content:
%s

Example JSON format:
[
  {"question": "What is the capital of France?", "answer": "The capital of France is Paris."}
]
`

// GenerateFAQs asks the LLM for question/answer pairs about the content
// and parses them out of the response.
func (p *Pipeline) GenerateFAQs(ctx context.Context, content string) ([]session.FAQ, error) {
	raw, err := p.LLM.Complete(ctx, []clients.Message{
		{Role: "user", Content: fmt.Sprintf(faqPrompt, p.NumFAQs, content)},
	}, "")
	if err != nil {
		return nil, err
	}
	faqs, err := parseFAQs(raw)
	if err != nil {
		return nil, fmt.Errorf("parse faq response: %w", err)
	}
	return faqs, nil
}

// parseFAQs extracts the JSON array from an LLM response. Models wrap
// JSON in prose or code fences, so everything outside the outermost
// brackets is discarded before parsing.
func parseFAQs(raw string) ([]session.FAQ, error) {
	trimmed := strings.TrimSpace(raw)
	if i := strings.Index(trimmed, "["); i >= 0 {
		if j := strings.LastIndex(trimmed, "]"); j > i {
			trimmed = trimmed[i : j+1]
		}
	}

	parsed := gjson.Parse(trimmed)
	if !parsed.IsArray() {
		return nil, errors.New("response is not a JSON array")
	}

	var faqs []session.FAQ
	for _, item := range parsed.Array() {
		q := item.Get("question").String()
		a := item.Get("answer").String()
		if q == "" || a == "" {
			return nil, errors.New("faq entry missing question or answer")
		}
		faqs = append(faqs, session.FAQ{Question: q, Answer: a})
	}
	if len(faqs) == 0 {
		return nil, errors.New("response contained no faqs")
	}
	return faqs, nil
}

// CombineFAQs renders the pairs as the text that gets embedded so the
// chat node can retrieve them as context.
func CombineFAQs(faqs []session.FAQ) string {
	parts := make([]string, len(faqs))
	for i, faq := range faqs {
		parts[i] = fmt.Sprintf("Question: %s\nAnswer: %s",
			faq.Question, faq.Answer)
	}
	return strings.Join(parts, "\n\n")
}
