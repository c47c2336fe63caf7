package rag

import (
	"time"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// vendorRetry is the default policy for the phases that call out to
// vendors: three attempts with a constant pause between them.
var vendorRetry = flow.Retry(3).WithConstantBackoff(2 * time.Second).Policy()

func (p *Pipeline) retryPolicy() flow.RetryPolicy {
	if p.Retry.MaxAttempts > 0 {
		return p.Retry
	}
	return vendorRetry
}

// NewSetupFlow assembles the one-time ingestion flow: validate input,
// acquire and index the content, then terminate. Content failures route
// to the terminal node over the error edge.
func NewSetupFlow(p *Pipeline, opts ...flow.FlowOption) *flow.Flow {
	input := flow.NewNode("input", NewInputLogic(p))
	content := flow.NewNode("content-processing", NewContentLogic(p),
		flow.WithRetry(p.retryPolicy()))
	end := flow.NewNode("end", NewEndLogic(p))

	input.Then(content)
	content.On(flow.ActionError, end)
	content.Then(end)

	return flow.NewFlow("setup", input, opts...)
}

// NewFAQFlow assembles the on-demand FAQ generation flow.
func NewFAQFlow(p *Pipeline, opts ...flow.FlowOption) *flow.Flow {
	faq := flow.NewNode("faq-generation", NewFAQLogic(p),
		flow.WithRetry(p.retryPolicy()))
	end := flow.NewNode("end", NewEndLogic(p))

	faq.On(flow.ActionError, end)

	return flow.NewFlow("faq", faq, opts...)
}

// NewChatNode builds the chat unit of work. It is run standalone from
// the HTTP handler, one invocation per question, rather than inside a
// flow.
func NewChatNode(p *Pipeline) *flow.Node {
	return flow.NewNode("chat", NewChatLogic(p))
}
