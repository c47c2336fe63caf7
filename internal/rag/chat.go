package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/clients"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// ChatLogic answers one user question. Sessions with indexed content
// get a retrieval-augmented answer with a web-search fallback when the
// index has nothing relevant; sessions without context chat against the
// LLM directly. The HTTP handler runs this node standalone rather than
// inside a flow.
type ChatLogic struct {
	p *Pipeline
}

// NewChatLogic creates the chat node logic.
func NewChatLogic(p *Pipeline) *ChatLogic {
	return &ChatLogic{p: p}
}

type chatPrep struct {
	exit        bool
	query       string
	model       string
	sessionID   string
	history     []session.ChatMessage
	contextless bool
}

type chatResult struct {
	answer    string
	resources []Resource
	action    flow.Action
}

func (l *ChatLogic) Prep(ctx context.Context, shared flow.Shared) (any, error) {
	query := shared.String(KeyUserQuery)
	sid := shared.String(KeySessionID)
	if query == "" {
		l.p.log().Warn("no user query in shared context", "session_id", sid)
		return chatPrep{exit: true}, nil
	}

	prep := chatPrep{
		query:     query,
		model:     shared.String(KeyModel),
		sessionID: sid,
	}

	sess, err := l.p.Sessions.Get(ctx, sid)
	switch {
	case err == nil:
		prep.history = append(prep.history, sess.ChatHistory...)
		prep.contextless = !sess.ContextReady
	case errors.Is(err, session.ErrNotFound):
		// Chat proceeds without context when the session is unknown.
		l.p.log().Error("session not found for chat", "session_id", sid)
		prep.contextless = true
	default:
		return nil, fmt.Errorf("load session %s: %w", sid, err)
	}

	prep.history = append(prep.history,
		session.ChatMessage{Role: "user", Content: query})
	if err == nil {
		_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
			ChatHistory: prep.history,
		})
	}

	return prep, nil
}

func (l *ChatLogic) Exec(ctx context.Context, prep any) (any, error) {
	p := prep.(chatPrep)
	if p.exit || strings.EqualFold(p.query, "exit") {
		return chatResult{action: flow.ActionExit}, nil
	}

	// Surface a bad model override before doing any retrieval work.
	if p.model != "" {
		_, err := l.p.LLM.Complete(ctx,
			[]clients.Message{{Role: "system", Content: "test"}}, p.model)
		if errors.Is(err, clients.ErrInvalidModel) {
			return chatResult{
				answer: fmt.Sprintf(
					"Invalid model specified: %s. Please check the model name.",
					p.model),
				action: ActionInvalidModel,
			}, nil
		}
		if err != nil {
			return chatResult{answer: err.Error(), action: flow.ActionError}, nil
		}
	}

	if p.contextless {
		return l.contextlessAnswer(ctx, p)
	}
	return l.ragAnswer(ctx, p)
}

func (l *ChatLogic) contextlessAnswer(ctx context.Context, p chatPrep) (any, error) {
	answer, err := l.p.LLM.Complete(ctx, toMessages(p.history), p.model)
	if err != nil {
		if errors.Is(err, clients.ErrInvalidModel) {
			return chatResult{
				answer: fmt.Sprintf(
					"Invalid model specified: %s. Please check the model name.",
					p.model),
				action: ActionInvalidModel,
			}, nil
		}
		return chatResult{
			answer: fmt.Sprintf("Error calling LLM: %v", err),
			action: flow.ActionError,
		}, nil
	}
	return chatResult{answer: answer, action: flow.ActionDefault}, nil
}

func (l *ChatLogic) ragAnswer(ctx context.Context, p chatPrep) (any, error) {
	answer, resources, err := l.p.Query(ctx, p.sessionID, p.query)

	switch {
	case errors.Is(err, ErrNoCollections):
		return chatResult{
			answer: "I don't have any documents to search for this session. " +
				"Please upload a PDF or provide a website first.",
			action: flow.ActionDefault,
		}, nil
	case err != nil && !errors.Is(err, ErrNoContext):
		l.p.log().Error("retrieval failed",
			"session_id", p.sessionID, "error", err)
		answer = ""
	}

	// The index had nothing useful: try a web search, then plain chat.
	lowered := strings.ToLower(answer)
	if answer == "" ||
		strings.Contains(lowered, "cannot answer") ||
		strings.Contains(lowered, "no relevant context") {
		l.p.log().Info("no indexed answer, falling back to web search",
			"session_id", p.sessionID)

		webResults, webErr := l.p.Web.Search(ctx, p.query)
		if webErr == nil && webResults != "" {
			return chatResult{
				answer: "(Web Search Result) " + webResults,
				resources: append(resources, Resource{
					Source:  "web_search",
					Snippet: webResults,
				}),
				action: flow.ActionDefault,
			}, nil
		}

		answer, err = l.p.LLM.Complete(ctx, toMessages(p.history), p.model)
		if err != nil {
			return chatResult{
				answer: "I'm sorry, I encountered an error and couldn't find an answer.",
				action: flow.ActionError,
			}, nil
		}
		return chatResult{answer: answer, action: flow.ActionDefault}, nil
	}

	return chatResult{
		answer:    answer,
		resources: resources,
		action:    flow.ActionDefault,
	}, nil
}

func (l *ChatLogic) Post(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
	p := prep.(chatPrep)
	res := exec.(chatResult)

	if res.action == flow.ActionExit {
		return flow.ActionExit, nil
	}
	if res.action == flow.ActionError {
		shared[KeyErrorMessage] = res.answer
		_, _ = l.p.Sessions.Update(ctx, p.sessionID, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str(res.answer),
		})
		return flow.ActionError, nil
	}

	history := p.history
	if res.answer != "" {
		history = append(history, session.ChatMessage{
			Role:    "assistant",
			Content: res.answer,
		})
	}
	_, _ = l.p.Sessions.Update(ctx, p.sessionID, session.Update{
		ChatHistory: history,
		Status:      session.Stat(session.StatusReady),
	})

	shared[KeyAnswer] = res.answer
	shared[KeyResources] = res.resources
	return res.action, nil
}

func toMessages(history []session.ChatMessage) []clients.Message {
	out := make([]clients.Message, len(history))
	for i, m := range history {
		out[i] = clients.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
