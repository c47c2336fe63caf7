package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// Shared context keys the nodes read and write.
const (
	KeySessionID        = "user_session_id"
	KeyInputType        = "input_type"
	KeyInputValue       = "input_value"
	KeyOriginalFilename = "original_filename"
	KeyProcessedContent = "processed_content"
	KeyUserQuery        = "user_query"
	KeyModel            = "model"
	KeyErrorMessage     = "error_message"
	KeyAnswer           = "answer"
	KeyResources        = "resources"
	KeyGeneratedFAQs    = "generated_faqs"
)

// ActionInvalidModel reports a chat request that named a model the
// provider does not serve.
const ActionInvalidModel flow.Action = "invalid_model"

// InputLogic validates the ingestion request and loads or initializes
// the session before content processing starts. Validation failures are
// routed as an error outcome, not raised, so the flow reaches its
// terminal node either way.
type InputLogic struct {
	p *Pipeline
}

// NewInputLogic creates the ingestion entry node logic.
func NewInputLogic(p *Pipeline) *InputLogic {
	return &InputLogic{p: p}
}

type inputPrep struct {
	failed     bool
	inputType  string
	inputValue string
	sessionID  string
}

func (l *InputLogic) Prep(ctx context.Context, shared flow.Shared) (any, error) {
	sid := shared.String(KeySessionID)
	if sid == "" {
		sid = uuid.NewString()
		shared[KeySessionID] = sid
		l.p.log().Warn("no session id in shared context, generated one",
			"session_id", sid)
	}

	inputType := shared.String(KeyInputType)
	inputValue := shared.String(KeyInputValue)

	if inputType == InputNone {
		_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
			Status:       session.Stat(session.StatusReady),
			ContextReady: session.Bool(false),
			Message:      session.Str("No content provided, chat without context."),
		})
		return inputPrep{inputType: inputType, sessionID: sid}, nil
	}

	fail := func(msg string) (any, error) {
		shared[KeyErrorMessage] = msg
		l.p.log().Error("input validation failed",
			"session_id", sid, "reason", msg)
		_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str(msg),
		})
		return inputPrep{failed: true, sessionID: sid}, nil
	}

	if inputType == "" || inputValue == "" {
		return fail("Input type or value missing for content processing.")
	}
	if inputType != InputWebsite && inputType != InputPDF {
		return fail(fmt.Sprintf(
			"Invalid input type: %s. Must be 'website' or 'pdf'.", inputType))
	}

	existing, err := l.p.Sessions.Get(ctx, sid)
	switch {
	case err == nil:
		if _, ok := shared[KeyProcessedContent]; !ok &&
			existing.ProcessedContent != "" {
			shared[KeyProcessedContent] = existing.ProcessedContent
		}
	case errors.Is(err, session.ErrNotFound):
		// Direct node runs arrive without an API-created session.
		if err := l.p.Sessions.Create(ctx, &session.Session{
			ID:                sid,
			InputType:         inputType,
			InputValue:        inputValue,
			ActiveCollections: []string{},
			Status:            session.StatusProcessing,
			Message:           "Session initialized.",
		}); err != nil {
			return nil, fmt.Errorf("create session %s: %w", sid, err)
		}
	default:
		return nil, fmt.Errorf("load session %s: %w", sid, err)
	}

	if existing == nil || existing.ChatHistory == nil {
		_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
			ChatHistory: []session.ChatMessage{},
		})
	}

	return inputPrep{
		inputType:  inputType,
		inputValue: inputValue,
		sessionID:  sid,
	}, nil
}

func (l *InputLogic) Exec(ctx context.Context, prep any) (any, error) {
	return prep, nil
}

func (l *InputLogic) Post(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
	res := exec.(inputPrep)
	if res.failed {
		return flow.ActionError, nil
	}
	shared[KeySessionID] = res.sessionID
	if res.inputType == InputNone {
		// Nothing to ingest, the session chats without context.
		return flow.ActionExit, nil
	}
	shared[KeyInputType] = res.inputType
	shared[KeyInputValue] = res.inputValue
	return flow.ActionDefault, nil
}

// ContentLogic acquires the source content (crawl or PDF parse) in its
// Exec phase, then chunks, embeds, and stores it. Acquisition runs
// under the node's retry policy; when attempts are exhausted the
// fallback converts the failure into an error outcome so the flow can
// route to its terminal node.
type ContentLogic struct {
	p *Pipeline
}

// NewContentLogic creates the content processing node logic.
func NewContentLogic(p *Pipeline) *ContentLogic {
	return &ContentLogic{p: p}
}

type contentPrep struct {
	failed     bool
	errMsg     string
	inputType  string
	inputValue string
	sessionID  string
}

type contentResult struct {
	errMsg   string
	envelope string
}

func (l *ContentLogic) Prep(ctx context.Context, shared flow.Shared) (any, error) {
	inputType := shared.String(KeyInputType)
	inputValue := shared.String(KeyInputValue)
	sid := shared.String(KeySessionID)

	if inputType == "" || inputValue == "" {
		msg := "Input type or value missing for content processing."
		shared[KeyErrorMessage] = msg
		_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str(msg),
		})
		return contentPrep{failed: true, errMsg: msg, sessionID: sid}, nil
	}

	l.p.log().Info("processing input",
		"type", inputType, "value", inputValue, "session_id", sid)
	return contentPrep{
		inputType:  inputType,
		inputValue: inputValue,
		sessionID:  sid,
	}, nil
}

func (l *ContentLogic) Exec(ctx context.Context, prep any) (any, error) {
	p := prep.(contentPrep)
	if p.failed {
		return contentResult{errMsg: p.errMsg}, nil
	}
	envelope, err := l.p.acquire(ctx, p.inputType, p.inputValue)
	if err != nil {
		return nil, err
	}
	return contentResult{envelope: envelope}, nil
}

func (l *ContentLogic) ExecFallback(ctx context.Context, prep any, execErr error) (any, error) {
	return contentResult{errMsg: execErr.Error()}, nil
}

func (l *ContentLogic) Post(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
	p := prep.(contentPrep)
	res := exec.(contentResult)

	fail := func(msg string) (flow.Action, error) {
		shared[KeyErrorMessage] = msg
		_, _ = l.p.Sessions.Update(ctx, p.sessionID, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str(msg),
		})
		return flow.ActionError, nil
	}

	if res.errMsg != "" {
		return fail(res.errMsg)
	}

	// Uploaded PDFs are spooled to a temp path; the collection is named
	// after the original filename instead.
	source := shared.String(KeyOriginalFilename)
	if source == "" {
		source = p.inputValue
	}

	collection, chunks, err := l.p.embedAndStore(
		ctx, res.envelope, p.inputType, p.sessionID, source)
	if err != nil {
		return fail(err.Error())
	}

	combined := strings.Join(chunks, " ")
	shared[KeyProcessedContent] = combined

	_, err = l.p.Sessions.Update(ctx, p.sessionID, session.Update{
		Status:            session.Stat(session.StatusReady),
		ContextReady:      session.Bool(true),
		Message:           session.Str("Content processed and ready for chat."),
		ProcessedContent:  session.Str(combined),
		ActiveCollections: []string{collection},
	})
	if err != nil {
		return fail(fmt.Sprintf("failed to update session: %v", err))
	}
	return flow.ActionDefault, nil
}

// FAQLogic generates question/answer pairs from the processed content,
// embeds them, and adds them to the session's retrieval context.
// Generation runs under retry with the same fallback-to-error-outcome
// shape as ContentLogic.
type FAQLogic struct {
	p *Pipeline
}

// NewFAQLogic creates the FAQ generation node logic.
func NewFAQLogic(p *Pipeline) *FAQLogic {
	return &FAQLogic{p: p}
}

type faqPrep struct {
	failed     bool
	errMsg     string
	content    string
	inputType  string
	inputValue string
	sessionID  string
}

type faqResult struct {
	errMsg string
	faqs   []session.FAQ
}

func (l *FAQLogic) Prep(ctx context.Context, shared flow.Shared) (any, error) {
	sid := shared.String(KeySessionID)

	_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
		Status:  session.Stat(session.StatusFAQProcessing),
		Message: session.Str("FAQ generation in progress."),
	})

	content := shared.String(KeyProcessedContent)
	if content == "" {
		msg := "No processed content available for FAQ generation."
		shared[KeyErrorMessage] = msg
		_, _ = l.p.Sessions.Update(ctx, sid, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str(msg),
		})
		return faqPrep{failed: true, errMsg: msg, sessionID: sid}, nil
	}

	return faqPrep{
		content:    content,
		inputType:  shared.String(KeyInputType),
		inputValue: shared.String(KeyInputValue),
		sessionID:  sid,
	}, nil
}

func (l *FAQLogic) Exec(ctx context.Context, prep any) (any, error) {
	p := prep.(faqPrep)
	if p.failed {
		return faqResult{errMsg: p.errMsg}, nil
	}

	l.p.log().Info("generating faqs",
		"count", l.p.NumFAQs, "session_id", p.sessionID)
	faqs, err := l.p.GenerateFAQs(ctx, p.content)
	if err != nil {
		return nil, err
	}
	return faqResult{faqs: faqs}, nil
}

func (l *FAQLogic) ExecFallback(ctx context.Context, prep any, execErr error) (any, error) {
	return faqResult{errMsg: execErr.Error()}, nil
}

func (l *FAQLogic) Post(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
	p := prep.(faqPrep)
	res := exec.(faqResult)

	if res.errMsg != "" {
		shared[KeyErrorMessage] = res.errMsg
		_, _ = l.p.Sessions.Update(ctx, p.sessionID, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str(res.errMsg),
		})
		return flow.ActionError, nil
	}

	shared[KeyGeneratedFAQs] = res.faqs

	// Index the combined pairs so chat answers can draw on them. A
	// failure here degrades context but does not fail the flow; the
	// generated FAQs are still delivered.
	combined := CombineFAQs(res.faqs)
	envelope, err := EncodeDocument(Document{Source: p.inputValue, Content: combined})
	if err == nil {
		_, _, err = l.p.embedAndStore(ctx,
			envelope, p.inputType, p.sessionID, p.inputValue)
	}
	if err != nil {
		l.p.log().Error("failed to index faqs for chat context",
			"session_id", p.sessionID, "error", err)
	}

	_, err = l.p.Sessions.Update(ctx, p.sessionID, session.Update{
		GeneratedFAQs: res.faqs,
		Status:        session.Stat(session.StatusReady),
		Message:       session.Str("FAQs generated and context updated."),
	})
	if err != nil {
		return "", fmt.Errorf("update session %s: %w", p.sessionID, err)
	}

	l.p.log().Info("faqs saved",
		"count", len(res.faqs), "session_id", p.sessionID)
	return flow.ActionDefault, nil
}

// EndLogic is the terminal node shared by the flows.
type EndLogic struct {
	flow.Base
	p *Pipeline
}

// NewEndLogic creates the terminal node logic.
func NewEndLogic(p *Pipeline) *EndLogic {
	return &EndLogic{p: p}
}

func (l *EndLogic) Exec(ctx context.Context, prep any) (any, error) {
	l.p.log().Info("flow reached terminal state")
	return nil, nil
}
