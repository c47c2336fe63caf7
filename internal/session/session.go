// Package session persists per-user ingestion and chat state across the
// HTTP API and the background workers. Backends are pluggable: Redis for
// deployments, SQLite for embedded durability, memory for tests.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusFAQProcessing Status = "faq_processing"
	StatusReady         Status = "ready"
	StatusError         Status = "error"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// ChatMessage is one turn of the session's conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FAQ is a generated question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Session is the state tracked for one ingested source and its chats.
type Session struct {
	ID               string `json:"user_session_id"`
	InputType        string `json:"input_type,omitempty"`
	InputValue       string `json:"input_value,omitempty"`
	ProcessedContent string `json:"processed_content,omitempty"`

	GeneratedFAQs []FAQ         `json:"generated_faqs"`
	ChatHistory   []ChatMessage `json:"chat_history"`

	ContextReady      bool     `json:"context_is_ready"`
	ActiveCollections []string `json:"active_collections"`

	Status  Status `json:"status"`
	Message string `json:"message"`
}

// New creates a session in the processing state with a fresh v4 id.
func New(inputType, inputValue string) *Session {
	return &Session{
		ID:                uuid.NewString(),
		InputType:         inputType,
		InputValue:        inputValue,
		ActiveCollections: []string{},
		Status:            StatusProcessing,
		Message:           "Session initialized.",
	}
}

// Update is a partial session mutation. Nil fields are left untouched;
// ActiveCollections merges as a set rather than replacing.
type Update struct {
	InputType         *string
	InputValue        *string
	ProcessedContent  *string
	GeneratedFAQs     []FAQ
	ChatHistory       []ChatMessage
	ContextReady      *bool
	ActiveCollections []string
	Status            *Status
	Message           *string
}

func (u Update) apply(s *Session) {
	if u.InputType != nil {
		s.InputType = *u.InputType
	}
	if u.InputValue != nil {
		s.InputValue = *u.InputValue
	}
	if u.ProcessedContent != nil {
		s.ProcessedContent = *u.ProcessedContent
	}
	if u.GeneratedFAQs != nil {
		s.GeneratedFAQs = u.GeneratedFAQs
	}
	if u.ChatHistory != nil {
		s.ChatHistory = u.ChatHistory
	}
	if u.ContextReady != nil {
		s.ContextReady = *u.ContextReady
	}
	if len(u.ActiveCollections) > 0 {
		s.ActiveCollections = mergeCollections(
			s.ActiveCollections, u.ActiveCollections)
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Message != nil {
		s.Message = *u.Message
	}
}

// mergeCollections unions existing and added names, keeping first-seen
// order and dropping duplicates.
func mergeCollections(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, lists := range [][]string{existing, added} {
		for _, name := range lists {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Store persists sessions. Get returns ErrNotFound for unknown ids;
// Update applies a partial mutation read-modify-write and returns the
// resulting session.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, u Update) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Pointer helpers for building partial updates.

func Str(s string) *string  { return &s }
func Bool(b bool) *bool     { return &b }
func Stat(s Status) *Status { return &s }
