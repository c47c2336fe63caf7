package server

import "github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/rag"

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// IngestResponse acknowledges an accepted ingestion job.
type IngestResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// StatusResponse is a session status snapshot.
type StatusResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// ChatRequest carries one user question. Model optionally overrides the
// configured chat model for this question.
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
	Model    string `json:"model"`
}

// ChatResponse carries the answer plus the content chunks it drew on.
type ChatResponse struct {
	Answer    string         `json:"answer"`
	Resources []rag.Resource `json:"resources"`
}

// FAQGenerationResponse acknowledges an accepted FAQ generation job.
type FAQGenerationResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}
