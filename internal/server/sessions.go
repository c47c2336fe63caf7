package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
)

// SessionUpdateRequest is the PUT body for partial session updates.
// Absent fields are left untouched.
type SessionUpdateRequest struct {
	InputType         *string               `json:"input_type"`
	InputValue        *string               `json:"input_value"`
	ProcessedContent  *string               `json:"processed_content"`
	GeneratedFAQs     []session.FAQ         `json:"generated_faqs"`
	ChatHistory       []session.ChatMessage `json:"chat_history"`
	ContextReady      *bool                 `json:"context_is_ready"`
	ActiveCollections []string              `json:"active_collections"`
	Status            *session.Status       `json:"status"`
	Message           *string               `json:"message"`
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("session_id")
	sess, err := s.sessions.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:  "Session not found.",
				Status: http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to load session.",
			Status: http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(c *gin.Context) {
	id := c.Param("session_id")

	var req SessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid update payload.",
			Status: http.StatusBadRequest,
		})
		return
	}

	if req.Status != nil {
		switch *req.Status {
		case session.StatusProcessing, session.StatusFAQProcessing,
			session.StatusReady, session.StatusError:
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  "Invalid session status.",
				Status: http.StatusBadRequest,
			})
			return
		}
	}

	updated, err := s.sessions.Update(c.Request.Context(), id, session.Update{
		InputType:         req.InputType,
		InputValue:        req.InputValue,
		ProcessedContent:  req.ProcessedContent,
		GeneratedFAQs:     req.GeneratedFAQs,
		ChatHistory:       req.ChatHistory,
		ContextReady:      req.ContextReady,
		ActiveCollections: req.ActiveCollections,
		Status:            req.Status,
		Message:           req.Message,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:  "Session not found.",
				Status: http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to update session.",
			Status: http.StatusInternalServerError,
		})
		return
	}

	s.logger.Info("session updated", "session_id", id)
	c.JSON(http.StatusOK, updated)
}
