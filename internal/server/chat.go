package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/rag"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

func (s *Server) handleChat(c *gin.Context) {
	id := c.Param("session_id")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "A question is required.",
			Status: http.StatusBadRequest,
		})
		return
	}

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

	if sess.Status != session.StatusReady && sess.Status != session.StatusFAQProcessing {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Content is not ready for chat. Please wait for ingestion to complete.",
			Status: http.StatusBadRequest,
		})
		return
	}

	s.logger.Info("chat request",
		"session_id", id, "question", req.Question)

	shared := flow.Shared{
		rag.KeySessionID: id,
		rag.KeyUserQuery: req.Question,
	}
	if req.Model != "" {
		shared[rag.KeyModel] = req.Model
	}

	action, err := rag.NewChatNode(s.pipeline).Run(c.Request.Context(), shared)
	if err != nil {
		s.logger.Error("chat node failed", "session_id", id, "error", err)
		_, _ = s.sessions.Update(c.Request.Context(), id, session.Update{
			Status:  session.Stat(session.StatusError),
			Message: session.Str("An unexpected server error occurred."),
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "An unexpected error occurred while processing your request.",
			Status: http.StatusInternalServerError,
		})
		return
	}

	if action == flow.ActionError {
		msg := shared.String(rag.KeyErrorMessage)
		if msg == "" {
			msg = "An unknown error occurred during chat processing."
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  msg,
			Status: http.StatusInternalServerError,
		})
		return
	}

	resources, _ := shared[rag.KeyResources].([]rag.Resource)
	if resources == nil {
		resources = []rag.Resource{}
	}
	c.JSON(http.StatusOK, ChatResponse{
		Answer:    shared.String(rag.KeyAnswer),
		Resources: resources,
	})
}
