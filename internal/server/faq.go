package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
)

// handleGenerateFAQs starts an asynchronous job that generates FAQs for
// an already ingested session, enriching its retrieval context.
func (s *Server) handleGenerateFAQs(c *gin.Context) {
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

	if !sess.ContextReady {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Content is not ready. Cannot generate FAQs.",
			Status: http.StatusBadRequest,
		})
		return
	}

	_, _ = s.sessions.Update(c.Request.Context(), id, session.Update{
		Status:  session.Stat(session.StatusFAQProcessing),
		Message: session.Str("FAQ generation in progress."),
	})
	s.logger.Info("dispatching faq generation", "session_id", id)

	if err := s.worker.EnqueueGenerateFAQs(c.Request.Context(), id); err != nil {
		s.logger.Error("failed to enqueue faq task",
			"session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to schedule FAQ generation.",
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusAccepted, FAQGenerationResponse{
		SessionID: id,
		Status:    string(session.StatusFAQProcessing),
		Message:   "FAQ generation has started.",
	})
}
