package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/rag"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
)

// maxUploadBytes caps how large an uploaded PDF may be.
const maxUploadBytes = 32 << 20

func (s *Server) handleIngest(c *gin.Context) {
	webURL := c.PostForm("web_url")
	file, header, err := c.Request.FormFile("pdf_file")
	hasPDF := err == nil

	if !hasPDF && webURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Either a PDF file or a web URL must be provided.",
			Status: http.StatusBadRequest,
		})
		return
	}
	if hasPDF && webURL != "" {
		file.Close()
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Provide either a PDF file or a web URL, not both.",
			Status: http.StatusBadRequest,
		})
		return
	}

	var (
		inputType  string
		inputValue string
		pdfBytes   []byte
		filename   string
	)
	if hasPDF {
		defer file.Close()
		pdfBytes, err = io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:  "Failed to read uploaded file.",
				Status: http.StatusInternalServerError,
			})
			return
		}
		if len(pdfBytes) > maxUploadBytes {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  "Uploaded file is too large.",
				Status: http.StatusBadRequest,
			})
			return
		}
		inputType = rag.InputPDF
		filename = header.Filename
		inputValue = filename
	} else {
		inputType = rag.InputWebsite
		inputValue = webURL
	}

	sess := session.New(inputType, inputValue)
	if err := s.sessions.Create(c.Request.Context(), sess); err != nil {
		s.logger.Error("failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to create session.",
			Status: http.StatusInternalServerError,
		})
		return
	}

	if err := s.worker.EnqueueIngest(c.Request.Context(),
		sess.ID, inputType, inputValue, pdfBytes, filename); err != nil {
		s.logger.Error("failed to enqueue ingest task",
			"session_id", sess.ID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "Failed to schedule ingestion.",
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusAccepted, IngestResponse{
		SessionID: sess.ID,
		Status:    string(session.StatusProcessing),
		Message:   "Content ingestion started. Check status endpoint for progress.",
	})
}

func (s *Server) handleIngestStatus(c *gin.Context) {
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

	c.JSON(http.StatusOK, StatusResponse{
		SessionID: id,
		Status:    string(sess.Status),
		Message:   sess.Message,
	})
}
