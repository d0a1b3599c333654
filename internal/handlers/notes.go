package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/models"
)

// CreateNote adds a user note to an invoice. The date defaults to today.
func (h *Handlers) CreateNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "text is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation_error",
				Message: "date must be YYYY-MM-DD",
				Code:    http.StatusBadRequest,
			})
			return
		}
		date = parsed
	}

	note, err := h.repo.CreateNote(id, req.Text, date)
	if err != nil {
		logrus.Errorf("Failed to add note to invoice %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to add note",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, models.NoteResponse{
		ID:   note.ID,
		Text: note.Text,
		Date: note.Date.Format("2006-01-02"),
	})
}

// UpdateNote replaces a note's text
func (h *Handlers) UpdateNote(c *gin.Context) {
	noteID, ok := pathID(c, "noteId")
	if !ok {
		return
	}

	var req models.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "text is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	note, err := h.repo.UpdateNote(noteID, req.Text)
	if err != nil {
		logrus.Errorf("Failed to update note %d: %v", noteID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to update note",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Note not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, models.NoteResponse{
		ID:   note.ID,
		Text: note.Text,
		Date: note.Date.Format("2006-01-02"),
	})
}

// DeleteNote removes a note
func (h *Handlers) DeleteNote(c *gin.Context) {
	noteID, ok := pathID(c, "noteId")
	if !ok {
		return
	}

	deleted, err := h.repo.DeleteNote(noteID)
	if err != nil {
		logrus.Errorf("Failed to delete note %d: %v", noteID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to delete note",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Note not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
