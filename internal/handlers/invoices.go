package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/models"
)

// GetInvoices returns all invoices with their notes, newest first
func (h *Handlers) GetInvoices(c *gin.Context) {
	invoices, err := h.repo.GetAllInvoices()
	if err != nil {
		logrus.Errorf("Failed to fetch invoices: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch invoices",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	responses := make([]models.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		responses = append(responses, inv.ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

// PatchInvoice applies user edits from the allow-listed field set
func (h *Handlers) PatchInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.InvoicePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation_error",
				Message: "Invalid status",
				Code:    http.StatusBadRequest,
			})
			return
		}
		updates["status"] = *req.Status
	}
	if req.Folder != nil {
		updates["folder"] = *req.Folder
	}
	if req.Assigned != nil {
		updates["assigned"] = *req.Assigned
	}
	if req.Ref != nil {
		updates["ref"] = *req.Ref
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "No updatable fields supplied",
			Code:    http.StatusBadRequest,
		})
		return
	}

	invoice, err := h.repo.UpdateInvoice(id, updates)
	if err != nil {
		logrus.Errorf("Failed to update invoice %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to update invoice",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if invoice == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Invoice not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, invoice.ToResponse())
}

// DeleteInvoice removes an invoice and its notes
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.repo.DeleteInvoice(id)
	if err != nil {
		logrus.Errorf("Failed to delete invoice %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to delete invoice",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Invoice not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetBlobURL mints a time-limited read URL for the invoice's source document
func (h *Handlers) GetBlobURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.repo.GetInvoice(id)
	if err != nil {
		logrus.Errorf("Failed to fetch invoice %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch invoice",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if invoice == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Invoice not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	if invoice.BlobURL == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invoice has no document path",
			Code:    http.StatusBadRequest,
		})
		return
	}

	u, err := h.signer.URL(invoice.BlobURL)
	if err != nil {
		logrus.Errorf("Failed to build access URL for invoice %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to build access URL",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, models.BlobURLResponse{URL: u})
}
