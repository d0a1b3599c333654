package handlers

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/graph"
	"invoice-dashboard-go/internal/models"
	"invoice-dashboard-go/internal/parser"
)

// maxAttachmentSize caps each uploaded attachment
const maxAttachmentSize = 8 << 20

// SendEmail sends an invoice-correlated email through the shared mailbox.
// The subject is tagged with [#INV:<invoiceId>] so the reply poller can
// match answers back to the invoice.
func (h *Handlers) SendEmail(c *gin.Context) {
	if h.graph == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "not_configured",
			Message: "Mail sending is not configured",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	from := c.PostForm("from")
	to := c.PostForm("to")
	cc := c.PostForm("cc")
	bcc := c.PostForm("bcc")
	subject := c.PostForm("subject")
	body := c.PostForm("body")
	invoiceID := c.PostForm("invoiceId")

	if from == "" || !h.cfg.Mail.SenderAllowed(from) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid from address",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if to == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Missing to recipients",
			Code:    http.StatusBadRequest,
		})
		return
	}

	msg := graph.OutboundMessage{
		Subject:       parser.WithRefTag(subject, invoiceID),
		Body:          graph.ItemBody{ContentType: "Text", Content: body},
		ToRecipients:  graph.ParseRecipients(to),
		CcRecipients:  graph.ParseRecipients(cc),
		BccRecipients: graph.ParseRecipients(bcc),
		Attachments:   []graph.FileAttachment{},
	}

	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, file := range form.File["attachments"] {
			if file.Size > maxAttachmentSize {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "validation_error",
					Message: "Attachment too large: " + file.Filename,
					Code:    http.StatusBadRequest,
				})
				return
			}
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "validation_error",
					Message: "Unreadable attachment: " + file.Filename,
					Code:    http.StatusBadRequest,
				})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "validation_error",
					Message: "Unreadable attachment: " + file.Filename,
					Code:    http.StatusBadRequest,
				})
				return
			}

			contentType := file.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			msg.Attachments = append(msg.Attachments, graph.FileAttachment{
				ODataType:    "#microsoft.graph.fileAttachment",
				Name:         file.Filename,
				ContentType:  contentType,
				ContentBytes: base64.StdEncoding.EncodeToString(data),
			})
		}
	}

	if err := h.graph.SendMail(c.Request.Context(), from, msg); err != nil {
		if sendErr, ok := err.(*graph.SendError); ok {
			// Relay Graph's own status so the client sees why the send failed.
			c.JSON(sendErr.StatusCode, models.ErrorResponse{
				Error:   "graph_error",
				Message: sendErr.Body,
				Code:    sendErr.StatusCode,
			})
			return
		}
		logrus.Errorf("Failed to send email for invoice %s: %v", invoiceID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "send_error",
			Message: "Failed to send email",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": true, "invoiceId": invoiceID})
}
