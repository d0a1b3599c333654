package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/models"
)

// exportColumns is the list-view column order of the CSV export
var exportColumns = []string{
	"id", "supplier", "hub", "type", "invoiceno", "invoice_date",
	"po", "folder", "assigned", "ref", "status", "created_on", "last_modified",
}

// ExportInvoices streams a CSV of invoices. An optional ids query parameter
// (comma-separated) restricts the export to a selection.
func (h *Handlers) ExportInvoices(c *gin.Context) {
	var invoices []models.Invoice
	var err error

	if raw := c.Query("ids"); raw != "" {
		var ids []uint
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, parseErr := strconv.ParseUint(s, 10, 32)
			if parseErr != nil {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "validation_error",
					Message: "Invalid ids parameter",
					Code:    http.StatusBadRequest,
				})
				return
			}
			ids = append(ids, uint(id))
		}
		invoices, err = h.repo.GetInvoicesByIDs(ids)
	} else {
		invoices, err = h.repo.GetAllInvoices()
	}
	if err != nil {
		logrus.Errorf("Failed to export invoices: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to export invoices",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	filename := fmt.Sprintf("invoices-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportColumns)
	for _, inv := range invoices {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(inv.ID), 10),
			inv.Supplier,
			inv.Hub,
			inv.Type,
			inv.InvoiceNo,
			inv.InvoiceDate,
			inv.PO,
			inv.Folder,
			inv.Assigned,
			inv.Ref,
			inv.Status,
			inv.CreatedOn.Format(time.RFC3339),
			inv.LastModified.Format(time.RFC3339),
		})
	}
	w.Flush()
}
