package models

import (
	"time"
)

// Invoice workflow states
const (
	StatusNew       = "New"
	StatusMatched   = "Matched"
	StatusPosting   = "Posting"
	StatusCompleted = "Completed"
)

// ValidStatus reports whether s is one of the four workflow states
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusMatched, StatusPosting, StatusCompleted:
		return true
	}
	return false
}

// Invoice represents one accounts-payable document
type Invoice struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Supplier     string    `json:"supplier" gorm:"type:varchar(255)"`
	Hub          string    `json:"hub" gorm:"type:varchar(64)"`
	Type         string    `json:"type" gorm:"type:varchar(64)"`
	InvoiceNo    string    `json:"invoiceno" gorm:"column:invoiceno;type:varchar(128)"`
	InvoiceDate  string    `json:"invoice_date" gorm:"column:invoice_date;type:varchar(32)"`
	PO           string    `json:"po" gorm:"column:po;type:varchar(128)"`
	Folder       string    `json:"folder" gorm:"type:varchar(128)"`
	Assigned     string    `json:"assigned" gorm:"type:varchar(128)"`
	Ref          string    `json:"ref" gorm:"type:varchar(16)"`
	Status       string    `json:"status" gorm:"type:varchar(32);default:New"`
	BlobURL      string    `json:"-" gorm:"column:bloburl;type:text"`
	CreatedOn    time.Time `json:"created_on" gorm:"column:created_on;autoCreateTime"`
	LastModified time.Time `json:"last_modified" gorm:"column:last_modified;autoUpdateTime"`

	Notes []Note `json:"notes" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoice"
}

// Note is a timestamped annotation attached to one invoice. MessageID is set
// only on poller-created notes and is unique when present, which is what makes
// re-ingesting the same mailbox message a no-op.
type Note struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	InvoiceID uint      `json:"invoice_id" gorm:"column:invoice_id;not null;index"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Date      time.Time `json:"-" gorm:"type:date"`
	MessageID *string   `json:"message_id,omitempty" gorm:"column:message_id;type:text;uniqueIndex"`
}

// TableName specifies the table name for Note
func (Note) TableName() string {
	return "note"
}

// MailboxCursor holds the delta continuation token for one monitored mailbox.
// The token is always the marker of the last fully-drained sync, never an
// in-flight page link.
type MailboxCursor struct {
	Mailbox   string `gorm:"primaryKey;type:varchar(255)"`
	DeltaLink string `gorm:"column:delta_link;type:text"`
}

// TableName specifies the table name for MailboxCursor
func (MailboxCursor) TableName() string {
	return "mailbox_cursor"
}

// NoteResponse is the wire shape of a note (date formatted YYYY-MM-DD)
type NoteResponse struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

// InvoiceResponse is the wire shape of an invoice with its notes
type InvoiceResponse struct {
	ID           uint           `json:"id"`
	Supplier     string         `json:"supplier"`
	Hub          string         `json:"hub"`
	Type         string         `json:"type"`
	InvoiceNo    string         `json:"invoiceno"`
	InvoiceDate  string         `json:"invoice_date"`
	PO           string         `json:"po"`
	Folder       string         `json:"folder"`
	Assigned     string         `json:"assigned"`
	Ref          string         `json:"ref"`
	Status       string         `json:"status"`
	CreatedOn    time.Time      `json:"created_on"`
	LastModified time.Time      `json:"last_modified"`
	Notes        []NoteResponse `json:"notes"`
}

// NoteRequest is the request body for creating or updating a note
type NoteRequest struct {
	Text string `json:"text" binding:"required"`
	Date string `json:"date"`
}

// InvoicePatchRequest carries the user-editable invoice fields
type InvoicePatchRequest struct {
	Status   *string `json:"status"`
	Folder   *string `json:"folder"`
	Assigned *string `json:"assigned"`
	Ref      *string `json:"ref"`
}

// BlobURLResponse carries a time-limited document access URL
type BlobURLResponse struct {
	URL string `json:"url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Poller    map[string]string `json:"poller,omitempty"`
}

// ToResponse converts an Invoice to its wire shape
func (i Invoice) ToResponse() InvoiceResponse {
	notes := make([]NoteResponse, 0, len(i.Notes))
	for _, n := range i.Notes {
		notes = append(notes, NoteResponse{
			ID:   n.ID,
			Text: n.Text,
			Date: n.Date.Format("2006-01-02"),
		})
	}
	return InvoiceResponse{
		ID:           i.ID,
		Supplier:     i.Supplier,
		Hub:          i.Hub,
		Type:         i.Type,
		InvoiceNo:    i.InvoiceNo,
		InvoiceDate:  i.InvoiceDate,
		PO:           i.PO,
		Folder:       i.Folder,
		Assigned:     i.Assigned,
		Ref:          i.Ref,
		Status:       i.Status,
		CreatedOn:    i.CreatedOn,
		LastModified: i.LastModified,
		Notes:        notes,
	}
}
