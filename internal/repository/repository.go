package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invoice-dashboard-go/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetAllInvoices returns every invoice with its notes, newest invoice first
func (r *Repository) GetAllInvoices() ([]models.Invoice, error) {
	var invoices []models.Invoice
	result := r.db.
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("note.id ASC") }).
		Order("created_on DESC").
		Find(&invoices)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get invoices: %w", result.Error)
	}
	return invoices, nil
}

// GetInvoicesByIDs returns the invoices with the given ids, newest first
func (r *Repository) GetInvoicesByIDs(ids []uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	result := r.db.Where("id IN ?", ids).Order("created_on DESC").Find(&invoices)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get invoices: %w", result.Error)
	}
	return invoices, nil
}

// GetInvoice returns one invoice, or nil when it does not exist
func (r *Repository) GetInvoice(id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	result := r.db.First(&invoice, id)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", result.Error)
	}
	return &invoice, nil
}

// UpdateInvoice applies the given column updates and bumps last_modified.
// Returns nil when the invoice does not exist.
func (r *Repository) UpdateInvoice(id uint, updates map[string]interface{}) (*models.Invoice, error) {
	updates["last_modified"] = time.Now()
	result := r.db.Model(&models.Invoice{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetInvoice(id)
}

// DeleteInvoice removes an invoice and its notes. Returns false when absent.
func (r *Repository) DeleteInvoice(id uint) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Note{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Invoice{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete invoice: %w", err)
	}
	return true, nil
}

// CreateNote adds a user note to an invoice
func (r *Repository) CreateNote(invoiceID uint, text string, date time.Time) (*models.Note, error) {
	note := models.Note{
		InvoiceID: invoiceID,
		Text:      text,
		Date:      date,
	}
	if err := r.db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &note, nil
}

// UpdateNote replaces a note's text. Returns nil when the note does not exist.
func (r *Repository) UpdateNote(noteID uint, text string) (*models.Note, error) {
	var note models.Note
	result := r.db.First(&note, noteID)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get note: %w", result.Error)
	}
	note.Text = text
	if err := r.db.Save(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return &note, nil
}

// DeleteNote removes a note. Returns false when absent.
func (r *Repository) DeleteNote(noteID uint) (bool, error) {
	result := r.db.Delete(&models.Note{}, noteID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete note: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// InsertReplyNote inserts a poller-created note carrying the provider message
// id. The insert is a no-op when a note with that message id already exists;
// the conflict target is the unique index on note.message_id, which is what
// makes cursor replay and redelivery safe without a pre-check.
func (r *Repository) InsertReplyNote(invoiceID uint, text string, date time.Time, messageID string) (bool, error) {
	// A message without a provider id gets a NULL message_id; the unique
	// index only guards non-NULL values.
	var mid *string
	if messageID != "" {
		mid = &messageID
	}
	note := models.Note{
		InvoiceID: invoiceID,
		Text:      text,
		Date:      date,
		MessageID: mid,
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoNothing: true,
	}).Create(&note)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert reply note: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// LoadDeltaLink returns the stored continuation token for a mailbox, or ""
// when no cycle has completed yet
func (r *Repository) LoadDeltaLink(mailbox string) (string, error) {
	var cursor models.MailboxCursor
	result := r.db.First(&cursor, "mailbox = ?", mailbox)
	if result.Error == gorm.ErrRecordNotFound {
		return "", nil
	}
	if result.Error != nil {
		return "", fmt.Errorf("failed to load mailbox cursor: %w", result.Error)
	}
	return cursor.DeltaLink, nil
}

// SaveDeltaLink upserts the continuation token for a mailbox
func (r *Repository) SaveDeltaLink(mailbox, link string) error {
	cursor := models.MailboxCursor{Mailbox: mailbox, DeltaLink: link}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mailbox"}},
		DoUpdates: clause.AssignmentColumns([]string{"delta_link"}),
	}).Create(&cursor)
	if result.Error != nil {
		return fmt.Errorf("failed to save mailbox cursor: %w", result.Error)
	}
	return nil
}
