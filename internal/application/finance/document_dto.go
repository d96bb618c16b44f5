package finance

import (
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentResponse represents an open document in API responses
type DocumentResponse struct {
	ID                   uuid.UUID       `json:"id"`
	TenantID             uuid.UUID       `json:"tenant_id"`
	Kind                 string          `json:"kind"`
	Direction            string          `json:"direction"`
	NCF                  string          `json:"ncf"`
	CounterpartyID       uuid.UUID       `json:"counterparty_id"`
	CounterpartyName     string          `json:"counterparty_name"`
	Currency             string          `json:"currency"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	AppliedAmount        decimal.Decimal `json:"applied_amount"`
	OutstandingAmount    decimal.Decimal `json:"outstanding_amount"`
	FormattedTotal       string          `json:"formatted_total"`
	FormattedOutstanding string          `json:"formatted_outstanding"`
	IssueDate            string          `json:"issue_date"`
	DueDate              *string         `json:"due_date,omitempty"`
	Status               string          `json:"status"`
	VoidReason           string          `json:"void_reason,omitempty"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Version              int             `json:"version"`
}

// CreateDocumentRequest represents a request to register an open document.
// Dates use the YYYY-MM-DD layout.
type CreateDocumentRequest struct {
	Kind             string          `json:"kind" binding:"required"`
	Direction        string          `json:"direction" binding:"required"`
	NCF              string          `json:"ncf" binding:"required,max=19,ncf"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id" binding:"required"`
	CounterpartyName string          `json:"counterparty_name" binding:"required,max=200"`
	Currency         string          `json:"currency" binding:"omitempty,iso4217"`
	TotalAmount      decimal.Decimal `json:"total_amount" binding:"required"`
	IssueDate        string          `json:"issue_date" binding:"required"`
	DueDate          *string         `json:"due_date"`
	CreatedBy        *uuid.UUID      `json:"-"`
}

// ApplyPaymentRequest applies an amount against a document. An empty
// currency means the document currency.
type ApplyPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"omitempty,iso4217"`
}

// VoidDocumentRequest cancels a document
type VoidDocumentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// DocumentListFilter defines filtering options for document list queries
type DocumentListFilter struct {
	Search         string     `form:"search"`
	Direction      string     `form:"direction"`
	CounterpartyID *uuid.UUID `form:"-"` // parsed by the handler
	Status         string     `form:"status"`
	Kind           string     `form:"kind"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir"`
	Page           int        `form:"page"`
	PageSize       int        `form:"page_size"`
}

func toDocumentResponse(d *finance.OpenDocument, f *numformat.Formatter) DocumentResponse {
	label := d.Currency.Label()
	resp := DocumentResponse{
		ID:                   d.ID,
		TenantID:             d.TenantID,
		Kind:                 string(d.Kind),
		Direction:            string(d.Direction),
		NCF:                  d.NCF,
		CounterpartyID:       d.CounterpartyID,
		CounterpartyName:     d.CounterpartyName,
		Currency:             d.Currency.String(),
		TotalAmount:          d.TotalAmount,
		AppliedAmount:        d.AppliedAmount,
		OutstandingAmount:    d.Outstanding(),
		FormattedTotal:       f.FormatMoneyWithLabel(d.TotalAmount, label),
		FormattedOutstanding: f.FormatMoneyWithLabel(d.Outstanding(), label),
		IssueDate:            d.IssueDate.Format(dateLayout),
		Status:               string(d.Status),
		VoidReason:           d.VoidReason,
		PaidAt:               d.PaidAt,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
		Version:              d.Version,
	}
	if d.DueDate != nil {
		due := d.DueDate.Format(dateLayout)
		resp.DueDate = &due
	}
	return resp
}
