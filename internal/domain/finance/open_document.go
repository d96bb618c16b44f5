package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind is the type of an open document
type DocumentKind string

const (
	DocumentKindInvoice    DocumentKind = "INVOICE"
	DocumentKindCreditNote DocumentKind = "CREDIT_NOTE"
	DocumentKindDebitNote  DocumentKind = "DEBIT_NOTE"
	DocumentKindAdvance    DocumentKind = "ADVANCE"
)

// IsValid checks if the kind is a valid DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindInvoice, DocumentKindCreditNote, DocumentKindDebitNote, DocumentKindAdvance:
		return true
	}
	return false
}

// IsAgeable returns true for documents that create a balance owed
func (k DocumentKind) IsAgeable() bool {
	return k == DocumentKindInvoice || k == DocumentKindDebitNote
}

// Direction tells whether a document is owed to us or by us
type Direction string

const (
	DirectionReceivable Direction = "RECEIVABLE" // customer owes us
	DirectionPayable    Direction = "PAYABLE"    // we owe a supplier
)

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionReceivable || d == DirectionPayable
}

// ParseDirection parses a case-insensitive direction, defaulting to receivable
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(DirectionReceivable), "AR":
		return DirectionReceivable, nil
	case string(DirectionPayable), "AP":
		return DirectionPayable, nil
	}
	return "", shared.NewDomainError("INVALID_DIRECTION", fmt.Sprintf("Unknown direction %q", s))
}

// DocumentStatus is the lifecycle state of an open document
type DocumentStatus string

const (
	DocumentStatusOpen    DocumentStatus = "OPEN"
	DocumentStatusPartial DocumentStatus = "PARTIAL"
	DocumentStatusPaid    DocumentStatus = "PAID"
	DocumentStatusVoided  DocumentStatus = "VOIDED"
)

// CanApplyPayment returns true if payments can be applied in this status
func (s DocumentStatus) CanApplyPayment() bool {
	return s == DocumentStatusOpen || s == DocumentStatusPartial
}

// OpenDocument is an invoice, credit/debit note or advance exchanged with a
// customer or supplier.
type OpenDocument struct {
	shared.TenantAggregateRoot
	Kind             DocumentKind
	Direction        Direction
	NCF              string // comprobante fiscal number
	CounterpartyID   uuid.UUID
	CounterpartyName string
	Currency         valueobject.Currency
	TotalAmount      decimal.Decimal
	AppliedAmount    decimal.Decimal
	IssueDate        time.Time
	DueDate          *time.Time
	Status           DocumentStatus
	VoidReason       string
	PaidAt           *time.Time
}

// NewOpenDocument creates a new document with nothing applied yet
func NewOpenDocument(
	tenantID uuid.UUID,
	kind DocumentKind,
	direction Direction,
	ncf string,
	counterpartyID uuid.UUID,
	counterpartyName string,
	total valueobject.Money,
	issueDate time.Time,
	dueDate *time.Time,
) (*OpenDocument, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Document kind is not valid")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Document direction is not valid")
	}
	ncf = strings.TrimSpace(ncf)
	if ncf == "" {
		return nil, shared.NewDomainError("INVALID_NCF", "NCF cannot be empty")
	}
	if len(ncf) > 19 {
		return nil, shared.NewDomainError("INVALID_NCF", "NCF cannot exceed 19 characters")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if strings.TrimSpace(counterpartyName) == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_NAME", "Counterparty name cannot be empty")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if dueDate != nil && dueDate.Before(issueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}

	return &OpenDocument{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Direction:           direction,
		NCF:                 ncf,
		CounterpartyID:      counterpartyID,
		CounterpartyName:    strings.TrimSpace(counterpartyName),
		Currency:            total.Currency(),
		TotalAmount:         total.Amount(),
		AppliedAmount:       decimal.Zero,
		IssueDate:           issueDate,
		DueDate:             dueDate,
		Status:              DocumentStatusOpen,
	}, nil
}

// Outstanding returns the unapplied part of the document
func (d *OpenDocument) Outstanding() decimal.Decimal {
	out := d.TotalAmount.Sub(d.AppliedAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// ApplyPayment applies a payment, credit note or advance against the document
func (d *OpenDocument) ApplyPayment(amount valueobject.Money) error {
	if !d.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to document in %s status", d.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Currency() != d.Currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", fmt.Sprintf("Payment in %s cannot settle a %s document", amount.Currency(), d.Currency))
	}
	if amount.Amount().GreaterThan(d.Outstanding()) {
		return shared.NewDomainError(shared.ErrOverpayment.Code,
			fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount.Amount().StringFixed(2), d.Outstanding().StringFixed(2)))
	}

	d.AppliedAmount = d.AppliedAmount.Add(amount.Amount())
	now := time.Now()
	if d.Outstanding().IsZero() {
		d.Status = DocumentStatusPaid
		d.PaidAt = &now
	} else {
		d.Status = DocumentStatusPartial
	}
	d.MarkChanged(now)
	return nil
}

// Void cancels the document; only documents without applications can be voided
func (d *OpenDocument) Void(reason string) error {
	if d.Status != DocumentStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void document in %s status", d.Status))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}
	d.Status = DocumentStatusVoided
	d.VoidReason = reason
	d.MarkChanged(time.Now())
	return nil
}

// IsAgeable returns true if the document contributes to an aging report
func (d *OpenDocument) IsAgeable() bool {
	return d.Kind.IsAgeable() && d.Status != DocumentStatusVoided
}

// ToOpenItem converts the document to an aging input
func (d *OpenDocument) ToOpenItem() report.OpenItem {
	issue := d.IssueDate
	return report.OpenItem{
		ID:                  d.ID.String(),
		CounterpartyID:      d.CounterpartyID.String(),
		CounterpartyName:    d.CounterpartyName,
		OriginalAmount:      d.TotalAmount,
		PaidOrAppliedAmount: d.AppliedAmount,
		DueDate:             d.DueDate,
		IssueDate:           &issue,
	}
}
