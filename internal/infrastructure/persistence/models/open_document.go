package models

import (
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenDocumentModel is the persistence model for OpenDocument
type OpenDocumentModel struct {
	TenantAggregateModel
	Kind             finance.DocumentKind   `gorm:"type:varchar(20);not null;index"`
	Direction        finance.Direction      `gorm:"type:varchar(20);not null;index"`
	NCF              string                 `gorm:"column:ncf;type:varchar(19);not null;index"`
	CounterpartyID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	CounterpartyName string                 `gorm:"type:varchar(200);not null"`
	Currency         string                 `gorm:"type:varchar(3);not null;default:'DOP'"`
	TotalAmount      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	AppliedAmount    decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	IssueDate        time.Time              `gorm:"type:date;not null;index"`
	DueDate          *time.Time             `gorm:"type:date;index"`
	Status           finance.DocumentStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	VoidReason       string                 `gorm:"type:varchar(500)"`
	PaidAt           *time.Time
}

// TableName returns the table name for GORM
func (OpenDocumentModel) TableName() string {
	return "open_documents"
}

// ToDomain converts the persistence model to a domain OpenDocument
func (m *OpenDocumentModel) ToDomain() *finance.OpenDocument {
	doc := &finance.OpenDocument{
		Kind:             m.Kind,
		Direction:        m.Direction,
		NCF:              m.NCF,
		CounterpartyID:   m.CounterpartyID,
		CounterpartyName: m.CounterpartyName,
		Currency:         valueobject.Currency(m.Currency),
		TotalAmount:      m.TotalAmount,
		AppliedAmount:    m.AppliedAmount,
		IssueDate:        calendarDate(m.IssueDate),
		DueDate:          calendarDatePtr(m.DueDate),
		Status:           m.Status,
		VoidReason:       m.VoidReason,
		PaidAt:           m.PaidAt,
	}
	m.PopulateTenantAggregateRoot(&doc.TenantAggregateRoot)
	return doc
}

// FromDomain populates the persistence model from a domain OpenDocument
func (m *OpenDocumentModel) FromDomain(doc *finance.OpenDocument) {
	m.FromDomainTenantAggregateRoot(doc.TenantAggregateRoot)
	m.Kind = doc.Kind
	m.Direction = doc.Direction
	m.NCF = doc.NCF
	m.CounterpartyID = doc.CounterpartyID
	m.CounterpartyName = doc.CounterpartyName
	m.Currency = string(doc.Currency)
	m.TotalAmount = doc.TotalAmount
	m.AppliedAmount = doc.AppliedAmount
	m.IssueDate = calendarDate(doc.IssueDate)
	m.DueDate = calendarDatePtr(doc.DueDate)
	m.Status = doc.Status
	m.VoidReason = doc.VoidReason
	m.PaidAt = doc.PaidAt
}

// OpenDocumentModelFromDomain creates a new persistence model from a domain OpenDocument
func OpenDocumentModelFromDomain(doc *finance.OpenDocument) *OpenDocumentModel {
	m := &OpenDocumentModel{}
	m.FromDomain(doc)
	return m
}

// calendarDate pins a document date to UTC midnight. Document dates are
// UTC midnight instants; a driver may hand them back in time.Local, whose
// wall clock west of UTC shows the previous day.
func calendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func calendarDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := calendarDate(*t)
	return &d
}
