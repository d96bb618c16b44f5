package models

import (
	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AccountingSettingsModel is the persistence model for AccountingSettings.
// A tenant owns at most one row.
type AccountingSettingsModel struct {
	TenantAggregateModel
	CompanyName     string          `gorm:"type:varchar(200);not null;default:''"`
	RNC             string          `gorm:"column:rnc;type:varchar(11);not null;default:''"`
	DefaultCurrency string          `gorm:"type:varchar(3);not null;default:'DOP'"`
	DecimalPlaces   int             `gorm:"not null;default:2"`
	NumberFormat    string          `gorm:"type:varchar(20);not null;default:'1,234.56'"`
	ITBISRate       decimal.Decimal `gorm:"column:itbis_rate;type:decimal(5,4);not null"`
}

// TableName returns the table name for GORM
func (AccountingSettingsModel) TableName() string {
	return "accounting_settings"
}

// ToDomain converts the persistence model to a domain AccountingSettings
func (m *AccountingSettingsModel) ToDomain() *settings.AccountingSettings {
	s := &settings.AccountingSettings{
		CompanyName:     m.CompanyName,
		RNC:             m.RNC,
		DefaultCurrency: valueobject.Currency(m.DefaultCurrency),
		DecimalPlaces:   m.DecimalPlaces,
		NumberFormat:    m.NumberFormat,
		ITBISRate:       m.ITBISRate,
	}
	m.PopulateTenantAggregateRoot(&s.TenantAggregateRoot)
	return s
}

// FromDomain populates the persistence model from a domain AccountingSettings
func (m *AccountingSettingsModel) FromDomain(s *settings.AccountingSettings) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.CompanyName = s.CompanyName
	m.RNC = s.RNC
	m.DefaultCurrency = string(s.DefaultCurrency)
	m.DecimalPlaces = s.DecimalPlaces
	m.NumberFormat = s.NumberFormat
	m.ITBISRate = s.ITBISRate
}

// AccountingSettingsModelFromDomain creates a new persistence model from a domain AccountingSettings
func AccountingSettingsModelFromDomain(s *settings.AccountingSettings) *AccountingSettingsModel {
	m := &AccountingSettingsModel{}
	m.FromDomain(s)
	return m
}

