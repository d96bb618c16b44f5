package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultITBISRate is the standard Dominican VAT rate
var DefaultITBISRate = decimal.RequireFromString("0.18")

// AccountingSettings is the per-tenant accounting configuration
type AccountingSettings struct {
	shared.TenantAggregateRoot
	CompanyName     string
	RNC             string
	DefaultCurrency valueobject.Currency
	DecimalPlaces   int
	NumberFormat    string
	ITBISRate       decimal.Decimal
}

// NewAccountingSettings returns the settings a tenant starts with
func NewAccountingSettings(tenantID uuid.UUID) *AccountingSettings {
	return &AccountingSettings{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DefaultCurrency:     valueobject.DefaultCurrency,
		DecimalPlaces:       numformat.DefaultSettings().DecimalPlaces,
		NumberFormat:        numformat.PatternDefault,
		ITBISRate:           DefaultITBISRate,
	}
}

// Changes carries an update; nil fields are left as they are
type Changes struct {
	CompanyName     *string
	RNC             *string
	DefaultCurrency *string
	DecimalPlaces   *int
	NumberFormat    *string
	ITBISRate       *decimal.Decimal
}

// Update validates and applies changes. Nothing is applied when any field is invalid.
func (s *AccountingSettings) Update(c Changes) error {
	next := *s

	if c.CompanyName != nil {
		name := strings.TrimSpace(*c.CompanyName)
		if len(name) > 200 {
			return shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot exceed 200 characters")
		}
		next.CompanyName = name
	}
	if c.RNC != nil {
		rnc, err := NormalizeRNC(*c.RNC)
		if err != nil {
			return err
		}
		next.RNC = rnc
	}
	if c.DefaultCurrency != nil {
		cur, err := valueobject.ParseCurrency(*c.DefaultCurrency)
		if err != nil {
			return shared.WrapDomainError("INVALID_CURRENCY", "Default currency must be an ISO 4217 code", err)
		}
		next.DefaultCurrency = cur
	}
	if c.DecimalPlaces != nil {
		if *c.DecimalPlaces < 0 || *c.DecimalPlaces > numformat.MaxDecimalPlaces {
			return shared.NewDomainError("INVALID_DECIMAL_PLACES",
				fmt.Sprintf("Decimal places must be between 0 and %d", numformat.MaxDecimalPlaces))
		}
		next.DecimalPlaces = *c.DecimalPlaces
	}
	if c.NumberFormat != nil {
		if !numformat.IsKnownPattern(*c.NumberFormat) {
			return shared.NewDomainError("INVALID_NUMBER_FORMAT",
				fmt.Sprintf("Number format must be one of %q, %q or %q",
					numformat.PatternDefault, numformat.PatternCommaDecimal, numformat.PatternSpaceGroup))
		}
		next.NumberFormat = *c.NumberFormat
	}
	if c.ITBISRate != nil {
		if c.ITBISRate.IsNegative() || c.ITBISRate.GreaterThan(decimal.NewFromInt(1)) {
			return shared.NewDomainError("INVALID_ITBIS_RATE", "ITBIS rate must be between 0 and 1")
		}
		next.ITBISRate = *c.ITBISRate
	}

	next.MarkChanged(time.Now())
	*s = next
	return nil
}

// NormalizeRNC strips dashes and spaces and checks the length of an RNC (9
// digits) or cedula (11 digits).
func NormalizeRNC(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == '-' || r == ' ':
			continue
		case r < '0' || r > '9':
			return "", shared.NewDomainError("INVALID_RNC", "RNC can only contain digits")
		}
		b.WriteRune(r)
	}
	rnc := b.String()
	if rnc != "" && len(rnc) != 9 && len(rnc) != 11 {
		return "", shared.NewDomainError("INVALID_RNC", "RNC must have 9 digits or a cedula 11 digits")
	}
	return rnc, nil
}

// ToRawSettings exposes the settings in the shape the number formatter consumes
func (s *AccountingSettings) ToRawSettings() numformat.RawSettings {
	currency := s.DefaultCurrency.String()
	places := float64(s.DecimalPlaces)
	format := s.NumberFormat
	return numformat.RawSettings{
		DefaultCurrency: &currency,
		DecimalPlaces:   &places,
		NumberFormat:    &format,
	}
}

// Formatter builds a number formatter for these settings
func (s *AccountingSettings) Formatter() *numformat.Formatter {
	return numformat.NewDefault().Configure(s.ToRawSettings())
}

// Repository persists accounting settings
type Repository interface {
	// FindByTenant returns shared.ErrNotFound when the tenant has no settings yet
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*AccountingSettings, error)
	Save(ctx context.Context, s *AccountingSettings) error
}
