package settings

import (
	"encoding/json"
	"time"

	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// previewValue is rendered with every settings response
var previewValue = decimal.RequireFromString("1234567.891")

// SettingsResponse represents the accounting settings of a tenant in API responses
type SettingsResponse struct {
	TenantID          uuid.UUID       `json:"tenant_id"`
	CompanyName       string          `json:"company_name"`
	RNC               string          `json:"rnc"`
	DefaultCurrency   string          `json:"default_currency"`
	CurrencyLabel     string          `json:"currency_label"`
	DecimalPlaces     int             `json:"decimal_places"`
	NumberFormat      string          `json:"number_format"`
	ThousandSeparator string          `json:"thousand_separator"`
	DecimalSeparator  string          `json:"decimal_separator"`
	ITBISRate         decimal.Decimal `json:"itbis_rate"`
	Preview           string          `json:"preview"`
	Persisted         bool            `json:"persisted"`
	Version           int             `json:"version"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
}

// UpdateSettingsRequest represents a partial settings update; omitted fields are kept
type UpdateSettingsRequest struct {
	CompanyName     *string          `json:"company_name" binding:"omitempty,max=200"`
	RNC             *string          `json:"rnc" binding:"omitempty,rnc"`
	DefaultCurrency *string          `json:"default_currency" binding:"omitempty,iso4217"`
	DecimalPlaces   *int             `json:"decimal_places"`
	NumberFormat    *string          `json:"number_format" binding:"omitempty,number_format"`
	ITBISRate       *decimal.Decimal `json:"itbis_rate"`
}

// ToChanges converts the request into a domain change set
func (r UpdateSettingsRequest) ToChanges() settings.Changes {
	return settings.Changes{
		CompanyName:     r.CompanyName,
		RNC:             r.RNC,
		DefaultCurrency: r.DefaultCurrency,
		DecimalPlaces:   r.DecimalPlaces,
		NumberFormat:    r.NumberFormat,
		ITBISRate:       r.ITBISRate,
	}
}

// PreviewRequest asks how values render. Settings, when given, are applied on
// top of the tenant's stored settings without saving them.
type PreviewRequest struct {
	Values   []json.RawMessage      `json:"values" binding:"required"`
	Settings *numformat.RawSettings `json:"settings"`
	Label    string                 `json:"label"`
}

// PreviewLine is one rendered value
type PreviewLine struct {
	Input  json.RawMessage `json:"input"`
	Number string          `json:"number"`
	Amount string          `json:"amount"`
	Money  string          `json:"money"`
}

// PreviewResponse lists the rendered values with the settings that produced them
type PreviewResponse struct {
	Settings numformat.Settings `json:"settings"`
	Lines    []PreviewLine      `json:"lines"`
}

func toSettingsResponse(s *settings.AccountingSettings, persisted bool) *SettingsResponse {
	f := s.Formatter()
	fs := f.Settings()
	resp := &SettingsResponse{
		TenantID:          s.TenantID,
		CompanyName:       s.CompanyName,
		RNC:               s.RNC,
		DefaultCurrency:   s.DefaultCurrency.String(),
		CurrencyLabel:     fs.CurrencyLabel,
		DecimalPlaces:     s.DecimalPlaces,
		NumberFormat:      s.NumberFormat,
		ThousandSeparator: fs.ThousandSeparator,
		DecimalSeparator:  fs.DecimalSeparator,
		ITBISRate:         s.ITBISRate,
		Preview:           f.FormatMoney(previewValue),
		Persisted:         persisted,
		Version:           s.Version,
	}
	if persisted {
		updatedAt := s.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
