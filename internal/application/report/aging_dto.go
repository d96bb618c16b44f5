package report

import (
	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/google/uuid"
)

// AgingQuery selects the documents aged by GetAging. AsOf uses YYYY-MM-DD and
// defaults to today in the configured timezone. Currency defaults to the
// tenant's default currency; documents in other currencies are left out.
type AgingQuery struct {
	Direction      string     `form:"direction"`
	AsOf           string     `form:"as_of"`
	CounterpartyID *uuid.UUID `form:"-"` // parsed by the handler
	Currency       string     `form:"currency" binding:"omitempty,iso4217"`
	Strict         bool       `form:"strict"`
}

// BucketTotalsResponse carries bucket amounts and their formatted renderings
type BucketTotalsResponse struct {
	report.BucketTotals
	FormattedCurrent string `json:"formatted_current"`
	FormattedD1To30  string `json:"formatted_d1_30"`
	FormattedD31To60 string `json:"formatted_d31_60"`
	FormattedD61To90 string `json:"formatted_d61_90"`
	FormattedOver90  string `json:"formatted_over90"`
	FormattedTotal   string `json:"formatted_total"`
}

// CounterpartyAgingResponse is the aging line of one customer or supplier
type CounterpartyAgingResponse struct {
	CounterpartyID   string `json:"counterparty_id"`
	CounterpartyName string `json:"counterparty_name"`
	BucketTotalsResponse
	ItemCount int `json:"item_count"`
}

// AgingResponse represents an aging report in API responses
type AgingResponse struct {
	Direction       string                      `json:"direction"`
	Currency        string                      `json:"currency"`
	ReferenceDate   string                      `json:"reference_date"`
	Buckets         []report.AgingBucket        `json:"buckets"`
	PerCounterparty []CounterpartyAgingResponse `json:"per_counterparty"`
	GrandTotal      BucketTotalsResponse        `json:"grand_total"`
	ItemCount       int                         `json:"item_count"`
	Skipped         []report.SkippedItem        `json:"skipped"`
}

// ImportSummary describes how an uploaded open-item file was read
type ImportSummary struct {
	TotalRows  int        `json:"total_rows"`
	ValidRows  int        `json:"valid_rows"`
	ErrorCount int        `json:"error_count"`
	Errors     []RowIssue `json:"errors"`
	Truncated  bool       `json:"truncated"`
}

// RowIssue is a row-level problem found in an uploaded file
type RowIssue struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportAgingResponse is the aging of an uploaded file plus the import summary
type ImportAgingResponse struct {
	Aging  AgingResponse `json:"aging"`
	Import ImportSummary `json:"import"`
}

func toBucketTotalsResponse(b report.BucketTotals, f *numformat.Formatter, label string) BucketTotalsResponse {
	return BucketTotalsResponse{
		BucketTotals:     b,
		FormattedCurrent: f.FormatMoneyWithLabel(b.Current, label),
		FormattedD1To30:  f.FormatMoneyWithLabel(b.D1To30, label),
		FormattedD31To60: f.FormatMoneyWithLabel(b.D31To60, label),
		FormattedD61To90: f.FormatMoneyWithLabel(b.D61To90, label),
		FormattedOver90:  f.FormatMoneyWithLabel(b.Over90, label),
		FormattedTotal:   f.FormatMoneyWithLabel(b.Total, label),
	}
}

func toAgingResponse(direction, currency, label string, rep report.AgingReport, f *numformat.Formatter) AgingResponse {
	resp := AgingResponse{
		Direction:       direction,
		Currency:        currency,
		ReferenceDate:   rep.ReferenceDate.Format(dateLayout),
		Buckets:         report.Buckets(),
		PerCounterparty: make([]CounterpartyAgingResponse, 0, len(rep.PerCounterparty)),
		GrandTotal:      toBucketTotalsResponse(rep.GrandTotal, f, label),
		Skipped:         rep.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []report.SkippedItem{}
	}
	for _, s := range rep.PerCounterparty {
		resp.ItemCount += s.ItemCount
		resp.PerCounterparty = append(resp.PerCounterparty, CounterpartyAgingResponse{
			CounterpartyID:       s.CounterpartyID,
			CounterpartyName:     s.CounterpartyName,
			BucketTotalsResponse: toBucketTotalsResponse(s.BucketTotals, f, label),
			ItemCount:            s.ItemCount,
		})
	}
	return resp
}
