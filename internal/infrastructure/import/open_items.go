package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/shopspring/decimal"
)

// Canonical open item columns
const (
	ColumnID               = "id"
	ColumnCounterpartyID   = "counterparty_id"
	ColumnCounterpartyName = "counterparty_name"
	ColumnOriginalAmount   = "original_amount"
	ColumnPaidAmount       = "paid_or_applied_amount"
	ColumnDueDate          = "due_date"
	ColumnIssueDate        = "issue_date"
)

// MaxFileSize caps uploads accepted by ReadOpenItemsFile
const MaxFileSize = 10 << 20

// RequiredOpenItemColumns must be present in every open item file
var RequiredOpenItemColumns = []string{ColumnCounterpartyID, ColumnOriginalAmount}

// OpenItemHeaderAliases maps the Spanish and English spellings seen in
// accounting exports to canonical column names.
var OpenItemHeaderAliases = map[string]string{
	"documento":         ColumnID,
	"ncf":               ColumnID,
	"numero":            ColumnID,
	"document_id":       ColumnID,
	"cliente_id":        ColumnCounterpartyID,
	"proveedor_id":      ColumnCounterpartyID,
	"rnc":               ColumnCounterpartyID,
	"customer_id":       ColumnCounterpartyID,
	"supplier_id":       ColumnCounterpartyID,
	"cliente":           ColumnCounterpartyName,
	"proveedor":         ColumnCounterpartyName,
	"nombre":            ColumnCounterpartyName,
	"razon_social":      ColumnCounterpartyName,
	"customer":          ColumnCounterpartyName,
	"supplier":          ColumnCounterpartyName,
	"monto":             ColumnOriginalAmount,
	"total":             ColumnOriginalAmount,
	"amount":            ColumnOriginalAmount,
	"monto_original":    ColumnOriginalAmount,
	"pagado":            ColumnPaidAmount,
	"aplicado":          ColumnPaidAmount,
	"abonado":           ColumnPaidAmount,
	"paid":              ColumnPaidAmount,
	"paid_amount":       ColumnPaidAmount,
	"vencimiento":       ColumnDueDate,
	"fecha_vencimiento": ColumnDueDate,
	"due":               ColumnDueDate,
	"fecha":             ColumnIssueDate,
	"emision":           ColumnIssueDate,
	"fecha_emision":     ColumnIssueDate,
	"issued":            ColumnIssueDate,
}

// OpenItemImport is the outcome of reading an open item file
type OpenItemImport struct {
	Records     []report.OpenItemRecord `json:"records"`
	Errors      []RowError              `json:"errors,omitempty"`
	TotalRows   int                     `json:"total_rows"`
	TotalErrors int                     `json:"total_errors"`
	Truncated   bool                    `json:"truncated,omitempty"`
}

// ValidRows returns the number of rows turned into records
func (r *OpenItemImport) ValidRows() int {
	return len(r.Records)
}

// ReaderOption configures ReadOpenItemRecords
type ReaderOption func(*readerConfig)

type readerConfig struct {
	maxErrors     int
	amountFormat  numformat.Settings
	parserOptions []ParserOption
}

// WithMaxErrors limits how many row errors are kept
func WithMaxErrors(n int) ReaderOption {
	return func(c *readerConfig) {
		c.maxErrors = n
	}
}

// WithAmountFormat sets the separators and currency label amounts were
// written with. Defaults to numformat.DefaultSettings().
func WithAmountFormat(s numformat.Settings) ReaderOption {
	return func(c *readerConfig) {
		c.amountFormat = s
	}
}

// WithParserOptions passes options through to the CSV parser
func WithParserOptions(opts ...ParserOption) ReaderOption {
	return func(c *readerConfig) {
		c.parserOptions = append(c.parserOptions, opts...)
	}
}

// ReadOpenItemsFile reads at most MaxFileSize bytes from r. Larger inputs fail
// with ErrFileTooLarge.
func ReadOpenItemsFile(r io.Reader, opts ...ReaderOption) (*OpenItemImport, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return ReadOpenItemRecords(bytes.NewReader(data), opts...)
}

// ReadOpenItemRecords parses an open item CSV. Rows with a missing counterparty
// or amount, a malformed amount or date, or a repeated id are reported as row
// errors and left out of Records. Amounts are normalized to plain decimals
// and dates to YYYY-MM-DD so the records feed report.ComputeAgingFromRecords.
func ReadOpenItemRecords(r io.Reader, opts ...ReaderOption) (*OpenItemImport, error) {
	cfg := readerConfig{amountFormat: numformat.DefaultSettings()}
	for _, opt := range opts {
		opt(&cfg)
	}

	parserOpts := append([]ParserOption{WithHeaderAliases(OpenItemHeaderAliases)}, cfg.parserOptions...)
	parser, err := NewCSVParser(r, parserOpts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders(RequiredOpenItemColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	result := &OpenItemImport{Records: make([]report.OpenItemRecord, 0)}
	errs := NewErrorCollection(cfg.maxErrors)
	seen := make(map[string]struct{})

	for {
		row, err := parser.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, err
			}
			errs.Add(RowError{Row: parser.CurrentRow(), Code: ErrCodeImportMalformedRow, Message: parseErr.Err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++

		record, ok := toRecord(row, cfg.amountFormat, errs)
		if !ok {
			continue
		}
		if _, dup := seen[record.ID]; dup {
			errs.AddDuplicateError(row.LineNumber, ColumnID, record.ID)
			continue
		}
		seen[record.ID] = struct{}{}
		result.Records = append(result.Records, record)
	}

	if result.TotalRows == 0 && !errs.HasErrors() {
		return nil, ErrNoDataRows
	}

	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	result.Truncated = errs.IsTruncated()
	return result, nil
}

func toRecord(row *Row, format numformat.Settings, errs *ErrorCollection) (report.OpenItemRecord, bool) {
	line := row.LineNumber
	valid := true

	counterparty := row.Get(ColumnCounterpartyID)
	if counterparty == "" {
		errs.AddRequiredError(line, ColumnCounterpartyID)
		valid = false
	}

	original := row.Get(ColumnOriginalAmount)
	if original == "" {
		errs.AddRequiredError(line, ColumnOriginalAmount)
		valid = false
	} else if normalized, ok := NormalizeAmount(original, format); ok {
		original = normalized
	} else {
		errs.AddFormatError(line, ColumnOriginalAmount, ErrCodeImportInvalidAmount, "a number", original)
		valid = false
	}

	paid := row.Get(ColumnPaidAmount)
	if paid != "" {
		if normalized, ok := NormalizeAmount(paid, format); ok {
			paid = normalized
		} else {
			errs.AddFormatError(line, ColumnPaidAmount, ErrCodeImportInvalidAmount, "a number", paid)
			valid = false
		}
	}

	due, dueOK := normalizeDate(row.Get(ColumnDueDate))
	if !dueOK {
		errs.AddFormatError(line, ColumnDueDate, ErrCodeImportInvalidDate, "YYYY-MM-DD or DD/MM/YYYY", row.Get(ColumnDueDate))
		valid = false
	}
	issue, issueOK := normalizeDate(row.Get(ColumnIssueDate))
	if !issueOK {
		errs.AddFormatError(line, ColumnIssueDate, ErrCodeImportInvalidDate, "YYYY-MM-DD or DD/MM/YYYY", row.Get(ColumnIssueDate))
		valid = false
	}

	if !valid {
		return report.OpenItemRecord{}, false
	}

	id := row.Get(ColumnID)
	if id == "" {
		id = "row-" + strconv.Itoa(line)
	}
	return report.OpenItemRecord{
		ID:                  id,
		CounterpartyID:      counterparty,
		CounterpartyName:    row.GetOrDefault(ColumnCounterpartyName, counterparty),
		OriginalAmount:      original,
		PaidOrAppliedAmount: paid,
		DueDate:             due,
		IssueDate:           issue,
	}, true
}

// NormalizeAmount turns an amount written with the given separators, and
// optionally prefixed by a currency label, into a plain decimal string.
// "RD$ 1,234.50" becomes "1234.50"; with PatternCommaDecimal separators
// "1.234,50" becomes "1234.50".
func NormalizeAmount(s string, format numformat.Settings) (string, bool) {
	s = trimSpaces(s)
	for _, label := range []string{format.CurrencyLabel, "RD$", "US$", "€", "$"} {
		if label != "" && strings.HasPrefix(s, label) {
			s = trimSpaces(strings.TrimPrefix(s, label))
			break
		}
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	if sep := format.ThousandSeparator; sep != "" {
		s = strings.ReplaceAll(s, sep, "")
		if sep == " " {
			s = strings.ReplaceAll(s, "\u00a0", "")
		}
	}
	if format.DecimalSeparator != "" && format.DecimalSeparator != "." {
		s = strings.Replace(s, format.DecimalSeparator, ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", false
	}
	if negative {
		d = d.Neg()
	}
	return d.String(), true
}

var inputDateLayouts = []string{"02/01/2006", "2/1/2006", "02-01-2006"}

// normalizeDate accepts the layouts report.ParseRecordDate understands plus
// day-first dates. Empty input is valid and stays empty.
func normalizeDate(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	if t := report.ParseRecordDate(s); t != nil {
		return t.Format("2006-01-02"), true
	}
	for _, layout := range inputDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
