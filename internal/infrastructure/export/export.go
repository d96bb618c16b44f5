// Package export renders aging reports as CSV, XLSX and PDF files.
//
// Amounts are written with the tenant formatter so exported files show the
// same separators, precision and currency label as the API responses.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat parses a case-insensitive format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	}
	return "", NewRenderError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported export format %q", s), nil)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// AgingDocument is everything a renderer needs to produce an aging file
type AgingDocument struct {
	CompanyName   string
	RNC           string
	Direction     finance.Direction
	ReferenceDate time.Time
	GeneratedAt   time.Time
	Report        report.AgingReport
	Formatter     *numformat.Formatter
}

// Title returns the report heading
func (d *AgingDocument) Title() string {
	if d.Direction == finance.DirectionPayable {
		return "Antigüedad de cuentas por pagar"
	}
	return "Antigüedad de cuentas por cobrar"
}

// Filename returns a file name such as antiguedad-cxc-2024-03-31.pdf
func (d *AgingDocument) Filename(f Format) string {
	slug := "cxc"
	if d.Direction == finance.DirectionPayable {
		slug = "cxp"
	}
	return fmt.Sprintf("antiguedad-%s-%s.%s", slug, d.ReferenceDate.Format("2006-01-02"), f.Extension())
}

func (d *AgingDocument) formatter() *numformat.Formatter {
	if d.Formatter == nil {
		return numformat.Current()
	}
	return d.Formatter
}

// Header returns the table column titles
func (d *AgingDocument) Header() []string {
	return []string{"Código", "Nombre", "Corriente", "1-30", "31-60", "61-90", "Más de 90", "Total", "Documentos"}
}

// Rows returns one formatted row per counterparty
func (d *AgingDocument) Rows() [][]string {
	rows := make([][]string, 0, len(d.Report.PerCounterparty))
	for _, s := range d.Report.PerCounterparty {
		rows = append(rows, d.row(s.CounterpartyID, s.CounterpartyName, s.BucketTotals, strconv.Itoa(s.ItemCount)))
	}
	return rows
}

// TotalRow returns the formatted grand total row
func (d *AgingDocument) TotalRow() []string {
	count := 0
	for _, s := range d.Report.PerCounterparty {
		count += s.ItemCount
	}
	return d.row("", "TOTAL", d.Report.GrandTotal, strconv.Itoa(count))
}

func (d *AgingDocument) row(id, name string, totals report.BucketTotals, count string) []string {
	f := d.formatter()
	row := []string{id, name}
	for _, bucket := range report.Buckets() {
		row = append(row, f.FormatAmount(totals.Get(bucket)))
	}
	return append(row, f.FormatAmount(totals.Total), count)
}

// Result is a rendered file
type Result struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Renderer turns an aging document into a file
type Renderer interface {
	Format() Format
	Render(doc *AgingDocument) (*Result, error)
}

// NewRenderer returns the renderer for format
func NewRenderer(format Format) (Renderer, error) {
	switch format {
	case FormatCSV:
		return NewCSVRenderer(), nil
	case FormatXLSX:
		return NewXLSXRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	}
	return nil, NewRenderError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format), nil)
}

// RenderError represents an error during rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeRenderFailed      = "RENDER_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func newResult(doc *AgingDocument, f Format, data []byte) *Result {
	return &Result{Data: data, ContentType: f.ContentType(), Filename: doc.Filename(f)}
}
