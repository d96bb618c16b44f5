package export

import (
	"bytes"
	"strings"

	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/xuri/excelize/v2"
)

const (
	agingSheet   = "Antigüedad"
	skippedSheet = "Omitidos"
	headerRow    = 5
	amountCols   = 8 // C..H hold the five buckets and the total
)

// XLSXRenderer writes the aging table as a workbook. Amounts are numeric
// cells with a number format matching the tenant precision.
type XLSXRenderer struct{}

// NewXLSXRenderer creates an XLSX renderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// Format implements Renderer
func (r *XLSXRenderer) Format() Format {
	return FormatXLSX
}

// Render implements Renderer
func (r *XLSXRenderer) Render(doc *AgingDocument) (*Result, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", agingSheet); err != nil {
		return nil, renderFailed(err)
	}
	if err := r.writeAging(f, doc); err != nil {
		return nil, renderFailed(err)
	}
	if len(doc.Report.Skipped) > 0 {
		if err := r.writeSkipped(f, doc.Report.Skipped); err != nil {
			return nil, renderFailed(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, renderFailed(err)
	}
	return newResult(doc, FormatXLSX, buf.Bytes()), nil
}

func (r *XLSXRenderer) writeAging(f *excelize.File, doc *AgingDocument) error {
	settings := doc.formatter().Settings()
	numFmt := amountNumFmt(settings.DecimalPlaces)

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}

	meta := [][]any{
		{doc.Title()},
		{doc.CompanyName, "RNC", doc.RNC},
		{"Fecha de corte", doc.ReferenceDate.Format("2006-01-02"), "Moneda", settings.CurrencyLabel},
	}
	for i, values := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(agingSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(agingSheet, "A1", "A1", boldStyle); err != nil {
		return err
	}

	header := make([]any, 0, len(doc.Header()))
	for _, h := range doc.Header() {
		header = append(header, h)
	}
	if err := setRow(f, headerRow, header, boldStyle, 1, len(header)); err != nil {
		return err
	}

	row := headerRow + 1
	for _, s := range doc.Report.PerCounterparty {
		if err := setRow(f, row, amountRow(s.CounterpartyID, s.CounterpartyName, s.BucketTotals, s.ItemCount), amountStyle, 3, amountCols); err != nil {
			return err
		}
		row++
	}

	count := 0
	for _, s := range doc.Report.PerCounterparty {
		count += s.ItemCount
	}
	if err := setRow(f, row, amountRow("", "TOTAL", doc.Report.GrandTotal, count), totalStyle, 1, amountCols); err != nil {
		return err
	}

	if err := f.SetColWidth(agingSheet, "A", "A", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(agingSheet, "B", "B", 32); err != nil {
		return err
	}
	return f.SetColWidth(agingSheet, "C", "H", 16)
}

func (r *XLSXRenderer) writeSkipped(f *excelize.File, skipped []report.SkippedItem) error {
	if _, err := f.NewSheet(skippedSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(skippedSheet, "A1", &[]any{"Documento", "Código", "Motivo"}); err != nil {
		return err
	}
	for i, item := range skipped {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(skippedSheet, cell, &[]any{item.ID, item.CounterpartyID, item.Reason}); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes values starting at column A and styles columns fromCol to
// toCol (1-based, inclusive).
func setRow(f *excelize.File, row int, values []any, style, fromCol, toCol int) error {
	first, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(agingSheet, first, &values); err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(fromCol, row)
	to, _ := excelize.CoordinatesToCellName(toCol, row)
	return f.SetCellStyle(agingSheet, from, to, style)
}

func amountRow(id, name string, totals report.BucketTotals, count int) []any {
	row := []any{id, name}
	for _, bucket := range report.Buckets() {
		row = append(row, totals.Get(bucket).InexactFloat64())
	}
	return append(row, totals.Total.InexactFloat64(), count)
}

// amountNumFmt builds an Excel number format such as #,##0.00
func amountNumFmt(decimals int) string {
	if decimals <= 0 {
		return "#,##0"
	}
	return "#,##0." + strings.Repeat("0", decimals)
}

func renderFailed(err error) error {
	return NewRenderError(ErrCodeRenderFailed, "failed to render xlsx", err)
}
