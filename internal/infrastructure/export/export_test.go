package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var refDate = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

func daysFromRef(days int) *time.Time {
	t := refDate.AddDate(0, 0, days)
	return &t
}

func sampleDocument(t *testing.T, f *numformat.Formatter) *AgingDocument {
	t.Helper()
	items := []report.OpenItem{
		{ID: "B0100000001", CounterpartyID: "101010101", CounterpartyName: "Ferretería Ochoa", OriginalAmount: decimal.NewFromInt(1000), DueDate: daysFromRef(-10)},
		{ID: "B0100000002", CounterpartyID: "101010101", CounterpartyName: "Ferretería Ochoa", OriginalAmount: decimal.NewFromInt(600), PaidOrAppliedAmount: decimal.NewFromInt(100), DueDate: daysFromRef(5)},
		{ID: "B0100000003", CounterpartyID: "130000001", CounterpartyName: "Farmacia Sol", OriginalAmount: decimal.NewFromInt(250), DueDate: daysFromRef(-100)},
		{ID: "B0100000004", CounterpartyID: "130000001", CounterpartyName: "Farmacia Sol", OriginalAmount: decimal.NewFromInt(80)},
	}
	rep, err := report.ComputeAging(items, refDate)
	require.NoError(t, err)
	return &AgingDocument{
		CompanyName:   "Distribuidora Caribe SRL",
		RNC:           "131246753",
		Direction:     finance.DirectionReceivable,
		ReferenceDate: refDate,
		GeneratedAt:   time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
		Report:        rep,
		Formatter:     f,
	}
}

func commaDecimalFormatter() *numformat.Formatter {
	pattern := numformat.PatternCommaDecimal
	currency := "USD"
	return numformat.NewDefault().Configure(numformat.RawSettings{NumberFormat: &pattern, DefaultCurrency: &currency})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"", FormatCSV},
		{"CSV", FormatCSV},
		{" xlsx ", FormatXLSX},
		{"pdf", FormatPDF},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("docx")
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeUnsupportedFormat, renderErr.Code)
}

func TestNewRenderer(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatXLSX, FormatPDF} {
		r, err := NewRenderer(f)
		require.NoError(t, err)
		assert.Equal(t, f, r.Format())
	}
	_, err := NewRenderer("txt")
	assert.Error(t, err)
}

func TestAgingDocument(t *testing.T) {
	doc := sampleDocument(t, numformat.NewDefault())

	assert.Equal(t, "Antigüedad de cuentas por cobrar", doc.Title())
	assert.Equal(t, "antiguedad-cxc-2024-03-31.pdf", doc.Filename(FormatPDF))

	rows := doc.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"101010101", "Ferretería Ochoa", "500.00", "1,000.00", "0.00", "0.00", "0.00", "1,500.00", "2"}, rows[0])
	assert.Equal(t, []string{"130000001", "Farmacia Sol", "0.00", "0.00", "0.00", "0.00", "250.00", "250.00", "1"}, rows[1])
	assert.Equal(t, []string{"", "TOTAL", "500.00", "1,000.00", "0.00", "0.00", "250.00", "1,750.00", "3"}, doc.TotalRow())

	doc.Direction = finance.DirectionPayable
	assert.Equal(t, "Antigüedad de cuentas por pagar", doc.Title())
	assert.Equal(t, "antiguedad-cxp-2024-03-31.xlsx", doc.Filename(FormatXLSX))
}

func readCSV(t *testing.T, data []byte, comma rune) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	r := csv.NewReader(bytes.NewReader(data[len(utf8BOM):]))
	r.Comma = comma
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVRenderer(t *testing.T) {
	t.Run("default separators", func(t *testing.T) {
		doc := sampleDocument(t, numformat.NewDefault())

		result, err := NewCSVRenderer().Render(doc)

		require.NoError(t, err)
		assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
		assert.Equal(t, "antiguedad-cxc-2024-03-31.csv", result.Filename)

		records := readCSV(t, result.Data, ',')
		require.Len(t, records, 4)
		assert.Equal(t, doc.Header(), records[0])
		assert.Equal(t, "1,000.00", records[1][3])
		assert.Equal(t, "1,750.00", records[3][7])
	})

	t.Run("comma decimals switch to semicolons", func(t *testing.T) {
		doc := sampleDocument(t, commaDecimalFormatter())

		result, err := NewCSVRenderer().Render(doc)

		require.NoError(t, err)
		records := readCSV(t, result.Data, ';')
		assert.Equal(t, "1.000,00", records[1][3])
		assert.Equal(t, "1.750,00", records[3][7])
	})
}

func TestXLSXRenderer(t *testing.T) {
	doc := sampleDocument(t, numformat.NewDefault())

	result, err := NewXLSXRenderer().Render(doc)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX.ContentType(), result.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{agingSheet, skippedSheet}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	cell := func(sheet, name string) string {
		v, err := f.GetCellValue(sheet, name, raw)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Antigüedad de cuentas por cobrar", cell(agingSheet, "A1"))
	assert.Equal(t, "131246753", cell(agingSheet, "C2"))
	assert.Equal(t, "2024-03-31", cell(agingSheet, "B3"))
	assert.Equal(t, "Código", cell(agingSheet, "A5"))
	assert.Equal(t, "Ferretería Ochoa", cell(agingSheet, "B6"))
	assert.Equal(t, "500", cell(agingSheet, "C6"))
	assert.Equal(t, "1500", cell(agingSheet, "H6"))
	assert.Equal(t, "2", cell(agingSheet, "I6"))
	assert.Equal(t, "TOTAL", cell(agingSheet, "B8"))
	assert.Equal(t, "1750", cell(agingSheet, "H8"))

	assert.Equal(t, "B0100000004", cell(skippedSheet, "A2"))
	assert.Equal(t, report.SkipReasonNoUsableDate, cell(skippedSheet, "C2"))
}

func TestXLSXRenderer_NoSkippedSheet(t *testing.T) {
	doc := sampleDocument(t, numformat.NewDefault())
	doc.Report.Skipped = nil

	result, err := NewXLSXRenderer().Render(doc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{agingSheet}, f.GetSheetList())
}

func TestAmountNumFmt(t *testing.T) {
	assert.Equal(t, "#,##0", amountNumFmt(0))
	assert.Equal(t, "#,##0.00", amountNumFmt(2))
	assert.Equal(t, "#,##0.0000", amountNumFmt(4))
}

func TestPDFRenderer(t *testing.T) {
	doc := sampleDocument(t, numformat.NewDefault())

	result, err := NewPDFRenderer(WithCompression(false)).Render(doc)

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "antiguedad-cxc-2024-03-31.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(result.Data, []byte("de cuentas por cobrar")))
	assert.True(t, bytes.Contains(result.Data, []byte("TOTAL")))
	assert.True(t, bytes.Contains(result.Data, []byte("1,750.00")))
	// core fonts are cp1252: á is the single byte 0xE1, never UTF-8
	assert.True(t, bytes.Contains(result.Data, []byte("P\xe1gina 1/")))
	assert.False(t, bytes.Contains(result.Data, []byte("P\xc3\xa1gina")))
}

func TestPDFRenderer_Compressed(t *testing.T) {
	doc := sampleDocument(t, numformat.NewDefault())

	compressed, err := NewPDFRenderer().Render(doc)
	require.NoError(t, err)
	plain, err := NewPDFRenderer(WithCompression(false)).Render(doc)
	require.NoError(t, err)

	assert.Less(t, len(compressed.Data), len(plain.Data))
}
