package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/contabilidad/backend/internal/domain/report"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOpenItemRecords(t *testing.T) {
	t.Run("Spanish headers with semicolons and comma decimals", func(t *testing.T) {
		csv := "\xEF\xBB\xBFDocumento;RNC;Cliente;Monto;Pagado;Vencimiento;Fecha Emisión\n" +
			"B0100000001;101010101;Ferretería Ochoa;RD$ 1.500,00;500,00;15/01/2024;01/01/2024\n" +
			"B0100000002;101010101;Ferretería Ochoa;2.000;;;2024-02-10\n"
		format := numformat.DefaultSettings()
		format.ThousandSeparator, format.DecimalSeparator = numformat.SeparatorsFor(numformat.PatternCommaDecimal)

		result, err := ReadOpenItemRecords(strings.NewReader(csv), WithAmountFormat(format))

		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 2, result.TotalRows)
		require.Equal(t, 2, result.ValidRows())
		assert.Equal(t, report.OpenItemRecord{
			ID:                  "B0100000001",
			CounterpartyID:      "101010101",
			CounterpartyName:    "Ferretería Ochoa",
			OriginalAmount:      "1500",
			PaidOrAppliedAmount: "500",
			DueDate:             "2024-01-15",
			IssueDate:           "2024-01-01",
		}, result.Records[0])
		assert.Equal(t, "2000", result.Records[1].OriginalAmount)
		assert.Equal(t, "", result.Records[1].DueDate)
	})

	t.Run("Canonical headers", func(t *testing.T) {
		csv := "id,counterparty_id,counterparty_name,original_amount,paid_or_applied_amount,due_date,issue_date\n" +
			"F-1,C1,Cliente Uno,\"1,234.56\",0,2024-03-01,2024-02-01\n"

		result, err := ReadOpenItemRecords(strings.NewReader(csv))

		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "1234.56", result.Records[0].OriginalAmount)
		assert.Equal(t, "Cliente Uno", result.Records[0].CounterpartyName)
	})

	t.Run("Row errors are reported and rows excluded", func(t *testing.T) {
		csv := "ncf,cliente_id,monto,vencimiento\n" +
			"A1,C1,100,2024-01-01\n" +
			"A2,,100,2024-01-01\n" +
			"A3,C1,abc,2024-01-01\n" +
			"A4,C1,100,31/31/2024\n" +
			"A1,C2,50,2024-01-01\n" +
			",C3,75,\n"

		result, err := ReadOpenItemRecords(strings.NewReader(csv))

		require.NoError(t, err)
		assert.Equal(t, 6, result.TotalRows)
		require.Len(t, result.Records, 2)
		assert.Equal(t, "A1", result.Records[0].ID)
		assert.Equal(t, "row-7", result.Records[1].ID)
		assert.Equal(t, "C3", result.Records[1].CounterpartyName)

		require.Len(t, result.Errors, 4)
		assert.Equal(t, RowError{Row: 3, Column: ColumnCounterpartyID, Code: ErrCodeImportRequiredField, Message: "field 'counterparty_id' is required"}, result.Errors[0])
		assert.Equal(t, ErrCodeImportInvalidAmount, result.Errors[1].Code)
		assert.Equal(t, 4, result.Errors[1].Row)
		assert.Equal(t, ErrCodeImportInvalidDate, result.Errors[2].Code)
		assert.Equal(t, ErrCodeImportDuplicateInFile, result.Errors[3].Code)
		assert.Equal(t, 6, result.Errors[3].Row)
	})

	t.Run("Missing required columns", func(t *testing.T) {
		_, err := ReadOpenItemRecords(strings.NewReader("ncf,cliente\nA1,ACME\n"))

		require.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "counterparty_id")
		assert.Contains(t, err.Error(), "original_amount")
	})

	t.Run("Header only", func(t *testing.T) {
		_, err := ReadOpenItemRecords(strings.NewReader("rnc,monto\n"))
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("Error limit", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("rnc,monto\n")
		for i := 0; i < 10; i++ {
			sb.WriteString(",1\n")
		}

		result, err := ReadOpenItemRecords(strings.NewReader(sb.String()), WithMaxErrors(3))

		require.NoError(t, err)
		assert.Len(t, result.Errors, 3)
		assert.Equal(t, 10, result.TotalErrors)
		assert.True(t, result.Truncated)
		assert.Empty(t, result.Records)
	})
}

func TestReadOpenItemsFile_TooLarge(t *testing.T) {
	big := strings.NewReader("rnc,monto\n" + strings.Repeat("x", MaxFileSize))

	_, err := ReadOpenItemsFile(big)

	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestNormalizeAmount(t *testing.T) {
	def := numformat.DefaultSettings()
	comma := def
	comma.ThousandSeparator, comma.DecimalSeparator = numformat.SeparatorsFor(numformat.PatternCommaDecimal)
	space := def
	space.ThousandSeparator, space.DecimalSeparator = numformat.SeparatorsFor(numformat.PatternSpaceGroup)
	usd := def
	usd.CurrencyLabel = "US$"

	tests := []struct {
		name   string
		input  string
		format numformat.Settings
		want   string
		ok     bool
	}{
		{"plain", "1234.5", def, "1234.5", true},
		{"grouped", "1,234,567.89", def, "1234567.89", true},
		{"label", "RD$ 1,000.00", def, "1000", true},
		{"configured label", "US$1,000.25", usd, "1000.25", true},
		{"comma decimal", "1.234,56", comma, "1234.56", true},
		{"space group", "1 234 567.10", space, "1234567.1", true},
		{"nbsp group", "1\u00a0234.10", space, "1234.1", true},
		{"parentheses negative", "(150.00)", def, "-150", true},
		{"minus", "-20", def, "-20", true},
		{"garbage", "abc", def, "", false},
		{"empty", "", def, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeAmount(tt.input, tt.format)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadOpenItemRecords_FeedsAging(t *testing.T) {
	csv := "cliente_id;nombre;monto;pagado;vencimiento\n" +
		"C1;Colmado Pérez;1.000,00;;01/03/2024\n" +
		"C1;Colmado Pérez;500,00;100,00;01/01/2024\n" +
		"C2;Farmacia Sol;250,00;250,00;01/01/2024\n"
	format := numformat.DefaultSettings()
	format.ThousandSeparator, format.DecimalSeparator = numformat.SeparatorsFor(numformat.PatternCommaDecimal)

	result, err := ReadOpenItemRecords(strings.NewReader(csv), WithAmountFormat(format))
	require.NoError(t, err)

	ref := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	agingReport, err := report.ComputeAgingFromRecords(result.Records, ref)
	require.NoError(t, err)

	require.Len(t, agingReport.PerCounterparty, 1)
	summary := agingReport.PerCounterparty[0]
	assert.Equal(t, "Colmado Pérez", summary.CounterpartyName)
	assert.True(t, summary.D1To30.Equal(decimal.NewFromInt(1000)))
	assert.True(t, summary.D61To90.Equal(decimal.NewFromInt(400)))
	assert.True(t, agingReport.GrandTotal.Total.Equal(decimal.NewFromInt(1400)))
}
