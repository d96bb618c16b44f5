package export

import (
	"bytes"
	"encoding/csv"
)

// CSVRenderer writes the aging table as CSV. When the tenant uses ',' as
// decimal separator the file is ';' separated so spreadsheet tools split
// columns correctly.
type CSVRenderer struct{}

// NewCSVRenderer creates a CSV renderer
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Format implements Renderer
func (r *CSVRenderer) Format() Format {
	return FormatCSV
}

// Render implements Renderer
func (r *CSVRenderer) Render(doc *AgingDocument) (*Result, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if doc.formatter().Settings().DecimalSeparator == "," {
		w.Comma = ';'
	}

	records := [][]string{doc.Header()}
	records = append(records, doc.Rows()...)
	records = append(records, doc.TotalRow())
	if err := w.WriteAll(records); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write csv", err)
	}
	return newResult(doc, FormatCSV, buf.Bytes()), nil
}

// Excel needs the BOM to read UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
