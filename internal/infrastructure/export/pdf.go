package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Column widths in mm for a landscape A4 page
var pdfColumnWidths = []float64{48, 62, 24, 24, 24, 24, 24, 28, 16}

// PDFRenderer writes the aging table as a landscape A4 document using the
// core Arial font. UTF-8 text is translated to cp1252.
type PDFRenderer struct {
	compress bool
}

// PDFOption configures a PDFRenderer
type PDFOption func(*PDFRenderer)

// WithCompression toggles stream compression (on by default)
func WithCompression(enabled bool) PDFOption {
	return func(r *PDFRenderer) {
		r.compress = enabled
	}
}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer(opts ...PDFOption) *PDFRenderer {
	r := &PDFRenderer{compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Format implements Renderer
func (r *PDFRenderer) Format() Format {
	return FormatPDF
}

// Render implements Renderer
func (r *PDFRenderer) Render(doc *AgingDocument) (*Result, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(doc.Title(), true)
	pdf.SetCreator("contabilidad", true)
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Página %d/{nb}", pdf.PageNo())), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr(doc.Title()))
	pdf.Ln(9)

	pdf.SetFont("Arial", "", 10)
	if doc.CompanyName != "" {
		line := doc.CompanyName
		if doc.RNC != "" {
			line += "  RNC " + doc.RNC
		}
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, tr(fmt.Sprintf("Fecha de corte: %s    Moneda: %s",
		doc.ReferenceDate.Format("2006-01-02"), doc.formatter().Settings().CurrencyLabel)))
	pdf.Ln(5)
	if !doc.GeneratedAt.IsZero() {
		pdf.Cell(0, 6, tr("Generado: "+doc.GeneratedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	writePDFRow(pdf, tr, doc.Header(), true)

	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Rows() {
		writePDFRow(pdf, tr, row, false)
	}
	pdf.SetFont("Arial", "B", 9)
	writePDFRow(pdf, tr, doc.TotalRow(), true)

	if n := len(doc.Report.Skipped); n > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("%d documento(s) omitido(s) por datos incompletos.", n)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to render pdf", err)
	}
	return newResult(doc, FormatPDF, buf.Bytes()), nil
}

func writePDFRow(pdf *gofpdf.Fpdf, tr func(string) string, cells []string, fill bool) {
	for i, text := range cells {
		align := "R"
		if i < 2 {
			align = "L"
		}
		w := pdfColumnWidths[i]
		pdf.CellFormat(w, 6, fitText(pdf, tr(text), w-2), "1", 0, align, fill, 0, "")
	}
	pdf.Ln(-1)
}

// fitText shortens s until it fits in width mm. s is already cp1252, one byte
// per character.
func fitText(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

