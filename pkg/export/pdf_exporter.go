package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMarginMM    = 10.0
	pdfRowHeightMM = 7.0
)

// PDFExporter renders datasets as a titled table on landscape A4 pages.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the dataset, repeating the header row on every page.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMarginMM, 15, pdfMarginMM)
	pdf.SetAutoPageBreak(true, 15)

	pageWidth, _ := pdf.GetPageSize()
	widths := columnWidths(data.Columns, pageWidth-2*pdfMarginMM)
	labels := data.labels()

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		for i, label := range labels {
			pdf.CellFormat(widths[i], 8, label, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowHeightMM > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, value := range data.record(row) {
			pdf.CellFormat(widths[i], pdfRowHeightMM, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column, usable float64) []float64 {
	total := 0.0
	for _, col := range cols {
		total += weightOf(col)
	}
	widths := make([]float64, len(cols))
	for i, col := range cols {
		widths[i] = usable * weightOf(col) / total
	}
	return widths
}

func weightOf(col Column) float64 {
	if col.Weight <= 0 {
		return 1
	}
	return col.Weight
}
