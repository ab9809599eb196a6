package services

import (
	"bytes"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFService renders a markdown-ish report into a plain A4 document.
type PDFService struct{}

func NewPDFService() *PDFService { return &PDFService{} }

// RenderReport lays out headings, bullets and paragraphs of report.
func (s *PDFService) RenderReport(name, report string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, tr("Burnout Recovery Report"), "", "L", false)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr("Prepared for "+name), "", "L", false)
	pdf.Ln(6)

	for _, raw := range strings.Split(report, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "" || line == "---":
			pdf.Ln(3)
		case strings.HasPrefix(line, "#"):
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 13)
			pdf.MultiCell(0, 7, tr(stripMarkup(strings.TrimLeft(line, "# "))), "", "L", false)
			pdf.SetFont("Arial", "", 11)
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			pdf.SetX(25)
			pdf.MultiCell(0, 6, tr("- "+stripMarkup(line[2:])), "", "L", false)
		default:
			pdf.MultiCell(0, 6, tr(stripMarkup(line)), "", "L", false)
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func stripMarkup(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
