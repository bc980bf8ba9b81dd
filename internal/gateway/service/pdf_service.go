package service

import (
	"bytes"
	"fmt"
	"strings"

	"golang-analyst-gateway/pkg/logger"

	"github.com/go-pdf/fpdf"
)

// PdfService packs a markdown report and its chart images into a PDF
// document.
type PdfService interface {
	Render(title, markdown string, charts [][]byte) ([]byte, error)
}

type pdfService struct {
	fontPath string
	log      *logger.Logger
}

// NewPdfService builds a PDF renderer. fontPath points to a TTF with CJK
// coverage; when empty the built-in Helvetica is used and non-latin text
// will not render correctly.
func NewPdfService(fontPath string, log *logger.Logger) PdfService {
	return &pdfService{fontPath: fontPath, log: log}
}

func (s *pdfService) Render(title, markdown string, charts [][]byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)

	family := "Helvetica"
	if s.fontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", s.fontPath)
		pdf.AddUTF8Font(family, "B", s.fontPath)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 18)
	pdf.MultiCell(0, 10, title, "", "L", false)
	pdf.Ln(4)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "### "):
			pdf.SetFont(family, "B", 12)
			pdf.MultiCell(0, 7, strings.TrimPrefix(trimmed, "### "), "", "L", false)
		case strings.HasPrefix(trimmed, "## "):
			pdf.Ln(2)
			pdf.SetFont(family, "B", 14)
			pdf.MultiCell(0, 8, strings.TrimPrefix(trimmed, "## "), "", "L", false)
		case strings.HasPrefix(trimmed, "# "):
			pdf.Ln(3)
			pdf.SetFont(family, "B", 16)
			pdf.MultiCell(0, 9, strings.TrimPrefix(trimmed, "# "), "", "L", false)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont(family, "", 10)
			pdf.MultiCell(0, 6, "  • "+trimmed[2:], "", "L", false)
		case trimmed == "":
			pdf.Ln(3)
		default:
			pdf.SetFont(family, "", 10)
			pdf.MultiCell(0, 6, stripInlineMarkdown(trimmed), "", "L", false)
		}
	}

	for i, img := range charts {
		if len(img) == 0 {
			continue
		}
		name := fmt.Sprintf("chart-%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.AddPage()
		// Width fixed to the printable area; height 0 preserves aspect ratio.
		pdf.ImageOptions(name, 15, 30, 180, 0, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func stripInlineMarkdown(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
