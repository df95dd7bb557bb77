package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor pulls plain text out of uploaded PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// CanHandle matches file sources with a .pdf extension.
func (p *PDFExtractor) CanHandle(source string, isFile bool) bool {
	if !isFile {
		return false
	}
	return strings.EqualFold(filepath.Ext(source), ".pdf")
}

// SourceType returns the stable source type identifier.
func (p *PDFExtractor) SourceType() string {
	return SourcePDF
}

// Extract reads the PDF at the given path and returns its plain text. The
// title is the first non-empty line of the text.
func (p *PDFExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	f, reader, err := pdflib.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("reading PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, fmt.Errorf("reading PDF text: %w", err)
	}

	content := strings.TrimSpace(buf.String())
	if content == "" {
		return nil, fmt.Errorf("PDF contains no extractable text")
	}

	title := "Untitled PDF"
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			title = trimmed
			break
		}
	}
	// Keep titles to a sane length for display and hashing.
	if len(title) > 200 {
		title = title[:200]
	}

	return &Record{
		Title:   title,
		Content: content,
		Metadata: map[string]any{
			"file_path":  source,
			"file_name":  filepath.Base(source),
			"extractor":  "pdf",
			"page_count": reader.NumPage(),
		},
	}, nil
}
