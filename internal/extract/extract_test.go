package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// stubExtractor recognizes a fixed prefix and returns a canned record.
type stubExtractor struct {
	sourceType string
	prefix     string
	record     *Record
	err        error
}

func (s *stubExtractor) CanHandle(source string, isFile bool) bool {
	return !isFile && len(source) >= len(s.prefix) && source[:len(s.prefix)] == s.prefix
}

func (s *stubExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	return s.record, s.err
}

func (s *stubExtractor) SourceType() string { return s.sourceType }

func TestRouterPriorityOrder(t *testing.T) {
	specific := &stubExtractor{sourceType: "specific", prefix: "https://special.com"}
	generic := &stubExtractor{sourceType: "generic", prefix: "https://"}
	router := NewRouter(specific, generic)

	e, err := router.Route("https://special.com/item", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.SourceType() != "specific" {
		t.Errorf("expected specific extractor, got %s", e.SourceType())
	}

	e, err = router.Route("https://other.com/item", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.SourceType() != "generic" {
		t.Errorf("expected generic fallback, got %s", e.SourceType())
	}
}

func TestRouterNoExtractor(t *testing.T) {
	router := NewRouter(&stubExtractor{sourceType: "web", prefix: "https://"})

	_, err := router.Route("/tmp/file.docx", true)
	if err == nil {
		t.Fatal("expected error for unroutable source")
	}
	var noExt *NoExtractorError
	if !errors.As(err, &noExt) {
		t.Errorf("expected NoExtractorError, got %T", err)
	}
}

func TestRouterExtractEmptyContent(t *testing.T) {
	router := NewRouter(&stubExtractor{
		sourceType: "web",
		prefix:     "https://",
		record:     &Record{Title: "T", Content: ""},
	})

	_, _, err := router.Extract(context.Background(), "https://example.com", false)
	if err == nil {
		t.Fatal("expected error for empty extraction result")
	}
}

func TestRouterExtractWrapsError(t *testing.T) {
	inner := fmt.Errorf("boom")
	router := NewRouter(&stubExtractor{sourceType: "web", prefix: "https://", err: inner})

	_, _, err := router.Extract(context.Background(), "https://example.com", false)
	if err == nil || !errors.Is(err, inner) {
		t.Fatalf("expected wrapped extractor error, got %v", err)
	}
}

func TestDefaultRouterPriority(t *testing.T) {
	// File sources route to the PDF extractor even though the web extractor
	// accepts any URL.
	pdf := NewPDFExtractor()
	if !pdf.CanHandle("/tmp/upload.pdf", true) {
		t.Error("PDF extractor should accept .pdf files")
	}
	if pdf.CanHandle("https://example.com/a.pdf", false) {
		t.Error("PDF extractor should only accept file sources")
	}
}
