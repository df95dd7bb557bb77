// Package extract turns heterogeneous sources (URLs, uploaded files) into
// normalized text records. Each source family has its own extractor; the
// Router picks the first capable one from a fixed priority order.
package extract

import (
	"context"
	"fmt"
	"log"
)

// Source type identifiers. These are part of the stored data contract and
// must stay stable.
const (
	SourceTwitter = "twitter"
	SourcePDF     = "pdf"
	SourceArxiv   = "arxiv"
	SourceACM     = "acm"
	SourceWeb     = "web"
)

// Record is the normalized output of an extraction. Title is always set
// (extractors supply a fallback) and Content is non-empty, or the extraction
// fails instead.
type Record struct {
	Title       string
	Author      *string
	PublishDate *string // RFC3339
	Content     string
	Metadata    map[string]any
}

// Extractor converts one kind of source into a Record.
type Extractor interface {
	// CanHandle reports whether this extractor recognizes the source. A pure
	// pattern check: no network, no side effects.
	CanHandle(source string, isFile bool) bool
	// Extract fetches and normalizes the source.
	Extract(ctx context.Context, source string) (*Record, error)
	// SourceType returns the stable type identifier for stored content.
	SourceType() string
}

// NoExtractorError means no registered extractor recognized the source.
type NoExtractorError struct {
	Source string
}

func (e *NoExtractorError) Error() string {
	return fmt.Sprintf("no suitable extractor found for source: %s", truncate(e.Source, 100))
}

// Router selects extractors in priority order. Specialized URL extractors
// come before the generic web fallback, which accepts any http(s) URL.
type Router struct {
	extractors []Extractor
}

// NewRouter creates a router over the given extractors. Order is the
// routing priority.
func NewRouter(extractors ...Extractor) *Router {
	return &Router{extractors: extractors}
}

// Route returns the first extractor whose CanHandle accepts the source.
func (r *Router) Route(source string, isFile bool) (Extractor, error) {
	for _, e := range r.extractors {
		if e.CanHandle(source, isFile) {
			log.Printf("selected %s extractor for source: %s", e.SourceType(), truncate(source, 100))
			return e, nil
		}
	}
	return nil, &NoExtractorError{Source: source}
}

// Extract routes the source and runs the matching extractor.
func (r *Router) Extract(ctx context.Context, source string, isFile bool) (*Record, Extractor, error) {
	extractor, err := r.Route(source, isFile)
	if err != nil {
		return nil, nil, err
	}

	record, err := extractor.Extract(ctx, source)
	if err != nil {
		return nil, extractor, fmt.Errorf("extracting %s content: %w", extractor.SourceType(), err)
	}
	if record.Content == "" {
		return nil, extractor, fmt.Errorf("extracting %s content: empty result", extractor.SourceType())
	}
	return record, extractor, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
