// Package pipeline orchestrates the ingestion flow: extraction, dedup,
// summarization, and theme categorization, all committed atomically.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/extract"
	"github.com/mvanwyk/curio/internal/files"
	"github.com/mvanwyk/curio/internal/summarize"
	"github.com/mvanwyk/curio/internal/themes"
)

// Summarizer generates structured summaries.
type Summarizer interface {
	GenerateSummary(ctx context.Context, content string, meta summarize.Metadata, summaryType string) (*summarize.Summary, error)
}

// Categorizer assigns themes inside the pipeline transaction.
type Categorizer interface {
	Categorize(ctx context.Context, tx *database.Tx, contentID int64, summary *summarize.Summary) themes.Outcome
}

// ResultSummary is the summary portion of a pipeline result.
type ResultSummary struct {
	Overview     string   `json:"overview"`
	KeyInsights  []string `json:"key_insights"`
	Implications *string  `json:"implications"`
}

// ThemeLink is one theme assignment in a pipeline result.
type ThemeLink struct {
	ThemeID    int64    `json:"theme_id"`
	Confidence *float64 `json:"confidence"`
}

// Result is the envelope returned after processing, for both fresh
// ingestions and dedup hits.
type Result struct {
	ContentID  int64          `json:"content_id"`
	Title      string         `json:"title"`
	Author     *string        `json:"author"`
	SourceType string         `json:"source_type"`
	SourceURL  *string        `json:"source_url"`
	CreatedAt  *string        `json:"created_at"`
	Summary    *ResultSummary `json:"summary"`
	Themes     []ThemeLink    `json:"themes"`
	Duplicate  bool           `json:"duplicate"`
}

// Processor runs the full ingestion pipeline.
type Processor struct {
	db         *database.DB
	router     *extract.Router
	summarizer Summarizer
	themes     Categorizer
}

// NewProcessor creates a pipeline processor.
func NewProcessor(db *database.DB, router *extract.Router, summarizer Summarizer, categorizer Categorizer) *Processor {
	return &Processor{db: db, router: router, summarizer: summarizer, themes: categorizer}
}

// ProcessURL ingests a URL: extract, dedup, summarize, categorize, store.
// Resubmitting known content returns the stored item without reprocessing.
func (p *Processor) ProcessURL(ctx context.Context, url string) (*Result, error) {
	log.Printf("processing URL: %s", truncate(url, 100))

	record, extractor, err := p.router.Extract(ctx, url, false)
	if err != nil {
		return nil, fmt.Errorf("failed to process URL: %w", err)
	}

	content := &database.Content{
		SourceType:         extractor.SourceType(),
		SourceURL:          &url,
		Title:              record.Title,
		Author:             record.Author,
		PublishDate:        record.PublishDate,
		RawContent:         &record.Content,
		ContentHash:        files.ContentHash(record.Content, url, record.Title),
		ExtractionMetadata: record.Metadata,
	}
	return p.ingest(ctx, content, record.Content)
}

// ProcessFile ingests an uploaded file stored at path. The original file
// name keys the dedup hash so re-uploads of the same document are detected
// regardless of where the bytes landed on disk.
func (p *Processor) ProcessFile(ctx context.Context, path, originalName string) (*Result, error) {
	log.Printf("processing file: %s", originalName)

	record, extractor, err := p.router.Extract(ctx, path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to process file: %w", err)
	}

	content := &database.Content{
		SourceType:         extractor.SourceType(),
		FilePath:           &path,
		Title:              record.Title,
		Author:             record.Author,
		PublishDate:        record.PublishDate,
		RawContent:         &record.Content,
		ContentHash:        files.ContentHash(record.Content, originalName, record.Title),
		ExtractionMetadata: record.Metadata,
	}
	return p.ingest(ctx, content, record.Content)
}

// ingest runs dedup and the transactional store-summarize-categorize flow.
func (p *Processor) ingest(ctx context.Context, content *database.Content, rawContent string) (*Result, error) {
	existing, err := p.db.GetContentByHash(content.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicates: %w", err)
	}
	if existing != nil {
		log.Printf("content already exists with ID %d", existing.ID)
		result, err := p.GetDetails(existing.ID)
		if err != nil {
			return nil, err
		}
		result.Duplicate = true
		return result, nil
	}

	tx, err := p.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	contentID, err := tx.InsertContent(content)
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race with a concurrent submission of the same content.
			tx.Rollback()
			if dup, getErr := p.db.GetContentByHash(content.ContentHash); getErr == nil && dup != nil {
				result, detErr := p.GetDetails(dup.ID)
				if detErr != nil {
					return nil, detErr
				}
				result.Duplicate = true
				return result, nil
			}
		}
		return nil, fmt.Errorf("storing content: %w", err)
	}
	log.Printf("created content record with ID %d", contentID)

	summary, err := p.summarizer.GenerateSummary(ctx, rawContent, summarize.Metadata{
		Title:      content.Title,
		Author:     content.Author,
		SourceType: content.SourceType,
	}, summarize.TypeComprehensive)
	if err != nil {
		return nil, fmt.Errorf("summarizing content %d: %w", contentID, err)
	}

	if _, err := tx.InsertSummary(&database.Summary{
		ContentID:    contentID,
		SummaryType:  summarize.TypeComprehensive,
		Overview:     summary.Overview,
		KeyInsights:  summary.KeyInsights,
		Implications: summary.Implications,
		ModelVersion: &summary.ModelVersion,
		TokenCount:   &summary.TokenCount,
	}); err != nil {
		return nil, fmt.Errorf("storing summary: %w", err)
	}
	log.Printf("generated summary for content %d", contentID)

	// Categorization failure never blocks ingestion; the item lands
	// unthemed and can be recategorized later.
	outcome := p.themes.Categorize(ctx, tx, contentID, summary)
	if outcome.Err != nil {
		log.Printf("categorization failed for content %d: %v", contentID, outcome.Err)
	}
	log.Printf("categorized content %d into %d themes", contentID, len(outcome.Assignments))

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}

	return p.GetDetails(contentID)
}

// GetDetails assembles the full result envelope for a stored content item.
func (p *Processor) GetDetails(contentID int64) (*Result, error) {
	content, err := p.db.GetContentByID(contentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("content %d not found", contentID)
	}

	result := &Result{
		ContentID:  content.ID,
		Title:      content.Title,
		Author:     content.Author,
		SourceType: content.SourceType,
		SourceURL:  content.SourceURL,
		CreatedAt:  content.CreatedAt,
		Themes:     []ThemeLink{},
	}

	summary, err := p.db.GetSummaryForContent(contentID)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		insights := summary.KeyInsights
		if insights == nil {
			insights = []string{}
		}
		result.Summary = &ResultSummary{
			Overview:     summary.Overview,
			KeyInsights:  insights,
			Implications: summary.Implications,
		}
	}

	links, err := p.db.GetContentThemes(contentID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		result.Themes = append(result.Themes, ThemeLink{ThemeID: link.ThemeID, Confidence: link.Confidence})
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
