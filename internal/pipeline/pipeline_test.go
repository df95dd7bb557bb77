package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/extract"
	"github.com/mvanwyk/curio/internal/summarize"
	"github.com/mvanwyk/curio/internal/themes"
)

// fakeExtractor accepts everything and returns a fixed record.
type fakeExtractor struct {
	record *Record
	err    error
}

type Record = extract.Record

func (f *fakeExtractor) CanHandle(source string, isFile bool) bool { return true }
func (f *fakeExtractor) SourceType() string                        { return "web" }
func (f *fakeExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	return f.record, f.err
}

// fakeSummarizer returns a canned summary or an error.
type fakeSummarizer struct {
	summary *summarize.Summary
	err     error
	calls   int
}

func (f *fakeSummarizer) GenerateSummary(ctx context.Context, content string, meta summarize.Metadata, summaryType string) (*summarize.Summary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

// fakeCategorizer assigns nothing unless told otherwise.
type fakeCategorizer struct {
	outcome themes.Outcome
	calls   int
}

func (f *fakeCategorizer) Categorize(ctx context.Context, tx *database.Tx, contentID int64, summary *summarize.Summary) themes.Outcome {
	f.calls++
	return f.outcome
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func goodSummary() *summarize.Summary {
	impl := "big deal"
	return &summarize.Summary{
		Overview:     "An overview of the article.",
		KeyInsights:  []string{"one", "two"},
		Implications: &impl,
		TokenCount:   10,
		ModelVersion: "fake-model",
	}
}

func goodRecord() *Record {
	author := "Jane"
	return &Record{
		Title:    "Test Article",
		Author:   &author,
		Content:  "Body of the article with enough words.",
		Metadata: map[string]any{"extractor": "web"},
	}
}

func newTestProcessor(db *database.DB, ext extract.Extractor, s Summarizer, c Categorizer) *Processor {
	return NewProcessor(db, extract.NewRouter(ext), s, c)
}

func TestProcessURLStoresEverything(t *testing.T) {
	db := openTestDB(t)
	summarizer := &fakeSummarizer{summary: goodSummary()}
	categorizer := &fakeCategorizer{}
	p := newTestProcessor(db, &fakeExtractor{record: goodRecord()}, summarizer, categorizer)

	result, err := p.ProcessURL(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Title != "Test Article" || result.SourceType != "web" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Duplicate {
		t.Error("fresh content must not be flagged duplicate")
	}
	if result.Summary == nil || result.Summary.Overview != "An overview of the article." {
		t.Errorf("summary missing from result: %+v", result.Summary)
	}

	stored, _ := db.GetContentByID(result.ContentID)
	if stored == nil {
		t.Fatal("content not persisted")
	}
	if stored.SourceURL == nil || *stored.SourceURL != "https://example.com/a" {
		t.Errorf("source URL not stored: %v", stored.SourceURL)
	}

	summary, _ := db.GetSummaryForContent(result.ContentID)
	if summary == nil || len(summary.KeyInsights) != 2 {
		t.Errorf("summary not persisted: %+v", summary)
	}

	if categorizer.calls != 1 {
		t.Errorf("expected one categorization call, got %d", categorizer.calls)
	}
}

func TestProcessURLIdempotentResubmission(t *testing.T) {
	db := openTestDB(t)
	summarizer := &fakeSummarizer{summary: goodSummary()}
	p := newTestProcessor(db, &fakeExtractor{record: goodRecord()}, summarizer, &fakeCategorizer{})

	first, err := p.ProcessURL(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := p.ProcessURL(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ContentID != first.ContentID {
		t.Errorf("resubmission must return the original item: %d != %d", second.ContentID, first.ContentID)
	}
	if !second.Duplicate {
		t.Error("resubmission must be flagged duplicate")
	}
	if summarizer.calls != 1 {
		t.Errorf("duplicate must not be re-summarized, got %d calls", summarizer.calls)
	}
}

func TestProcessURLDistinctSourcesSameText(t *testing.T) {
	db := openTestDB(t)
	p := newTestProcessor(db, &fakeExtractor{record: goodRecord()}, &fakeSummarizer{summary: goodSummary()}, &fakeCategorizer{})

	a, _ := p.ProcessURL(context.Background(), "https://example.com/a")
	b, err := p.ProcessURL(context.Background(), "https://example.com/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ContentID == b.ContentID {
		t.Error("same text from different URLs must be distinct items")
	}
}

func TestProcessURLSummaryFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	summarizer := &fakeSummarizer{err: fmt.Errorf("llm down")}
	p := newTestProcessor(db, &fakeExtractor{record: goodRecord()}, summarizer, &fakeCategorizer{})

	_, err := p.ProcessURL(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("expected error")
	}

	// Nothing persisted: the content row rolled back with the summary.
	contents, _ := db.ListContents(10, 0)
	if len(contents) != 0 {
		t.Errorf("expected empty library after rollback, got %d items", len(contents))
	}

	// A later successful attempt works (the hash is not burned).
	summarizer.err = nil
	summarizer.summary = goodSummary()
	if _, err := p.ProcessURL(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestProcessURLExtractionFailure(t *testing.T) {
	db := openTestDB(t)
	p := newTestProcessor(db, &fakeExtractor{err: fmt.Errorf("fetch failed")}, &fakeSummarizer{}, &fakeCategorizer{})

	if _, err := p.ProcessURL(context.Background(), "https://example.com/a"); err == nil {
		t.Fatal("expected extraction error to propagate")
	}
	contents, _ := db.ListContents(10, 0)
	if len(contents) != 0 {
		t.Error("nothing should be stored on extraction failure")
	}
}

func TestProcessURLCategorizationFailureStillCommits(t *testing.T) {
	db := openTestDB(t)
	categorizer := &fakeCategorizer{outcome: themes.Outcome{Err: fmt.Errorf("llm down")}}
	p := newTestProcessor(db, &fakeExtractor{record: goodRecord()}, &fakeSummarizer{summary: goodSummary()}, categorizer)

	result, err := p.ProcessURL(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("categorization failure must not fail the pipeline: %v", err)
	}
	if len(result.Themes) != 0 {
		t.Errorf("expected no themes, got %+v", result.Themes)
	}

	// Content and summary are committed regardless.
	if c, _ := db.GetContentByID(result.ContentID); c == nil {
		t.Error("content must be committed despite categorization failure")
	}
	if s, _ := db.GetSummaryForContent(result.ContentID); s == nil {
		t.Error("summary must be committed despite categorization failure")
	}
}

func TestProcessFile(t *testing.T) {
	db := openTestDB(t)
	record := goodRecord()
	record.Metadata = map[string]any{"extractor": "pdf", "page_count": 3}
	ext := &fakeExtractor{record: record}
	p := newTestProcessor(db, ext, &fakeSummarizer{summary: goodSummary()}, &fakeCategorizer{})

	result, err := p.ProcessFile(context.Background(), "/tmp/uploads/abc.pdf", "paper.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := db.GetContentByID(result.ContentID)
	if stored.FilePath == nil || *stored.FilePath != "/tmp/uploads/abc.pdf" {
		t.Errorf("file path not stored: %v", stored.FilePath)
	}
	if stored.SourceURL != nil {
		t.Errorf("file content must not have a source URL: %v", stored.SourceURL)
	}

	// Re-upload under the same original name dedups.
	again, err := p.ProcessFile(context.Background(), "/tmp/uploads/other-copy.pdf", "paper.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.Duplicate || again.ContentID != result.ContentID {
		t.Errorf("expected dedup hit, got %+v", again)
	}
}

func TestResultEnvelopeThemes(t *testing.T) {
	db := openTestDB(t)

	themeID, _ := db.InsertTheme("Tagged", nil, nil, 0)
	categorizer := &stubAssigningCategorizer{themeID: themeID}
	p := newTestProcessor(db, &fakeExtractor{record: goodRecord()}, &fakeSummarizer{summary: goodSummary()}, categorizer)

	result, err := p.ProcessURL(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Themes) != 1 || result.Themes[0].ThemeID != themeID {
		t.Fatalf("expected theme in envelope, got %+v", result.Themes)
	}
	if result.Themes[0].Confidence == nil || *result.Themes[0].Confidence != 0.8 {
		t.Errorf("unexpected confidence: %v", result.Themes[0].Confidence)
	}
}

// stubAssigningCategorizer links the content to one fixed theme inside the tx.
type stubAssigningCategorizer struct {
	themeID int64
}

func (s *stubAssigningCategorizer) Categorize(ctx context.Context, tx *database.Tx, contentID int64, summary *summarize.Summary) themes.Outcome {
	conf := 0.8
	if err := tx.InsertContentTheme(contentID, s.themeID, &conf); err != nil {
		return themes.Outcome{Err: err}
	}
	return themes.Outcome{Assignments: []themes.Assignment{{ThemeID: s.themeID, Confidence: conf}}}
}
