package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>How Databases Work</title>
  <meta name="author" content="Sam Writer">
  <meta property="article:published_time" content="2024-03-15T09:00:00Z">
</head>
<body>
  <nav>Home | About | Contact</nav>
  <article>
    <h1>How Databases Work</h1>
    <p>Databases organize data into pages managed by a buffer pool. This article walks
    through the storage engine layer by layer, starting with the on-disk format and
    working up to the query planner. Along the way we will build a toy engine.</p>
    <p>The first component is the page cache, which mediates all reads and writes
    between the disk and the rest of the system. Every page is fixed size.</p>
  </article>
  <footer>Copyright 2024</footer>
</body>
</html>`

func TestWebExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	e := NewWebExtractor(testLimiter())
	record, err := e.Extract(context.Background(), srv.URL+"/post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(record.Title, "How Databases Work") {
		t.Errorf("unexpected title: %q", record.Title)
	}
	if !strings.Contains(record.Content, "buffer pool") {
		t.Errorf("content missing article text: %q", record.Content)
	}
	if record.Author == nil || *record.Author != "Sam Writer" {
		t.Errorf("unexpected author: %v", record.Author)
	}
	if record.PublishDate == nil || *record.PublishDate != "2024-03-15T09:00:00Z" {
		t.Errorf("unexpected publish date: %v", record.PublishDate)
	}
	if record.Metadata["extractor"] != "web" {
		t.Errorf("unexpected extractor metadata: %v", record.Metadata["extractor"])
	}
}

func TestWebExtractSelectorFallback(t *testing.T) {
	// No semantic article markup: readability may give up, the selector
	// fallback must still find the main div content.
	page := `<html><head><title>Short Post</title></head><body>
	<div class="post-content">` + strings.Repeat("Useful words about systems design. ", 10) + `</div>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	e := NewWebExtractor(testLimiter())
	record, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(record.Content, "systems design") {
		t.Errorf("fallback missed .post-content: %q", record.Content)
	}
}

func TestWebExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewWebExtractor(testLimiter())
	if _, err := e.Extract(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestWebCanHandle(t *testing.T) {
	e := NewWebExtractor(testLimiter())
	if !e.CanHandle("https://anything.example", false) {
		t.Error("web extractor should accept any https URL")
	}
	if e.CanHandle("/tmp/file.pdf", true) {
		t.Error("web extractor should reject file sources")
	}
	if e.CanHandle("ftp://example.com", false) {
		t.Error("web extractor should reject non-http schemes")
	}
}
