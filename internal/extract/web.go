package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/mvanwyk/curio/internal/ratelimit"
)

// WebExtractor is the generic fallback for any http(s) URL. It tries a
// readability pass first and falls back to selector-based scraping when the
// readability result is too thin to be useful.
type WebExtractor struct {
	limiter *ratelimit.Limiter
	client  *http.Client
}

// NewWebExtractor creates a generic web page extractor.
func NewWebExtractor(limiter *ratelimit.Limiter) *WebExtractor {
	return &WebExtractor{
		limiter: limiter,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// CanHandle accepts any http or https URL.
func (w *WebExtractor) CanHandle(source string, isFile bool) bool {
	if isFile {
		return false
	}
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// SourceType returns the stable source type identifier.
func (w *WebExtractor) SourceType() string {
	return SourceWeb
}

// Extract fetches the page once and extracts readable article text from it.
func (w *WebExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	w.limiter.Acquire()

	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("page returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	pageURL, _ := url.Parse(source)

	var title, content string
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && len(strings.TrimSpace(article.TextContent)) > 100 {
		title = strings.TrimSpace(article.Title)
		content = strings.TrimSpace(article.TextContent)
	}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if docErr != nil && content == "" {
		return nil, fmt.Errorf("parsing page: %w", docErr)
	}

	if content == "" && doc != nil {
		content = scrapeMainContent(doc)
	}
	if content == "" {
		return nil, fmt.Errorf("no readable content found")
	}

	var authorStr, publishDate *string
	if doc != nil {
		if title == "" {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		if author := metaContent(doc, "author"); author != "" {
			authorStr = &author
		}
		if published, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
			if ts, err := dateparse.ParseAny(published); err == nil {
				s := ts.UTC().Format(time.RFC3339)
				publishDate = &s
			}
		}
	}
	if title == "" {
		title = Domain(source)
	}

	return &Record{
		Title:       title,
		Author:      authorStr,
		PublishDate: publishDate,
		Content:     content,
		Metadata: map[string]any{
			"url":       source,
			"domain":    Domain(source),
			"extractor": "web",
		},
	}, nil
}

// scrapeMainContent tries common article containers and falls back to the
// page body with chrome elements stripped.
func scrapeMainContent(doc *goquery.Document) string {
	selectors := []string{"article", "main", ".post-content", ".article-content", ".entry-content"}
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); len(text) > 100 {
			return collapseBlankLines(text)
		}
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, nav, header, footer").Remove()
	return collapseBlankLines(strings.TrimSpace(body.Text()))
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
