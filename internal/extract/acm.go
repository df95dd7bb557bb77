package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/mvanwyk/curio/internal/ratelimit"
)

const acmFallbackContent = "Abstract not available. Please visit the ACM Digital Library for full content."

// ACMExtractor scrapes paper pages from the ACM Digital Library.
type ACMExtractor struct {
	limiter *ratelimit.Limiter
	client  *http.Client
}

// NewACMExtractor creates an ACM extractor.
func NewACMExtractor(limiter *ratelimit.Limiter) *ACMExtractor {
	return &ACMExtractor{
		limiter: limiter,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CanHandle matches ACM Digital Library URLs.
func (a *ACMExtractor) CanHandle(source string, isFile bool) bool {
	if isFile {
		return false
	}
	kind, _ := DetectSource(source)
	return kind == KindACM
}

// SourceType returns the stable source type identifier.
func (a *ACMExtractor) SourceType() string {
	return SourceACM
}

// Extract scrapes title, authors, abstract, DOI and date from the paper page.
func (a *ACMExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	a.limiter.Acquire()

	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ACM returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	title := firstText(doc, "h1.citation__title", "h1[property=name]")
	if title == "" {
		title = metaContent(doc, "dc.Title")
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = "Untitled ACM Paper"
	}

	var authors []string
	doc.Find("span.loa__author-name, a.author-name").Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			authors = append(authors, name)
		}
	})
	var authorStr *string
	if len(authors) > 0 {
		s := strings.Join(authors, ", ")
		authorStr = &s
	}

	abstract := firstText(doc, "div.abstractSection", "div[property=description]")
	if abstract == "" {
		abstract = metaContent(doc, "description")
	}
	abstract = strings.TrimPrefix(abstract, "Abstract")
	abstract = strings.TrimSpace(abstract)

	doi := metaContent(doc, "dc.Identifier")
	if doi == "" {
		doi = strings.TrimSpace(doc.Find("a.issue-item__doi").First().Text())
	}

	var publishDate *string
	dateStr := metaContent(doc, "dc.Date")
	if dateStr == "" {
		dateStr = strings.TrimSpace(doc.Find("span.CitationCoverDate").First().Text())
	}
	if dateStr != "" {
		if ts, err := dateparse.ParseAny(dateStr); err == nil {
			s := ts.UTC().Format(time.RFC3339)
			publishDate = &s
		}
	}

	var contentParts []string
	if abstract != "" {
		contentParts = append(contentParts, "Abstract:\n"+abstract)
	}

	// Pull a handful of body sections when the page exposes them. The
	// abstract is already captured above.
	doc.Find("div.section, div.article-section").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" && !containsString(contentParts, text) {
			contentParts = append(contentParts, text)
		}
		return true
	})

	if len(contentParts) == 0 {
		contentParts = append(contentParts, acmFallbackContent)
	}

	metadata := map[string]any{
		"url":       source,
		"extractor": "acm",
	}
	if doi != "" {
		metadata["doi"] = doi
	}
	if len(authors) > 0 {
		metadata["authors_list"] = authors
	}

	return &Record{
		Title:       title,
		Author:      authorStr,
		PublishDate: publishDate,
		Content:     strings.Join(contentParts, "\n\n"),
		Metadata:    metadata,
	}, nil
}

// firstText returns the trimmed text of the first selector that matches.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// metaContent returns the content attribute of a <meta name=...> tag.
func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
