package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mvanwyk/curio/internal/ratelimit"
)

const arxivAPIBaseURL = "http://export.arxiv.org"

// ArxivExtractor fetches paper metadata and abstracts from the arXiv Atom API.
type ArxivExtractor struct {
	BaseURL string
	limiter *ratelimit.Limiter
	client  *http.Client
}

// NewArxivExtractor creates an arXiv extractor.
func NewArxivExtractor(limiter *ratelimit.Limiter) *ArxivExtractor {
	return &ArxivExtractor{
		BaseURL: arxivAPIBaseURL,
		limiter: limiter,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CanHandle matches arxiv.org URLs.
func (a *ArxivExtractor) CanHandle(source string, isFile bool) bool {
	if isFile {
		return false
	}
	kind, _ := DetectSource(source)
	return kind == KindArxiv
}

// SourceType returns the stable source type identifier.
func (a *ArxivExtractor) SourceType() string {
	return SourceArxiv
}

// Extract fetches the paper's Atom entry and builds a record from its
// abstract and metadata.
func (a *ArxivExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	_, arxivID := DetectSource(source)
	if arxivID == "" {
		return nil, fmt.Errorf("could not extract arXiv ID from URL")
	}

	a.limiter.Acquire()

	endpoint := fmt.Sprintf("%s/api/query?id_list=%s&max_results=1", a.BaseURL, arxivID)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "curio/1.0 (research curator)")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv API returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing arxiv feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("paper not found: %s", arxivID)
	}
	paper := feed.Items[0]

	title := strings.Join(strings.Fields(paper.Title), " ")
	if title == "" {
		title = "arXiv:" + arxivID
	}

	abstract := strings.TrimSpace(paper.Description)
	contentParts := []string{"Abstract:\n" + abstract}
	if len(paper.Categories) > 0 {
		contentParts = append(contentParts, "\nCategories: "+strings.Join(paper.Categories, ", "))
	}
	if comment := arxivExtension(paper, "comment"); comment != "" {
		contentParts = append(contentParts, "\nComments: "+comment)
	}
	if journalRef := arxivExtension(paper, "journal_ref"); journalRef != "" {
		contentParts = append(contentParts, "\nJournal Reference: "+journalRef)
	}
	doi := arxivExtension(paper, "doi")
	if doi != "" {
		contentParts = append(contentParts, "\nDOI: "+doi)
	}

	var authorStr *string
	if len(paper.Authors) > 0 {
		names := make([]string, 0, len(paper.Authors))
		for _, p := range paper.Authors {
			if p != nil && p.Name != "" {
				names = append(names, p.Name)
			}
		}
		if len(names) > 0 {
			s := strings.Join(names, ", ")
			authorStr = &s
		}
	}

	var publishDate *string
	if paper.PublishedParsed != nil {
		s := paper.PublishedParsed.UTC().Format(time.RFC3339)
		publishDate = &s
	}

	metadata := map[string]any{
		"url":        source,
		"arxiv_id":   arxivID,
		"extractor":  "arxiv",
		"categories": paper.Categories,
	}
	if doi != "" {
		metadata["doi"] = doi
	}
	if paper.UpdatedParsed != nil {
		metadata["updated"] = paper.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	return &Record{
		Title:       title,
		Author:      authorStr,
		PublishDate: publishDate,
		Content:     strings.Join(contentParts, "\n"),
		Metadata:    metadata,
	}, nil
}

// arxivExtension reads an arxiv-namespaced Atom extension value (comment,
// journal_ref, doi) from a feed item.
func arxivExtension(item *gofeed.Item, key string) string {
	exts, ok := item.Extensions["arxiv"]
	if !ok {
		return ""
	}
	vals, ok := exts[key]
	if !ok || len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0].Value)
}
