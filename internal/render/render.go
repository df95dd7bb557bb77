// Package render builds markdown and HTML exports of the curated library.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/mvanwyk/curio/internal/database"
)

// Item pairs a content record with its summary and themes for export.
type Item struct {
	Content *database.Content
	Summary *database.Summary
	Themes  []database.Theme
}

// Markdown renders the library as a markdown document, grouped in the order
// given: one section per item with its summary, insights, and themes.
func Markdown(title string, items []Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "%d items\n\n", len(items))

	for _, item := range items {
		c := item.Content
		fmt.Fprintf(&b, "## %s\n\n", c.Title)

		var facts []string
		facts = append(facts, "Source: "+c.SourceType)
		if c.Author != nil {
			facts = append(facts, "Author: "+*c.Author)
		}
		if c.SourceURL != nil {
			facts = append(facts, fmt.Sprintf("[link](%s)", *c.SourceURL))
		}
		if c.PublishDate != nil {
			facts = append(facts, "Published: "+*c.PublishDate)
		}
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(facts, " · "))

		if len(item.Themes) > 0 {
			names := make([]string, 0, len(item.Themes))
			for _, th := range item.Themes {
				names = append(names, th.Name)
			}
			fmt.Fprintf(&b, "**Themes:** %s\n\n", strings.Join(names, ", "))
		}

		if item.Summary != nil {
			fmt.Fprintf(&b, "%s\n\n", item.Summary.Overview)
			if len(item.Summary.KeyInsights) > 0 {
				b.WriteString("**Key insights:**\n\n")
				for _, insight := range item.Summary.KeyInsights {
					fmt.Fprintf(&b, "- %s\n", insight)
				}
				b.WriteString("\n")
			}
			if item.Summary.Implications != nil && *item.Summary.Implications != "" {
				fmt.Fprintf(&b, "**Implications:** %s\n\n", *item.Summary.Implications)
			}
		}
	}

	return b.String()
}

// HTML converts markdown to a standalone HTML page.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString("<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem;line-height:1.5}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}
