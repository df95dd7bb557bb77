package summarize

import (
	"fmt"
	"strings"

	"github.com/mvanwyk/curio/internal/database"
)

// comprehensivePrompt asks for the full structured JSON summary.
func comprehensivePrompt(content string, meta Metadata) string {
	author := "Unknown"
	if meta.Author != nil {
		author = *meta.Author
	}
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	sourceType := meta.SourceType
	if sourceType == "" {
		sourceType = "content"
	}

	return fmt.Sprintf(`You are an expert research analyst. Analyze the following %s and provide a comprehensive, structured summary.

Content Type: %s
Title: %s
Author: %s

Content:
%s

Please provide a detailed summary in the following JSON format:
{
    "overview": "A 2-3 paragraph overview explaining the main method, approach, or thesis. Focus on what problem is being addressed and how it's being solved or explored.",
    "key_insights": [
        "First key insight or major finding (be specific and detailed)",
        "Second key insight or major finding",
        "Third key insight or major finding",
        "Add more as needed - aim for 3-5 key insights"
    ],
    "implications": "1-2 paragraphs discussing the broader implications, applications, or significance of this work. What does it mean for the world? How might it influence the field or society? What are the potential applications?",
    "suggested_themes": ["Theme 1", "Theme 2", "Theme 3"]
}

Guidelines:
1. **Overview**: Explain the core method, approach, or argument clearly. Avoid just restating the title.
2. **Key Insights**: Extract the most important findings, discoveries, or arguments. Be specific with examples or data when available.
3. **Implications**: Think broadly about impact - academic significance, practical applications, societal relevance, future directions.
4. **Suggested Themes**: Identify 2-4 broad research themes or topics this content belongs to (e.g., "Machine Learning", "Climate Change", "Social Media Ethics")

Be thorough and analytical. This summary should give someone a complete understanding of the content's value and significance.`,
		sourceType, sourceType, title, author, content)
}

// briefPrompt asks for a short free-text preview summary.
func briefPrompt(content string, meta Metadata) string {
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf(`Provide a concise 2-3 sentence summary of the following content:

Title: %s

Content:
%s

Summary:`, title, content)
}

// categorizationPrompt asks which existing themes a summary belongs to.
func categorizationPrompt(summary *Summary, existing []database.Theme) string {
	var themeLines []string
	for i, theme := range existing {
		desc := "No description"
		if theme.Description != nil && *theme.Description != "" {
			desc = *theme.Description
		}
		themeLines = append(themeLines, fmt.Sprintf("%d. %s: %s", i+1, theme.Name, desc))
	}
	themesText := strings.Join(themeLines, "\n")
	if themesText == "" {
		themesText = "No existing themes yet."
	}

	var insightLines []string
	for _, insight := range summary.KeyInsights {
		insightLines = append(insightLines, "- "+insight)
	}

	implications := ""
	if summary.Implications != nil {
		implications = *summary.Implications
	}

	return fmt.Sprintf(`You are categorizing content into research themes. Given a content summary and existing themes, determine which themes this content belongs to.

**Content Summary:**
Overview: %s

Key Insights:
%s

Implications: %s

**Existing Themes:**
%s

**Task:**
1. Identify which existing themes (if any) this content belongs to
2. For each match, provide a confidence score (0.0 to 1.0)
3. If this content introduces a significantly new topic not well-covered by existing themes, suggest a new theme

**Output JSON format:**
{
    "theme_matches": [
        {
            "theme_id": 1,
            "confidence": 0.85,
            "reasoning": "Brief explanation of why this theme fits"
        }
    ],
    "new_theme_suggestion": {
        "name": "Theme Name",
        "description": "Brief description of the new theme",
        "reasoning": "Why this deserves to be a new theme"
    } or null
}

**Guidelines:**
- Only match themes with confidence > 0.5
- Content can belong to multiple themes
- Suggest a new theme only if the content is substantially different from existing themes (>30%% new)
- New themes should be broad enough to encompass multiple pieces of content, not specific to one article`,
		summary.Overview, strings.Join(insightLines, "\n"), implications, themesText)
}

// bootstrapPrompt asks for an initial theme set derived from a batch of
// summaries.
func bootstrapPrompt(summaries []database.Summary) string {
	var parts []string
	for i, s := range summaries {
		parts = append(parts, fmt.Sprintf("Summary %d:\nOverview: %s\nKey Insights: %s",
			i+1, s.Overview, strings.Join(s.KeyInsights, ", ")))
	}

	return fmt.Sprintf(`You are analyzing the first batch of content summaries to identify broad research themes that will be used to categorize future content.

**Content Summaries:**
%s

**Task:**
Identify 5-8 broad, high-level research themes that emerge from these summaries. These themes should:
1. Be broad enough to encompass multiple pieces of content
2. Be distinct from each other
3. Cover the major topics represented in the summaries
4. Be useful for organizing and discovering related content

**Output JSON format:**
{
    "themes": [
        {
            "name": "Theme Name (2-4 words)",
            "description": "A clear description of what this theme encompasses (1-2 sentences)",
            "example_content": ["Brief reference to which summaries fit this theme"]
        }
    ]
}

**Examples of good themes:**
- "Machine Learning & AI"
- "Climate Science & Policy"
- "Healthcare Innovation"
- "Quantum Computing"

**Examples of bad themes (too specific):**
- "GPT-4 Architecture" (too narrow)
- "Temperature in California" (too narrow)
- "This specific paper's findings" (too narrow)`,
		strings.Join(parts, "\n\n"))
}
